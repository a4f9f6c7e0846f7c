// internal/services/finance_service.go
package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

const chartMonths = 12

type FinanceService struct {
	db *gorm.DB
}

type RecordTransactionRequest struct {
	Type        models.TransactionType   `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Category    models.FinancialCategory `json:"category" validate:"required"`
	Amount      decimal.Decimal          `json:"amount"`
	Description string                   `json:"description" validate:"max=255"`
}

type TransactionListParams struct {
	utils.PaginationParams
	Type     models.TransactionType
	Category models.FinancialCategory
}

type MonthTotals struct {
	Month   string          `json:"month"`
	Name    string          `json:"name"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

type Trend struct {
	Current   decimal.Decimal `json:"current"`
	Previous  decimal.Decimal `json:"previous"`
	Percent   float64         `json:"trend_percent"`
	Direction string          `json:"trend_direction"`
}

type BalanceSummary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetBalance   decimal.Decimal `json:"net_balance"`
}

type SponsorshipTotals struct {
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

type TopProduct struct {
	ResourceID uint            `json:"resource_id"`
	Name       string          `json:"name"`
	Quantity   int64           `json:"quantity_sold"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type BalanceReport struct {
	Summary           BalanceSummary                               `json:"summary"`
	Trends            map[string]Trend                             `json:"trends"`
	Chart             []MonthTotals                                `json:"chart"`
	Sponsorships      SponsorshipTotals                            `json:"sponsorships"`
	MembershipIncome  decimal.Decimal                              `json:"membership_income"`
	IncomeByCategory  map[models.FinancialCategory]decimal.Decimal `json:"income_by_category"`
	ExpenseByCategory map[models.FinancialCategory]decimal.Decimal `json:"expense_by_category"`
	TopProducts       []TopProduct                                 `json:"top_products"`
	GeneratedAt       time.Time                                    `json:"generated_at"`
}

func NewFinanceService(db *gorm.DB) *FinanceService {
	return &FinanceService{db: db}
}

func (s *FinanceService) Record(req *RecordTransactionRequest, recordedBy string) (*models.FinancialTransaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}
	if !req.Amount.IsPositive() {
		return nil, newError(ErrValidation, "amount must be greater than zero")
	}
	typ, ok := req.Category.TypeOf()
	if !ok {
		return nil, newError(ErrValidation, "unknown category %s", req.Category)
	}
	if typ != req.Type {
		return nil, newError(ErrValidation, "category %s is not an %s category", req.Category, req.Type)
	}

	txn, err := bookTransaction(s.db, req.Category, req.Amount, req.Description, recordedBy, nil)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *FinanceService) List(params TransactionListParams) ([]models.FinancialTransaction, int64, error) {
	query := s.db.Model(&models.FinancialTransaction{})
	if params.Type != "" {
		query = query.Where("type = ?", params.Type)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txns []models.FinancialTransaction
	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "amount"}, "created_at DESC, id DESC")
	if err := utils.ApplyPagination(query, params.PaginationParams).Find(&txns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, total, nil
}

// Balance builds the report as of now. Sales are PAID order totals bucketed
// by payment date; they are never stored as transactions.
func (s *FinanceService) Balance(now time.Time) (*BalanceReport, error) {
	now = now.UTC()
	report := &BalanceReport{
		Trends:            make(map[string]Trend),
		IncomeByCategory:  make(map[models.FinancialCategory]decimal.Decimal),
		ExpenseByCategory: make(map[models.FinancialCategory]decimal.Decimal),
		GeneratedAt:       now,
	}

	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := chartMonths - 1; i >= 0; i-- {
		start := currentMonth.AddDate(0, -i, 0)
		income, expense, err := s.monthTotals(start)
		if err != nil {
			return nil, err
		}
		report.Chart = append(report.Chart, MonthTotals{
			Month:   start.Format("2006-01"),
			Name:    start.Format("Jan"),
			Income:  income,
			Expense: expense,
		})
	}

	cur := report.Chart[chartMonths-1]
	prev := report.Chart[chartMonths-2]
	report.Trends["income"] = newTrend(cur.Income, prev.Income)
	report.Trends["expense"] = newTrend(cur.Expense, prev.Expense)
	report.Trends["net"] = newTrend(cur.Income.Sub(cur.Expense), prev.Income.Sub(prev.Expense))

	sales, err := s.sum(s.paidOrders(), "total_amount")
	if err != nil {
		return nil, err
	}
	otherIncome, err := s.sum(s.transactions(models.TransactionTypeIncome), "amount")
	if err != nil {
		return nil, err
	}
	expense, err := s.sum(s.transactions(models.TransactionTypeExpense), "amount")
	if err != nil {
		return nil, err
	}
	report.Summary = BalanceSummary{
		TotalIncome:  sales.Add(otherIncome),
		TotalExpense: expense,
		NetBalance:   sales.Add(otherIncome).Sub(expense),
	}

	sponsorQuery := s.transactions(models.TransactionTypeIncome).Where("category = ?", models.CategorySponsorship)
	if report.Sponsorships.Total, err = s.sum(sponsorQuery, "amount"); err != nil {
		return nil, err
	}
	if err := s.transactions(models.TransactionTypeIncome).Where("category = ?", models.CategorySponsorship).
		Count(&report.Sponsorships.Count).Error; err != nil {
		return nil, fmt.Errorf("failed to count sponsorships: %w", err)
	}

	membershipQuery := s.transactions(models.TransactionTypeIncome).Where("category = ?", models.CategoryMembership)
	if report.MembershipIncome, err = s.sum(membershipQuery, "amount"); err != nil {
		return nil, err
	}

	if err := s.breakdown(report); err != nil {
		return nil, err
	}
	report.IncomeByCategory[models.CategoryProductSale] = report.IncomeByCategory[models.CategoryProductSale].Add(sales)

	if report.TopProducts, err = s.topProducts(5); err != nil {
		return nil, err
	}

	return report, nil
}

func (s *FinanceService) monthTotals(start time.Time) (decimal.Decimal, decimal.Decimal, error) {
	end := start.AddDate(0, 1, 0)

	sales, err := s.sum(s.paidOrders().Where("COALESCE(paid_at, created_at) >= ? AND COALESCE(paid_at, created_at) < ?", start, end), "total_amount")
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	other, err := s.sum(s.transactions(models.TransactionTypeIncome).Where("created_at >= ? AND created_at < ?", start, end), "amount")
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	expense, err := s.sum(s.transactions(models.TransactionTypeExpense).Where("created_at >= ? AND created_at < ?", start, end), "amount")
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return sales.Add(other), expense, nil
}

func (s *FinanceService) paidOrders() *gorm.DB {
	return s.db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPaid)
}

func (s *FinanceService) transactions(typ models.TransactionType) *gorm.DB {
	return s.db.Model(&models.FinancialTransaction{}).Where("type = ?", typ)
}

// sum scans through sql.Row so the driver's numeric type reaches decimal intact.
func (s *FinanceService) sum(query *gorm.DB, column string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := query.Select("SUM(" + column + ")").Row().Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s: %w", column, err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}

func (s *FinanceService) breakdown(report *BalanceReport) error {
	rows, err := s.db.Model(&models.FinancialTransaction{}).
		Select("type, category, SUM(amount)").
		Group("type, category").
		Rows()
	if err != nil {
		return fmt.Errorf("failed to break down transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ      models.TransactionType
			category models.FinancialCategory
			total    decimal.Decimal
		)
		if err := rows.Scan(&typ, &category, &total); err != nil {
			return fmt.Errorf("failed to scan breakdown: %w", err)
		}
		if typ == models.TransactionTypeIncome {
			report.IncomeByCategory[category] = total.Round(2)
		} else {
			report.ExpenseByCategory[category] = total.Round(2)
		}
	}
	return rows.Err()
}

func (s *FinanceService) topProducts(limit int) ([]TopProduct, error) {
	rows, err := s.db.Table("order_items").
		Select("order_items.resource_id, COALESCE(MAX(resources.name), MAX(order_items.item_name)), SUM(order_items.quantity) AS quantity, SUM(order_items.subtotal)").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("LEFT JOIN resources ON resources.id = order_items.resource_id").
		Where("orders.status = ?", models.OrderStatusPaid).
		Group("order_items.resource_id").
		Order("quantity DESC, order_items.resource_id ASC").
		Limit(limit).
		Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to load top products: %w", err)
	}
	defer rows.Close()

	top := make([]TopProduct, 0, limit)
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ResourceID, &p.Name, &p.Quantity, &p.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		p.Revenue = p.Revenue.Round(2)
		top = append(top, p)
	}
	return top, rows.Err()
}

// newTrend compares a month with the previous one. A previous value of zero
// reads as 100% growth when anything was recorded, else as flat.
func newTrend(current, previous decimal.Decimal) Trend {
	t := Trend{Current: current, Previous: previous}

	switch {
	case previous.IsZero() && current.IsPositive():
		t.Percent = 100
	case previous.IsZero():
		t.Percent = 0
	default:
		pct, _ := current.Sub(previous).Div(previous.Abs()).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		t.Percent = pct
	}

	switch {
	case t.Percent > 0:
		t.Direction = "up"
	case t.Percent < 0:
		t.Direction = "down"
	default:
		t.Direction = "neutral"
	}
	return t
}

// bookTransaction writes a ledger entry with the type implied by its category.
func bookTransaction(tx *gorm.DB, category models.FinancialCategory, amount decimal.Decimal, description, recordedBy string, reference *string) (*models.FinancialTransaction, error) {
	typ, ok := category.TypeOf()
	if !ok {
		return nil, newError(ErrValidation, "unknown category %s", category)
	}

	txn := &models.FinancialTransaction{
		Type:        typ,
		Category:    category,
		Amount:      amount.Round(2),
		Description: description,
		RecordedBy:  recordedBy,
		Reference:   reference,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, storeError(err, "transaction")
	}
	return txn, nil
}
