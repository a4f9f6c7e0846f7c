// internal/services/admin_service.go
package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

// LowStockThreshold marks commercial items that need restocking.
const LowStockThreshold = 5

type AdminService struct {
	db *gorm.DB
}

type AdminDashboardStats struct {
	TotalUsers             int64           `json:"total_users"`
	NewUsersThisMonth      int64           `json:"new_users_this_month"`
	UserGrowth             float64         `json:"user_growth"`
	PendingOrders          int64           `json:"pending_orders"`
	PaidOrdersThisMonth    int64           `json:"paid_orders_this_month"`
	MonthlySales           decimal.Decimal `json:"monthly_sales"`
	CommercialItems        int64           `json:"commercial_items"`
	LowStockItems          int64           `json:"low_stock_items"`
	OperationalAssets      int64           `json:"operational_assets"`
	AssetsInMaintenance    int64           `json:"assets_in_maintenance"`
	NewSponsorApplications int64           `json:"new_sponsor_applications"`
	Documents              int64           `json:"documents"`
	ActiveMemberships      int64           `json:"active_memberships"`
	PendingMemberships     int64           `json:"pending_memberships"`
	UpcomingEvents         int64           `json:"upcoming_events"`
}

type AuditLogFilter struct {
	utils.PaginationParams
	UserID       *uint
	ResourceType string
	Action       string
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) GetDashboardStats(now time.Time) (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{}
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, s.db.Model(&models.User{})},
		{&stats.NewUsersThisMonth, s.db.Model(&models.User{}).Where("created_at >= ?", monthStart)},
		{&stats.PendingOrders, s.db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending)},
		{&stats.PaidOrdersThisMonth, s.db.Model(&models.Order{}).Where("status = ? AND paid_at >= ?", models.OrderStatusPaid, monthStart)},
		{&stats.CommercialItems, s.db.Model(&models.CommercialItem{})},
		{&stats.LowStockItems, s.db.Model(&models.CommercialItem{}).Where("stock <= ?", LowStockThreshold)},
		{&stats.OperationalAssets, s.db.Model(&models.OperationalAsset{})},
		{&stats.AssetsInMaintenance, s.db.Model(&models.OperationalAsset{}).Where("status = ?", models.AssetStatusInMaintenance)},
		{&stats.NewSponsorApplications, s.db.Model(&models.SponsorApplication{}).Where("status = ?", models.SponsorStatusNew)},
		{&stats.Documents, s.db.Model(&models.Document{})},
		{&stats.ActiveMemberships, s.db.Model(&models.Membership{}).Where("status = ? AND end_date >= ?", models.MembershipStatusActive, now)},
		{&stats.PendingMemberships, s.db.Model(&models.Membership{}).Where("status = ?", models.MembershipStatusPending)},
		{&stats.UpcomingEvents, s.db.Model(&models.Event{}).Where("event_date >= ?", now)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
		}
	}

	var sales decimal.NullDecimal
	if err := s.db.Model(&models.Order{}).
		Where("status = ? AND paid_at >= ?", models.OrderStatusPaid, monthStart).
		Select("SUM(total_amount)").Row().Scan(&sales); err != nil {
		return nil, fmt.Errorf("failed to sum monthly sales: %w", err)
	}
	stats.MonthlySales = sales.Decimal.Round(2)

	var lastMonthUsers int64
	if err := s.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", lastMonthStart, monthStart).
		Count(&lastMonthUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	stats.UserGrowth = newTrend(decimal.NewFromInt(stats.NewUsersThisMonth), decimal.NewFromInt(lastMonthUsers)).Percent

	return stats, nil
}

func (s *AdminService) GetAuditLogs(filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	query := s.db.Model(&models.AuditLog{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []models.AuditLog
	if err := utils.ApplyPagination(query.Order("id DESC"), filter.PaginationParams).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}
