package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateJWT(42, "ana@club.test", "Admin", 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "Admin", claims.Role)

	refresh, err := GenerateRefreshToken(42, 1)
	require.NoError(t, err)

	id, err := ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	// tokens are not interchangeable
	_, err = ValidateJWT(refresh)
	assert.Error(t, err)
	_, err = ValidateRefreshToken(token)
	assert.Error(t, err)

	SetJWTSecret("other-secret")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

type priced struct {
	Name  string          `json:"name" validate:"required,not_undefined"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
	Tags  []string        `json:"tags" validate:"min=1"`
}

func TestValidateStruct(t *testing.T) {
	ok := priced{Name: "Casco", Price: decimal.RequireFromString("10.50"), Tags: []string{"a"}}
	assert.NoError(t, ValidateStruct(&ok))

	bad := priced{Name: "undefined", Price: decimal.NewFromInt(-1)}
	errs := GetValidationErrors(ValidateStruct(&bad))
	require.Len(t, errs, 3)

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Tag
	}
	assert.Equal(t, "not_undefined", fields["name"])
	assert.Equal(t, "gte", fields["price"])
	assert.Equal(t, "min", fields["tags"])
}

func TestStrongPassword(t *testing.T) {
	type req struct {
		Password string `json:"password" validate:"strong_password"`
	}
	assert.NoError(t, ValidateStruct(&req{Password: "Pedal-2024"}))
	assert.Error(t, ValidateStruct(&req{Password: "pedal2024"}))
}

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		query      string
		page       int
		limit      int
		offset     int
		orderField string
	}{
		{"", 1, 20, 0, "desc"},
		{"page=3&limit=10", 3, 10, 20, "desc"},
		{"skip=25&limit=10&order=asc", 3, 10, 25, "asc"},
		{"page=-1&limit=500&order=sideways", 1, 20, 0, "desc"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)

		p := GetPaginationParams(c)
		assert.Equal(t, tc.page, p.Page, tc.query)
		assert.Equal(t, tc.limit, p.Limit, tc.query)
		assert.Equal(t, tc.offset, p.Offset, tc.query)
		assert.Equal(t, tc.orderField, p.Order, tc.query)
	}
}

func TestCreatePaginationResult(t *testing.T) {
	res := CreatePaginationResult([]int{1, 2}, 45, PaginationParams{Page: 2, Limit: 20, Offset: 20})
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, int64(45), res.Total)
}

func TestCryptoHelpers(t *testing.T) {
	code, err := GenerateResetCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}

	assert.Equal(t, HashString("abc"), HashBytes([]byte("abc")))
	assert.Len(t, HashString("abc"), 64)
}
