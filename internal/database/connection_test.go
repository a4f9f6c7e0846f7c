package database_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/database"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/testutil"
)

func TestSeedAdminOnce(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := config.AdminConfig{Email: "admin@club.test", Password: "Admin123!", FirstName: "Root"}

	require.NoError(t, database.SeedAdmin(db, cfg))
	require.NoError(t, database.SeedAdmin(db, cfg))

	var admins []models.User
	require.NoError(t, db.Where("role = ?", models.UserRoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin@club.test", admins[0].Email)
	assert.NoError(t, admins[0].CheckPassword("Admin123!"))
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	boom := errors.New("boom")

	err := database.WithTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.User{Email: "a@club.test", PasswordHash: "x"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)

	require.NoError(t, database.WithTransaction(db, func(tx *gorm.DB) error {
		return tx.Create(&models.User{Email: "b@club.test", PasswordHash: "x"}).Error
	}))
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUniqueViolationIsTranslated(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Create(&models.User{Email: "dup@club.test", PasswordHash: "x"}).Error)

	err := db.Create(&models.User{Email: "dup@club.test", PasswordHash: "x"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
