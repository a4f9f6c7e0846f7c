// internal/services/user_service.go
package services

import (
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/database"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type UserService struct {
	db             *gorm.DB
	storageService *StorageService
}

type UpdateUserProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	City      *string `json:"city,omitempty" validate:"omitempty,max=100"`
}

type UpdateRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=Admin Normal"`
}

type UserListParams struct {
	utils.PaginationParams
	Role   models.UserRole
	Search string
}

func NewUserService(db *gorm.DB, storageService *StorageService) *UserService {
	return &UserService{
		db:             db,
		storageService: storageService,
	}
}

func (s *UserService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, storeError(err, "user")
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(userID uint, req *UpdateUserProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.City != nil {
		updates["city"] = *req.City
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.GetUserByID(userID)
}

// UpdateProfilePicture stores a new photo and removes the previous one.
func (s *UserService) UpdateProfilePicture(userID uint, file *multipart.FileHeader) (*models.User, error) {
	if file == nil {
		return nil, newError(ErrValidation, "file is required")
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	stored, err := s.storageService.UploadHeader(file, s.storageService.GetDefaultUploadOptions(FolderProfiles))
	if err != nil {
		return nil, err
	}

	old := user.ProfilePicture
	if err := s.db.Model(user).Update("profile_picture", stored.URL).Error; err != nil {
		s.removeFile(stored.URL)
		return nil, fmt.Errorf("failed to update profile picture: %w", err)
	}
	if old != "" {
		s.removeFile(old)
	}

	return s.GetUserByID(userID)
}

func (s *UserService) List(params UserListParams) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})
	if params.Role != "" {
		query = query.Where("role = ?", params.Role)
	}
	if params.Search != "" {
		term := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "email", "last_name"}, "id ASC")
	if err := utils.ApplyPagination(query, params.PaginationParams).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// UpdateRole refuses to demote the last remaining admin.
func (s *UserService) UpdateRole(userID uint, req *UpdateRoleRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if user.IsAdmin() && req.Role != models.UserRoleAdmin {
		if err := s.ensureAnotherAdmin(s.db, userID); err != nil {
			return nil, err
		}
	}

	if err := s.db.Model(user).Update("role", req.Role).Error; err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return s.GetUserByID(userID)
}

// Delete removes a user and clears the assets they were responsible for.
func (s *UserService) Delete(userID, actorID uint) error {
	if userID == actorID {
		return newError(ErrValidation, "you cannot delete your own account")
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if user.IsAdmin() {
			if err := s.ensureAnotherAdmin(tx, userID); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.OperationalAsset{}).
			Where("responsible_user_id = ?", userID).
			Update("responsible_user_id", nil).Error; err != nil {
			return fmt.Errorf("failed to release assets: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.EventParticipant{}).Error; err != nil {
			return fmt.Errorf("failed to remove event registrations: %w", err)
		}
		if err := tx.Where("membership_id IN (?)", tx.Model(&models.Membership{}).Select("id").Where("user_id = ?", userID)).
			Delete(&models.MembershipPayment{}).Error; err != nil {
			return fmt.Errorf("failed to remove membership payments: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Membership{}).Error; err != nil {
			return fmt.Errorf("failed to remove membership: %w", err)
		}
		if err := tx.Delete(&models.User{}, userID).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if user.ProfilePicture != "" {
		s.removeFile(user.ProfilePicture)
	}
	return nil
}

func (s *UserService) ensureAnotherAdmin(db *gorm.DB, userID uint) error {
	var admins int64
	if err := db.Model(&models.User{}).
		Where("role = ? AND id <> ?", models.UserRoleAdmin, userID).
		Count(&admins).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if admins == 0 {
		return newError(ErrValidation, "at least one admin must remain")
	}
	return nil
}

func (s *UserService) removeFile(url string) {
	if err := s.storageService.DeleteFile(url); err != nil {
		logrus.WithError(err).WithField("url", url).Warn("Failed to remove profile picture")
	}
}
