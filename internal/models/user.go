// internal/models/user.go
package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Email          string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash   string     `json:"-" gorm:"size:255;not null"`
	Role           UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'Normal'"`
	FirstName      string     `json:"first_name" gorm:"size:100"`
	LastName       string     `json:"last_name" gorm:"size:100"`
	Phone          string     `json:"phone" gorm:"size:50"`
	City           string     `json:"city" gorm:"size:100"`
	ProfilePicture string     `json:"profile_picture" gorm:"size:1024"`
	LastLoginAt    *time.Time `json:"last_login_at"`

	ResetCodeHash      string     `json:"-" gorm:"size:64"`
	ResetCodeExpiresAt *time.Time `json:"-"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
