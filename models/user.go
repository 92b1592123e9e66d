package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Role      UserRole  `gorm:"size:1;not null;default:S" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" validate:"required,max=100"`
	Name     string   `json:"name" validate:"required,max=100"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Role     UserRole `json:"role" validate:"required,oneof=A S"`
}

/*
caches:
	User:$username
*/

func (user User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("User:" + user.Username)
}

func (user User) IsAdmin() bool {
	return user.Role == UserRoleAdmin && (user.IsActive == nil || *user.IsActive)
}

func CreateUser(ctx context.Context, db *gorm.DB, input *NewUser) (*User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	user := User{
		Username: strings.TrimSpace(input.Username),
		Name:     input.Name,
		Role:     input.Role,
		IsActive: utils.NewTrue(),
	}
	if input.Email != "" {
		email := strings.ToLower(input.Email)
		user.Email = &email
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername reads through the Redis cache when one is configured.
func GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error) {
	var user User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}

	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if err := config.SetRedisObject("User:"+username, &user, time.Hour); err != nil {
		config.LogError(config.GetLogger(), "models", "GetUserByUsername", "cache user", username, err)
	}
	return &user, nil
}
