package utils

import (
	"context"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

// ValidateStruct runs the `validate` struct tags on input.
func ValidateStruct(input any) error {
	return validate.Struct(input)
}

// ValidateResourceId returns ErrorRecordNotFound when no T row has the given id.
func ValidateResourceId[T any](ctx context.Context, db *gorm.DB, id interface{}) error {
	var model T
	var count int64
	if err := db.WithContext(ctx).Model(&model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}
