package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stitchline/store_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Investor balances are only ever increased by order settlement.
type Investor struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Email         string          `gorm:"size:255;not null;unique" json:"email"`
	Phone         string          `gorm:"size:20" json:"phone"`
	CashBalance   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cash_balance"`
	ProfitBalance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"profit_balance"`
	TotalProfit   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_profit"`
	TotalInvested decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_invested"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvestor struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

func (input *NewInvestor) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	return nil
}

func CreateInvestor(ctx context.Context, db *gorm.DB, input *NewInvestor) (*Investor, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	phone := input.Phone
	if phone != "" {
		normalized, err := utils.NormalizePhoneNumber(phone, utils.CountryCode)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}

	investor := Investor{
		Name:     strings.TrimSpace(input.Name),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:    phone,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&investor).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}
	return &investor, nil
}

func GetInvestor(ctx context.Context, db *gorm.DB, id int) (*Investor, error) {
	var investor Investor
	if err := db.WithContext(ctx).First(&investor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &investor, nil
}

// LockInvestor re-reads the investor row FOR UPDATE inside tx.
func LockInvestor(tx *gorm.DB, id int) (*Investor, error) {
	var investor Investor
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&investor, id).Error; err != nil {
		return nil, err
	}
	return &investor, nil
}

// CreditSettlement adds returned capital to cash_balance and the profit share
// to profit_balance and total_profit, then persists the three columns.
func (inv *Investor) CreditSettlement(tx *gorm.DB, capital, profitShare decimal.Decimal) error {
	inv.CashBalance = inv.CashBalance.Add(capital)
	inv.ProfitBalance = inv.ProfitBalance.Add(profitShare)
	inv.TotalProfit = inv.TotalProfit.Add(profitShare)
	return tx.Model(&Investor{}).Where("id = ?", inv.ID).Updates(map[string]interface{}{
		"cash_balance":   inv.CashBalance,
		"profit_balance": inv.ProfitBalance,
		"total_profit":   inv.TotalProfit,
	}).Error
}
