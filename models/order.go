package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stitchline/store_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Order struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OrderNumber   string          `gorm:"size:50;not null;unique" json:"order_number"`
	CustomerName  string          `gorm:"size:255" json:"customer_name"`
	CustomerEmail string          `gorm:"size:255" json:"customer_email"`
	Status        OrderStatus     `gorm:"size:20;not null;default:Pending;index" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	DeliveredAt   *time.Time      `json:"delivered_at"`
	Items         []OrderItem     `gorm:"foreignKey:OrderId" json:"items,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	OrderId   int             `gorm:"index;not null" json:"order_id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	VariantId *int            `gorm:"index" json:"variant_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_price"`
}

type NewOrderItem struct {
	ProductId int             `json:"product_id" validate:"required,gt=0"`
	VariantId *int            `json:"variant_id"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type NewOrder struct {
	OrderNumber   string         `json:"order_number" validate:"required,max=50"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email" validate:"omitempty,email"`
	Items         []NewOrderItem `json:"items" validate:"required,min=1,dive"`
}

func (input *NewOrder) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	for _, item := range input.Items {
		if item.UnitPrice.IsNegative() {
			return errors.New("unit price cannot be negative")
		}
	}
	return nil
}

// CreateOrder stores a Pending order with its items.
func CreateOrder(ctx context.Context, db *gorm.DB, input *NewOrder) (*Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	order := Order{
		OrderNumber:   input.OrderNumber,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		Status:        OrderStatusPending,
	}
	total := decimal.Zero
	for _, item := range input.Items {
		order.Items = append(order.Items, OrderItem{
			ProductId: item.ProductId,
			VariantId: item.VariantId,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	order.TotalAmount = total

	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}
	return &order, nil
}

func GetOrder(ctx context.Context, db *gorm.DB, id int) (*Order, error) {
	var order Order
	err := db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// LockOrderForSettlement reads the order row FOR UPDATE inside tx so that
// concurrent completions of the same order serialize on it.
func LockOrderForSettlement(tx *gorm.DB, id int) (*Order, error) {
	var order Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := tx.Where("order_id = ?", id).Order("id ASC").Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func MarkOrderDelivered(tx *gorm.DB, order *Order, deliveredAt time.Time) error {
	result := tx.Model(&Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"status":       OrderStatusDelivered,
		"delivered_at": deliveredAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return ErrOrderNotFound
	}
	order.Status = OrderStatusDelivered
	order.DeliveredAt = &deliveredAt
	return nil
}
