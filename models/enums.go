package models

import (
	"encoding/json"
	"errors"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// convert input to enum type
func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("order status must be string")
	}
	v := OrderStatus(str)
	if !v.IsValid() {
		return errors.New("invalid order status")
	}
	*s = v
	return nil
}

type UserRole string

const (
	UserRoleAdmin UserRole = "A"
	UserRoleStaff UserRole = "S"
)

type InvestorTransactionType string

const (
	InvestorTransactionTypeProfitDistribution InvestorTransactionType = "PROFIT_DISTRIBUTION"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCompleted BookingStatus = "Completed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

// Blocking reports whether the booking still occupies its time range.
func (s BookingStatus) Blocking() bool {
	return s != BookingStatusCancelled
}
