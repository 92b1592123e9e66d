package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stitchline/store_backend/utils"
	"gorm.io/gorm"
)

type ServiceOffering struct {
	ID                int                   `gorm:"primary_key" json:"id"`
	Name              string                `gorm:"size:255;not null" json:"name"`
	DurationMinutes   int                   `gorm:"not null" json:"duration_minutes"`
	BufferMinutes     int                   `gorm:"not null;default:0" json:"buffer_minutes"`
	MaxBookingsPerDay int                   `gorm:"not null;default:0" json:"max_bookings_per_day"` // 0 = no cap
	IsActive          *bool                 `gorm:"not null;default:true" json:"is_active"`
	Availabilities    []ServiceAvailability `gorm:"foreignKey:ServiceId" json:"availabilities,omitempty"`
	CreatedAt         time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// ServiceAvailability is one recurring weekly window, "HH:MM" in the shop timezone.
type ServiceAvailability struct {
	ID        int          `gorm:"primary_key" json:"id"`
	ServiceId int          `gorm:"index;not null" json:"service_id"`
	DayOfWeek time.Weekday `gorm:"not null" json:"day_of_week"`
	StartTime string       `gorm:"size:5;not null" json:"start_time"`
	EndTime   string       `gorm:"size:5;not null" json:"end_time"`
}

// ServiceBlockout closes whole days, StartDate..EndDate inclusive.
type ServiceBlockout struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ServiceId int       `gorm:"index;not null" json:"service_id"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	Reason    string    `gorm:"size:255" json:"reason"`
}

type Booking struct {
	ID           int           `gorm:"primary_key" json:"id"`
	ServiceId    int           `gorm:"index:idx_booking_service_start,priority:1;not null" json:"service_id"`
	CustomerName string        `gorm:"size:255" json:"customer_name"`
	StartAt      time.Time     `gorm:"index:idx_booking_service_start,priority:2;not null" json:"start_at"`
	EndAt        time.Time     `gorm:"not null" json:"end_at"`
	Status       BookingStatus `gorm:"size:20;not null;default:Pending" json:"status"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// parseClock parses "HH:MM" into minutes after midnight.
func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (a ServiceAvailability) validate() error {
	start, err := parseClock(a.StartTime)
	if err != nil {
		return err
	}
	end, err := parseClock(a.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return errors.New("availability end must be after start")
	}
	if a.DayOfWeek < time.Sunday || a.DayOfWeek > time.Saturday {
		return errors.New("invalid day of week")
	}
	return nil
}

type NewServiceOffering struct {
	Name              string                `json:"name" validate:"required,max=255"`
	DurationMinutes   int                   `json:"duration_minutes" validate:"gt=0"`
	BufferMinutes     int                   `json:"buffer_minutes" validate:"gte=0"`
	MaxBookingsPerDay int                   `json:"max_bookings_per_day" validate:"gte=0"`
	Availabilities    []ServiceAvailability `json:"availabilities"`
}

func CreateServiceOffering(ctx context.Context, db *gorm.DB, input *NewServiceOffering) (*ServiceOffering, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	for _, a := range input.Availabilities {
		if err := a.validate(); err != nil {
			return nil, err
		}
	}
	service := ServiceOffering{
		Name:              input.Name,
		DurationMinutes:   input.DurationMinutes,
		BufferMinutes:     input.BufferMinutes,
		MaxBookingsPerDay: input.MaxBookingsPerDay,
		IsActive:          utils.NewTrue(),
		Availabilities:    input.Availabilities,
	}
	if err := db.WithContext(ctx).Create(&service).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

func getServiceOffering(ctx context.Context, db *gorm.DB, id int) (*ServiceOffering, error) {
	var service ServiceOffering
	err := db.WithContext(ctx).Preload("Availabilities").First(&service, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &service, nil
}
