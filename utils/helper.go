package utils

import (
	"fmt"
	"time"

	"github.com/ttacon/libphonenumber"
)

var CountryCode = "US"

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}

// NormalizePhoneNumber returns the E.164 form of a valid number.
func NormalizePhoneNumber(phoneNumber, countryCode string) (string, error) {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func NewTrue() *bool {
	b := true
	return &b
}

func ConvertToLocalTime(utcTime time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return utcTime
	}
	return utcTime.In(loc)
}

// ParseDate parses a YYYY-MM-DD value as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02", value, loc)
}
