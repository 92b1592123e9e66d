package models

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/btree"
	"gorm.io/gorm"
)

// maxAvailabilityDays caps a single availability query.
const maxAvailabilityDays = 62

type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type DaySlots struct {
	Date  string `json:"date"` // YYYY-MM-DD in the shop timezone
	Slots []Slot `json:"slots"`
}

// SlotQuery holds everything needed to compute bookable slots. From and To
// are calendar days (inclusive) interpreted in Location.
type SlotQuery struct {
	Windows           []ServiceAvailability
	Blockouts         []ServiceBlockout
	Bookings          []Booking
	Duration          time.Duration
	Buffer            time.Duration
	MaxBookingsPerDay int
	Granularity       time.Duration
	From              time.Time
	To                time.Time
	Now               time.Time
	Location          *time.Location
}

type bookingIndex struct {
	tree        *btree.BTreeG[Booking]
	maxDuration time.Duration
}

func bookingLess(a, b Booking) bool {
	if !a.StartAt.Equal(b.StartAt) {
		return a.StartAt.Before(b.StartAt)
	}
	return a.ID < b.ID
}

// newBookingIndex keeps only bookings that still occupy their range,
// ordered by start time.
func newBookingIndex(bookings []Booking) *bookingIndex {
	const degree = 16
	idx := &bookingIndex{tree: btree.NewG[Booking](degree, bookingLess)}
	for i, b := range bookings {
		if !b.Status.Blocking() || !b.EndAt.After(b.StartAt) {
			continue
		}
		if b.ID == 0 {
			// keep unsaved bookings distinct in the tree
			b.ID = -(i + 1)
		}
		idx.tree.ReplaceOrInsert(b)
		if d := b.EndAt.Sub(b.StartAt); d > idx.maxDuration {
			idx.maxDuration = d
		}
	}
	return idx
}

// overlaps reports whether any booking intersects [start, end).
func (idx *bookingIndex) overlaps(start, end time.Time) bool {
	found := false
	lower := Booking{StartAt: start.Add(-idx.maxDuration), ID: minBookingID}
	upper := Booking{StartAt: end, ID: minBookingID}
	idx.tree.AscendRange(lower, upper, func(b Booking) bool {
		if b.EndAt.After(start) {
			found = true
			return false
		}
		return true
	})
	return found
}

// countStarting counts bookings starting in [from, to).
func (idx *bookingIndex) countStarting(from, to time.Time) int {
	n := 0
	idx.tree.AscendRange(Booking{StartAt: from, ID: minBookingID}, Booking{StartAt: to, ID: minBookingID}, func(Booking) bool {
		n++
		return true
	})
	return n
}

const minBookingID = -1 << 31

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Blockout bounds are calendar dates stored as UTC midnight.
func isBlockedOut(day time.Time, blockouts []ServiceBlockout) bool {
	key := dayKey(day)
	for _, b := range blockouts {
		if key >= dayKey(b.StartDate.UTC()) && key <= dayKey(b.EndDate.UTC()) {
			return true
		}
	}
	return false
}

// ComputeAvailableSlots is a pure generate-and-filter over the query's days.
// Days are returned in ascending order, including days without slots.
func ComputeAvailableSlots(q SlotQuery) ([]DaySlots, error) {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	if q.Duration <= 0 {
		return nil, errors.New("service duration must be positive")
	}
	granularity := q.Granularity
	if granularity <= 0 {
		granularity = 30 * time.Minute
	}

	fromDay := time.Date(q.From.Year(), q.From.Month(), q.From.Day(), 0, 0, 0, 0, loc)
	toDay := time.Date(q.To.Year(), q.To.Month(), q.To.Day(), 0, 0, 0, 0, loc)
	if toDay.Before(fromDay) || toDay.Sub(fromDay) > maxAvailabilityDays*24*time.Hour {
		return nil, ErrInvalidDateRange
	}

	windowsByDay := make(map[time.Weekday][]ServiceAvailability)
	for _, w := range q.Windows {
		windowsByDay[w.DayOfWeek] = append(windowsByDay[w.DayOfWeek], w)
	}
	for day := range windowsByDay {
		ws := windowsByDay[day]
		sort.SliceStable(ws, func(i, j int) bool { return ws[i].StartTime < ws[j].StartTime })
	}

	idx := newBookingIndex(q.Bookings)
	var result []DaySlots

	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		daySlots := DaySlots{Date: dayKey(day), Slots: []Slot{}}
		result = append(result, daySlots)
		last := &result[len(result)-1]

		if isBlockedOut(day, q.Blockouts) {
			continue
		}
		if q.MaxBookingsPerDay > 0 && idx.countStarting(day, day.AddDate(0, 0, 1)) >= q.MaxBookingsPerDay {
			continue
		}

		seen := make(map[int64]bool)
		for _, w := range windowsByDay[day.Weekday()] {
			startMin, err := parseClock(w.StartTime)
			if err != nil {
				return nil, err
			}
			endMin, err := parseClock(w.EndTime)
			if err != nil {
				return nil, err
			}
			windowStart := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, loc)
			windowEnd := time.Date(day.Year(), day.Month(), day.Day(), endMin/60, endMin%60, 0, 0, loc)

			for start := windowStart; !start.Add(q.Duration).After(windowEnd); start = start.Add(granularity) {
				end := start.Add(q.Duration)
				if start.Before(q.Now) {
					continue
				}
				if idx.overlaps(start.Add(-q.Buffer), end.Add(q.Buffer)) {
					continue
				}
				if seen[start.Unix()] {
					continue
				}
				seen[start.Unix()] = true
				last.Slots = append(last.Slots, Slot{Start: start, End: end})
			}
		}
		sort.Slice(last.Slots, func(i, j int) bool { return last.Slots[i].Start.Before(last.Slots[j].Start) })
	}
	return result, nil
}

// GetAvailableSlots loads the service's windows, blockouts and bookings for
// [from, to] and computes the bookable slots.
func GetAvailableSlots(ctx context.Context, db *gorm.DB, serviceId int, from, to time.Time, granularity time.Duration, loc *time.Location) ([]DaySlots, error) {
	if loc == nil {
		loc = time.UTC
	}
	service, err := getServiceOffering(ctx, db, serviceId)
	if err != nil {
		return nil, err
	}
	if service.IsActive != nil && !*service.IsActive {
		return nil, ErrServiceNotFound
	}

	rangeStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	rangeEnd := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	if !rangeEnd.After(rangeStart) {
		return nil, ErrInvalidDateRange
	}
	buffer := time.Duration(service.BufferMinutes) * time.Minute

	var blockouts []ServiceBlockout
	if err := db.WithContext(ctx).
		Where("service_id = ? AND start_date <= ? AND end_date >= ?", serviceId,
			time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC),
			time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)).
		Find(&blockouts).Error; err != nil {
		return nil, err
	}

	var bookings []Booking
	if err := db.WithContext(ctx).
		Where("service_id = ? AND status <> ? AND start_at < ? AND end_at > ?",
			serviceId, BookingStatusCancelled, rangeEnd.Add(buffer).UTC(), rangeStart.Add(-buffer).UTC()).
		Order("start_at ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}

	return ComputeAvailableSlots(SlotQuery{
		Windows:           service.Availabilities,
		Blockouts:         blockouts,
		Bookings:          bookings,
		Duration:          time.Duration(service.DurationMinutes) * time.Minute,
		Buffer:            buffer,
		MaxBookingsPerDay: service.MaxBookingsPerDay,
		Granularity:       granularity,
		From:              from,
		To:                to,
		Now:               time.Now(),
		Location:          loc,
	})
}
