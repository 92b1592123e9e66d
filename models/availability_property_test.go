package models

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func overlapsAny(bookings []Booking, start, end time.Time) bool {
	for _, b := range bookings {
		if !b.Status.Blocking() || !b.EndAt.After(b.StartAt) {
			continue
		}
		if b.StartAt.Before(end) && b.EndAt.After(start) {
			return true
		}
	}
	return false
}

func TestComputeAvailableSlotsProperties(t *testing.T) {
	statuses := []BookingStatus{BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled}

	rapid.Check(t, func(t *rapid.T) {
		from := monday.AddDate(0, 0, rapid.IntRange(0, 6).Draw(t, "offset"))
		to := from.AddDate(0, 0, rapid.IntRange(0, 4).Draw(t, "span"))

		var windows []ServiceAvailability
		for i, n := 0, rapid.IntRange(0, 4).Draw(t, "windows"); i < n; i++ {
			startH := rapid.IntRange(6, 16).Draw(t, "startHour")
			length := rapid.IntRange(1, 5).Draw(t, "length")
			windows = append(windows, ServiceAvailability{
				DayOfWeek: time.Weekday(rapid.IntRange(0, 6).Draw(t, "weekday")),
				StartTime: fmt.Sprintf("%02d:00", startH),
				EndTime:   fmt.Sprintf("%02d:30", startH+length),
			})
		}

		var bookings []Booking
		for i, n := 0, rapid.IntRange(0, 8).Draw(t, "bookings"); i < n; i++ {
			start := from.Add(time.Duration(rapid.IntRange(0, 5*24*4).Draw(t, "quarter")) * 15 * time.Minute)
			bookings = append(bookings, Booking{
				ID:      i + 1,
				StartAt: start,
				EndAt:   start.Add(time.Duration(rapid.IntRange(1, 12).Draw(t, "len")) * 15 * time.Minute),
				Status:  rapid.SampledFrom(statuses).Draw(t, "status"),
			})
		}

		q := SlotQuery{
			Windows:     windows,
			Bookings:    bookings,
			Duration:    time.Duration(rapid.IntRange(1, 8).Draw(t, "duration")) * 15 * time.Minute,
			Buffer:      time.Duration(rapid.IntRange(0, 2).Draw(t, "buffer")) * 15 * time.Minute,
			Granularity: time.Duration(rapid.IntRange(1, 4).Draw(t, "granularity")) * 15 * time.Minute,
			From:        from,
			To:          to,
			Now:         from.Add(time.Duration(rapid.IntRange(0, 48).Draw(t, "now")) * time.Hour),
			Location:    time.UTC,
		}

		days, err := ComputeAvailableSlots(q)
		if err != nil {
			t.Fatalf("ComputeAvailableSlots: %v", err)
		}
		if want := int(to.Sub(from).Hours()/24) + 1; len(days) != want {
			t.Fatalf("days=%d want %d", len(days), want)
		}

		for i, d := range days {
			day := from.AddDate(0, 0, i)
			if d.Date != day.Format("2006-01-02") {
				t.Fatalf("day %d is %s", i, d.Date)
			}
			got := make(map[int64]bool)
			for j, s := range d.Slots {
				if j > 0 && !d.Slots[j-1].Start.Before(s.Start) {
					t.Fatalf("slots not strictly ascending on %s", d.Date)
				}
				if s.Start.Before(q.Now) {
					t.Fatalf("slot %s before now %s", s.Start, q.Now)
				}
				if !s.End.Equal(s.Start.Add(q.Duration)) {
					t.Fatalf("slot length %s", s.End.Sub(s.Start))
				}
				if overlapsAny(bookings, s.Start.Add(-q.Buffer), s.End.Add(q.Buffer)) {
					t.Fatalf("slot %s overlaps a booking", s.Start)
				}
				got[s.Start.Unix()] = true
			}

			// every free grid slot inside a window is offered
			for _, w := range windows {
				if w.DayOfWeek != day.Weekday() {
					continue
				}
				startMin, _ := parseClock(w.StartTime)
				endMin, _ := parseClock(w.EndTime)
				ws := day.Add(time.Duration(startMin) * time.Minute)
				we := day.Add(time.Duration(endMin) * time.Minute)
				for start := ws; !start.Add(q.Duration).After(we); start = start.Add(q.Granularity) {
					if start.Before(q.Now) || overlapsAny(bookings, start.Add(-q.Buffer), start.Add(q.Duration+q.Buffer)) {
						continue
					}
					if !got[start.Unix()] {
						t.Fatalf("free slot %s missing on %s", start, d.Date)
					}
				}
			}
		}
	})
}
