package booking

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/agustinboza/CuralisPatientMobile/internal/api"
	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

const (
	dayKeyFormat   = "2006-01-02"
	monthKeyFormat = "2006-01"

	monthCacheTTL     = 5 * time.Minute
	monthCacheCleanup = 10 * time.Minute
)

// Service is the slice of the API the calendar needs.
type Service interface {
	Availability(ctx context.Context, doctorID uuid.UUID, date string) ([]model.AvailabilitySlot, error)
	AvailabilityMonth(ctx context.Context, doctorID uuid.UUID, month string) (api.AvailabilitySummary, error)
	BookAppointment(ctx context.Context, req api.BookAppointmentRequest) (*model.Appointment, error)
}

// Calendar holds the availability view state for one doctor: per-day slot
// lists plus a cached month summary backing the calendar dot indicators.
// Booking removes the slot optimistically and rolls back on any non-success
// path, transport errors included.
type Calendar struct {
	svc      Service
	doctorID uuid.UUID
	months   *gocache.Cache

	mu   sync.Mutex
	days map[string][]model.AvailabilitySlot
}

func NewCalendar(svc Service, doctorID uuid.UUID) *Calendar {
	return &Calendar{
		svc:      svc,
		doctorID: doctorID,
		months:   gocache.New(monthCacheTTL, monthCacheCleanup),
		days:     make(map[string][]model.AvailabilitySlot),
	}
}

// LoadDay fetches the bookable slots for one date (YYYY-MM-DD) and replaces
// the day's view state.
func (c *Calendar) LoadDay(ctx context.Context, date string) ([]model.AvailabilitySlot, error) {
	slots, err := c.svc.Availability(ctx, c.doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load availability for %s: %w", date, err)
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })

	c.mu.Lock()
	c.days[date] = slots
	c.mu.Unlock()

	return c.DaySlots(date), nil
}

// LoadMonth fetches the per-day open slot counts for a month (YYYY-MM).
func (c *Calendar) LoadMonth(ctx context.Context, month string) (api.AvailabilitySummary, error) {
	summary, err := c.svc.AvailabilityMonth(ctx, c.doctorID, month)
	if err != nil {
		return nil, fmt.Errorf("load month summary for %s: %w", month, err)
	}
	c.months.Set(month, summary, gocache.DefaultExpiration)
	return summary, nil
}

// DaySlots returns a copy of the day's current slot list.
func (c *Calendar) DaySlots(date string) []model.AvailabilitySlot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.AvailabilitySlot, len(c.days[date]))
	copy(out, c.days[date])
	return out
}

// MonthSummary returns the cached summary for a month, if still fresh.
func (c *Calendar) MonthSummary(month string) (api.AvailabilitySummary, bool) {
	v, ok := c.months.Get(month)
	if !ok {
		return nil, false
	}
	return v.(api.AvailabilitySummary), true
}

// Book reserves a slot. The slot disappears from the day list and the month
// count immediately; if the server rejects the booking or the call fails in
// transit, both are restored. On success the day and month are re-fetched as
// the reconciliation step, so the view converges on server truth.
func (c *Calendar) Book(ctx context.Context, slot model.AvailabilitySlot, procedureType string) (*model.Appointment, error) {
	date := slot.StartTime.Format(dayKeyFormat)
	month := slot.StartTime.Format(monthKeyFormat)

	c.removeSlot(date, month, slot)

	appt, err := c.svc.BookAppointment(ctx, api.BookAppointmentRequest{
		DoctorID:      c.doctorID.String(),
		StartTime:     slot.StartTime.Format(time.RFC3339),
		EndTime:       slot.EndTime.Format(time.RFC3339),
		ProcedureType: procedureType,
	})
	if err != nil {
		// Rollback is unconditional on any non-success path.
		c.restoreSlot(date, month, slot)
		return nil, fmt.Errorf("book slot %s: %w", slot.StartTime.Format(time.RFC3339), err)
	}

	c.reconcile(ctx, date, month)
	return appt, nil
}

func (c *Calendar) removeSlot(date, month string, slot model.AvailabilitySlot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots := c.days[date]
	for i, s := range slots {
		if s.StartTime.Equal(slot.StartTime) {
			c.days[date] = append(slots[:i:i], slots[i+1:]...)
			break
		}
	}

	c.adjustMonthCount(month, slot.StartTime, -1)
}

// restoreSlot is idempotent: a slot already present is not duplicated, so a
// double rollback cannot corrupt the view.
func (c *Calendar) restoreSlot(date, month string, slot model.AvailabilitySlot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots := c.days[date]
	for _, s := range slots {
		if s.StartTime.Equal(slot.StartTime) {
			return
		}
	}

	slots = append(slots, slot)
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
	c.days[date] = slots

	c.adjustMonthCount(month, slot.StartTime, +1)
}

// adjustMonthCount nudges the cached dot indicator without waiting for the
// next summary fetch. Callers hold mu.
func (c *Calendar) adjustMonthCount(month string, start time.Time, delta int) {
	v, ok := c.months.Get(month)
	if !ok {
		return
	}
	summary := v.(api.AvailabilitySummary)

	key := fmt.Sprintf("%02d", start.Day())
	n := summary[key] + delta
	if n < 0 {
		n = 0
	}
	summary[key] = n
	c.months.Set(month, summary, gocache.DefaultExpiration)
}

// reconcile refreshes the day list and month indicator after a successful
// booking. Failures here are logged, not surfaced: the optimistic view is
// already correct enough and the next load converges.
func (c *Calendar) reconcile(ctx context.Context, date, month string) {
	if _, err := c.LoadDay(ctx, date); err != nil {
		log.Printf("booking: reconcile day %s: %v", date, err)
	}
	if _, err := c.LoadMonth(ctx, month); err != nil {
		log.Printf("booking: reconcile month %s: %v", month, err)
	}
}
