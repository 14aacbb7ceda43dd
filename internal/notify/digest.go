package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/journey"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// DailyReport summarises bookings made in a period and the journeys that
// depart in the day after it.
type DailyReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Orders      int64
	Tickets     int64
	Upcoming    []JourneyLoad
}

// JourneyLoad is the occupancy of one upcoming journey.
type JourneyLoad struct {
	JourneyID uint
	Route     string
	Train     string
	Departure time.Time
	Booked    int
	Capacity  int
}

// BuildDailyReport queries bookings created in [since, until) and journeys
// departing in [until, until+24h).
func BuildDailyReport(gdb *gorm.DB, since, until time.Time) (*DailyReport, error) {
	since, until = since.UTC(), until.UTC()
	report := &DailyReport{PeriodStart: since, PeriodEnd: until}

	if err := gdb.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&report.Orders).Error; err != nil {
		return nil, fmt.Errorf("notify: count orders: %w", err)
	}
	if err := gdb.Model(&models.Ticket{}).
		Joins("JOIN orders ON orders.id = tickets.order_id").
		Where("orders.created_at >= ? AND orders.created_at < ?", since, until).
		Count(&report.Tickets).Error; err != nil {
		return nil, fmt.Errorf("notify: count tickets: %w", err)
	}

	var upcoming []models.Journey
	if err := gdb.Preload("Route.Source").Preload("Route.Destination").Preload("Train").
		Where("departure_time >= ? AND departure_time < ?", until, until.Add(24*time.Hour)).
		Order("departure_time ASC, id ASC").
		Find(&upcoming).Error; err != nil {
		return nil, fmt.Errorf("notify: upcoming journeys: %w", err)
	}
	ids := make([]uint, len(upcoming))
	for i, j := range upcoming {
		ids[i] = j.ID
	}
	counts, err := journey.BookedCounts(gdb, ids)
	if err != nil {
		return nil, err
	}
	for _, j := range upcoming {
		report.Upcoming = append(report.Upcoming, JourneyLoad{
			JourneyID: j.ID,
			Route:     j.Route.FullRoute(),
			Train:     j.Train.Name,
			Departure: j.DepartureTime,
			Booked:    counts[j.ID],
			Capacity:  j.Train.Capacity(),
		})
	}
	return report, nil
}

// Empty reports whether there is nothing worth sending.
func (r *DailyReport) Empty() bool {
	return r.Orders == 0 && len(r.Upcoming) == 0
}

// FormatDaily renders a daily report as a notice.
func FormatDaily(report *DailyReport) Notice {
	lines := []string{
		fmt.Sprintf("*Period*: %s – %s", report.PeriodStart.UTC().Format("Jan 2 15:04"), report.PeriodEnd.UTC().Format("Jan 2 15:04")),
		fmt.Sprintf("*Bookings*: %d orders, %d tickets", report.Orders, report.Tickets),
	}
	if len(report.Upcoming) > 0 {
		lines = append(lines, "", "*Departing in the next 24h*:")
		for _, l := range report.Upcoming {
			line := fmt.Sprintf("  %s %s (%s): %d/%d booked",
				l.Departure.UTC().Format("15:04"), l.Route, l.Train, l.Booked, l.Capacity)
			if l.Capacity > 0 && l.Booked == l.Capacity {
				line += " – sold out"
			}
			lines = append(lines, line)
		}
	}

	return Notice{
		Title: "Daily Booking Digest",
		Body:  strings.Join(lines, "\n"),
		Color: ColorInfo,
		Fields: []Field{
			{Name: "Orders", Value: fmt.Sprintf("%d", report.Orders), Short: true},
			{Name: "Tickets", Value: fmt.Sprintf("%d", report.Tickets), Short: true},
			{Name: "Departures", Value: fmt.Sprintf("%d", len(report.Upcoming)), Short: true},
		},
	}
}

// SendDailyDigest builds the report for the 24 hours before now and sends
// it. A report with no activity is suppressed; sent reports whether a
// notice went out.
func SendDailyDigest(ctx context.Context, gdb *gorm.DB, n Notifier, now time.Time) (sent bool, err error) {
	report, err := BuildDailyReport(gdb.WithContext(ctx), now.Add(-24*time.Hour), now)
	if err != nil {
		return false, err
	}
	if report.Empty() {
		return false, nil
	}
	if err := n.Notify(ctx, FormatDaily(report)); err != nil {
		return false, fmt.Errorf("notify: send daily digest: %w", err)
	}
	return true, nil
}
