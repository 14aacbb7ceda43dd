package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AntonKrinichnyi/trainstation/internal/models"
)

// OrderNotice describes a freshly booked order. Ticket journeys with their
// routes and trains should be loaded.
func OrderNotice(order models.Order, email string) Notice {
	perJourney := map[uint][]string{}
	labels := map[uint]string{}
	for _, t := range order.Tickets {
		perJourney[t.JourneyID] = append(perJourney[t.JourneyID], fmt.Sprintf("%d/%d", t.Cargo, t.Seat))
		if _, ok := labels[t.JourneyID]; !ok {
			labels[t.JourneyID] = journeyLabel(t)
		}
	}
	ids := make([]uint, 0, len(perJourney))
	for id := range perJourney {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var lines []string
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("%s: seats %s", labels[id], strings.Join(perJourney[id], ", ")))
	}

	return Notice{
		Title: fmt.Sprintf("Order #%d booked", order.ID),
		Body:  strings.Join(lines, "\n"),
		Color: ColorSuccess,
		Fields: []Field{
			{Name: "Customer", Value: email, Short: true},
			{Name: "Tickets", Value: fmt.Sprintf("%d", len(order.Tickets)), Short: true},
		},
	}
}

func journeyLabel(t models.Ticket) string {
	if t.Journey == nil || t.Journey.Route.Source.Name == "" {
		return fmt.Sprintf("Journey #%d", t.JourneyID)
	}
	j := t.Journey
	return fmt.Sprintf("%s (%s, %s)", j.Route.FullRoute(), j.Train.Name, j.DepartureTime.UTC().Format("Jan 2 15:04"))
}
