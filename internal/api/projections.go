package api

import (
	"fmt"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/journey"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// Operations a projection is selected for.
const (
	opList     = "list"
	opRetrieve = "retrieve"
	opWrite    = "write" // create and update responses
)

type stationView struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type trainTypeView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type crewView struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

type routeView struct {
	ID          uint   `json:"id"`
	Source      uint   `json:"source"`
	Destination uint   `json:"destination"`
	Distance    int    `json:"distance"`
	FullRoute   string `json:"full_route"`
}

type routeListView struct {
	ID          uint   `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Distance    int    `json:"distance"`
}

type trainView struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	CargoNum      int    `json:"cargo_num"`
	PlacesInCargo int    `json:"places_in_cargo"`
	TrainType     uint   `json:"train_type"`
	Capacity      int    `json:"capacity"`
}

type trainListView struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	CargoNum      int     `json:"cargo_num"`
	PlacesInCargo int     `json:"places_in_cargo"`
	TrainType     string  `json:"train_type"`
	Capacity      int     `json:"capacity"`
	Image         *string `json:"image"`
}

type trainDetailView struct {
	ID            uint          `json:"id"`
	Name          string        `json:"name"`
	CargoNum      int           `json:"cargo_num"`
	PlacesInCargo int           `json:"places_in_cargo"`
	TrainType     trainTypeView `json:"train_type"`
	Capacity      int           `json:"capacity"`
	Image         *string       `json:"image"`
}

type trainImageView struct {
	ID    uint    `json:"id"`
	Image *string `json:"image"`
}

type journeyView struct {
	ID            uint      `json:"id"`
	Route         uint      `json:"route"`
	Train         uint      `json:"train"`
	Crew          []uint    `json:"crew"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
}

type journeyListView struct {
	ID               uint      `json:"id"`
	Route            string    `json:"route"`
	TrainName        string    `json:"train_name"`
	Crew             []string  `json:"crew"`
	DepartureTime    time.Time `json:"departure_time"`
	ArrivalTime      time.Time `json:"arrival_time"`
	TicketsAvailable int       `json:"tickets_available"`
}

type journeyDetailView struct {
	ID               uint            `json:"id"`
	Route            routeListView   `json:"route"`
	Train            trainDetailView `json:"train"`
	Crew             []crewView      `json:"crew"`
	DepartureTime    time.Time       `json:"departure_time"`
	ArrivalTime      time.Time       `json:"arrival_time"`
	TicketsAvailable int             `json:"tickets_available"`
	TakenPlaces      []journey.Place `json:"taken_places"`
}

type ticketView struct {
	ID      uint `json:"id"`
	Cargo   int  `json:"cargo"`
	Seat    int  `json:"seat"`
	Journey uint `json:"journey"`
}

type ticketListView struct {
	ID      uint            `json:"id"`
	Cargo   int             `json:"cargo"`
	Seat    int             `json:"seat"`
	Journey journeyListView `json:"journey"`
}

type orderView struct {
	ID        uint         `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Tickets   []ticketView `json:"tickets"`
}

type orderListView struct {
	ID        uint             `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Tickets   []ticketListView `json:"tickets"`
}

type userView struct {
	ID      uint   `json:"id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

// projector renders models into response views. It resolves image URLs
// and reads booked ticket counts.
type projector struct {
	db       *gorm.DB
	imageURL func(string) string
}

type projectFunc func(p *projector, v interface{}) (interface{}, error)

type projectionKey struct {
	resource string
	op       string
}

// projections selects the response shape for each resource and operation.
var projections = map[projectionKey]projectFunc{
	{"station", opList}:  mapAll(stationOf),
	{"station", opWrite}: mapOne(stationOf),

	{"train_type", opList}:  mapAll(trainTypeOf),
	{"train_type", opWrite}: mapOne(trainTypeOf),

	{"crew", opList}:  mapAll(crewOf),
	{"crew", opWrite}: mapOne(crewOf),

	{"route", opList}:     mapAll(routeListOf),
	{"route", opRetrieve}: mapOne(routeOf),
	{"route", opWrite}:    mapOne(routeOf),

	{"train", opList}: func(p *projector, v interface{}) (interface{}, error) {
		trains := v.([]models.Train)
		out := make([]trainListView, len(trains))
		for i, t := range trains {
			out[i] = p.trainList(t)
		}
		return out, nil
	},
	{"train", opRetrieve}: func(p *projector, v interface{}) (interface{}, error) {
		return p.trainDetail(*v.(*models.Train)), nil
	},
	{"train", opWrite}: mapOne(trainOf),
	{"train_image", opWrite}: func(p *projector, v interface{}) (interface{}, error) {
		t := v.(*models.Train)
		return trainImageView{ID: t.ID, Image: p.image(t.Image)}, nil
	},

	{"journey", opList}: func(p *projector, v interface{}) (interface{}, error) {
		return p.journeyList(v.([]models.Journey))
	},
	{"journey", opRetrieve}: func(p *projector, v interface{}) (interface{}, error) {
		return p.journeyDetail(*v.(*models.Journey))
	},
	{"journey", opWrite}: mapOne(journeyOf),

	{"order", opList}: func(p *projector, v interface{}) (interface{}, error) {
		return p.orderList(v.([]models.Order))
	},
	{"order", opWrite}: mapOne(orderOf),

	{"user", opRetrieve}: mapOne(userOf),
	{"user", opWrite}:    mapOne(userOf),
}

// project renders v with the projection registered for resource and op.
func (p *projector) project(resource, op string, v interface{}) (interface{}, error) {
	fn, ok := projections[projectionKey{resource, op}]
	if !ok {
		return nil, fmt.Errorf("api: no %s projection for %s", op, resource)
	}
	return fn(p, v)
}

// mapAll lifts a per-item view function to a slice projection.
func mapAll[M any, V any](fn func(M) V) projectFunc {
	return func(_ *projector, v interface{}) (interface{}, error) {
		items := v.([]M)
		out := make([]V, len(items))
		for i, m := range items {
			out[i] = fn(m)
		}
		return out, nil
	}
}

// mapOne lifts a per-item view function to a pointer projection.
func mapOne[M any, V any](fn func(M) V) projectFunc {
	return func(_ *projector, v interface{}) (interface{}, error) {
		return fn(*v.(*M)), nil
	}
}

func stationOf(s models.Station) stationView {
	return stationView{ID: s.ID, Name: s.Name, Latitude: s.Latitude, Longitude: s.Longitude}
}

func trainTypeOf(t models.TrainType) trainTypeView {
	return trainTypeView{ID: t.ID, Name: t.Name}
}

func crewOf(c models.Crew) crewView {
	return crewView{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName, FullName: c.FullName()}
}

func routeOf(r models.Route) routeView {
	return routeView{ID: r.ID, Source: r.SourceID, Destination: r.DestinationID, Distance: r.Distance, FullRoute: r.FullRoute()}
}

func routeListOf(r models.Route) routeListView {
	return routeListView{ID: r.ID, Source: r.Source.Name, Destination: r.Destination.Name, Distance: r.Distance}
}

func trainOf(t models.Train) trainView {
	return trainView{
		ID: t.ID, Name: t.Name, CargoNum: t.CargoNum, PlacesInCargo: t.PlacesInCargo,
		TrainType: t.TrainTypeID, Capacity: t.Capacity(),
	}
}

func journeyOf(j models.Journey) journeyView {
	crew := make([]uint, len(j.Crew))
	for i, c := range j.Crew {
		crew[i] = c.ID
	}
	return journeyView{
		ID: j.ID, Route: j.RouteID, Train: j.TrainID, Crew: crew,
		DepartureTime: j.DepartureTime, ArrivalTime: j.ArrivalTime,
	}
}

func orderOf(o models.Order) orderView {
	tickets := make([]ticketView, len(o.Tickets))
	for i, t := range o.Tickets {
		tickets[i] = ticketView{ID: t.ID, Cargo: t.Cargo, Seat: t.Seat, Journey: t.JourneyID}
	}
	return orderView{ID: o.ID, CreatedAt: o.CreatedAt, Tickets: tickets}
}

func userOf(u models.User) userView {
	return userView{ID: u.ID, Email: u.Email, IsStaff: u.IsStaff}
}

func (p *projector) image(path string) *string {
	if path == "" {
		return nil
	}
	url := path
	if p.imageURL != nil {
		url = p.imageURL(path)
	}
	return &url
}

func (p *projector) trainList(t models.Train) trainListView {
	return trainListView{
		ID: t.ID, Name: t.Name, CargoNum: t.CargoNum, PlacesInCargo: t.PlacesInCargo,
		TrainType: t.TrainType.Name, Capacity: t.Capacity(), Image: p.image(t.Image),
	}
}

func (p *projector) trainDetail(t models.Train) trainDetailView {
	return trainDetailView{
		ID: t.ID, Name: t.Name, CargoNum: t.CargoNum, PlacesInCargo: t.PlacesInCargo,
		TrainType: trainTypeOf(t.TrainType), Capacity: t.Capacity(), Image: p.image(t.Image),
	}
}

func journeyListOf(j models.Journey, booked int) journeyListView {
	crew := make([]string, len(j.Crew))
	for i, c := range j.Crew {
		crew[i] = c.FullName()
	}
	return journeyListView{
		ID: j.ID, Route: j.Route.FullRoute(), TrainName: j.Train.Name, Crew: crew,
		DepartureTime: j.DepartureTime, ArrivalTime: j.ArrivalTime,
		TicketsAvailable: journey.AvailableSeats(j, booked),
	}
}

func (p *projector) journeyList(journeys []models.Journey) ([]journeyListView, error) {
	ids := make([]uint, len(journeys))
	for i, j := range journeys {
		ids[i] = j.ID
	}
	counts, err := journey.BookedCounts(p.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]journeyListView, len(journeys))
	for i, j := range journeys {
		out[i] = journeyListOf(j, counts[j.ID])
	}
	return out, nil
}

func (p *projector) journeyDetail(j models.Journey) (journeyDetailView, error) {
	taken, err := journey.TakenPlaces(p.db, j.ID)
	if err != nil {
		return journeyDetailView{}, err
	}
	crew := make([]crewView, len(j.Crew))
	for i, c := range j.Crew {
		crew[i] = crewOf(c)
	}
	return journeyDetailView{
		ID: j.ID, Route: routeListOf(j.Route), Train: p.trainDetail(j.Train), Crew: crew,
		DepartureTime: j.DepartureTime, ArrivalTime: j.ArrivalTime,
		TicketsAvailable: journey.AvailableSeats(j, len(taken)),
		TakenPlaces:      taken,
	}, nil
}

func (p *projector) orderList(orders []models.Order) ([]orderListView, error) {
	var ids []uint
	for _, o := range orders {
		for _, t := range o.Tickets {
			ids = append(ids, t.JourneyID)
		}
	}
	counts, err := journey.BookedCounts(p.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]orderListView, len(orders))
	for i, o := range orders {
		tickets := make([]ticketListView, len(o.Tickets))
		for k, t := range o.Tickets {
			tv := ticketListView{ID: t.ID, Cargo: t.Cargo, Seat: t.Seat}
			if t.Journey != nil {
				tv.Journey = journeyListOf(*t.Journey, counts[t.JourneyID])
			}
			tickets[k] = tv
		}
		out[i] = orderListView{ID: o.ID, CreatedAt: o.CreatedAt, Tickets: tickets}
	}
	return out, nil
}
