package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/db"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func mustTrain(t *testing.T, gdb *gorm.DB, name string) *models.Train {
	t.Helper()
	tt, err := CreateTrainType(gdb, "Type "+name)
	if err != nil {
		t.Fatalf("CreateTrainType: %v", err)
	}
	train, err := CreateTrain(gdb, TrainOpts{Name: name, CargoNum: 10, PlacesInCargo: 60, TrainTypeID: tt.ID})
	if err != nil {
		t.Fatalf("CreateTrain: %v", err)
	}
	return train
}

func mustRoute(t *testing.T, gdb *gorm.DB) *models.Route {
	t.Helper()
	a, err := CreateStation(gdb, StationOpts{Name: "Kyiv", Latitude: 50.45, Longitude: 30.52})
	if err != nil {
		t.Fatalf("CreateStation: %v", err)
	}
	b, err := CreateStation(gdb, StationOpts{Name: "Lviv", Latitude: 49.84, Longitude: 24.03})
	if err != nil {
		t.Fatalf("CreateStation: %v", err)
	}
	r, err := CreateRoute(gdb, RouteOpts{SourceID: a.ID, DestinationID: b.ID, Distance: 540})
	if err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	return r
}

func assertKind(t *testing.T, err, kind error, field string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
	if field == "" {
		return
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("error %v is not *apperr.Error", err)
	}
	if len(ae.Fields[field]) == 0 {
		t.Errorf("no message for field %q in %v", field, ae.Fields)
	}
}

func TestCreateStation(t *testing.T) {
	gdb := testDB(t)

	st, err := CreateStation(gdb, StationOpts{Name: "  Odesa ", Latitude: 46.48, Longitude: 30.72})
	if err != nil {
		t.Fatalf("CreateStation: %v", err)
	}
	if st.ID == 0 || st.Name != "Odesa" {
		t.Errorf("station = %+v", st)
	}

	_, err = CreateStation(gdb, StationOpts{Name: "Odesa"})
	assertKind(t, err, apperr.ErrConflict, "name")

	_, err = CreateStation(gdb, StationOpts{Name: " "})
	assertKind(t, err, apperr.ErrValidation, "name")
}

func TestGetStation_NotFound(t *testing.T) {
	gdb := testDB(t)
	_, err := GetStation(gdb, 42)
	assertKind(t, err, apperr.ErrNotFound, "")
}

func TestListStations_Ordered(t *testing.T) {
	gdb := testDB(t)
	for _, n := range []string{"B", "A", "C"} {
		if _, err := CreateStation(gdb, StationOpts{Name: n}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := ListStations(gdb)
	if err != nil {
		t.Fatalf("ListStations: %v", err)
	}
	if len(got) != 3 || got[0].Name != "B" || got[2].Name != "C" {
		t.Errorf("stations = %+v, want insertion order", got)
	}
}

func TestTrainTypes(t *testing.T) {
	gdb := testDB(t)
	if _, err := CreateTrainType(gdb, "Intercity"); err != nil {
		t.Fatalf("CreateTrainType: %v", err)
	}
	_, err := CreateTrainType(gdb, "Intercity")
	assertKind(t, err, apperr.ErrConflict, "name")

	types, err := ListTrainTypes(gdb)
	if err != nil || len(types) != 1 {
		t.Fatalf("ListTrainTypes = %v, %v", types, err)
	}
}

func TestCreateCrew(t *testing.T) {
	gdb := testDB(t)
	c, err := CreateCrew(gdb, CrewOpts{FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("CreateCrew: %v", err)
	}
	if c.FullName() != "Ada Lovelace" {
		t.Errorf("FullName = %q", c.FullName())
	}

	_, err = CreateCrew(gdb, CrewOpts{})
	var ae *apperr.Error
	if !errors.As(err, &ae) || len(ae.Fields) != 2 {
		t.Errorf("error = %v, want both name fields reported", err)
	}

	crew, err := ListCrew(gdb)
	if err != nil || len(crew) != 1 {
		t.Errorf("ListCrew = %v, %v", crew, err)
	}
}

func TestCreateTrain_Validation(t *testing.T) {
	gdb := testDB(t)
	tt, _ := CreateTrainType(gdb, "Regional")

	tests := []struct {
		name  string
		opts  TrainOpts
		field string
	}{
		{"missing name", TrainOpts{CargoNum: 1, PlacesInCargo: 1, TrainTypeID: tt.ID}, "name"},
		{"zero cargo", TrainOpts{Name: "T", PlacesInCargo: 1, TrainTypeID: tt.ID}, "cargo_num"},
		{"zero places", TrainOpts{Name: "T", CargoNum: 1, TrainTypeID: tt.ID}, "places_in_cargo"},
		{"unknown type", TrainOpts{Name: "T", CargoNum: 1, PlacesInCargo: 1, TrainTypeID: 99}, "train_type"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateTrain(gdb, tc.opts)
			assertKind(t, err, apperr.ErrValidation, tc.field)
		})
	}
}

func TestCreateTrain_LoadsTypeAndIgnoresImage(t *testing.T) {
	gdb := testDB(t)
	train := mustTrain(t, gdb, "Hyundai")
	if train.TrainType.Name != "Type Hyundai" {
		t.Errorf("TrainType not loaded: %+v", train.TrainType)
	}
	if train.Image != "" {
		t.Errorf("Image = %q, want empty", train.Image)
	}
	if train.Capacity() != 600 {
		t.Errorf("Capacity = %d, want 600", train.Capacity())
	}

	_, err := CreateTrain(gdb, TrainOpts{Name: "Hyundai", CargoNum: 1, PlacesInCargo: 1, TrainTypeID: train.TrainTypeID})
	assertKind(t, err, apperr.ErrConflict, "name")
}

func TestPatchTrain(t *testing.T) {
	gdb := testDB(t)
	train := mustTrain(t, gdb, "Skoda")

	name := "Skoda 2"
	got, err := PatchTrain(gdb, train.ID, TrainPatch{Name: &name})
	if err != nil {
		t.Fatalf("PatchTrain: %v", err)
	}
	if got.Name != "Skoda 2" || got.CargoNum != 10 {
		t.Errorf("patched = %+v", got)
	}

	_, err = PatchTrain(gdb, 999, TrainPatch{Name: &name})
	assertKind(t, err, apperr.ErrNotFound, "")
}

func TestPatchTrain_CannotStrandTickets(t *testing.T) {
	gdb := testDB(t)
	train := mustTrain(t, gdb, "Tarpan")
	route := mustRoute(t, gdb)

	dep := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	j := models.Journey{RouteID: route.ID, TrainID: train.ID, DepartureTime: dep, ArrivalTime: dep.Add(5 * time.Hour)}
	if err := gdb.Create(&j).Error; err != nil {
		t.Fatal(err)
	}
	order := models.Order{UserID: 1}
	if err := gdb.Create(&order).Error; err != nil {
		t.Fatal(err)
	}
	if err := gdb.Create(&models.Ticket{JourneyID: j.ID, Cargo: 8, Seat: 50, OrderID: order.ID}).Error; err != nil {
		t.Fatal(err)
	}

	small := 5
	_, err := PatchTrain(gdb, train.ID, TrainPatch{CargoNum: &small})
	assertKind(t, err, apperr.ErrValidation, "cargo_num")

	ok := 8
	if _, err := PatchTrain(gdb, train.ID, TrainPatch{CargoNum: &ok}); err != nil {
		t.Errorf("shrinking to the booked cargo should succeed: %v", err)
	}
}

func TestPatchTrain_LocksTrainAgainstBookings(t *testing.T) {
	gdb := testDB(t)
	train := mustTrain(t, gdb, "Intercity+")
	route := mustRoute(t, gdb)
	dep := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	j := models.Journey{RouteID: route.ID, TrainID: train.ID, DepartureTime: dep, ArrivalTime: dep.Add(5 * time.Hour)}
	if err := gdb.Create(&j).Error; err != nil {
		t.Fatal(err)
	}
	order := models.Order{UserID: 1}
	if err := gdb.Create(&order).Error; err != nil {
		t.Fatal(err)
	}

	var locked []string
	err := gdb.Callback().Query().Before("gorm:query").Register("catalog_test:locks", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Clauses["FOR"]; ok {
			locked = append(locked, tx.Statement.Table)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	name := "Intercity++"
	if _, err := PatchTrain(gdb, train.ID, TrainPatch{Name: &name}); err != nil {
		t.Fatalf("PatchTrain: %v", err)
	}
	if len(locked) != 1 || locked[0] != "trains" {
		t.Fatalf("patch locked %v, want [trains]", locked)
	}

	locked = nil
	if err := gdb.Create(&models.Ticket{JourneyID: j.ID, Cargo: 1, Seat: 1, OrderID: order.ID}).Error; err != nil {
		t.Fatal(err)
	}
	if len(locked) != 1 || locked[0] != "trains" {
		t.Errorf("booking locked %v, want [trains]", locked)
	}
}

func TestUpdateTrain_ReplacesFields(t *testing.T) {
	gdb := testDB(t)
	train := mustTrain(t, gdb, "Old")
	got, err := UpdateTrain(gdb, train.ID, TrainOpts{Name: "New", CargoNum: 2, PlacesInCargo: 3, TrainTypeID: train.TrainTypeID})
	if err != nil {
		t.Fatalf("UpdateTrain: %v", err)
	}
	if got.Name != "New" || got.Capacity() != 6 {
		t.Errorf("updated = %+v", got)
	}
}

func TestSetTrainImage_ReturnsPrevious(t *testing.T) {
	gdb := testDB(t)
	train := mustTrain(t, gdb, "Img")

	old, err := SetTrainImage(gdb, train.ID, "trains/a.png")
	if err != nil || old != "" {
		t.Fatalf("first SetTrainImage = %q, %v", old, err)
	}
	old, err = SetTrainImage(gdb, train.ID, "trains/b.png")
	if err != nil || old != "trains/a.png" {
		t.Fatalf("second SetTrainImage = %q, %v", old, err)
	}
	_, err = SetTrainImage(gdb, 404, "x.png")
	assertKind(t, err, apperr.ErrNotFound, "")
}

type recordingRemover struct {
	removed []string
	err     error
}

func (r *recordingRemover) Remove(path string) error {
	r.removed = append(r.removed, path)
	return r.err
}

func TestDeleteTrain_CascadesAndRemovesImage(t *testing.T) {
	gdb := testDB(t)
	train := mustTrain(t, gdb, "Doomed")
	route := mustRoute(t, gdb)
	if _, err := SetTrainImage(gdb, train.ID, "trains/doomed.png"); err != nil {
		t.Fatal(err)
	}

	dep := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	j := models.Journey{RouteID: route.ID, TrainID: train.ID, DepartureTime: dep, ArrivalTime: dep.Add(time.Hour)}
	if err := gdb.Create(&j).Error; err != nil {
		t.Fatal(err)
	}
	order := models.Order{UserID: 1}
	gdb.Create(&order)
	if err := gdb.Create(&models.Ticket{JourneyID: j.ID, Cargo: 1, Seat: 1, OrderID: order.ID}).Error; err != nil {
		t.Fatal(err)
	}

	rm := &recordingRemover{}
	if err := DeleteTrain(context.Background(), gdb, rm, train.ID); err != nil {
		t.Fatalf("DeleteTrain: %v", err)
	}

	for model, name := range map[interface{}]string{&models.Train{}: "trains", &models.Journey{}: "journeys", &models.Ticket{}: "tickets"} {
		var n int64
		gdb.Model(model).Count(&n)
		if n != 0 {
			t.Errorf("%s remaining = %d, want 0", name, n)
		}
	}
	var orders int64
	gdb.Model(&models.Order{}).Count(&orders)
	if orders != 1 {
		t.Errorf("orders = %d, want the emptied order kept", orders)
	}
	if len(rm.removed) != 1 || rm.removed[0] != "trains/doomed.png" {
		t.Errorf("removed = %v", rm.removed)
	}
}

func TestDeleteTrain_RemoverFailureIsNotFatal(t *testing.T) {
	gdb := testDB(t)
	train := mustTrain(t, gdb, "Sticky")
	SetTrainImage(gdb, train.ID, "trains/sticky.png")

	rm := &recordingRemover{err: errors.New("disk gone")}
	if err := DeleteTrain(context.Background(), gdb, rm, train.ID); err != nil {
		t.Fatalf("DeleteTrain: %v", err)
	}
	err := DeleteTrain(context.Background(), gdb, rm, train.ID)
	assertKind(t, err, apperr.ErrNotFound, "")
}

func TestCreateRoute(t *testing.T) {
	gdb := testDB(t)
	r := mustRoute(t, gdb)
	if r.FullRoute() != "Kyiv - Lviv" {
		t.Errorf("FullRoute = %q", r.FullRoute())
	}

	tests := []struct {
		name  string
		opts  RouteOpts
		field string
	}{
		{"same station", RouteOpts{SourceID: r.SourceID, DestinationID: r.SourceID, Distance: 1}, "destination"},
		{"zero distance", RouteOpts{SourceID: r.SourceID, DestinationID: r.DestinationID}, "distance"},
		{"unknown source", RouteOpts{SourceID: 77, DestinationID: r.DestinationID, Distance: 1}, "source"},
		{"missing destination", RouteOpts{SourceID: r.SourceID, Distance: 1}, "destination"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateRoute(gdb, tc.opts)
			assertKind(t, err, apperr.ErrValidation, tc.field)
		})
	}
}

func TestListRoutes_Filters(t *testing.T) {
	gdb := testDB(t)
	r := mustRoute(t, gdb)
	c, _ := CreateStation(gdb, StationOpts{Name: "Dnipro"})
	if _, err := CreateRoute(gdb, RouteOpts{SourceID: r.DestinationID, DestinationID: c.ID, Distance: 900}); err != nil {
		t.Fatal(err)
	}

	all, err := ListRoutes(gdb, RouteFilters{})
	if err != nil || len(all) != 2 {
		t.Fatalf("ListRoutes() = %d, %v", len(all), err)
	}

	src := r.SourceID
	bySource, _ := ListRoutes(gdb, RouteFilters{SourceID: &src})
	if len(bySource) != 1 || bySource[0].Source.Name != "Kyiv" {
		t.Errorf("by source = %+v", bySource)
	}

	dst := c.ID
	byDest, _ := ListRoutes(gdb, RouteFilters{DestinationID: &dst})
	if len(byDest) != 1 || byDest[0].FullRoute() != "Lviv - Dnipro" {
		t.Errorf("by destination = %+v", byDest)
	}

	none, _ := ListRoutes(gdb, RouteFilters{SourceID: &src, DestinationID: &dst})
	if len(none) != 0 {
		t.Errorf("combined filter = %+v, want none", none)
	}
}
