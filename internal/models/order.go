package models

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Order groups the tickets a user booked in one request.
type Order struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uint      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	Tickets []Ticket `gorm:"foreignKey:OrderID"`
}

// Ticket reserves one seat in one cargo of a journey's train.
// (JourneyID, Cargo, Seat) is unique across all tickets.
type Ticket struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	JourneyID uint `gorm:"not null;uniqueIndex:idx_ticket_slot,priority:1"`
	Cargo     int  `gorm:"not null;uniqueIndex:idx_ticket_slot,priority:2"`
	Seat      int  `gorm:"not null;uniqueIndex:idx_ticket_slot,priority:3"`
	OrderID   uint `gorm:"not null;index"`

	Journey *Journey `gorm:"foreignKey:JourneyID"`
}

// ValidateTicket checks cargo and seat against the train's dimensions.
func ValidateTicket(cargo, seat int, train Train) error {
	verr := apperr.Invalid()
	if cargo < 1 || cargo > train.CargoNum {
		verr.Add("cargo", fmt.Sprintf("cargo must be in range [1, %d], got %d", train.CargoNum, cargo))
	}
	if seat < 1 || seat > train.PlacesInCargo {
		verr.Add("seat", fmt.Sprintf("seat must be in range [1, %d], got %d", train.PlacesInCargo, seat))
	}
	return verr.OrNil()
}

// BeforeSave enforces ValidateTicket on every write, whichever code path
// persists the ticket. The lookup runs on the caller's transaction and
// locks the train row so a concurrent resize waits for the booking.
func (t *Ticket) BeforeSave(tx *gorm.DB) error {
	slot, err := t.pending(tx.Statement)
	if err != nil {
		return err
	}
	var journey Journey
	err = tx.Session(&gorm.Session{NewDB: true}).
		Preload("Train", func(q *gorm.DB) *gorm.DB {
			return q.Clauses(clause.Locking{Strength: "UPDATE"})
		}).
		Where("id = ?", slot.JourneyID).
		First(&journey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("journey", fmt.Sprintf("journey %d does not exist", slot.JourneyID))
		}
		return fmt.Errorf("models: load journey %d for ticket: %w", slot.JourneyID, err)
	}
	return ValidateTicket(slot.Cargo, slot.Seat, journey.Train)
}

// pending returns the ticket as the statement will store it. Update and
// Updates carry their assignments in Dest rather than on the receiver.
func (t *Ticket) pending(stmt *gorm.Statement) (Ticket, error) {
	out := *t
	switch dest := stmt.Dest.(type) {
	case map[string]interface{}:
		for key, v := range dest {
			name := key
			if stmt.Schema != nil {
				if f := stmt.Schema.LookUpField(key); f != nil {
					name = f.Name
				}
			}
			if name != "JourneyID" && name != "Cargo" && name != "Seat" {
				continue
			}
			n, ok := asInt(v)
			if !ok || (name == "JourneyID" && n < 0) {
				return out, apperr.Validation(key, fmt.Sprintf("%s must be a plain integer value", key))
			}
			switch name {
			case "JourneyID":
				out.JourneyID = uint(n)
			case "Cargo":
				out.Cargo = int(n)
			case "Seat":
				out.Seat = int(n)
			}
		}
	case *Ticket:
		if dest != nil && dest != t {
			mergeTicket(&out, *dest)
		}
	case Ticket:
		mergeTicket(&out, dest)
	}
	return out, nil
}

// mergeTicket copies the non-zero slot fields of src, as Updates does with
// a struct.
func mergeTicket(dst *Ticket, src Ticket) {
	if src.JourneyID != 0 {
		dst.JourneyID = src.JourneyID
	}
	if src.Cargo != 0 {
		dst.Cargo = src.Cargo
	}
	if src.Seat != 0 {
		dst.Seat = src.Seat
	}
}

func asInt(v interface{}) (int64, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}
