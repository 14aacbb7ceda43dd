// Package booking creates and lists orders. An order and all of its tickets
// are written as one unit: either every ticket is booked or none is.
package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/db"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// TicketSpec is one requested seat.
type TicketSpec struct {
	JourneyID uint
	Cargo     int
	Seat      int
}

type slot struct {
	journey     uint
	cargo, seat int
}

// CreateOrder books every ticket in specs for userID inside one transaction.
// Validation errors are keyed by ticket position ("tickets[1].seat"); a seat
// already taken by another order yields an apperr conflict.
func CreateOrder(ctx context.Context, gdb *gorm.DB, userID uint, specs []TicketSpec) (*models.Order, error) {
	if len(specs) == 0 {
		return nil, apperr.Validation("tickets", "at least one ticket is required")
	}

	verr := apperr.Invalid()
	seen := make(map[slot]int, len(specs))
	for i, s := range specs {
		k := slot{s.JourneyID, s.Cargo, s.Seat}
		if first, dup := seen[k]; dup {
			verr.Add(fmt.Sprintf("tickets[%d]", i), fmt.Sprintf("duplicates tickets[%d]", first))
			continue
		}
		seen[k] = i
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	order := models.Order{UserID: userID}
	ops := make([]db.Op, 0, len(specs)+1)
	ops = append(ops, db.Op{Name: "order", Apply: func(tx *gorm.DB) error {
		return tx.Omit("Tickets").Create(&order).Error
	}})
	for i, s := range specs {
		s := s
		ops = append(ops, db.Op{Name: fmt.Sprintf("tickets[%d]", i), Apply: func(tx *gorm.DB) error {
			return tx.Create(&models.Ticket{
				JourneyID: s.JourneyID,
				Cargo:     s.Cargo,
				Seat:      s.Seat,
				OrderID:   order.ID,
			}).Error
		}})
	}

	if err := db.Atomic(ctx, gdb, ops...); err != nil {
		return nil, fmt.Errorf("booking: create order: %w", classify(err, specs))
	}
	return GetOrder(gdb, userID, order.ID)
}

// classify rewrites the error of a failed ticket op so it names the ticket.
func classify(err error, specs []TicketSpec) error {
	var opErr *db.OpError
	if !errors.As(err, &opErr) || opErr.Index == 0 {
		return err
	}
	i := opErr.Index - 1
	prefix := fmt.Sprintf("tickets[%d]", i)

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		s := specs[i]
		return apperr.Conflict(prefix, fmt.Sprintf("seat %d in cargo %d of journey %d is already booked", s.Seat, s.Cargo, s.JourneyID))
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperr.Validation(prefix+".journey", fmt.Sprintf("journey %d does not exist", specs[i].JourneyID))
	}

	var ae *apperr.Error
	if errors.As(err, &ae) && errors.Is(ae.Kind, apperr.ErrValidation) {
		rekeyed := apperr.Invalid()
		rekeyed.Detail = ae.Detail
		for field, msgs := range ae.Fields {
			for _, m := range msgs {
				rekeyed.Add(prefix+"."+field, m)
			}
		}
		return rekeyed
	}
	return err
}

func withTickets(q *gorm.DB) *gorm.DB {
	return q.Preload("Tickets", func(db *gorm.DB) *gorm.DB { return db.Order("tickets.id ASC") }).
		Preload("Tickets.Journey.Route.Source").
		Preload("Tickets.Journey.Route.Destination").
		Preload("Tickets.Journey.Train").
		Preload("Tickets.Journey.Crew")
}

// GetOrder retrieves an order owned by userID with its tickets.
func GetOrder(gdb *gorm.DB, userID, id uint) (*models.Order, error) {
	var order models.Order
	err := withTickets(gdb).Where("id = ? AND user_id = ?", id, userID).First(&order).Error
	if err != nil {
		return nil, fmt.Errorf("booking: get order %d: %w", id, db.TranslateRead(err, "order", id))
	}
	return &order, nil
}

// ListOrders returns one page of userID's orders, newest first, and the
// total number of orders the user has.
func ListOrders(gdb *gorm.DB, userID uint, limit, offset int) ([]models.Order, int64, error) {
	var total int64
	if err := gdb.Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("booking: count orders: %w", err)
	}

	orders := []models.Order{}
	err := withTickets(gdb).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("booking: list orders: %w", err)
	}
	return orders, total, nil
}

// DeleteOrder removes an order owned by userID and releases its seats.
func DeleteOrder(ctx context.Context, gdb *gorm.DB, userID, id uint) error {
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
			return db.TranslateRead(err, "order", id)
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.Ticket{}).Error; err != nil {
			return fmt.Errorf("delete tickets: %w", err)
		}
		return tx.Delete(&models.Order{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("booking: delete order %d: %w", id, err)
	}
	return nil
}
