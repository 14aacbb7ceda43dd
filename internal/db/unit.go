package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Op is one step of an atomic unit of work. Apply must only use tx.
type Op struct {
	Name  string
	Apply func(tx *gorm.DB) error
}

// OpError reports which operation aborted a unit of work.
type OpError struct {
	Index int
	Name  string
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("db: unit of work op %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Atomic applies ops in order inside a single transaction. The first failing
// op rolls back everything applied so far and is returned as an *OpError.
func Atomic(ctx context.Context, db *gorm.DB, ops ...Op) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, op := range ops {
			if err := op.Apply(tx); err != nil {
				return &OpError{Index: i, Name: op.Name, Err: err}
			}
		}
		return nil
	})
}
