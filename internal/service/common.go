package service

import (
	"bytes"
	"context"
	"errors"
	"slices"

	"subhlabh/internal/apierror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// notFound turns gorm.ErrRecordNotFound into a 404 domain error with msg.
// Rows owned by another shop are filtered out by the query, so they land here too.
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(msg)
	}
	return err
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.Validation(field + " is not a valid id")
	}
	return id, nil
}

// DashboardInvalidator drops the cached dashboard aggregate of an owner.
// Every write that moves sales, credit, customers or products calls it
// before responding.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, owner uuid.UUID)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, uuid.UUID) {}

func orNoop(inv DashboardInvalidator) DashboardInvalidator {
	if inv == nil {
		return noopInvalidator{}
	}
	return inv
}

// sortIDs orders ids by their bytes. Row locks taken in this order cannot
// deadlock against each other.
func sortIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
}
