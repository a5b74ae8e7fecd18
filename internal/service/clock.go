package service

import (
	"context"
	"time"
	_ "time/tzdata" // shop timezones must load on hosts without zoneinfo

	"subhlabh/internal/apierror"
	"subhlabh/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const dayLayout = "2006-01-02"

// Clock resolves "now" and day boundaries in a shop's timezone.
type Clock struct {
	users      repository.ShopUserRepository
	defaultLoc *time.Location
	Now        func() time.Time
}

func NewClock(users repository.ShopUserRepository, defaultTZ string) *Clock {
	loc, err := time.LoadLocation(defaultTZ)
	if err != nil {
		log.Warn().Str("tz", defaultTZ).Msg("unknown DEFAULT_TIMEZONE, falling back to UTC")
		loc = time.UTC
	}
	return &Clock{users: users, defaultLoc: loc, Now: func() time.Time { return time.Now().UTC() }}
}

// Location returns the owner's configured timezone, or the default one.
func (c *Clock) Location(ctx context.Context, owner uuid.UUID) *time.Location {
	if c.users == nil {
		return c.defaultLoc
	}
	u, err := c.users.FindByID(ctx, owner)
	if err != nil || u.Timezone == "" {
		return c.defaultLoc
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return c.defaultLoc
	}
	return loc
}

// Today returns the owner's current local day as YYYY-MM-DD.
func (c *Clock) Today(ctx context.Context, owner uuid.UUID) string {
	return c.Now().In(c.Location(ctx, owner)).Format(dayLayout)
}

// startOfDay is local midnight of t's calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func dayRange(start time.Time, days int) repository.DateRange {
	end := start.AddDate(0, 0, days)
	return repository.DateRange{From: &start, To: &end}
}

// parseDayRange turns inclusive YYYY-MM-DD bounds into a half-open UTC range
// covering start-of-day of from to end-of-day of to, in loc.
func parseDayRange(from, to string, loc *time.Location) (repository.DateRange, error) {
	var r repository.DateRange
	if from != "" {
		t, err := time.ParseInLocation(dayLayout, from, loc)
		if err != nil {
			return r, apierror.Validation("date_from must be YYYY-MM-DD")
		}
		r.From = &t
	}
	if to != "" {
		t, err := time.ParseInLocation(dayLayout, to, loc)
		if err != nil {
			return r, apierror.Validation("date_to must be YYYY-MM-DD")
		}
		end := t.AddDate(0, 0, 1)
		r.To = &end
	}
	if r.From != nil && r.To != nil && !r.From.Before(*r.To) {
		return r, apierror.Validation("date_from must not be after date_to")
	}
	return r, nil
}

// yearRange covers the whole calendar year in loc.
func yearRange(year int, loc *time.Location) repository.DateRange {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(1, 0, 0)
	return repository.DateRange{From: &start, To: &end}
}

// intersect narrows a by b.
func intersect(a, b repository.DateRange) repository.DateRange {
	out := a
	if b.From != nil && (out.From == nil || b.From.After(*out.From)) {
		out.From = b.From
	}
	if b.To != nil && (out.To == nil || b.To.Before(*out.To)) {
		out.To = b.To
	}
	return out
}
