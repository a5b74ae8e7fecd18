package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateRange is a half-open [From, To) interval in UTC. Nil bounds are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// apply restricts column to the range.
func (r DateRange) apply(q *gorm.DB, column string) *gorm.DB {
	if r.From != nil {
		q = q.Where(column+" >= ?", r.From.UTC())
	}
	if r.To != nil {
		q = q.Where(column+" < ?", r.To.UTC())
	}
	return q
}

// ownedBy scopes a query on table to the given owner.
func ownedBy(table string, owner uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".user_id = ?", owner)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive "contains" pattern for use with
// LOWER(column) LIKE ? ESCAPE '\'. LIKE wildcards in q are escaped, so every
// clause must name the escape character.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

// prefixPattern is likePattern anchored at the start.
func prefixPattern(q string) string {
	return likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
