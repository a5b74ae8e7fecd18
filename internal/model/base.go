package model

import "github.com/google/uuid"

// assignID gives a fresh primary key to rows created without one. Keys are
// generated in Go so the same models work on Postgres and SQLite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
