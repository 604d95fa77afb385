package models

import "github.com/google/uuid"

// assignID gives a new row a UUID primary key unless the caller set one.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
