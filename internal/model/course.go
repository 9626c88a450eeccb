package model

import "github.com/google/uuid"

// Course is the slice of the course catalog this service reads.
type Course struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}
