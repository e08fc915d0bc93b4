package models

import "time"

// WorkerStatus marks whether a field worker can take assignments.
type WorkerStatus string

const (
	WorkerStatusActive   WorkerStatus = "active"
	WorkerStatusInactive WorkerStatus = "inactive"
)

// Worker is a municipal field worker grievances can be assigned to.
type Worker struct {
	ID         string       `db:"id" json:"id"`
	Name       string       `db:"name" json:"name"`
	Department string       `db:"department" json:"department"`
	Phone      string       `db:"phone" json:"phone"`
	Email      *string      `db:"email" json:"email,omitempty"`
	Status     WorkerStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updatedAt"`
}

// WorkerFilter constrains listing queries.
type WorkerFilter struct {
	Status     WorkerStatus
	Department string
	Search     string
	Page       int
	PageSize   int
}
