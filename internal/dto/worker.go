package dto

import "github.com/rushibamb/dig-village-sub001/internal/models"

// CreateWorkerRequest registers a field worker.
type CreateWorkerRequest struct {
	Name       string  `json:"name" validate:"required,max=150"`
	Department string  `json:"department" validate:"required,max=100"`
	Phone      string  `json:"phone" validate:"required,mobile"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
}

// UpdateWorkerRequest changes worker details. Nil fields are left untouched.
type UpdateWorkerRequest struct {
	Name       *string              `json:"name,omitempty" validate:"omitempty,max=150"`
	Department *string              `json:"department,omitempty" validate:"omitempty,max=100"`
	Phone      *string              `json:"phone,omitempty" validate:"omitempty,mobile"`
	Email      *string              `json:"email,omitempty" validate:"omitempty,email"`
	Status     *models.WorkerStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// WorkerQuery mirrors supported listing filters.
type WorkerQuery struct {
	Status     models.WorkerStatus
	Department string
	Search     string
	Page       int
	PageSize   int
}
