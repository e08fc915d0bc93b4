package dto

import "github.com/rushibamb/dig-village-sub001/internal/models"

// CreateGrievanceRequest is the citizen intake form.
type CreateGrievanceRequest struct {
	Title       string                   `json:"title" validate:"required,max=200"`
	Description string                   `json:"description" validate:"required"`
	Category    string                   `json:"category" validate:"required,max=100"`
	Priority    models.GrievancePriority `json:"priority" validate:"omitempty,oneof=Low Normal High Urgent"`
	Location    *string                  `json:"location,omitempty"`
	Photos      []string                 `json:"photos,omitempty" validate:"omitempty,dive,required"`
}

// SetAdminStatusRequest approves or rejects an unapproved grievance.
type SetAdminStatusRequest struct {
	Status models.AdminStatus `json:"status" validate:"required,oneof=Approved Rejected"`
	Note   string             `json:"note"`
}

// AssignWorkerRequest sets the assigned worker. A null workerId unassigns.
type AssignWorkerRequest struct {
	WorkerID *string `json:"workerId"`
}

// SetProgressRequest moves the progress axis. Photos are required when the
// target is Resolved and the grievance has none yet.
type SetProgressRequest struct {
	Status models.ProgressStatus `json:"status" validate:"required,oneof=Pending In-progress Resolved"`
	Photos []string              `json:"photos,omitempty" validate:"omitempty,dive,required"`
}

// ResolveGrievanceRequest marks a grievance resolved with photographic proof.
type ResolveGrievanceRequest struct {
	Photos []string `json:"photos" validate:"required,min=1,dive,required"`
}

// GrievanceQuery mirrors supported listing filters.
type GrievanceQuery struct {
	AdminStatus    models.AdminStatus
	ProgressStatus models.ProgressStatus
	Priority       models.GrievancePriority
	Category       string
	WorkerID       string
	SubmittedBy    string
	Search         string
	Page           int
	PageSize       int
}
