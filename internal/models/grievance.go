package models

import (
	"time"

	"github.com/lib/pq"
)

// GrievancePriority ranks citizen complaints.
type GrievancePriority string

const (
	PriorityLow    GrievancePriority = "Low"
	PriorityNormal GrievancePriority = "Normal"
	PriorityHigh   GrievancePriority = "High"
	PriorityUrgent GrievancePriority = "Urgent"
)

// Valid reports whether p is a known priority.
func (p GrievancePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AdminStatus is the review axis of a grievance.
type AdminStatus string

const (
	AdminStatusUnapproved AdminStatus = "Unapproved"
	AdminStatusApproved   AdminStatus = "Approved"
	AdminStatusRejected   AdminStatus = "Rejected"
)

// ProgressStatus is the work axis of a grievance. It only moves while the
// grievance is approved.
type ProgressStatus string

const (
	ProgressPending    ProgressStatus = "Pending"
	ProgressInProgress ProgressStatus = "In-progress"
	ProgressResolved   ProgressStatus = "Resolved"
)

// Valid reports whether s is a known progress value.
func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressPending, ProgressInProgress, ProgressResolved:
		return true
	}
	return false
}

// Grievance is a citizen complaint moving through review, assignment and resolution.
type Grievance struct {
	ID                 string            `db:"id" json:"id"`
	Title              string            `db:"title" json:"title"`
	Description        string            `db:"description" json:"description"`
	Category           string            `db:"category" json:"category"`
	Priority           GrievancePriority `db:"priority" json:"priority"`
	SubmittedBy        string            `db:"submitted_by" json:"submittedBy"`
	Location           *string           `db:"location" json:"location,omitempty"`
	Photos             pq.StringArray    `db:"photos" json:"photos"`
	AdminStatus        AdminStatus       `db:"admin_status" json:"adminStatus"`
	ProgressStatus     ProgressStatus    `db:"progress_status" json:"progressStatus"`
	AssignedWorkerID   *string           `db:"assigned_worker_id" json:"assignedWorkerId"`
	AssignedWorkerName *string           `db:"assigned_worker_name" json:"assignedWorkerName,omitempty"`
	ResolutionPhotos   pq.StringArray    `db:"resolution_photos" json:"resolutionPhotos"`
	AdminNote          *string           `db:"admin_note" json:"adminNote,omitempty"`
	ResolvedAt         *time.Time        `db:"resolved_at" json:"resolvedAt,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updatedAt"`
}

// CanAdvanceProgress reports whether progress and assignment may change.
// Unapproved and rejected grievances are frozen on both.
func CanAdvanceProgress(g *Grievance) bool {
	return g != nil && g.AdminStatus == AdminStatusApproved
}

// GrievanceFilter constrains listing queries.
type GrievanceFilter struct {
	AdminStatus    AdminStatus
	ProgressStatus ProgressStatus
	Priority       GrievancePriority
	Category       string
	WorkerID       string
	SubmittedBy    string
	Search         string
	Page           int
	PageSize       int
}
