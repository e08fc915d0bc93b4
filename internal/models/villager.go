package models

import "time"

// Gender enumerates accepted villager genders.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// VillagerStatus captures the review state of a villager record.
type VillagerStatus string

const (
	VillagerStatusPending  VillagerStatus = "Pending"
	VillagerStatusApproved VillagerStatus = "Approved"
	VillagerStatusRejected VillagerStatus = "Rejected"
)

// RequestType records why a villager record is awaiting review.
type RequestType string

const (
	RequestTypeNewRegistration RequestType = "New Registration"
	RequestTypeEditRequest     RequestType = "Edit Request"
)

// Villager is a registered resident of the village.
type Villager struct {
	ID           string         `db:"id" json:"id"`
	FullName     string         `db:"full_name" json:"fullName"`
	MobileNumber string         `db:"mobile_number" json:"mobileNumber"`
	Gender       Gender         `db:"gender" json:"gender"`
	DateOfBirth  Date           `db:"date_of_birth" json:"dateOfBirth"`
	AadharNumber string         `db:"aadhar_number" json:"aadharNumber"`
	IDProofURL   *string        `db:"id_proof_url" json:"idProofUrl,omitempty"`
	Address      string         `db:"address" json:"address"`
	Email        *string        `db:"email" json:"email,omitempty"`
	Occupation   *string        `db:"occupation" json:"occupation,omitempty"`
	WardNumber   *string        `db:"ward_number" json:"wardNumber,omitempty"`
	Status       VillagerStatus `db:"status" json:"status"`
	RequestType  RequestType    `db:"request_type" json:"requestType"`
	SubmittedAt  time.Time      `db:"submitted_at" json:"submittedAt"`
	ReviewedBy   *string        `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time     `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNote   *string        `db:"review_note" json:"reviewNote,omitempty"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// VillagerFilter constrains listing queries.
type VillagerFilter struct {
	Status      []VillagerStatus
	RequestType RequestType
	Search      string
	Page        int
	PageSize    int
}

// VillagerRevision keeps the last approved field values of a record while an
// edit request is under review.
type VillagerRevision struct {
	ID         string    `db:"id" json:"id"`
	VillagerID string    `db:"villager_id" json:"villagerId"`
	Snapshot   []byte    `db:"snapshot" json:"snapshot"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
