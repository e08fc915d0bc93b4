package dto

import (
	"time"

	"github.com/rushibamb/dig-village-sub001/internal/models"
	"github.com/rushibamb/dig-village-sub001/pkg/validation"
)

// VillagerRequest is the full villager form, used for self-service submission,
// OTP-authorized edits and admin create/override.
type VillagerRequest struct {
	FullName     string        `json:"fullName" validate:"required,max=150"`
	MobileNumber string        `json:"mobileNumber" validate:"required,mobile"`
	Gender       models.Gender `json:"gender" validate:"required,oneof=Male Female Other"`
	DateOfBirth  models.Date   `json:"dateOfBirth"`
	AadharNumber string        `json:"aadharNumber" validate:"required,aadhar"`
	IDProofURL   *string       `json:"idProofUrl,omitempty" validate:"omitempty,max=1024"`
	Address      string        `json:"address" validate:"required,max=500"`
	Email        *string       `json:"email,omitempty" validate:"omitempty,email"`
	Occupation   *string       `json:"occupation,omitempty"`
	WardNumber   *string       `json:"wardNumber,omitempty"`
}

// Missing lists the required fields that are blank.
func (r VillagerRequest) Missing() []string {
	return validation.Missing(
		validation.Field{Name: "fullName", Value: r.FullName},
		validation.Field{Name: "mobileNumber", Value: r.MobileNumber},
		validation.Field{Name: "gender", Value: string(r.Gender)},
		validation.Field{Name: "aadharNumber", Value: r.AadharNumber},
		validation.Field{Name: "address", Value: r.Address},
	)
}

// Normalize trims input and canonicalizes the mobile and national ID numbers.
func (r *VillagerRequest) Normalize() {
	r.FullName = trim(r.FullName)
	r.Address = trim(r.Address)
	r.MobileNumber = validation.NormalizeMobile(r.MobileNumber)
	r.AadharNumber = validation.NormalizeAadhar(r.AadharNumber)
}

// FromVillager converts a stored record back into an editable form.
func FromVillager(v *models.Villager) VillagerRequest {
	return VillagerRequest{
		FullName:     v.FullName,
		MobileNumber: v.MobileNumber,
		Gender:       v.Gender,
		DateOfBirth:  v.DateOfBirth,
		AadharNumber: v.AadharNumber,
		IDProofURL:   v.IDProofURL,
		Address:      v.Address,
		Email:        v.Email,
		Occupation:   v.Occupation,
		WardNumber:   v.WardNumber,
	}
}

// ReviewVillagerRequest captures a reviewer decision on a pending record.
type ReviewVillagerRequest struct {
	Status models.VillagerStatus `json:"status" validate:"required,oneof=Approved Rejected"`
	Note   string                `json:"note"`
}

// RequestOTPRequest starts an edit challenge.
type RequestOTPRequest struct {
	MobileNumber string `json:"mobileNumber"`
}

// OTPIssued tells the caller when a new code may be requested.
type OTPIssued struct {
	ExpiresAt   time.Time `json:"expiresAt"`
	ResendAfter time.Time `json:"resendAfter"`
}

// VerifyOTPRequest completes an edit challenge.
type VerifyOTPRequest struct {
	MobileNumber string `json:"mobileNumber"`
	OTP          string `json:"otp"`
}

// EditSession is returned by a successful verification and authorizes one edit.
type EditSession struct {
	Villager  *models.Villager `json:"villager"`
	EditToken string           `json:"editToken"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// VillagerQuery mirrors supported listing filters.
type VillagerQuery struct {
	Status      []models.VillagerStatus
	RequestType models.RequestType
	Search      string
	Page        int
	PageSize    int
}
