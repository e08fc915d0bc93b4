package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionVillagerSubmit        = "VILLAGER_SUBMIT"
	AuditActionVillagerAdminCreate   = "VILLAGER_ADMIN_CREATE"
	AuditActionVillagerAdminOverride = "VILLAGER_ADMIN_OVERRIDE"
	AuditActionVillagerReview        = "VILLAGER_REVIEW"
	AuditActionVillagerEdit          = "VILLAGER_EDIT_REQUEST"
	AuditActionVillagerView          = "VILLAGER_VIEW"
	AuditActionOTPIssued             = "OTP_ISSUED"
	AuditActionOTPVerified           = "OTP_VERIFIED"
	AuditActionGrievanceSubmit       = "GRIEVANCE_SUBMIT"
	AuditActionGrievanceAdminStatus  = "GRIEVANCE_ADMIN_STATUS"
	AuditActionGrievanceAssign       = "GRIEVANCE_ASSIGN"
	AuditActionGrievanceProgress     = "GRIEVANCE_PROGRESS"
	AuditActionGrievanceResolve      = "GRIEVANCE_RESOLVE"
	AuditActionWorkerCreate          = "WORKER_CREATE"
	AuditActionWorkerUpdate          = "WORKER_UPDATE"
	AuditActionWorkerDeactivate      = "WORKER_DEACTIVATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
