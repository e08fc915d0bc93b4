package dto

// Upload purposes accepted by POST /uploads.
const (
	UploadPurposeIDProof    = "id-proof"
	UploadPurposeGrievance  = "grievance"
	UploadPurposeResolution = "resolution"
)

// UploadResult is the durable reference returned for an accepted image.
type UploadResult struct {
	FileURL      string `json:"fileUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}
