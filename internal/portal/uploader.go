package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/pkg/imaging"
)

// Uploader stores an image and returns its durable reference.
type Uploader interface {
	Upload(ctx context.Context, purpose, filename string, data []byte) (*dto.UploadResult, error)
}

// FieldState is the lifecycle of a photo field.
type FieldState int

const (
	FieldEmpty FieldState = iota
	FieldUploading
	FieldUploaded
	FieldFailed
)

func (s FieldState) String() string {
	switch s {
	case FieldEmpty:
		return "empty"
	case FieldUploading:
		return "uploading"
	case FieldUploaded:
		return "uploaded"
	case FieldFailed:
		return "failed"
	}
	return fmt.Sprintf("FieldState(%d)", int(s))
}

// Client-side size ceilings per upload purpose.
var purposeLimits = map[string]int64{
	dto.UploadPurposeIDProof:    5 << 20,
	dto.UploadPurposeGrievance:  10 << 20,
	dto.UploadPurposeResolution: 10 << 20,
}

// PhotoField holds one image input. A failed upload leaves the field without
// a URL and records the error instead of substituting a stand-in image.
type PhotoField struct {
	purpose  string
	uploader Uploader
	compress imaging.Options

	mu     sync.Mutex
	state  FieldState
	result *dto.UploadResult
	err    error
}

// NewPhotoField builds a field that uploads through uploader under purpose.
func NewPhotoField(purpose string, uploader Uploader) *PhotoField {
	return &PhotoField{purpose: purpose, uploader: uploader}
}

// Upload checks, compresses and sends data. Only one upload per field may be
// in flight; a second call while uploading fails locally.
func (f *PhotoField) Upload(ctx context.Context, filename string, data []byte) (*dto.UploadResult, error) {
	if err := f.precheck(data); err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.state == FieldUploading {
		f.mu.Unlock()
		return nil, localError(CodeUploadInProgress, "an upload is already in progress for this field")
	}
	prev, prevErr := f.state, f.err
	f.state = FieldUploading
	f.err = nil
	f.mu.Unlock()

	payload := data
	res, err := imaging.Compress(data, f.compress)
	switch {
	case errors.Is(err, imaging.ErrTooManyPixels):
		f.mu.Lock()
		f.state, f.err = prev, prevErr
		f.mu.Unlock()
		return nil, localError(CodeValidation, "image dimensions are too large")
	case err == nil:
		payload = res.Data
	}

	result, err := f.uploader.Upload(ctx, f.purpose, filename, payload)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = FieldFailed
		f.result = nil
		f.err = err
		return nil, err
	}
	f.state = FieldUploaded
	f.result = result
	return result, nil
}

func (f *PhotoField) precheck(data []byte) error {
	if len(data) == 0 {
		return localError(CodeValidation, "choose an image to upload")
	}
	if limit, ok := purposeLimits[f.purpose]; ok && int64(len(data)) > limit {
		return localError(CodeValidation, fmt.Sprintf("image must be at most %d MB", limit>>20))
	}
	if mt := imaging.DetectMIME(data); !imaging.IsImageMIME(mt) {
		return localError(CodeValidation, fmt.Sprintf("file type %s is not an accepted image", mt))
	}
	return nil
}

// State returns the field's current state.
func (f *PhotoField) State() FieldState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// URL returns the uploaded file URL, or nil when nothing has been stored.
func (f *PhotoField) URL() *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FieldUploaded || f.result == nil {
		return nil
	}
	url := f.result.FileURL
	return &url
}

// Err returns the cause of the last failed upload.
func (f *PhotoField) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Set marks the field as holding an existing URL, such as a stored ID proof.
func (f *PhotoField) Set(url *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if url == nil || *url == "" {
		f.state, f.result, f.err = FieldEmpty, nil, nil
		return
	}
	f.state, f.result, f.err = FieldUploaded, &dto.UploadResult{FileURL: *url}, nil
}

// Reset empties the field.
func (f *PhotoField) Reset() { f.Set(nil) }
