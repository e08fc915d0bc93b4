package portal

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type uploaderFunc func(ctx context.Context, purpose, filename string, data []byte) (*dto.UploadResult, error)

func (f uploaderFunc) Upload(ctx context.Context, purpose, filename string, data []byte) (*dto.UploadResult, error) {
	return f(ctx, purpose, filename, data)
}

func remoteError(code string, status int, message string) *Error {
	return &Error{Tier: TierRemote, Code: code, Status: status, Message: message}
}

// villagerBackendStub behaves like the server for the villager view.
type villagerBackendStub struct {
	mu       sync.Mutex
	seq      int
	records  map[string]*models.Villager
	calls    map[string]int
	code     string
	failNext error

	gate    chan struct{}
	started chan struct{}
	ctxErr  error
}

func newVillagerBackendStub() *villagerBackendStub {
	return &villagerBackendStub{
		records: map[string]*models.Villager{},
		calls:   map[string]int{},
		code:    "123456",
	}
}

func (s *villagerBackendStub) enter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	return nil
}

func (s *villagerBackendStub) wait(ctx context.Context) error {
	if s.gate == nil {
		return nil
	}
	s.started <- struct{}{}
	select {
	case <-s.gate:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		s.ctxErr = ctx.Err()
		s.mu.Unlock()
		return &Error{Tier: TierRemote, Code: CodeTransport, Message: "could not reach the server", Err: ctx.Err()}
	}
}

func (s *villagerBackendStub) SubmitVillager(ctx context.Context, req dto.VillagerRequest) (*models.Villager, error) {
	if err := s.enter("submit"); err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	v := &models.Villager{ID: fmt.Sprintf("v-%d", s.seq)}
	apply(v, req)
	v.Status = models.VillagerStatusPending
	v.RequestType = models.RequestTypeNewRegistration
	s.records[v.ID] = v
	out := *v
	return &out, nil
}

func (s *villagerBackendStub) RequestEditOTP(ctx context.Context, mobile string) (*dto.OTPIssued, error) {
	if err := s.enter("otp"); err != nil {
		return nil, err
	}
	if s.byMobile(mobile) == nil {
		return nil, remoteError("NOT_FOUND", 404, "no villager is registered with this mobile number")
	}
	return &dto.OTPIssued{}, nil
}

func (s *villagerBackendStub) VerifyEditOTP(ctx context.Context, mobile, code string) (*dto.EditSession, error) {
	if err := s.enter("verify"); err != nil {
		return nil, err
	}
	if code != s.code {
		return nil, remoteError("OTP_INVALID", 401, "the code is incorrect")
	}
	v := s.byMobile(mobile)
	if v == nil {
		return nil, remoteError("OTP_EXPIRED", 410, "the code has expired")
	}
	return &dto.EditSession{Villager: v, EditToken: "token-" + v.ID}, nil
}

func (s *villagerBackendStub) SubmitVillagerEdit(ctx context.Context, id, token string, req dto.VillagerRequest) (*models.Villager, error) {
	if err := s.enter("edit"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[id]
	if !ok || token != "token-"+id {
		return nil, remoteError("UNAUTHORIZED", 401, "edit session is not valid")
	}
	apply(v, req)
	v.Status = models.VillagerStatusPending
	v.RequestType = models.RequestTypeEditRequest
	out := *v
	return &out, nil
}

func (s *villagerBackendStub) approve(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id].Status = models.VillagerStatusApproved
}

func (s *villagerBackendStub) list() []models.Villager {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Villager, 0, len(s.records))
	for i := 1; i <= s.seq; i++ {
		if v, ok := s.records[fmt.Sprintf("v-%d", i)]; ok {
			out = append(out, *v)
		}
	}
	return out
}

func (s *villagerBackendStub) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *villagerBackendStub) byMobile(mobile string) *models.Villager {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.records {
		if v.MobileNumber == mobile {
			out := *v
			return &out
		}
	}
	return nil
}

func apply(v *models.Villager, req dto.VillagerRequest) {
	v.FullName = req.FullName
	v.MobileNumber = req.MobileNumber
	v.Gender = req.Gender
	v.DateOfBirth = req.DateOfBirth
	v.AadharNumber = req.AadharNumber
	v.IDProofURL = req.IDProofURL
	v.Address = req.Address
	v.Email = req.Email
	v.Occupation = req.Occupation
	v.WardNumber = req.WardNumber
}

// grievanceRepoStub enforces the same guards as the server.
type grievanceRepoStub struct {
	mu      sync.Mutex
	order   []string
	items   map[string]*models.Grievance
	workers map[string]string
	calls   map[string]int
	fail    map[string]error
}

func newGrievanceRepoStub(grievances ...models.Grievance) *grievanceRepoStub {
	s := &grievanceRepoStub{
		items:   map[string]*models.Grievance{},
		workers: map[string]string{"w-ravi": "Ravi"},
		calls:   map[string]int{},
		fail:    map[string]error{},
	}
	for i := range grievances {
		g := grievances[i]
		s.order = append(s.order, g.ID)
		s.items[g.ID] = &g
	}
	return s
}

func (s *grievanceRepoStub) enter(name string) error {
	s.calls[name]++
	return s.fail[name]
}

func (s *grievanceRepoStub) ListGrievances(ctx context.Context, query dto.GrievanceQuery) ([]models.Grievance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("list"); err != nil {
		return nil, err
	}
	out := make([]models.Grievance, 0, len(s.order))
	for _, id := range s.order {
		g := *s.items[id]
		g.Photos = append([]string(nil), g.Photos...)
		g.ResolutionPhotos = append([]string(nil), g.ResolutionPhotos...)
		out = append(out, g)
	}
	return out, nil
}

func (s *grievanceRepoStub) SetAdminStatus(ctx context.Context, id string, status models.AdminStatus, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("admin"); err != nil {
		return err
	}
	g := s.items[id]
	if g.AdminStatus != models.AdminStatusUnapproved {
		return remoteError("CONFLICT", 409, "grievance has already been reviewed")
	}
	g.AdminStatus = status
	return nil
}

func (s *grievanceRepoStub) AssignWorker(ctx context.Context, id string, workerID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("assign"); err != nil {
		return err
	}
	g := s.items[id]
	if !models.CanAdvanceProgress(g) {
		return remoteError("PRECONDITION_FAILED", 412, "grievance must be approved first")
	}
	g.AssignedWorkerID, g.AssignedWorkerName = nil, nil
	if workerID != nil {
		name := s.workers[*workerID]
		id := *workerID
		g.AssignedWorkerID, g.AssignedWorkerName = &id, &name
	}
	return nil
}

func (s *grievanceRepoStub) SetProgressStatus(ctx context.Context, id string, status models.ProgressStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("progress"); err != nil {
		return err
	}
	g := s.items[id]
	if !models.CanAdvanceProgress(g) {
		return remoteError("PRECONDITION_FAILED", 412, "grievance must be approved first")
	}
	g.ProgressStatus = status
	return nil
}

func (s *grievanceRepoStub) Resolve(ctx context.Context, id string, photos []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("resolve"); err != nil {
		return err
	}
	g := s.items[id]
	if !models.CanAdvanceProgress(g) {
		return remoteError("PRECONDITION_FAILED", 412, "grievance must be approved first")
	}
	g.ProgressStatus = models.ProgressResolved
	g.ResolutionPhotos = append(g.ResolutionPhotos, photos...)
	return nil
}

func (s *grievanceRepoStub) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

type workerDirectoryFunc func(ctx context.Context) ([]models.Worker, error)

func (f workerDirectoryFunc) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	return f(ctx)
}
