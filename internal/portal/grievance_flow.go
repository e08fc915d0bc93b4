package portal

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
)

// GrievanceRepository is the write-then-reread surface of the grievance board.
// The HTTP client implements it; a push-based source can replace it without
// touching the board.
type GrievanceRepository interface {
	ListGrievances(ctx context.Context, query dto.GrievanceQuery) ([]models.Grievance, error)
	SetAdminStatus(ctx context.Context, id string, status models.AdminStatus, note string) error
	AssignWorker(ctx context.Context, id string, workerID *string) error
	SetProgressStatus(ctx context.Context, id string, status models.ProgressStatus) error
	Resolve(ctx context.Context, id string, photos []string) error
}

// WorkerDirectory lists the workers grievances can be assigned to.
type WorkerDirectory interface {
	ListWorkers(ctx context.Context) ([]models.Worker, error)
}

// GrievanceBoard is the admin grievance view. It never applies a transition
// locally: every successful write is followed by a reload from the server, and
// a failed write leaves the displayed list as it was.
type GrievanceBoard struct {
	repo     GrievanceRepository
	workers  WorkerDirectory
	notifier *Notifier
	logger   *zap.Logger

	// ResolutionPhoto is the upload field feeding the resolution buffer.
	ResolutionPhoto *PhotoField

	lifecycle context.Context
	cancel    context.CancelFunc

	mu         sync.Mutex
	closed     bool
	query      dto.GrievanceQuery
	grievances []models.Grievance
	workerList []models.Worker
	detailID   string
	resolution []string
}

// BoardOption configures a GrievanceBoard.
type BoardOption func(*GrievanceBoard)

// WithBoardLogger sets the logger.
func WithBoardLogger(logger *zap.Logger) BoardOption {
	return func(b *GrievanceBoard) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBoardQuery sets the listing filter used by Load and every refresh.
func WithBoardQuery(query dto.GrievanceQuery) BoardOption {
	return func(b *GrievanceBoard) { b.query = query }
}

// NewGrievanceBoard opens a board. Requests it issues end when parent ends or
// the board is closed.
func NewGrievanceBoard(parent context.Context, repo GrievanceRepository, workers WorkerDirectory, uploader Uploader, opts ...BoardOption) *GrievanceBoard {
	if parent == nil {
		parent = context.Background()
	}
	lifecycle, cancel := context.WithCancel(parent)
	b := &GrievanceBoard{
		repo:      repo,
		workers:   workers,
		notifier:  NewNotifier(),
		logger:    zap.NewNop(),
		lifecycle: lifecycle,
		cancel:    cancel,
	}
	if uploader != nil {
		b.ResolutionPhoto = NewPhotoField(dto.UploadPurposeResolution, uploader)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Load fetches grievances and workers concurrently.
func (b *GrievanceBoard) Load(ctx context.Context) error {
	call, err := b.begin(ctx)
	if err != nil {
		return err
	}
	defer call.done()

	var (
		grievances []models.Grievance
		workers    []models.Worker
	)
	g, gctx := errgroup.WithContext(call.ctx)
	g.Go(func() error {
		var err error
		grievances, err = b.repo.ListGrievances(gctx, b.currentQuery())
		return err
	})
	if b.workers != nil {
		g.Go(func() error {
			var err error
			workers, err = b.workers.ListWorkers(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return b.report(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return localError(CodeClosed, "the board was closed")
	}
	b.grievances = grievances
	if b.workers != nil {
		b.workerList = workers
	}
	return nil
}

// Grievances returns the displayed list.
func (b *GrievanceBoard) Grievances() []models.Grievance {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Grievance(nil), b.grievances...)
}

// Workers returns the assignable workers.
func (b *GrievanceBoard) Workers() []models.Worker {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Worker(nil), b.workerList...)
}

// Notifications drains pending notifications.
func (b *GrievanceBoard) Notifications() []Notification {
	return b.notifier.Drain()
}

// Open selects a grievance for the detail panel and empties the resolution buffer.
func (b *GrievanceBoard) Open(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return localError(CodeClosed, "the board was closed")
	}
	if b.findLocked(id) == nil {
		return b.report(localError(CodeInvalidState, "grievance is not on the board"))
	}
	b.detailID = id
	b.resolution = nil
	if b.ResolutionPhoto != nil {
		b.ResolutionPhoto.Reset()
	}
	return nil
}

// Detail returns the open grievance, or nil.
func (b *GrievanceBoard) Detail() *models.Grievance {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g := b.findLocked(b.detailID); g != nil {
		out := *g
		return &out
	}
	return nil
}

// CloseDetail closes the detail panel and drops unsent resolution photos.
func (b *GrievanceBoard) CloseDetail() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detailID = ""
	b.resolution = nil
}

// Approve accepts an unapproved grievance.
func (b *GrievanceBoard) Approve(ctx context.Context, id, note string) error {
	return b.review(ctx, id, models.AdminStatusApproved, note)
}

// Reject declines an unapproved grievance.
func (b *GrievanceBoard) Reject(ctx context.Context, id, note string) error {
	return b.review(ctx, id, models.AdminStatusRejected, note)
}

func (b *GrievanceBoard) review(ctx context.Context, id string, status models.AdminStatus, note string) error {
	g, err := b.lookup(id)
	if err != nil {
		return err
	}
	if g.AdminStatus != models.AdminStatusUnapproved {
		return b.report(localError(CodeInvalidState, "only unapproved grievances can be reviewed"))
	}
	return b.write(ctx, "grievance "+string(status), func(ctx context.Context) error {
		return b.repo.SetAdminStatus(ctx, id, status, note)
	})
}

// AssignWorker sets or clears (nil) the worker of an approved grievance.
func (b *GrievanceBoard) AssignWorker(ctx context.Context, id string, workerID *string) error {
	if _, err := b.approved(id); err != nil {
		return err
	}
	return b.write(ctx, "worker assignment saved", func(ctx context.Context) error {
		return b.repo.AssignWorker(ctx, id, workerID)
	})
}

// SetProgress moves an approved grievance along the progress axis. Resolved
// is only accepted when the grievance already carries resolution photos.
func (b *GrievanceBoard) SetProgress(ctx context.Context, id string, status models.ProgressStatus) error {
	if !status.Valid() {
		return b.report(localError(CodeValidation, "unknown progress status"))
	}
	g, err := b.approved(id)
	if err != nil {
		return err
	}
	if status == models.ProgressResolved && len(g.ResolutionPhotos) == 0 {
		return b.report(localError(CodeValidation, "add resolution photos and mark the grievance resolved"))
	}
	return b.write(ctx, "progress updated", func(ctx context.Context) error {
		return b.repo.SetProgressStatus(ctx, id, status)
	})
}

// AddResolutionPhoto uploads an image for the open grievance and appends it
// to the resolution buffer.
func (b *GrievanceBoard) AddResolutionPhoto(ctx context.Context, filename string, data []byte) (string, error) {
	if b.ResolutionPhoto == nil {
		return "", b.report(localError(CodeInvalidState, "photo uploads are not available"))
	}
	detail := b.Detail()
	if detail == nil {
		return "", b.report(localError(CodeInvalidState, "open a grievance first"))
	}
	if !models.CanAdvanceProgress(detail) {
		return "", b.report(localError(CodeInvalidState, "grievance is not approved"))
	}

	call, err := b.begin(ctx)
	if err != nil {
		return "", err
	}
	defer call.done()

	res, err := b.ResolutionPhoto.Upload(call.ctx, filename, data)
	if err != nil {
		return "", b.report(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detailID != detail.ID {
		return "", localError(CodeSuperseded, "the grievance was closed before the upload finished")
	}
	b.resolution = append(b.resolution, res.FileURL)
	return res.FileURL, nil
}

// ResolutionPhotos returns the photos waiting to be sent with MarkResolved.
func (b *GrievanceBoard) ResolutionPhotos() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.resolution...)
}

// MarkResolved resolves the open grievance with the buffered photos. An empty
// buffer is rejected without contacting the server.
func (b *GrievanceBoard) MarkResolved(ctx context.Context) error {
	b.mu.Lock()
	id := b.detailID
	photos := append([]string(nil), b.resolution...)
	b.mu.Unlock()

	if id == "" {
		return b.report(localError(CodeInvalidState, "open a grievance first"))
	}
	if len(photos) == 0 {
		return b.report(localError(CodeValidation, "add at least one resolution photo"))
	}
	if _, err := b.approved(id); err != nil {
		return err
	}
	if b.ResolutionPhoto != nil && b.ResolutionPhoto.State() == FieldUploading {
		return b.report(localError(CodeUploadInProgress, "wait for the photo upload to finish"))
	}

	return b.write(ctx, "grievance resolved", func(ctx context.Context) error {
		if err := b.repo.Resolve(ctx, id, photos); err != nil {
			return err
		}
		b.mu.Lock()
		if b.detailID == id {
			b.detailID = ""
			b.resolution = nil
		}
		b.mu.Unlock()
		return nil
	})
}

// Close tears the board down and cancels in-flight requests.
func (b *GrievanceBoard) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cancel()
}

// write runs a mutation and, once the server confirms it, reloads the list.
// A failed reload is reported but does not undo the confirmed write.
func (b *GrievanceBoard) write(ctx context.Context, success string, mutate func(context.Context) error) error {
	call, err := b.begin(ctx)
	if err != nil {
		return err
	}
	defer call.done()

	if err := mutate(call.ctx); err != nil {
		return b.report(err)
	}
	b.notifier.Success(success)

	grievances, err := b.repo.ListGrievances(call.ctx, b.currentQuery())
	if err != nil {
		b.report(err)
		return nil
	}
	b.mu.Lock()
	if !b.closed {
		b.grievances = grievances
	}
	b.mu.Unlock()
	return nil
}

func (b *GrievanceBoard) begin(ctx context.Context) (flowCall, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return flowCall{}, localError(CodeClosed, "the board was closed")
	}
	return callContext(b.lifecycle, ctx), nil
}

func (b *GrievanceBoard) currentQuery() dto.GrievanceQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

func (b *GrievanceBoard) lookup(id string) (models.Grievance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return models.Grievance{}, localError(CodeClosed, "the board was closed")
	}
	g := b.findLocked(id)
	if g == nil {
		return models.Grievance{}, b.report(localError(CodeInvalidState, "grievance is not on the board"))
	}
	return *g, nil
}

// approved applies the progress guard to the displayed copy of id.
func (b *GrievanceBoard) approved(id string) (models.Grievance, error) {
	g, err := b.lookup(id)
	if err != nil {
		return g, err
	}
	if !models.CanAdvanceProgress(&g) {
		return g, b.report(localError(CodeInvalidState, "grievance must be approved first"))
	}
	return g, nil
}

func (b *GrievanceBoard) findLocked(id string) *models.Grievance {
	if id == "" {
		return nil
	}
	for i := range b.grievances {
		if b.grievances[i].ID == id {
			return &b.grievances[i]
		}
	}
	return nil
}

func (b *GrievanceBoard) report(err error) error {
	switch CodeOf(err) {
	case CodeClosed, CodeSuperseded:
		return err
	}
	b.logger.Debug("grievance board action failed", zap.Error(err))
	b.notifier.Failure(err)
	return err
}
