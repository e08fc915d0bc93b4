package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rushibamb/dig-village-sub001/internal/models"
)

const grievanceSelect = `SELECT g.id, g.title, g.description, g.category, g.priority, g.submitted_by, g.location, g.photos,
       g.admin_status, g.progress_status, g.assigned_worker_id, w.name AS assigned_worker_name, g.resolution_photos,
       g.admin_note, g.resolved_at, g.created_at, g.updated_at
	FROM grievances g LEFT JOIN workers w ON w.id = g.assigned_worker_id`

// GrievanceRepository persists grievances. Every state change is a conditional
// update so concurrent admins cannot move a grievance past its guards.
type GrievanceRepository struct {
	db *sqlx.DB
}

// NewGrievanceRepository constructs the repository.
func NewGrievanceRepository(db *sqlx.DB) *GrievanceRepository {
	return &GrievanceRepository{db: db}
}

// Create inserts a grievance in the Unapproved/Pending state.
func (r *GrievanceRepository) Create(ctx context.Context, grievance *models.Grievance) error {
	if grievance.ID == "" {
		grievance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grievance.CreatedAt.IsZero() {
		grievance.CreatedAt = now
	}
	grievance.UpdatedAt = now
	if grievance.AdminStatus == "" {
		grievance.AdminStatus = models.AdminStatusUnapproved
	}
	if grievance.ProgressStatus == "" {
		grievance.ProgressStatus = models.ProgressPending
	}
	if grievance.Photos == nil {
		grievance.Photos = pq.StringArray{}
	}
	if grievance.ResolutionPhotos == nil {
		grievance.ResolutionPhotos = pq.StringArray{}
	}
	const query = `INSERT INTO grievances
	(id, title, description, category, priority, submitted_by, location, photos, admin_status, progress_status,
	 assigned_worker_id, resolution_photos, admin_note, resolved_at, created_at, updated_at)
	VALUES (:id, :title, :description, :category, :priority, :submitted_by, :location, :photos, :admin_status, :progress_status,
	 :assigned_worker_id, :resolution_photos, :admin_note, :resolved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grievance); err != nil {
		return fmt.Errorf("create grievance: %w", err)
	}
	return nil
}

// FindByID fetches a grievance with its assigned worker's name.
func (r *GrievanceRepository) FindByID(ctx context.Context, id string) (*models.Grievance, error) {
	var grievance models.Grievance
	if err := r.db.GetContext(ctx, &grievance, grievanceSelect+" WHERE g.id = $1", id); err != nil {
		return nil, err
	}
	return &grievance, nil
}

// List returns grievances matching the filter, newest first.
func (r *GrievanceRepository) List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error) {
	args := make([]interface{}, 0, 6)
	conditions := []string{"1=1"}

	add := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.AdminStatus != "" {
		add("g.admin_status", filter.AdminStatus)
	}
	if filter.ProgressStatus != "" {
		add("g.progress_status", filter.ProgressStatus)
	}
	if filter.Priority != "" {
		add("g.priority", filter.Priority)
	}
	if filter.Category != "" {
		add("g.category", filter.Category)
	}
	if filter.WorkerID != "" {
		add("g.assigned_worker_id", filter.WorkerID)
	}
	if filter.SubmittedBy != "" {
		add("g.submitted_by", filter.SubmittedBy)
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(g.title) LIKE $%d OR LOWER(g.description) LIKE $%d)", n, n))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	query := fmt.Sprintf("%s%s ORDER BY g.created_at DESC LIMIT %d OFFSET %d", grievanceSelect, where, size, (page-1)*size)

	var grievances []models.Grievance
	if err := r.db.SelectContext(ctx, &grievances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grievances: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM grievances g"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count grievances: %w", err)
	}
	return grievances, total, nil
}

// SetAdminStatus moves an Unapproved grievance to Approved or Rejected.
func (r *GrievanceRepository) SetAdminStatus(ctx context.Context, id string, status models.AdminStatus, note *string) error {
	const query = `UPDATE grievances SET admin_status = $2, admin_note = COALESCE($3, admin_note), updated_at = $4
	WHERE id = $1 AND admin_status = 'Unapproved'`
	result, err := r.db.ExecContext(ctx, query, id, status, note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set grievance admin status: %w", err)
	}
	return requireRows(result, "set grievance admin status")
}

// AssignWorker sets or clears the assigned worker on an approved grievance.
// A non-nil worker must exist and be active at the time of the write.
func (r *GrievanceRepository) AssignWorker(ctx context.Context, id string, workerID *string) error {
	const query = `UPDATE grievances SET assigned_worker_id = $2::uuid, updated_at = $3
	WHERE id = $1 AND admin_status = 'Approved'
	  AND ($2::uuid IS NULL OR EXISTS (SELECT 1 FROM workers w WHERE w.id = $2::uuid AND w.status = 'active'))`
	result, err := r.db.ExecContext(ctx, query, id, workerID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("assign grievance worker: %w", err)
	}
	return requireRows(result, "assign grievance worker")
}

// SetProgressStatus moves the progress axis of an approved grievance. Resolved
// is only written when resolution photos are already stored.
func (r *GrievanceRepository) SetProgressStatus(ctx context.Context, id string, status models.ProgressStatus) error {
	var query string
	if status == models.ProgressResolved {
		query = `UPDATE grievances SET progress_status = $2, resolved_at = COALESCE(resolved_at, $3), updated_at = $3
	WHERE id = $1 AND admin_status = 'Approved' AND cardinality(resolution_photos) > 0`
	} else {
		query = `UPDATE grievances SET progress_status = $2, resolved_at = NULL, updated_at = $3
	WHERE id = $1 AND admin_status = 'Approved'`
	}
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set grievance progress: %w", err)
	}
	return requireRows(result, "set grievance progress")
}

// Resolve marks an approved grievance resolved and stores its resolution photos.
func (r *GrievanceRepository) Resolve(ctx context.Context, id string, photos []string) error {
	if len(photos) == 0 {
		return fmt.Errorf("resolve grievance: no resolution photos")
	}
	now := time.Now().UTC()
	const query = `UPDATE grievances SET progress_status = 'Resolved', resolution_photos = $2, resolved_at = $3, updated_at = $3
	WHERE id = $1 AND admin_status = 'Approved'`
	result, err := r.db.ExecContext(ctx, query, id, pq.Array(photos), now)
	if err != nil {
		return fmt.Errorf("resolve grievance: %w", err)
	}
	return requireRows(result, "resolve grievance")
}
