package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rushibamb/dig-village-sub001/internal/models"
)

const workerColumns = `id, name, department, phone, email, status, created_at, updated_at`

// WorkerRepository persists field workers.
type WorkerRepository struct {
	db *sqlx.DB
}

// NewWorkerRepository constructs the repository.
func NewWorkerRepository(db *sqlx.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// List returns workers matching the filter ordered by name.
func (r *WorkerRepository) List(ctx context.Context, filter models.WorkerFilter) ([]models.Worker, int, error) {
	args := make([]interface{}, 0, 3)
	conditions := []string{"1=1"}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	base := "FROM workers WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", workerColumns, base, size, (page-1)*size)

	var workers []models.Worker
	if err := r.db.SelectContext(ctx, &workers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list workers: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count workers: %w", err)
	}
	return workers, total, nil
}

// FindByID fetches a worker by identifier.
func (r *WorkerRepository) FindByID(ctx context.Context, id string) (*models.Worker, error) {
	var worker models.Worker
	if err := r.db.GetContext(ctx, &worker, "SELECT "+workerColumns+" FROM workers WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &worker, nil
}

// Create inserts a worker.
func (r *WorkerRepository) Create(ctx context.Context, worker *models.Worker) error {
	if worker.ID == "" {
		worker.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if worker.CreatedAt.IsZero() {
		worker.CreatedAt = now
	}
	worker.UpdatedAt = now
	if worker.Status == "" {
		worker.Status = models.WorkerStatusActive
	}
	const query = `INSERT INTO workers (id, name, department, phone, email, status, created_at, updated_at)
	VALUES (:id, :name, :department, :phone, :email, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, worker); err != nil {
		return fmt.Errorf("create worker: %w", err)
	}
	return nil
}

// Update overwrites a worker's details.
func (r *WorkerRepository) Update(ctx context.Context, worker *models.Worker) error {
	worker.UpdatedAt = time.Now().UTC()
	const query = `UPDATE workers SET name = :name, department = :department, phone = :phone, email = :email,
	status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, worker)
	if err != nil {
		return fmt.Errorf("update worker: %w", err)
	}
	return requireRows(result, "update worker")
}

// Deactivate marks a worker inactive. Existing assignments are kept.
func (r *WorkerRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE workers SET status = 'inactive', updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate worker: %w", err)
	}
	return requireRows(result, "deactivate worker")
}
