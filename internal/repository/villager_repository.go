package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rushibamb/dig-village-sub001/internal/models"
)

const villagerColumns = `id, full_name, mobile_number, gender, date_of_birth, aadhar_number, id_proof_url, address,
       email, occupation, ward_number, status, request_type, submitted_at, reviewed_by, reviewed_at, review_note, updated_at`

// VillagerRepository persists villager records and their pending-edit snapshots.
type VillagerRepository struct {
	db *sqlx.DB
}

// NewVillagerRepository constructs the repository.
func NewVillagerRepository(db *sqlx.DB) *VillagerRepository {
	return &VillagerRepository{db: db}
}

// List returns villagers matching the filter, newest submissions first.
func (r *VillagerRepository) List(ctx context.Context, filter models.VillagerFilter) ([]models.Villager, int, error) {
	args := make([]interface{}, 0, 4)
	conditions := []string{"1=1"}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequestType != "" {
		args = append(args, filter.RequestType)
		conditions = append(conditions, fmt.Sprintf("request_type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR mobile_number LIKE $%d OR aadhar_number LIKE $%d)", n, n, n))
	}
	base := "FROM villagers WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	query := fmt.Sprintf("SELECT %s %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d", villagerColumns, base, size, (page-1)*size)

	var villagers []models.Villager
	if err := r.db.SelectContext(ctx, &villagers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list villagers: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count villagers: %w", err)
	}
	return villagers, total, nil
}

// FindByID fetches a villager by identifier.
func (r *VillagerRepository) FindByID(ctx context.Context, id string) (*models.Villager, error) {
	query := "SELECT " + villagerColumns + " FROM villagers WHERE id = $1"
	var villager models.Villager
	if err := r.db.GetContext(ctx, &villager, query, id); err != nil {
		return nil, err
	}
	return &villager, nil
}

// FindByMobile fetches the villager registered with the given mobile number.
func (r *VillagerRepository) FindByMobile(ctx context.Context, mobile string) (*models.Villager, error) {
	query := "SELECT " + villagerColumns + " FROM villagers WHERE mobile_number = $1"
	var villager models.Villager
	if err := r.db.GetContext(ctx, &villager, query, mobile); err != nil {
		return nil, err
	}
	return &villager, nil
}

// ExistsByMobile checks whether a mobile number is taken, optionally ignoring one record.
func (r *VillagerRepository) ExistsByMobile(ctx context.Context, mobile, excludeID string) (bool, error) {
	query := "SELECT 1 FROM villagers WHERE mobile_number = $1"
	args := []interface{}{mobile}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check mobile: %w", err)
	}
	return true, nil
}

// Create inserts a new villager record.
func (r *VillagerRepository) Create(ctx context.Context, villager *models.Villager) error {
	if villager.ID == "" {
		villager.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if villager.SubmittedAt.IsZero() {
		villager.SubmittedAt = now
	}
	villager.UpdatedAt = now
	const query = `INSERT INTO villagers
	(id, full_name, mobile_number, gender, date_of_birth, aadhar_number, id_proof_url, address, email, occupation, ward_number,
	 status, request_type, submitted_at, reviewed_by, reviewed_at, review_note, updated_at)
	VALUES (:id, :full_name, :mobile_number, :gender, :date_of_birth, :aadhar_number, :id_proof_url, :address, :email, :occupation, :ward_number,
	 :status, :request_type, :submitted_at, :reviewed_by, :reviewed_at, :review_note, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, villager); err != nil {
		return fmt.Errorf("create villager: %w", err)
	}
	return nil
}

const villagerFieldAssignments = `full_name = :full_name, mobile_number = :mobile_number, gender = :gender, date_of_birth = :date_of_birth,
	aadhar_number = :aadhar_number, id_proof_url = :id_proof_url, address = :address, email = :email,
	occupation = :occupation, ward_number = :ward_number`

// UpdateFields overwrites identity fields without touching review state.
func (r *VillagerRepository) UpdateFields(ctx context.Context, villager *models.Villager) error {
	villager.UpdatedAt = time.Now().UTC()
	query := "UPDATE villagers SET " + villagerFieldAssignments + ", updated_at = :updated_at WHERE id = :id"
	result, err := r.db.NamedExecContext(ctx, query, villager)
	if err != nil {
		return fmt.Errorf("update villager: %w", err)
	}
	return requireRows(result, "update villager")
}

// ApplyEditParams carries an OTP-authorized edit.
type ApplyEditParams struct {
	Villager *models.Villager
	// Snapshot holds the last approved record. Nil when the record was not approved.
	Snapshot []byte
}

// ApplyEdit stores the edited record as a pending edit request and keeps the
// last approved values aside so a rejection can restore them. An existing
// snapshot is kept, so repeated edits before review still restore the
// originally approved record.
func (r *VillagerRepository) ApplyEdit(ctx context.Context, params ApplyEditParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin villager edit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	v := params.Villager
	now := time.Now().UTC()
	if len(params.Snapshot) > 0 {
		const insertRevision = `INSERT INTO villager_revisions (id, villager_id, snapshot, created_at)
	VALUES (:id, :villager_id, :snapshot, :created_at) ON CONFLICT (villager_id) DO NOTHING`
		revision := &models.VillagerRevision{ID: uuid.NewString(), VillagerID: v.ID, Snapshot: params.Snapshot, CreatedAt: now}
		if _, err = tx.NamedExecContext(ctx, insertRevision, revision); err != nil {
			return fmt.Errorf("store villager revision: %w", err)
		}
	}

	v.Status = models.VillagerStatusPending
	v.RequestType = models.RequestTypeEditRequest
	v.SubmittedAt = now
	v.UpdatedAt = now
	v.ReviewedBy = nil
	v.ReviewedAt = nil
	v.ReviewNote = nil
	query := "UPDATE villagers SET " + villagerFieldAssignments + `, status = :status, request_type = :request_type,
	submitted_at = :submitted_at, reviewed_by = NULL, reviewed_at = NULL, review_note = NULL, updated_at = :updated_at WHERE id = :id`
	result, err := tx.NamedExecContext(ctx, query, v)
	if err != nil {
		return fmt.Errorf("apply villager edit: %w", err)
	}
	if err = requireRows(result, "apply villager edit"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit villager edit: %w", err)
	}
	return nil
}

// ReviewVillagerParams groups a reviewer decision.
type ReviewVillagerParams struct {
	ID         string
	Status     models.VillagerStatus
	ReviewedBy string
	ReviewedAt time.Time
	Note       *string
}

// Review settles a pending record. Approving discards any stored snapshot.
// Rejecting an edit request that has a snapshot restores the approved values
// instead of marking the record rejected. The returned bool reports a restore.
func (r *VillagerRepository) Review(ctx context.Context, params ReviewVillagerParams) (restored bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin villager review: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var revision models.VillagerRevision
	if params.Status == models.VillagerStatusRejected {
		const selectRevision = `SELECT id, villager_id, snapshot, created_at FROM villager_revisions
	WHERE villager_id = $1 FOR UPDATE`
		if err = tx.GetContext(ctx, &revision, selectRevision, params.ID); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return false, fmt.Errorf("load villager revision: %w", err)
			}
			err = nil
		}
	}

	var result sql.Result
	if len(revision.Snapshot) > 0 {
		var previous models.Villager
		if err = json.Unmarshal(revision.Snapshot, &previous); err != nil {
			return false, fmt.Errorf("decode villager revision: %w", err)
		}
		previous.ID = params.ID
		previous.Status = models.VillagerStatusApproved
		previous.ReviewedBy = &params.ReviewedBy
		previous.ReviewedAt = &params.ReviewedAt
		previous.ReviewNote = params.Note
		previous.UpdatedAt = params.ReviewedAt
		query := "UPDATE villagers SET " + villagerFieldAssignments + `, status = :status, request_type = :request_type,
	reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, review_note = :review_note, updated_at = :updated_at
	WHERE id = :id AND status = 'Pending'`
		result, err = tx.NamedExecContext(ctx, query, &previous)
		restored = true
	} else {
		const query = `UPDATE villagers SET status = :status, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at,
	review_note = :review_note, updated_at = :reviewed_at WHERE id = :id AND status = 'Pending'`
		result, err = tx.NamedExecContext(ctx, query, map[string]interface{}{
			"id":          params.ID,
			"status":      params.Status,
			"reviewed_by": params.ReviewedBy,
			"reviewed_at": params.ReviewedAt,
			"review_note": params.Note,
		})
	}
	if err != nil {
		return false, fmt.Errorf("review villager: %w", err)
	}
	if err = requireRows(result, "review villager"); err != nil {
		return false, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM villager_revisions WHERE villager_id = $1`, params.ID); err != nil {
		return false, fmt.Errorf("clear villager revision: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit villager review: %w", err)
	}
	return restored, nil
}

func requireRows(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
