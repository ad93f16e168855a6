package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"leadchat-service/internal/models"
)

var ErrLeadNotFound = errors.New("lead not found")

const leadColumns = `id, name, phone, stage_id, responsible_id, status, tags, success_chance, value, created_at, updated_at`

// LeadRepository abstracts lead persistence.
type LeadRepository interface {
	List(ctx context.Context) ([]models.Lead, error)
	ListByResponsible(ctx context.Context, userID int) ([]models.Lead, error)
	Get(ctx context.Context, leadID int) (models.Lead, error)
	Create(ctx context.Context, lead models.Lead) (models.Lead, error)
	Update(ctx context.Context, lead models.Lead) (models.Lead, error)
	Delete(ctx context.Context, leadID int) error
	Assign(ctx context.Context, leadID int, newResponsibleID *int, assignedBy int) (models.Lead, error)
	ListStages(ctx context.Context) ([]models.Stage, error)
	AssignmentHistory(ctx context.Context, leadID int) ([]models.LeadAssignment, error)
}

// LeadRepo is a sqlx implementation of LeadRepository.
type LeadRepo struct {
	db *sqlx.DB
}

// NewLeadRepo constructs a LeadRepo.
func NewLeadRepo(db *sqlx.DB) *LeadRepo {
	return &LeadRepo{db: db}
}

// List returns all leads, most recently updated first. The resolver
// relies on this ordering for its deterministic tie-break.
func (r *LeadRepo) List(ctx context.Context) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.SelectContext(ctx, &leads, `SELECT `+leadColumns+` FROM leads ORDER BY updated_at DESC, id ASC`)
	return leads, err
}

// ListByResponsible returns the leads assigned to one seller.
func (r *LeadRepo) ListByResponsible(ctx context.Context, userID int) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.SelectContext(ctx, &leads, `SELECT `+leadColumns+` FROM leads WHERE responsible_id=$1 ORDER BY updated_at DESC, id ASC`, userID)
	return leads, err
}

// Get fetches a lead by id.
func (r *LeadRepo) Get(ctx context.Context, leadID int) (models.Lead, error) {
	var lead models.Lead
	err := r.db.GetContext(ctx, &lead, `SELECT `+leadColumns+` FROM leads WHERE id=$1`, leadID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// Create inserts a lead.
func (r *LeadRepo) Create(ctx context.Context, lead models.Lead) (models.Lead, error) {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO leads (name, phone, stage_id, responsible_id, status, tags, success_chance, value)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+leadColumns,
		lead.Name, lead.Phone, lead.StageID, lead.ResponsibleID, lead.Status, lead.Tags, lead.SuccessChance, lead.Value).
		StructScan(&lead)
	return lead, err
}

// Update rewrites the mutable lead fields.
func (r *LeadRepo) Update(ctx context.Context, lead models.Lead) (models.Lead, error) {
	err := r.db.QueryRowxContext(ctx, `UPDATE leads SET name=$2, phone=$3, stage_id=$4, status=$5, tags=$6, success_chance=$7, value=$8, updated_at=NOW()
        WHERE id=$1 RETURNING `+leadColumns,
		lead.ID, lead.Name, lead.Phone, lead.StageID, lead.Status, lead.Tags, lead.SuccessChance, lead.Value).
		StructScan(&lead)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// Delete removes a lead and its assignment history.
func (r *LeadRepo) Delete(ctx context.Context, leadID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id=$1`, leadID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// Assign hands the lead to a new responsible and appends a history
// record capturing the previous one, atomically.
func (r *LeadRepo) Assign(ctx context.Context, leadID int, newResponsibleID *int, assignedBy int) (models.Lead, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Lead{}, err
	}
	defer tx.Rollback()

	var lead models.Lead
	if err := tx.GetContext(ctx, &lead, `SELECT `+leadColumns+` FROM leads WHERE id=$1 FOR UPDATE`, leadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Lead{}, ErrLeadNotFound
		}
		return models.Lead{}, err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO lead_assignment_history (lead_id, previous_responsible_id, new_responsible_id, assigned_by)
        VALUES ($1, $2, $3, $4)`, leadID, lead.ResponsibleID, newResponsibleID, assignedBy); err != nil {
		return models.Lead{}, err
	}

	if err := tx.QueryRowxContext(ctx, `UPDATE leads SET responsible_id=$2, updated_at=NOW() WHERE id=$1 RETURNING `+leadColumns,
		leadID, newResponsibleID).StructScan(&lead); err != nil {
		return models.Lead{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Lead{}, err
	}
	return lead, nil
}

// ListStages returns pipeline stages in board order.
func (r *LeadRepo) ListStages(ctx context.Context) ([]models.Stage, error) {
	var stages []models.Stage
	err := r.db.SelectContext(ctx, &stages, `SELECT id, name, position FROM stages ORDER BY position ASC`)
	return stages, err
}

// AssignmentHistory returns the lead's handover records, oldest first.
func (r *LeadRepo) AssignmentHistory(ctx context.Context, leadID int) ([]models.LeadAssignment, error) {
	var history []models.LeadAssignment
	err := r.db.SelectContext(ctx, &history, `SELECT id, lead_id, previous_responsible_id, new_responsible_id, assigned_by, created_at
        FROM lead_assignment_history WHERE lead_id=$1 ORDER BY created_at ASC, id ASC`, leadID)
	return history, err
}
