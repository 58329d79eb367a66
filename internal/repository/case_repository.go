package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// ErrVersionConflict indicates an optimistic concurrency failure: the row
// was mutated since it was read. Callers surface it as a state conflict.
var ErrVersionConflict = errors.New("version conflict")

// CaseFilter captures listing parameters.
type CaseFilter struct {
	Statuses      []domain.CaseStatus
	PracticeArea  *string
	International *bool
	Limit         int
	Offset        int
}

// CaseRepository encapsulates case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case) error
	Update(ctx context.Context, c *domain.Case) error
	GetByID(ctx context.Context, id string) (*domain.Case, error)
	ListOpen(ctx context.Context) ([]domain.Case, error)
	ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	const query = `
        INSERT INTO cases (title, description, practice_area, complexity, amount_cents, status, international, exclusive_until)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		c.Title,
		c.Description,
		c.PracticeArea,
		c.Complexity,
		c.AmountCents,
		c.Status,
		c.International,
		c.ExclusiveUntil,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
}

// Update persists case mutations guarded by the optimistic version counter.
func (r *caseRepository) Update(ctx context.Context, c *domain.Case) error {
	const query = `
        UPDATE cases SET status=$1, international=$2, exclusive_until=$3, closed_at=$4,
            version=version+1, updated_at=NOW()
        WHERE id=$5 AND version=$6`
	cmd, err := r.pool.Exec(ctx, query,
		c.Status,
		c.International,
		c.ExclusiveUntil,
		c.ClosedAt,
		c.ID,
		c.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		exists, checkErr := r.exists(ctx, c.ID)
		if checkErr != nil {
			return checkErr
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrVersionConflict
	}
	c.Version++
	return nil
}

func (r *caseRepository) exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM cases WHERE id=$1)`, id).Scan(&found)
	return found, err
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	const query = `
        SELECT id, title, description, practice_area, complexity, amount_cents,
               status, international, exclusive_until, version, created_at, updated_at, closed_at
        FROM cases WHERE id=$1`
	var c domain.Case
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.PracticeArea,
		&c.Complexity,
		&c.AmountCents,
		&c.Status,
		&c.International,
		&c.ExclusiveUntil,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListOpen returns all OPEN cases newest-first, before tier filtering.
func (r *caseRepository) ListOpen(ctx context.Context) ([]domain.Case, error) {
	return r.ListWithFilter(ctx, CaseFilter{
		Statuses: []domain.CaseStatus{domain.CaseStatusOpen},
		Limit:    500,
	})
}

func (r *caseRepository) ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error) {
	base := `SELECT id, title, description, practice_area, complexity, amount_cents,
                    status, international, exclusive_until, version, created_at, updated_at, closed_at
             FROM cases`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.PracticeArea != nil {
		args = append(args, *filter.PracticeArea)
		clauses = append(clauses, fmt.Sprintf("practice_area=$%d", len(args)))
	}
	if filter.International != nil {
		args = append(args, *filter.International)
		clauses = append(clauses, fmt.Sprintf("international=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func scanCases(rows pgx.Rows) ([]domain.Case, error) {
	var result []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Description,
			&c.PracticeArea,
			&c.Complexity,
			&c.AmountCents,
			&c.Status,
			&c.International,
			&c.ExclusiveUntil,
			&c.Version,
			&c.CreatedAt,
			&c.UpdatedAt,
			&c.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
