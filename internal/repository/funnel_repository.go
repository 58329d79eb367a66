package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// FunnelRepository encapsulates international-case funnel persistence.
type FunnelRepository interface {
	Create(ctx context.Context, ic *domain.InternationalCase) error
	Update(ctx context.Context, ic *domain.InternationalCase) error
	GetByCaseID(ctx context.Context, caseID string) (*domain.InternationalCase, error)
	ListExpiredAuctions(ctx context.Context, now time.Time) ([]string, error)
}

type funnelRepository struct {
	pool *pgxpool.Pool
}

// NewFunnelRepository instantiates repository.
func NewFunnelRepository(pool *pgxpool.Pool) FunnelRepository {
	return &funnelRepository{pool: pool}
}

// Create inserts the funnel record with its full panel roster. Panel
// position is fixed here and never reordered afterwards.
func (r *funnelRepository) Create(ctx context.Context, ic *domain.InternationalCase) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertCase = `
        INSERT INTO international_cases (case_id, countries_involved, languages_required, funnel_stage, priority_assignee_id, auction_ends_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING version, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertCase,
		ic.CaseID,
		ic.CountriesInvolved,
		ic.LanguagesRequired,
		ic.FunnelStage,
		ic.PriorityAssigneeID,
		ic.AuctionEndsAt,
	).Scan(&ic.Version, &ic.CreatedAt, &ic.UpdatedAt); err != nil {
		return err
	}

	const insertPanel = `
        INSERT INTO panel_responses (case_id, member_id, position, decision, notes)
        VALUES ($1,$2,$3,$4,$5)`
	for i := range ic.Panel {
		entry := &ic.Panel[i]
		if _, err := tx.Exec(ctx, insertPanel, ic.CaseID, entry.MemberID, entry.Position, entry.Decision, entry.Notes); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Update persists funnel mutations in a single transaction, guarded by the
// optimistic version counter on the parent row. Panel entries are rewritten
// from the in-memory state.
func (r *funnelRepository) Update(ctx context.Context, ic *domain.InternationalCase) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const updateCase = `
        UPDATE international_cases
        SET funnel_stage=$1, priority_response=$2, priority_notes=$3,
            final_handler_id=$4, auction_ends_at=$5, version=version+1, updated_at=NOW()
        WHERE case_id=$6 AND version=$7`
	cmd, err := tx.Exec(ctx, updateCase,
		ic.FunnelStage,
		ic.PriorityResponse,
		ic.PriorityNotes,
		ic.FinalHandlerID,
		ic.AuctionEndsAt,
		ic.CaseID,
		ic.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var found bool
		if checkErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM international_cases WHERE case_id=$1)`, ic.CaseID).Scan(&found); checkErr != nil {
			return checkErr
		}
		if !found {
			return pgx.ErrNoRows
		}
		return ErrVersionConflict
	}

	const updatePanel = `
        UPDATE panel_responses SET decision=$1, notes=$2, responded_at=$3
        WHERE case_id=$4 AND member_id=$5`
	for i := range ic.Panel {
		entry := &ic.Panel[i]
		if _, err := tx.Exec(ctx, updatePanel, entry.Decision, entry.Notes, entry.RespondedAt, ic.CaseID, entry.MemberID); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	ic.Version++
	return nil
}

func (r *funnelRepository) GetByCaseID(ctx context.Context, caseID string) (*domain.InternationalCase, error) {
	const query = `
        SELECT case_id, countries_involved, languages_required, funnel_stage,
               priority_assignee_id, priority_response, priority_notes,
               final_handler_id, auction_ends_at, version, created_at, updated_at
        FROM international_cases WHERE case_id=$1`
	var ic domain.InternationalCase
	if err := r.pool.QueryRow(ctx, query, caseID).Scan(
		&ic.CaseID,
		&ic.CountriesInvolved,
		&ic.LanguagesRequired,
		&ic.FunnelStage,
		&ic.PriorityAssigneeID,
		&ic.PriorityResponse,
		&ic.PriorityNotes,
		&ic.FinalHandlerID,
		&ic.AuctionEndsAt,
		&ic.Version,
		&ic.CreatedAt,
		&ic.UpdatedAt,
	); err != nil {
		return nil, err
	}

	const panelQuery = `
        SELECT member_id, position, decision, notes, responded_at
        FROM panel_responses WHERE case_id=$1 ORDER BY position`
	rows, err := r.pool.Query(ctx, panelQuery, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var entry domain.PanelEntry
		if err := rows.Scan(&entry.MemberID, &entry.Position, &entry.Decision, &entry.Notes, &entry.RespondedAt); err != nil {
			return nil, err
		}
		ic.Panel = append(ic.Panel, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &ic, nil
}

// ListExpiredAuctions returns case ids whose auction deadline has passed
// while still AUCTION_OPEN. Used by the optional background sweep.
func (r *funnelRepository) ListExpiredAuctions(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
        SELECT case_id FROM international_cases
        WHERE funnel_stage='AUCTION_OPEN' AND auction_ends_at IS NOT NULL AND auction_ends_at < $1`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
