package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-routing-service/internal/domain"
)

// BidRepository encapsulates auction bid persistence. Bids are append-only;
// only their status is ever mutated.
type BidRepository interface {
	Create(ctx context.Context, bid *domain.Bid) error
	GetByID(ctx context.Context, id string) (*domain.Bid, error)
	ListByCase(ctx context.Context, caseID string) ([]domain.Bid, error)
	CountByCase(ctx context.Context, caseID string) (int, error)
	UpdateStatus(ctx context.Context, id string, status domain.BidStatus) error
	RejectPending(ctx context.Context, caseID, exceptBidID string) (int, error)
}

type bidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository instantiates repository.
func NewBidRepository(pool *pgxpool.Pool) BidRepository {
	return &bidRepository{pool: pool}
}

func (r *bidRepository) Create(ctx context.Context, bid *domain.Bid) error {
	const query = `
        INSERT INTO auction_bids (case_id, bidder_id, bidder_name, amount_cents, proposed_fee_percent, estimated_duration, notes, status, submitted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		bid.CaseID,
		bid.BidderID,
		bid.BidderName,
		bid.AmountCents,
		bid.ProposedFeePercent,
		bid.EstimatedDuration,
		bid.Notes,
		bid.Status,
		bid.SubmittedAt,
	).Scan(&bid.ID)
}

func (r *bidRepository) GetByID(ctx context.Context, id string) (*domain.Bid, error) {
	const query = `
        SELECT id, case_id, bidder_id, bidder_name, amount_cents, proposed_fee_percent,
               estimated_duration, notes, status, submitted_at
        FROM auction_bids WHERE id=$1`
	var bid domain.Bid
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&bid.ID,
		&bid.CaseID,
		&bid.BidderID,
		&bid.BidderName,
		&bid.AmountCents,
		&bid.ProposedFeePercent,
		&bid.EstimatedDuration,
		&bid.Notes,
		&bid.Status,
		&bid.SubmittedAt,
	); err != nil {
		return nil, err
	}
	return &bid, nil
}

// ListByCase returns bids ordered by descending amount. Display ordering
// only; winner selection is an explicit administrative act.
func (r *bidRepository) ListByCase(ctx context.Context, caseID string) ([]domain.Bid, error) {
	const query = `
        SELECT id, case_id, bidder_id, bidder_name, amount_cents, proposed_fee_percent,
               estimated_duration, notes, status, submitted_at
        FROM auction_bids WHERE case_id=$1 ORDER BY amount_cents DESC, submitted_at ASC`
	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Bid
	for rows.Next() {
		var bid domain.Bid
		if err := rows.Scan(
			&bid.ID,
			&bid.CaseID,
			&bid.BidderID,
			&bid.BidderName,
			&bid.AmountCents,
			&bid.ProposedFeePercent,
			&bid.EstimatedDuration,
			&bid.Notes,
			&bid.Status,
			&bid.SubmittedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, bid)
	}
	return result, rows.Err()
}

func (r *bidRepository) CountByCase(ctx context.Context, caseID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM auction_bids WHERE case_id=$1`, caseID).Scan(&count)
	return count, err
}

func (r *bidRepository) UpdateStatus(ctx context.Context, id string, status domain.BidStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE auction_bids SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RejectPending moves all remaining PENDING bids for the case to REJECTED,
// returning how many were rejected.
func (r *bidRepository) RejectPending(ctx context.Context, caseID, exceptBidID string) (int, error) {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE auction_bids SET status=$1 WHERE case_id=$2 AND id<>$3 AND status=$4`,
		domain.BidStatusRejected, caseID, exceptBidID, domain.BidStatusPending)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}
