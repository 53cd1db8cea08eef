package repository

import (
	"context"
	"fmt"
	"time"

	"raffled/database"
	"raffled/models"
	"raffled/service"

	"github.com/jackc/pgx/v5"
)

// LotteryRepository implements lottery data access
type LotteryRepository struct {
	q queryable
}

// NewLotteryRepository creates a new lottery repository
func NewLotteryRepository(db *database.DB) *LotteryRepository {
	return &LotteryRepository{q: db.Pool}
}

// newLotteryRepositoryWithTx creates a new lottery repository with a transaction
func newLotteryRepositoryWithTx(tx queryable) service.LotteryRepository {
	return &LotteryRepository{q: tx}
}

const lotteryColumns = `
	id, title, description, image_url, is_free, ticket_price,
	min_tickets, max_tickets, num_winners, start_date, end_date,
	status, prize_description, terms, creator_id, cancel_reason,
	winner_selected_at, created_at, updated_at
	`

func scanLottery(row pgx.Row) (*models.Lottery, error) {
	var lottery models.Lottery
	err := row.Scan(
		&lottery.ID,
		&lottery.Title,
		&lottery.Description,
		&lottery.ImageURL,
		&lottery.IsFree,
		&lottery.TicketPrice,
		&lottery.MinTickets,
		&lottery.MaxTickets,
		&lottery.NumWinners,
		&lottery.StartDate,
		&lottery.EndDate,
		&lottery.Status,
		&lottery.PrizeDescription,
		&lottery.Terms,
		&lottery.CreatorID,
		&lottery.CancelReason,
		&lottery.WinnerSelectedAt,
		&lottery.CreatedAt,
		&lottery.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lottery, nil
}

// Create inserts a new lottery
func (r *LotteryRepository) Create(ctx context.Context, lottery *models.Lottery) error {
	query := `
		INSERT INTO lotteries (
			title, description, image_url, is_free, ticket_price,
			min_tickets, max_tickets, num_winners, start_date, end_date,
			status, prize_description, terms, creator_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		lottery.Title,
		lottery.Description,
		lottery.ImageURL,
		lottery.IsFree,
		lottery.TicketPrice,
		lottery.MinTickets,
		lottery.MaxTickets,
		lottery.NumWinners,
		lottery.StartDate,
		lottery.EndDate,
		lottery.Status,
		lottery.PrizeDescription,
		lottery.Terms,
		lottery.CreatorID,
	).Scan(&lottery.ID, &lottery.CreatedAt, &lottery.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create lottery: %w", err)
	}

	return nil
}

// GetByID retrieves a lottery by its ID
func (r *LotteryRepository) GetByID(ctx context.Context, id int64) (*models.Lottery, error) {
	query := `SELECT` + lotteryColumns + `FROM lotteries WHERE id = $1`

	lottery, err := scanLottery(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery: %w", err)
	}

	return lottery, nil
}

// Update persists all mutable fields of a lottery
func (r *LotteryRepository) Update(ctx context.Context, lottery *models.Lottery) error {
	query := `
		UPDATE lotteries
		SET title = $2, description = $3, image_url = $4, is_free = $5,
		    ticket_price = $6, min_tickets = $7, max_tickets = $8,
		    num_winners = $9, start_date = $10, end_date = $11, status = $12,
		    prize_description = $13, terms = $14, cancel_reason = $15,
		    winner_selected_at = $16, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		lottery.ID,
		lottery.Title,
		lottery.Description,
		lottery.ImageURL,
		lottery.IsFree,
		lottery.TicketPrice,
		lottery.MinTickets,
		lottery.MaxTickets,
		lottery.NumWinners,
		lottery.StartDate,
		lottery.EndDate,
		lottery.Status,
		lottery.PrizeDescription,
		lottery.Terms,
		lottery.CancelReason,
		lottery.WinnerSelectedAt,
	).Scan(&lottery.UpdatedAt)

	if err == pgx.ErrNoRows {
		return fmt.Errorf("lottery not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update lottery: %w", err)
	}

	return nil
}

// MarkFinished transitions a lottery to finished only if it is still active.
// The guarded UPDATE is the tie-breaker between concurrent finish attempts:
// under read committed the second writer blocks on the row, then sees the
// status already flipped and matches zero rows.
func (r *LotteryRepository) MarkFinished(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE lotteries
		SET status = $2, winner_selected_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $4
	`

	result, err := r.q.Exec(ctx, query, id, models.LotteryStatusFinished, at, models.LotteryStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to mark lottery finished: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Delete removes a lottery; dependent rows cascade via foreign keys
func (r *LotteryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM lotteries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lottery: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("lottery not found")
	}

	return nil
}

// List returns lotteries matching the filter, newest first
func (r *LotteryRepository) List(ctx context.Context, filter models.LotteryFilter) ([]*models.Lottery, error) {
	query := `SELECT` + lotteryColumns + `FROM lotteries l WHERE 1=1`
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND l.status = $%d", len(args))
	}
	if filter.IsFree != nil {
		args = append(args, *filter.IsFree)
		query += fmt.Sprintf(" AND l.is_free = $%d", len(args))
	}
	if filter.ParticipantID != nil {
		args = append(args, *filter.ParticipantID)
		query += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM lottery_tickets t
			WHERE t.lottery_id = l.id AND t.user_id = $%d
			  AND t.payment_status IN ('pending', 'paid')
		)`, len(args))
	}

	query += " ORDER BY l.created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lotteries: %w", err)
	}
	defer rows.Close()

	var lotteries []*models.Lottery
	for rows.Next() {
		lottery, err := scanLottery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lottery: %w", err)
		}
		lotteries = append(lotteries, lottery)
	}

	return lotteries, rows.Err()
}
