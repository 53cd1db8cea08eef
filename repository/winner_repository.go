package repository

import (
	"context"
	"fmt"

	"raffled/database"
	"raffled/models"
	"raffled/service"
)

// WinnerRepository implements the append-only winner record
type WinnerRepository struct {
	q queryable
}

// NewWinnerRepository creates a new winner repository
func NewWinnerRepository(db *database.DB) *WinnerRepository {
	return &WinnerRepository{q: db.Pool}
}

// newWinnerRepositoryWithTx creates a new winner repository with a transaction
func newWinnerRepositoryWithTx(tx queryable) service.WinnerRepository {
	return &WinnerRepository{q: tx}
}

// CreateBatch appends one winner row per selected ticket
func (r *WinnerRepository) CreateBatch(ctx context.Context, winners []*models.Winner) error {
	if len(winners) == 0 {
		return nil
	}

	query := `
		INSERT INTO lottery_winners (lottery_id, ticket_id, user_id, ticket_number)
		VALUES `

	values := make([]interface{}, 0, len(winners)*4)
	for i, winner := range winners {
		if i > 0 {
			query += ", "
		}
		offset := i * 4
		query += fmt.Sprintf("($%d, $%d, $%d, $%d)", offset+1, offset+2, offset+3, offset+4)
		values = append(values, winner.LotteryID, winner.TicketID, winner.UserID, winner.TicketNumber)
	}
	query += " RETURNING id, declared_at"

	rows, err := r.q.Query(ctx, query, values...)
	if err != nil {
		return fmt.Errorf("failed to batch create winners: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if err := rows.Scan(&winners[i].ID, &winners[i].DeclaredAt); err != nil {
			return fmt.Errorf("failed to scan winner result: %w", err)
		}
		i++
	}

	return rows.Err()
}

func (r *WinnerRepository) queryWinners(ctx context.Context, query string, args ...interface{}) ([]*models.Winner, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query winners: %w", err)
	}
	defer rows.Close()

	var winners []*models.Winner
	for rows.Next() {
		var winner models.Winner
		err := rows.Scan(
			&winner.ID,
			&winner.LotteryID,
			&winner.TicketID,
			&winner.UserID,
			&winner.TicketNumber,
			&winner.DeclaredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, &winner)
	}

	return winners, rows.Err()
}

// GetByLottery returns the declared winners of a lottery
func (r *WinnerRepository) GetByLottery(ctx context.Context, lotteryID int64) ([]*models.Winner, error) {
	query := `
		SELECT id, lottery_id, ticket_id, user_id, ticket_number, declared_at
		FROM lottery_winners
		WHERE lottery_id = $1
		ORDER BY ticket_number
	`
	return r.queryWinners(ctx, query, lotteryID)
}

// CountByLottery returns the number of declared winners
func (r *WinnerRepository) CountByLottery(ctx context.Context, lotteryID int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM lottery_winners WHERE lottery_id = $1
	`, lotteryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count winners: %w", err)
	}
	return count, nil
}

// GetByUser returns all wins of a user across lotteries
func (r *WinnerRepository) GetByUser(ctx context.Context, userID int64) ([]*models.Winner, error) {
	query := `
		SELECT id, lottery_id, ticket_id, user_id, ticket_number, declared_at
		FROM lottery_winners
		WHERE user_id = $1
		ORDER BY declared_at DESC
	`
	return r.queryWinners(ctx, query, userID)
}
