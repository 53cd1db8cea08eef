package repository

import (
	"context"
	"fmt"
	"time"

	"raffled/database"
	"raffled/models"
	"raffled/service"
)

// ReservationRepository implements the reserved-number store
type ReservationRepository struct {
	q queryable
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{q: db.Pool}
}

// newReservationRepositoryWithTx creates a new reservation repository with a transaction
func newReservationRepositoryWithTx(tx queryable) service.ReservationRepository {
	return &ReservationRepository{q: tx}
}

// CreateBatch inserts one reservation per number in a single statement
func (r *ReservationRepository) CreateBatch(ctx context.Context, reservations []*models.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	query := `
		INSERT INTO lottery_reserved_numbers (lottery_id, ticket_number, user_id, hold_token, expires_at)
		VALUES `

	values := make([]interface{}, 0, len(reservations)*5)
	for i, res := range reservations {
		if i > 0 {
			query += ", "
		}
		offset := i * 5
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			offset+1, offset+2, offset+3, offset+4, offset+5)
		values = append(values, res.LotteryID, res.TicketNumber, res.UserID, res.HoldToken, res.ExpiresAt)
	}
	query += " RETURNING id, created_at"

	rows, err := r.q.Query(ctx, query, values...)
	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrTicketNumberTaken
		}
		return fmt.Errorf("failed to batch create reservations: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if err := rows.Scan(&reservations[i].ID, &reservations[i].CreatedAt); err != nil {
			return fmt.Errorf("failed to scan reservation result: %w", err)
		}
		i++
	}

	if err := rows.Err(); err != nil {
		if isUniqueViolation(err) {
			return service.ErrTicketNumberTaken
		}
		return fmt.Errorf("failed to batch create reservations: %w", err)
	}

	return nil
}

// GetConflicting returns which of the given numbers are held by a live
// reservation belonging to a different user
func (r *ReservationRepository) GetConflicting(ctx context.Context, lotteryID int64, numbers []int, excludeUserID int64, now time.Time) ([]int, error) {
	query := `
		SELECT ticket_number
		FROM lottery_reserved_numbers
		WHERE lottery_id = $1
		  AND ticket_number = ANY($2)
		  AND user_id <> $3
		  AND expires_at > $4
		ORDER BY ticket_number
	`

	rows, err := r.q.Query(ctx, query, lotteryID, numbers, excludeUserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicting reservations: %w", err)
	}
	defer rows.Close()

	var conflicts []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan reserved number: %w", err)
		}
		conflicts = append(conflicts, n)
	}

	return conflicts, rows.Err()
}

// DeleteExpired purges expired reservations for one lottery
func (r *ReservationRepository) DeleteExpired(ctx context.Context, lotteryID int64, now time.Time) (int64, error) {
	result, err := r.q.Exec(ctx, `
		DELETE FROM lottery_reserved_numbers
		WHERE lottery_id = $1 AND expires_at <= $2
	`, lotteryID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reservations: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpiredBefore purges expired reservations across all lotteries
func (r *ReservationRepository) DeleteExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.Exec(ctx, `
		DELETE FROM lottery_reserved_numbers WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired reservations: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteByUserNumbers removes a user's reservations for the given numbers
func (r *ReservationRepository) DeleteByUserNumbers(ctx context.Context, lotteryID, userID int64, numbers []int) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM lottery_reserved_numbers
		WHERE lottery_id = $1 AND user_id = $2 AND ticket_number = ANY($3)
	`, lotteryID, userID, numbers)
	if err != nil {
		return fmt.Errorf("failed to delete user reservations: %w", err)
	}
	return nil
}

// DeleteByLottery removes all reservations of a lottery
func (r *ReservationRepository) DeleteByLottery(ctx context.Context, lotteryID int64) (int64, error) {
	result, err := r.q.Exec(ctx, `
		DELETE FROM lottery_reserved_numbers WHERE lottery_id = $1
	`, lotteryID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete lottery reservations: %w", err)
	}
	return result.RowsAffected(), nil
}
