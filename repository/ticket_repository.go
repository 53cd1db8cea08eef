package repository

import (
	"context"
	"fmt"

	"raffled/database"
	"raffled/models"
	"raffled/service"

	"github.com/jackc/pgx/v5"
)

// TicketRepository implements the ticket ledger data access
type TicketRepository struct {
	q queryable
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{q: db.Pool}
}

// newTicketRepositoryWithTx creates a new ticket repository with a transaction
func newTicketRepositoryWithTx(tx queryable) service.TicketRepository {
	return &TicketRepository{q: tx}
}

const ticketColumns = `
	id, lottery_id, ticket_number, user_id, payment_status,
	payment_amount, is_winner, purchase_date
	`

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var ticket models.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.LotteryID,
		&ticket.TicketNumber,
		&ticket.UserID,
		&ticket.PaymentStatus,
		&ticket.PaymentAmount,
		&ticket.IsWinner,
		&ticket.PurchaseDate,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepository) queryTickets(ctx context.Context, query string, args ...interface{}) ([]*models.Ticket, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

// CreateBatch inserts all tickets in a single statement. The partial unique
// index on non-terminal (lottery_id, ticket_number) rows is the final
// backstop against concurrent purchases of the same number; its violation is
// surfaced as service.ErrTicketNumberTaken.
func (r *TicketRepository) CreateBatch(ctx context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	query := `
		INSERT INTO lottery_tickets (lottery_id, ticket_number, user_id, payment_status, payment_amount)
		VALUES `

	values := make([]interface{}, 0, len(tickets)*5)
	for i, ticket := range tickets {
		if i > 0 {
			query += ", "
		}
		offset := i * 5
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			offset+1, offset+2, offset+3, offset+4, offset+5)
		values = append(values, ticket.LotteryID, ticket.TicketNumber,
			ticket.UserID, ticket.PaymentStatus, ticket.PaymentAmount)
	}
	query += " RETURNING id, is_winner, purchase_date"

	rows, err := r.q.Query(ctx, query, values...)
	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrTicketNumberTaken
		}
		return fmt.Errorf("failed to batch create tickets: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if err := rows.Scan(&tickets[i].ID, &tickets[i].IsWinner, &tickets[i].PurchaseDate); err != nil {
			return fmt.Errorf("failed to scan ticket result: %w", err)
		}
		i++
	}

	if err := rows.Err(); err != nil {
		if isUniqueViolation(err) {
			return service.ErrTicketNumberTaken
		}
		return fmt.Errorf("failed to batch create tickets: %w", err)
	}

	return nil
}

// GetNumbersInUse returns which of the given numbers have a non-terminal row
func (r *TicketRepository) GetNumbersInUse(ctx context.Context, lotteryID int64, numbers []int) ([]int, error) {
	query := `
		SELECT ticket_number
		FROM lottery_tickets
		WHERE lottery_id = $1
		  AND ticket_number = ANY($2)
		  AND payment_status IN ('pending', 'paid')
		ORDER BY ticket_number
	`

	rows, err := r.q.Query(ctx, query, lotteryID, numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to query numbers in use: %w", err)
	}
	defer rows.Close()

	var inUse []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan ticket number: %w", err)
		}
		inUse = append(inUse, n)
	}

	return inUse, rows.Err()
}

// CountNonTerminalByUser returns a user's pending+paid count for a lottery
func (r *TicketRepository) CountNonTerminalByUser(ctx context.Context, lotteryID, userID int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM lottery_tickets
		WHERE lottery_id = $1 AND user_id = $2 AND payment_status IN ('pending', 'paid')
	`, lotteryID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user tickets: %w", err)
	}
	return count, nil
}

// CountPaid returns the paid ticket count for a lottery
func (r *TicketRepository) CountPaid(ctx context.Context, lotteryID int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM lottery_tickets
		WHERE lottery_id = $1 AND payment_status = 'paid'
	`, lotteryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count paid tickets: %w", err)
	}
	return count, nil
}

// GetPaid returns all paid tickets of a lottery ordered by ticket number
func (r *TicketRepository) GetPaid(ctx context.Context, lotteryID int64) ([]*models.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM lottery_tickets
		WHERE lottery_id = $1 AND payment_status = 'paid'
		ORDER BY ticket_number
	`
	return r.queryTickets(ctx, query, lotteryID)
}

// GetPaidByNumbers returns the paid tickets matching the given numbers
func (r *TicketRepository) GetPaidByNumbers(ctx context.Context, lotteryID int64, numbers []int) ([]*models.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM lottery_tickets
		WHERE lottery_id = $1 AND ticket_number = ANY($2) AND payment_status = 'paid'
		ORDER BY ticket_number
	`
	return r.queryTickets(ctx, query, lotteryID, numbers)
}

// GetByUser returns a user's tickets for one lottery
func (r *TicketRepository) GetByUser(ctx context.Context, lotteryID, userID int64) ([]*models.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM lottery_tickets
		WHERE lottery_id = $1 AND user_id = $2
		ORDER BY ticket_number
	`
	return r.queryTickets(ctx, query, lotteryID, userID)
}

// GetAllByUser returns every ticket a user holds across lotteries
func (r *TicketRepository) GetAllByUser(ctx context.Context, userID int64) ([]*models.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM lottery_tickets
		WHERE user_id = $1
		ORDER BY purchase_date DESC
	`
	return r.queryTickets(ctx, query, userID)
}

// GetByLottery returns all tickets of a lottery
func (r *TicketRepository) GetByLottery(ctx context.Context, lotteryID int64) ([]*models.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM lottery_tickets
		WHERE lottery_id = $1
		ORDER BY ticket_number
	`
	return r.queryTickets(ctx, query, lotteryID)
}

// MarkPaid transitions a user's pending tickets for the given numbers to paid
func (r *TicketRepository) MarkPaid(ctx context.Context, lotteryID int64, numbers []int, userID int64) (int, error) {
	result, err := r.q.Exec(ctx, `
		UPDATE lottery_tickets
		SET payment_status = 'paid'
		WHERE lottery_id = $1 AND user_id = $2 AND ticket_number = ANY($3)
		  AND payment_status = 'pending'
	`, lotteryID, userID, numbers)
	if err != nil {
		return 0, fmt.Errorf("failed to mark tickets paid: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// RefundPaid transitions every paid ticket of a lottery to refunded
func (r *TicketRepository) RefundPaid(ctx context.Context, lotteryID int64) (int, error) {
	result, err := r.q.Exec(ctx, `
		UPDATE lottery_tickets
		SET payment_status = 'refunded'
		WHERE lottery_id = $1 AND payment_status = 'paid'
	`, lotteryID)
	if err != nil {
		return 0, fmt.Errorf("failed to refund tickets: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// GetLotteryStats aggregates sold/paid counts, distinct participants and
// paid revenue for a lottery
func (r *TicketRepository) GetLotteryStats(ctx context.Context, lotteryID int64) (*models.LotteryStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE payment_status IN ('pending', 'paid')) AS tickets_sold,
			COUNT(*) FILTER (WHERE payment_status = 'paid') AS paid_tickets,
			COUNT(DISTINCT user_id) FILTER (WHERE payment_status IN ('pending', 'paid')) AS unique_participants,
			COALESCE(SUM(payment_amount) FILTER (WHERE payment_status = 'paid'), 0) AS revenue
		FROM lottery_tickets
		WHERE lottery_id = $1
	`

	stats := models.LotteryStats{LotteryID: lotteryID}
	err := r.q.QueryRow(ctx, query, lotteryID).Scan(
		&stats.TicketsSold,
		&stats.PaidTickets,
		&stats.UniqueParticipants,
		&stats.Revenue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery stats: %w", err)
	}

	return &stats, nil
}

// MarkWinners flags the given tickets as winners
func (r *TicketRepository) MarkWinners(ctx context.Context, ticketIDs []int64) error {
	result, err := r.q.Exec(ctx, `
		UPDATE lottery_tickets SET is_winner = TRUE WHERE id = ANY($1)
	`, ticketIDs)
	if err != nil {
		return fmt.Errorf("failed to mark winning tickets: %w", err)
	}

	if int(result.RowsAffected()) != len(ticketIDs) {
		return fmt.Errorf("expected to mark %d winning tickets, marked %d", len(ticketIDs), result.RowsAffected())
	}

	return nil
}
