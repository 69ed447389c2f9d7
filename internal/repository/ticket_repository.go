package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ErrDuplicateTicketNumber signals a collision on the unique ticket number
// index; the service retries creation with a fresh candidate.
var ErrDuplicateTicketNumber = errors.New("duplicate ticket number")

// TicketFilter captures listing parameters. InvolvedID matches tickets
// where the profile is creator or assignee, used for non-staff scoping.
type TicketFilter struct {
	CreatorID    *string
	AssigneeID   *string
	InvolvedID   *string
	DepartmentID *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	SearchTerm   *string
	DueBefore    *time.Time
	Limit        int
	Offset       int
}

// TicketUpdate carries the field set applied by the state machine. Nil
// fields are left untouched.
type TicketUpdate struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	AssigneeID  **string
	Resolution  *string
	SLADueAt    *time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// UpdateFields applies the update conditionally against the row
	// version the caller read; a stale expectedUpdatedAt yields
	// pgx.ErrNoRows so the service can surface a conflict.
	UpdateFields(ctx context.Context, id string, expectedUpdatedAt time.Time, update TicketUpdate) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int64, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (number, creator_id, assignee_id, department_id, title, description, status, priority, resolution, sla_due_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
        RETURNING id, created_at, updated_at`
	// callers may pre-stamp created_at so derived deadlines share the
	// same instant; stamp here only when they did not
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, query,
		ticket.Number,
		ticket.CreatorID,
		ticket.AssigneeID,
		ticket.DepartmentID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Resolution,
		ticket.SLADueAt,
		ticket.CreatedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateTicketNumber
	}
	return err
}

func (r *ticketRepository) UpdateFields(ctx context.Context, id string, expectedUpdatedAt time.Time, update TicketUpdate) (*domain.Ticket, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{}
	idx := 1

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s=$%d", column, idx))
		args = append(args, value)
		idx++
	}

	if update.Title != nil {
		addSet("title", *update.Title)
	}
	if update.Description != nil {
		addSet("description", *update.Description)
	}
	if update.Status != nil {
		addSet("status", *update.Status)
	}
	if update.Priority != nil {
		addSet("priority", *update.Priority)
	}
	if update.AssigneeID != nil {
		addSet("assignee_id", *update.AssigneeID)
	}
	if update.Resolution != nil {
		addSet("resolution", *update.Resolution)
	}
	if update.SLADueAt != nil {
		addSet("sla_due_at", *update.SLADueAt)
	}

	query := fmt.Sprintf(`
        UPDATE tickets SET %s
        WHERE id=$%d AND updated_at=$%d
        RETURNING id, number, creator_id, assignee_id, department_id, title, description,
                  status, priority, resolution, sla_due_at, created_at, updated_at`,
		strings.Join(sets, ", "), idx, idx+1)
	args = append(args, id, expectedUpdatedAt)

	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, number, creator_id, assignee_id, department_id, title, description,
               status, priority, resolution, sla_due_at, created_at, updated_at
        FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	const query = `
        SELECT id, number, creator_id, assignee_id, department_id, title, description,
               status, priority, resolution, sla_due_at, created_at, updated_at
        FROM tickets WHERE number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.DepartmentID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Resolution,
		&ticket.SLADueAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT id, number, creator_id, assignee_id, department_id, title, description,
                    status, priority, resolution, sla_due_at, created_at, updated_at
             FROM tickets`
	where, args := buildTicketWhere(filter)

	query := base + where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int64, error) {
	where, args := buildTicketWhere(filter)
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tickets"+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	idx := 1

	addClause := func(clause string, value any) {
		clauses = append(clauses, fmt.Sprintf(clause, idx))
		args = append(args, value)
		idx++
	}

	if filter.CreatorID != nil {
		addClause("creator_id=$%d", *filter.CreatorID)
	}
	if filter.AssigneeID != nil {
		addClause("assignee_id=$%d", *filter.AssigneeID)
	}
	if filter.InvolvedID != nil {
		clauses = append(clauses, fmt.Sprintf("(creator_id=$%d OR assignee_id=$%d)", idx, idx))
		args = append(args, *filter.InvolvedID)
		idx++
	}
	if filter.DepartmentID != nil {
		addClause("department_id=$%d", *filter.DepartmentID)
	}
	if len(filter.Statuses) > 0 {
		addClause("status=ANY($%d)", filter.Statuses)
	}
	if len(filter.Priorities) > 0 {
		addClause("priority=ANY($%d)", filter.Priorities)
	}
	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", idx, idx))
		args = append(args, "%"+*filter.SearchTerm+"%")
		idx++
	}
	if filter.DueBefore != nil {
		addClause("sla_due_at < $%d", *filter.DueBefore)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
