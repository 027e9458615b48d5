package payment

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/splitledger/internal/database"
	"github.com/fkhayef/splitledger/internal/integrity"
	"github.com/fkhayef/splitledger/internal/money"
)

const paymentColumns = `p.id, p.ref, p.from_user_id, p.to_user_id, p.amount, p.currency, p.method,
		p.group_id, p.paid_at, p.note, p.created_by, p.prev_hash, p.content_hash, p.created_at`

// Repository handles payment data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new payment repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Append stores payments at the head of the payment hash chain, all in one
// transaction: either every payment is stored or none is.
func (r *Repository) Append(ctx context.Context, payments ...*Payment) ([]*Payment, error) {
	out := make([]*Payment, len(payments))
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := database.LockChain(ctx, tx, database.PaymentChainLock); err != nil {
			return err
		}

		prev := integrity.GenesisHash
		err := tx.QueryRowContext(ctx, `SELECT content_hash FROM payments ORDER BY id DESC LIMIT 1`).Scan(&prev)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read chain head: %w", err)
		}

		query := `
			INSERT INTO payments (ref, from_user_id, to_user_id, amount, currency, method, group_id,
				paid_at, note, created_by, prev_hash, content_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`
		for i, p := range payments {
			stored := *p
			if stored.Ref == uuid.Nil {
				stored.Ref = uuid.New()
			}
			stored.PaidAt = stored.PaidAt.UTC().Truncate(time.Microsecond)
			stored.CreatedAt = createdAt
			stored.PrevHash = prev
			if stored.ContentHash, err = integrity.ChainHash(stored.ChainPayload(), prev); err != nil {
				return fmt.Errorf("failed to hash payment: %w", err)
			}

			err = tx.QueryRowContext(ctx, query,
				stored.Ref,
				stored.FromUserID,
				stored.ToUserID,
				stored.Amount.Amount,
				stored.Amount.Currency,
				string(stored.Method),
				stored.GroupID,
				stored.PaidAt,
				stored.Note,
				stored.CreatedBy,
				stored.PrevHash,
				stored.ContentHash,
				stored.CreatedAt,
			).Scan(&stored.ID)
			if err != nil {
				return fmt.Errorf("failed to create payment: %w", err)
			}
			prev = stored.ContentHash
			out[i] = &stored
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exclusive runs fn holding the payment chain lock, inside the transaction
// that payments appended by fn are written in.
func (r *Repository) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.Exclusive(ctx, r.db, database.PaymentChainLock, fn)
}

// GetByID retrieves a payment by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	row := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// List retrieves payments matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]*Payment, error) {
	return r.list(ctx, f, ` ORDER BY p.paid_at DESC, p.id DESC`)
}

// Count returns the number of payments matching f, ignoring Limit and Offset.
func (r *Repository) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var total int
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM payments p`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return total, nil
}

// Chain returns every payment in append order for hash verification.
func (r *Repository) Chain(ctx context.Context) ([]integrity.Link, error) {
	payments, err := r.list(ctx, Filter{}, ` ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	links := make([]integrity.Link, len(payments))
	for i, p := range payments {
		links[i] = integrity.Link{ID: p.ID, Payload: p.ChainPayload(), PrevHash: p.PrevHash, Hash: p.ContentHash}
	}
	return links, nil
}

func (r *Repository) list(ctx context.Context, f Filter, order string) ([]*Payment, error) {
	where, args := f.where()
	query := `SELECT ` + paymentColumns + ` FROM payments p` + where + order
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(row scanner) (*Payment, error) {
	var (
		p        Payment
		amount   int64
		currency string
		method   string
		groupID  sql.NullInt64
		note     sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.Ref,
		&p.FromUserID,
		&p.ToUserID,
		&amount,
		&currency,
		&method,
		&groupID,
		&p.PaidAt,
		&note,
		&p.CreatedBy,
		&p.PrevHash,
		&p.ContentHash,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Amount = money.New(amount, strings.TrimSpace(currency))
	p.Method = Method(method)
	p.PaidAt = p.PaidAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	if groupID.Valid {
		p.GroupID = &groupID.Int64
	}
	if note.Valid {
		p.Note = &note.String
	}
	return &p, nil
}

func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != nil {
		p := arg(*f.UserID)
		conds = append(conds, fmt.Sprintf("(p.from_user_id = %s OR p.to_user_id = %s)", p, p))
	}
	if f.GroupID != nil {
		conds = append(conds, "p.group_id = "+arg(*f.GroupID))
	}
	if f.From != nil {
		conds = append(conds, "p.paid_at >= "+arg(startOfDay(*f.From)))
	}
	if f.To != nil {
		conds = append(conds, "p.paid_at < "+arg(startOfDay(*f.To).AddDate(0, 0, 1)))
	}
	if f.Currency != "" {
		conds = append(conds, "p.currency = "+arg(f.Currency))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
