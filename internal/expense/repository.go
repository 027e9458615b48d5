package expense

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/database"
	"github.com/fkhayef/splitledger/internal/expense/split"
	"github.com/fkhayef/splitledger/internal/integrity"
	"github.com/fkhayef/splitledger/internal/money"
)

const expenseColumns = `e.id, e.ref, e.group_id, e.paid_by, e.description, e.amount, e.currency,
		e.expense_date, e.split_type, e.category_id, e.notes, e.replaces_id, e.void,
		e.created_by, e.prev_hash, e.content_hash, e.created_at`

// Repository handles expense and split data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new expense repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Append stores a new expense revision and its splits at the head of the
// expense hash chain. Ref, CreatedAt and the hashes are assigned here.
func (r *Repository) Append(ctx context.Context, e *Expense) (*Expense, error) {
	out := *e
	if out.Ref == uuid.Nil {
		out.Ref = uuid.New()
	}
	out.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	out.Date = dateOnly(out.Date)

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := database.LockChain(ctx, tx, database.ExpenseChainLock); err != nil {
			return err
		}

		prev := integrity.GenesisHash
		err := tx.QueryRowContext(ctx, `SELECT content_hash FROM expenses ORDER BY id DESC LIMIT 1`).Scan(&prev)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read chain head: %w", err)
		}
		out.PrevHash = prev
		if out.ContentHash, err = integrity.ChainHash(out.ChainPayload(), prev); err != nil {
			return fmt.Errorf("failed to hash expense: %w", err)
		}

		query := `
			INSERT INTO expenses (ref, group_id, paid_by, description, amount, currency, expense_date,
				split_type, category_id, notes, replaces_id, void, created_by, prev_hash, content_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, query,
			out.Ref,
			out.GroupID,
			out.PaidBy,
			out.Description,
			out.Total.Amount,
			out.Total.Currency,
			out.Date,
			string(out.SplitType),
			out.CategoryID,
			out.Notes,
			out.ReplacesID,
			out.Void,
			out.CreatedBy,
			out.PrevHash,
			out.ContentHash,
			out.CreatedAt,
		).Scan(&out.ID)
		if err != nil {
			if database.IsUniqueViolation(err, "expenses_replaces_id_key") {
				return apperr.Wrap(apperr.CodeConflict, "expense has already been revised", err)
			}
			return fmt.Errorf("failed to create expense: %w", err)
		}

		for i, s := range out.Splits {
			var pct any
			if s.Percentage != nil {
				pct = *s.Percentage
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO expense_splits (expense_id, position, user_id, amount, percentage, shares)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, out.ID, i, s.UserID, s.Amount.Amount, pct, s.Shares)
			if err != nil {
				return fmt.Errorf("failed to create split: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID retrieves an expense revision with its splits. It returns nil, nil
// when no such revision exists.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Expense, error) {
	q := database.Conn(ctx, r.db)
	row := q.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses e WHERE e.id = $1`, id)
	e, err := scanExpense(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if err := r.loadSplits(ctx, q, []*Expense{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// IsReplaced reports whether a later revision (edit or void) supersedes id.
func (r *Repository) IsReplaced(ctx context.Context, id int64) (bool, error) {
	var replaced bool
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM expenses WHERE replaces_id = $1)`, id,
	).Scan(&replaced)
	if err != nil {
		return false, fmt.Errorf("failed to check revision: %w", err)
	}
	return replaced, nil
}

// List retrieves expenses matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]*Expense, error) {
	where, args := f.where()
	query := `SELECT ` + expenseColumns + ` FROM expenses e` + where + ` ORDER BY e.expense_date DESC, e.id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	q := database.Conn(ctx, r.db)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	if err := r.loadSplits(ctx, q, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// Count returns the number of expenses matching f, ignoring Limit and Offset.
func (r *Repository) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var total int
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses e`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return total, nil
}

// Chain returns every stored revision in append order for hash verification.
func (r *Repository) Chain(ctx context.Context) ([]integrity.Link, error) {
	expenses, err := r.List(ctx, Filter{IncludeHistory: true})
	if err != nil {
		return nil, err
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].ID < expenses[j].ID })
	links := make([]integrity.Link, len(expenses))
	for i, e := range expenses {
		links[i] = integrity.Link{
			ID:       e.ID,
			Payload:  e.ChainPayload(),
			PrevHash: e.PrevHash,
			Hash:     e.ContentHash,
		}
	}
	return links, nil
}

func (r *Repository) loadSplits(ctx context.Context, q database.Querier, expenses []*Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	ids := make([]int64, len(expenses))
	byID := make(map[int64]*Expense, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
		byID[e.ID] = e
	}

	rows, err := q.QueryContext(ctx, `
		SELECT expense_id, user_id, amount, percentage, shares
		FROM expense_splits
		WHERE expense_id = ANY($1)
		ORDER BY expense_id, position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			expenseID int64
			s         Split
			amount    int64
			pct       decimal.NullDecimal
			shares    sql.NullInt64
		)
		if err := rows.Scan(&expenseID, &s.UserID, &amount, &pct, &shares); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		e := byID[expenseID]
		s.Amount = money.New(amount, e.Total.Currency)
		if pct.Valid {
			p := pct.Decimal
			s.Percentage = &p
		}
		if shares.Valid {
			n := shares.Int64
			s.Shares = &n
		}
		e.Splits = append(e.Splits, s)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (*Expense, error) {
	var (
		e         Expense
		amount    int64
		currency  string
		splitType string
		groupID   sql.NullInt64
		category  sql.NullInt64
		notes     sql.NullString
		replaces  sql.NullInt64
	)
	err := row.Scan(
		&e.ID,
		&e.Ref,
		&groupID,
		&e.PaidBy,
		&e.Description,
		&amount,
		&currency,
		&e.Date,
		&splitType,
		&category,
		&notes,
		&replaces,
		&e.Void,
		&e.CreatedBy,
		&e.PrevHash,
		&e.ContentHash,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Total = money.New(amount, strings.TrimSpace(currency))
	e.SplitType = split.SplitType(splitType)
	e.Date = dateOnly(e.Date)
	e.CreatedAt = e.CreatedAt.UTC()
	if groupID.Valid {
		e.GroupID = &groupID.Int64
	}
	if category.Valid {
		e.CategoryID = &category.Int64
	}
	if notes.Valid {
		e.Notes = &notes.String
	}
	if replaces.Valid {
		e.ReplacesID = &replaces.Int64
	}
	return &e, nil
}

// where renders the filter as a SQL WHERE clause with positional arguments.
func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeHistory {
		conds = append(conds, "NOT e.void",
			"NOT EXISTS (SELECT 1 FROM expenses r WHERE r.replaces_id = e.id)")
	}
	if f.UserID != nil {
		p := arg(*f.UserID)
		conds = append(conds, fmt.Sprintf(
			"(e.paid_by = %s OR EXISTS (SELECT 1 FROM expense_splits s WHERE s.expense_id = e.id AND s.user_id = %s))", p, p))
	}
	if f.GroupID != nil {
		conds = append(conds, "e.group_id = "+arg(*f.GroupID))
	}
	if f.From != nil {
		conds = append(conds, "e.expense_date >= "+arg(dateOnly(*f.From)))
	}
	if f.To != nil {
		conds = append(conds, "e.expense_date <= "+arg(dateOnly(*f.To)))
	}
	if f.Currency != "" {
		conds = append(conds, "e.currency = "+arg(f.Currency))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
