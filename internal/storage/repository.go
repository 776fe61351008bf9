package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pouch/internal/core"
	"pouch/internal/spending"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width RFC 3339 in UTC so stored instants compare
// correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// maxPaidAt is the upper bound for spending periods that never close.
var maxPaidAt = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const walletColumns = `id, user_id, name, currency, country, spending_period, order_index,
	sub_wallet_of, archived_at, created_at, updated_at, deleted_at`

// CreateWallet inserts a wallet with the next display position for the user.
func (r *SQLiteRepository) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var orderIndex int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wallets WHERE user_id = ? AND deleted_at IS NULL`,
		w.UserID).Scan(&orderIndex)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("count wallets: %w", err)
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (user_id, name, currency, country, spending_period, order_index, sub_wallet_of, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.UserID, w.Name, w.Currency, w.Country, string(w.SpendingPeriod),
		orderIndex, w.SubWalletOf, fmtTime(now))
	if err != nil {
		return core.Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Wallet{}, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Wallet{}, fmt.Errorf("commit: %w", err)
	}

	w.ID = id
	w.OrderIndex = orderIndex
	w.CreatedAt = now

	slog.InfoContext(ctx, "Wallet created",
		"id", w.ID,
		"user_id", w.UserID,
		"name", w.Name,
		"spending_period", w.SpendingPeriod)
	return w, nil
}

func (r *SQLiteRepository) GetWallet(ctx context.Context, userID string, id int64) (core.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		id, userID)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, core.ErrWalletNotFound
	}
	if err != nil {
		return core.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// ListWallets returns the user's top-level, non-archived wallets in display
// order.
func (r *SQLiteRepository) ListWallets(ctx context.Context, userID string) ([]core.Wallet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets
		 WHERE user_id = ? AND sub_wallet_of IS NULL AND archived_at IS NULL AND deleted_at IS NULL
		 ORDER BY order_index, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()
	return collectWallets(rows)
}

// SearchWallets returns the user's non-archived wallets, sub-wallets
// included, in display order. A non-empty phrase filters by name,
// case-insensitive substring.
func (r *SQLiteRepository) SearchWallets(ctx context.Context, userID, phrase string) ([]core.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets
		 WHERE user_id = ? AND archived_at IS NULL AND deleted_at IS NULL`
	args := []any{userID}
	if phrase != "" {
		query += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(phrase)+"%")
	}
	query += ` ORDER BY order_index, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search wallets: %w", err)
	}
	defer rows.Close()
	return collectWallets(rows)
}

// MainWallets returns the user's top-level wallets ordered by creation time,
// optionally filtered by currency.
func (r *SQLiteRepository) MainWallets(ctx context.Context, userID, currency string) ([]core.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets
		 WHERE user_id = ? AND sub_wallet_of IS NULL AND archived_at IS NULL AND deleted_at IS NULL`
	args := []any{userID}
	if currency != "" {
		query += ` AND currency = ?`
		args = append(args, currency)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("main wallets: %w", err)
	}
	defer rows.Close()
	return collectWallets(rows)
}

// ListSubWallets returns the direct, non-deleted sub-wallets of a parent.
func (r *SQLiteRepository) ListSubWallets(ctx context.Context, userID string, parentID int64) ([]core.Wallet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets
		 WHERE user_id = ? AND sub_wallet_of = ? AND deleted_at IS NULL
		 ORDER BY order_index, id`,
		userID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list sub-wallets: %w", err)
	}
	defer rows.Close()
	return collectWallets(rows)
}

func (r *SQLiteRepository) UpdateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE wallets SET name = ?, currency = ?, country = ?, spending_period = ?, archived_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		w.Name, w.Currency, w.Country, string(w.SpendingPeriod),
		fmtNullTime(w.ArchivedAt), fmtTime(now), w.ID, w.UserID)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("update wallet: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Wallet{}, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return core.Wallet{}, core.ErrWalletNotFound
	}
	w.UpdatedAt = &now
	return w, nil
}

// DeleteWallet soft-deletes a wallet together with its direct sub-wallets
// and all of their transactions.
func (r *SQLiteRepository) DeleteWallet(ctx context.Context, userID string, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := fmtTime(time.Now())
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET deleted_at = ?
		 WHERE user_id = ? AND deleted_at IS NULL AND (id = ? OR sub_wallet_of = ?)`,
		now, userID, id, id)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrWalletNotFound
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = ?
		 WHERE deleted_at IS NULL AND wallet_id IN (
			SELECT id FROM wallets WHERE user_id = ? AND (id = ? OR sub_wallet_of = ?))`,
		now, userID, id, id)
	if err != nil {
		return fmt.Errorf("delete wallet transactions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Wallet deleted", "id", id, "user_id", userID)
	return nil
}

// FindScopeWallets resolves a wallet's aggregation scope: the wallet itself
// first, then its direct non-deleted sub-wallets. A sub-wallet's scope is
// just itself.
func (r *SQLiteRepository) FindScopeWallets(ctx context.Context, userID string, walletID int64) ([]core.Wallet, error) {
	w, err := r.GetWallet(ctx, userID, walletID)
	if err != nil {
		return nil, err
	}
	scope := []core.Wallet{w}
	if w.IsSubWallet() {
		return scope, nil
	}
	subs, err := r.ListSubWallets(ctx, userID, walletID)
	if err != nil {
		return nil, err
	}
	return append(scope, subs...), nil
}

const transactionColumns = `id, wallet_id, amount, category, description, paid_at,
	subscription_id, created_at, updated_at, deleted_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (wallet_id, amount, category, description, paid_at, subscription_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.WalletID, t.Amount.String(), string(t.Category), t.Description,
		fmtTime(t.PaidAt), t.SubscriptionID, fmtTime(now))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID,
		"wallet_id", t.WalletID,
		"amount", t.Amount,
		"category", t.Category)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT t.id, t.wallet_id, t.amount, t.category, t.description, t.paid_at,
			t.subscription_id, t.created_at, t.updated_at, t.deleted_at
		 FROM transactions t
		 JOIN wallets w ON w.id = t.wallet_id
		 WHERE t.id = ? AND w.user_id = ? AND t.deleted_at IS NULL AND w.deleted_at IS NULL`,
		id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, sql.ErrNoRows
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// GetTransactionByID looks a row up without an ownership filter. Only the
// mirror worker uses it; request paths go through GetTransaction.
func (r *SQLiteRepository) GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND deleted_at IS NULL`,
		id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, sql.ErrNoRows
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns a wallet's non-deleted transactions, most recent
// first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, walletID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.wallet_id, t.amount, t.category, t.description, t.paid_at,
			t.subscription_id, t.created_at, t.updated_at, t.deleted_at
		 FROM transactions t
		 JOIN wallets w ON w.id = t.wallet_id
		 WHERE t.wallet_id = ? AND w.user_id = ? AND t.deleted_at IS NULL AND w.deleted_at IS NULL
		 ORDER BY t.paid_at DESC, t.id DESC`,
		walletID, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET amount = ?, category = ?, description = ?, paid_at = ?, updated_at = ?, synced_at = NULL
		 WHERE id = ? AND deleted_at IS NULL AND wallet_id IN (
			SELECT id FROM wallets WHERE user_id = ? AND deleted_at IS NULL)`,
		t.Amount.String(), string(t.Category), t.Description, fmtTime(t.PaidAt),
		fmtTime(now), t.ID, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return core.Transaction{}, sql.ErrNoRows
	}
	t.UpdatedAt = &now
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = ?
		 WHERE id = ? AND deleted_at IS NULL AND wallet_id IN (
			SELECT id FROM wallets WHERE user_id = ? AND deleted_at IS NULL)`,
		fmtTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListScopeTransactions returns non-deleted transactions across the wallet
// ids, newest paid first, with limit/offset paging.
func (r *SQLiteRepository) ListScopeTransactions(ctx context.Context, walletIDs []int64, limit, offset int) ([]core.Transaction, error) {
	if len(walletIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		 WHERE deleted_at IS NULL AND wallet_id IN (` + placeholders(len(walletIDs)) + `)
		 ORDER BY paid_at DESC, id DESC LIMIT ? OFFSET ?`
	args := make([]any, 0, len(walletIDs)+2)
	for _, id := range walletIDs {
		args = append(args, id)
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scope transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// FetchForBucketing returns non-deleted transactions for the wallet ids,
// clipped to the window when it is bounded.
func (r *SQLiteRepository) FetchForBucketing(ctx context.Context, walletIDs []int64, window core.Span) ([]core.Transaction, error) {
	if len(walletIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		 WHERE deleted_at IS NULL AND wallet_id IN (` + placeholders(len(walletIDs)) + `)`
	args := make([]any, 0, len(walletIDs)+2)
	for _, id := range walletIDs {
		args = append(args, id)
	}
	if !window.Unbounded {
		query += ` AND paid_at >= ? AND paid_at < ?`
		args = append(args, fmtTime(window.Start), fmtTime(window.End))
	}
	query += ` ORDER BY paid_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// DashboardRows flattens the user's dashboard into one row per in-period
// transaction, attributed to its top-level wallet, plus a single sentinel
// row for every wallet without any. Each wallet is filtered by its own
// spending period via the parameterized half-open windows, so future-dated
// rows never count toward the current period.
func (r *SQLiteRepository) DashboardRows(ctx context.Context, userID string, windows spending.PeriodWindows) ([]spending.DashboardRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.id, w.user_id, w.name, w.currency, w.country, w.spending_period, w.order_index,
			w.sub_wallet_of, w.archived_at, w.created_at, w.updated_at, w.deleted_at,
			t.id, t.wallet_id, t.amount, t.category, t.description, t.paid_at,
			t.subscription_id, t.created_at, t.updated_at
		 FROM wallets w
		 LEFT JOIN (
			SELECT tx.*, COALESCE(o.sub_wallet_of, o.id) AS root_id
			FROM transactions tx
			JOIN wallets o ON o.id = tx.wallet_id
			WHERE tx.deleted_at IS NULL AND o.deleted_at IS NULL
		 ) t ON t.root_id = w.id AND t.paid_at >= CASE w.spending_period
			WHEN 'DAY' THEN ?
			WHEN 'WEEK' THEN ?
			WHEN 'MONTH' THEN ?
			WHEN 'YEAR' THEN ?
			ELSE ?
		 END AND t.paid_at < CASE w.spending_period
			WHEN 'DAY' THEN ?
			WHEN 'WEEK' THEN ?
			WHEN 'MONTH' THEN ?
			WHEN 'YEAR' THEN ?
			ELSE ?
		 END
		 WHERE w.user_id = ? AND w.sub_wallet_of IS NULL AND w.archived_at IS NULL AND w.deleted_at IS NULL
		 ORDER BY w.order_index, w.id, t.paid_at DESC, t.id DESC`,
		fmtTime(windows.Day.Start), fmtTime(windows.Week.Start), fmtTime(windows.Month.Start),
		fmtTime(windows.Year.Start), fmtTime(time.Time{}),
		fmtTime(windows.Day.End), fmtTime(windows.Week.End), fmtTime(windows.Month.End),
		fmtTime(windows.Year.End), fmtTime(maxPaidAt), userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard rows: %w", err)
	}
	defer rows.Close()

	var out []spending.DashboardRow
	for rows.Next() {
		var (
			w                                   core.Wallet
			period, wCreated                    string
			subOf                               sql.NullInt64
			archived, wUpdated, wDeleted        sql.NullString
			txID, txWallet, txSub               sql.NullInt64
			txAmount, txCategory, txDescription sql.NullString
			txPaid, txCreated, txUpdated        sql.NullString
		)
		err := rows.Scan(&w.ID, &w.UserID, &w.Name, &w.Currency, &w.Country, &period, &w.OrderIndex,
			&subOf, &archived, &wCreated, &wUpdated, &wDeleted,
			&txID, &txWallet, &txAmount, &txCategory, &txDescription, &txPaid,
			&txSub, &txCreated, &txUpdated)
		if err != nil {
			return nil, fmt.Errorf("scan dashboard row: %w", err)
		}
		if err := fillWallet(&w, period, wCreated, subOf, archived, wUpdated, wDeleted); err != nil {
			return nil, err
		}

		row := spending.DashboardRow{Wallet: w}
		if txID.Valid {
			t := core.Transaction{
				ID:          txID.Int64,
				WalletID:    txWallet.Int64,
				Category:    core.Category(txCategory.String),
				Description: txDescription.String,
			}
			if txSub.Valid {
				t.SubscriptionID = &txSub.Int64
			}
			if t.Amount, err = core.ParseMoney(txAmount.String); err != nil {
				return nil, fmt.Errorf("parse amount: %w", err)
			}
			if t.PaidAt, err = parseTime(txPaid.String); err != nil {
				return nil, fmt.Errorf("parse paid_at: %w", err)
			}
			if t.CreatedAt, err = parseTime(txCreated.String); err != nil {
				return nil, fmt.Errorf("parse created_at: %w", err)
			}
			if t.UpdatedAt, err = parseNullTime(txUpdated); err != nil {
				return nil, fmt.Errorf("parse updated_at: %w", err)
			}
			row.Tx = &t
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dashboard rows: %w", err)
	}
	return out, nil
}

// GetTimezone returns the user's configured timezone, defaulting to UTC.
func (r *SQLiteRepository) GetTimezone(ctx context.Context, userID string) (string, error) {
	var tz string
	err := r.db.QueryRowContext(ctx,
		`SELECT timezone FROM settings WHERE user_id = ?`, userID).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "UTC", nil
	}
	if err != nil {
		return "", fmt.Errorf("get timezone: %w", err)
	}
	return tz, nil
}

func (r *SQLiteRepository) SetTimezone(ctx context.Context, userID, timezone string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (user_id, timezone, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET timezone = excluded.timezone, updated_at = excluded.updated_at`,
		userID, timezone, fmtTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set timezone: %w", err)
	}
	return nil
}

// ListUnsynced returns live transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) ListUnsynced(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE synced_at IS NULL AND deleted_at IS NULL
		 ORDER BY id LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced_at = ? WHERE id = ?`,
		fmtTime(at), id)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (core.Wallet, error) {
	var (
		w                          core.Wallet
		period, created            string
		subOf                      sql.NullInt64
		archived, updated, deleted sql.NullString
	)
	err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Currency, &w.Country, &period, &w.OrderIndex,
		&subOf, &archived, &created, &updated, &deleted)
	if err != nil {
		return core.Wallet{}, err
	}
	if err := fillWallet(&w, period, created, subOf, archived, updated, deleted); err != nil {
		return core.Wallet{}, err
	}
	return w, nil
}

func fillWallet(w *core.Wallet, period, created string, subOf sql.NullInt64, archived, updated, deleted sql.NullString) error {
	w.SpendingPeriod = core.PeriodUnit(period)
	if subOf.Valid {
		w.SubWalletOf = &subOf.Int64
	}
	var err error
	if w.CreatedAt, err = parseTime(created); err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	if w.ArchivedAt, err = parseNullTime(archived); err != nil {
		return fmt.Errorf("parse archived_at: %w", err)
	}
	if w.UpdatedAt, err = parseNullTime(updated); err != nil {
		return fmt.Errorf("parse updated_at: %w", err)
	}
	if w.DeletedAt, err = parseNullTime(deleted); err != nil {
		return fmt.Errorf("parse deleted_at: %w", err)
	}
	return nil
}

func collectWallets(rows *sql.Rows) ([]core.Wallet, error) {
	var out []core.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return out, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                core.Transaction
		amount, category string
		paid, created    string
		subID            sql.NullInt64
		updated, deleted sql.NullString
	)
	err := row.Scan(&t.ID, &t.WalletID, &amount, &category, &t.Description, &paid,
		&subID, &created, &updated, &deleted)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Category = core.Category(category)
	if subID.Valid {
		t.SubscriptionID = &subID.Int64
	}
	if t.Amount, err = core.ParseMoney(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	if t.PaidAt, err = parseTime(paid); err != nil {
		return core.Transaction{}, fmt.Errorf("parse paid_at: %w", err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseNullTime(updated); err != nil {
		return core.Transaction{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if t.DeletedAt, err = parseNullTime(deleted); err != nil {
		return core.Transaction{}, fmt.Errorf("parse deleted_at: %w", err)
	}
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

func placeholders(n int) string {
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
