package account

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals that no account matches the given number or card.
var ErrNotFound = errors.New("account not found")

// Directory is the queryable set of accounts the terminal serves. Lookups
// signal absence with ErrNotFound; they never fail on a miss in any other
// way.
type Directory interface {
	FindByNumber(ctx context.Context, number int) (Account, error)
	FindByCardID(ctx context.Context, cardID int64) (Account, error)
	UpdateBalance(ctx context.Context, number int, balance int64) error
}

// PostgresDirectory stores accounts in PostgreSQL.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

// NewPostgresDirectory builds a directory backed by PostgreSQL.
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Create inserts an account record.
func (d *PostgresDirectory) Create(ctx context.Context, acct Account) error {
	_, err := d.db.Exec(ctx, `INSERT INTO accounts (number, holder, balance_paise, pin_hash, card_id)
        VALUES ($1, $2, $3, $4, $5)`, acct.Number, acct.Holder, acct.Balance, acct.PINHash, acct.CardID)
	return err
}

// FindByNumber fetches an account by its account number.
func (d *PostgresDirectory) FindByNumber(ctx context.Context, number int) (Account, error) {
	row := d.db.QueryRow(ctx, `SELECT number, holder, balance_paise, pin_hash, card_id
        FROM accounts WHERE number = $1`, number)
	return scanAccount(row)
}

// FindByCardID fetches the account bound to a contactless card.
func (d *PostgresDirectory) FindByCardID(ctx context.Context, cardID int64) (Account, error) {
	row := d.db.QueryRow(ctx, `SELECT number, holder, balance_paise, pin_hash, card_id
        FROM accounts WHERE card_id = $1`, cardID)
	return scanAccount(row)
}

// UpdateBalance persists a new balance for the account.
func (d *PostgresDirectory) UpdateBalance(ctx context.Context, number int, balance int64) error {
	cmd, err := d.db.Exec(ctx, `UPDATE accounts SET balance_paise = $1 WHERE number = $2`, balance, number)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var acct Account
	if err := row.Scan(&acct.Number, &acct.Holder, &acct.Balance, &acct.PINHash, &acct.CardID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return acct, nil
}
