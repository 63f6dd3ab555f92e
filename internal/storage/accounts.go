package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	PhotoPath    sql.NullString
	Verified     bool
	VerifiedAt   sql.NullTime
	CreatedAt    time.Time
}

// Verification is one sent OTP code. Only the bcrypt hash of the code is kept.
type Verification struct {
	ID        int64
	AccountID string
	CodeHash  string
	SentAt    time.Time
	ExpiresAt time.Time
	Confirmed bool
	Attempts  int
}

var ErrDuplicateEmail = errors.New("email already registered")

// tsLayout is fixed width so stored timestamps compare correctly as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

const accountColumns = `id, email, display_name, password_hash, photo_path, verified, verified_at, created_at`

func (s *Store) CreateAccount(ctx context.Context, a Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		a.ID, a.Email, a.DisplayName, a.PasswordHash, a.PhotoPath, boolInt(a.Verified),
		formatNullTime(a.VerifiedAt), a.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create account %s: %w", a.Email, ErrDuplicateEmail)
		}
		return fmt.Errorf("create account %s: %w", a.Email, err)
	}
	return nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (Account, error) {
	return s.getAccount(ctx, `email = ?`, email)
}

func (s *Store) AccountByID(ctx context.Context, id string) (Account, error) {
	return s.getAccount(ctx, `id = ?`, id)
}

func (s *Store) getAccount(ctx context.Context, where string, arg any) (Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where+`;`, arg)
	var a Account
	var verified int
	var verifiedAt sql.NullString
	var created string
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.PhotoPath, &verified, &verifiedAt, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account %v: %w", arg, err)
	}
	a.Verified = verified == 1
	a.VerifiedAt = parseNullTime(verifiedAt)
	if ts, err := time.Parse(time.RFC3339, created); err == nil {
		a.CreatedAt = ts
	}
	return a, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id, displayName string, photo sql.NullString) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET display_name = ?, photo_path = ? WHERE id = ?;`, displayName, photo, id)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", id, err)
	}
	return expectRow(res, "update profile", id)
}

func (s *Store) MarkAccountVerified(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET verified = 1, verified_at = ? WHERE id = ?;`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("verify account %s: %w", id, err)
	}
	return expectRow(res, "verify account", id)
}

func (s *Store) CreateVerification(ctx context.Context, accountID, codeHash string, sentAt, expiresAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO verifications (account_id, code_hash, sent_at, expires_at, confirmed, attempts) VALUES (?, ?, ?, ?, 0, 0);`,
		accountID, codeHash, sentAt.UTC().Format(tsLayout), expiresAt.UTC().Format(tsLayout))
	if err != nil {
		return 0, fmt.Errorf("create verification: %w", err)
	}
	return res.LastInsertId()
}

// LatestVerification returns the most recently sent code for the account.
func (s *Store) LatestVerification(ctx context.Context, accountID string) (Verification, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, account_id, code_hash, sent_at, expires_at, confirmed, attempts
FROM verifications
WHERE account_id = ?
ORDER BY sent_at DESC, id DESC
LIMIT 1;`, accountID)
	var v Verification
	var sent, expires string
	var confirmed int
	err := row.Scan(&v.ID, &v.AccountID, &v.CodeHash, &sent, &expires, &confirmed, &v.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return Verification{}, fmt.Errorf("verification for %s: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return Verification{}, fmt.Errorf("latest verification: %w", err)
	}
	v.Confirmed = confirmed == 1
	v.SentAt, _ = time.Parse(tsLayout, sent)
	v.ExpiresAt, _ = time.Parse(tsLayout, expires)
	return v, nil
}

// CountVerificationsSince counts codes sent to the account at or after since.
func (s *Store) CountVerificationsSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verifications WHERE account_id = ? AND sent_at >= ?;`,
		accountID, since.UTC().Format(tsLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count verifications: %w", err)
	}
	return n, nil
}

// IncrementAttempts bumps the failed-attempt counter and returns the new value.
func (s *Store) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx,
		`UPDATE verifications SET attempts = attempts + 1 WHERE id = ? RETURNING attempts;`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("verification %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

func (s *Store) MarkVerificationConfirmed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE verifications SET confirmed = 1 WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("confirm verification %d: %w", id, err)
	}
	return expectRow(res, "confirm verification", id)
}

// ExpireVerification makes the code unusable as of at.
func (s *Store) ExpireVerification(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE verifications SET expires_at = ? WHERE id = ?;`,
		at.UTC().Format(tsLayout), id)
	if err != nil {
		return fmt.Errorf("expire verification %d: %w", id, err)
	}
	return expectRow(res, "expire verification", id)
}

func formatNullTime(t sql.NullTime) sql.NullString {
	if !t.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Time.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullTime(s sql.NullString) sql.NullTime {
	if !s.Valid {
		return sql.NullTime{}
	}
	ts, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: ts, Valid: true}
}
