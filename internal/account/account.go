package account

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	mailer "studyhub/internal/mail"
	"studyhub/internal/storage"
	"studyhub/internal/task"
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUnknownAccount  = errors.New("no account for that email")
	ErrAlreadyVerified = errors.New("account already verified")
	ErrResendThrottled = errors.New("too many codes sent, try again later")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeInvalid     = errors.New("code invalid")
	ErrBadCredentials  = errors.New("wrong email or password")
	ErrNotVerified     = errors.New("email not verified")
	ErrUnsupportedFile = errors.New("photo must be .png, .jpg or .jpeg")
)

const (
	maxSendsPerWindow  = 3
	sendWindow         = 10 * time.Minute
	maxConfirmAttempts = 5
	defaultCodeTTL     = 5 * time.Minute
	minPasswordLen     = 8
)

// Repository is the slice of storage.Store the service needs.
type Repository interface {
	CreateAccount(ctx context.Context, a storage.Account) error
	AccountByEmail(ctx context.Context, email string) (storage.Account, error)
	UpdateProfile(ctx context.Context, id, displayName string, photo sql.NullString) error
	MarkAccountVerified(ctx context.Context, id string, at time.Time) error
	CreateVerification(ctx context.Context, accountID, codeHash string, sentAt, expiresAt time.Time) (int64, error)
	LatestVerification(ctx context.Context, accountID string) (storage.Verification, error)
	CountVerificationsSince(ctx context.Context, accountID string, since time.Time) (int, error)
	IncrementAttempts(ctx context.Context, id int64) (int, error)
	MarkVerificationConfirmed(ctx context.Context, id int64) error
	ExpireVerification(ctx context.Context, id int64, at time.Time) error
}

type Service struct {
	Repo     Repository
	Mail     mailer.Sender
	Clock    task.Clock
	PhotoDir string
	CodeTTL  time.Duration
	HashCost int
	// NewCode returns a fresh one-time code. Defaults to six random digits.
	NewCode func() (string, error)
}

func NewService(repo Repository, sender mailer.Sender, photoDir string) *Service {
	return &Service{
		Repo:     repo,
		Mail:     sender,
		Clock:    task.SystemClock{},
		PhotoDir: photoDir,
		CodeTTL:  defaultCodeTTL,
		HashCost: bcrypt.DefaultCost,
		NewCode:  randomCode,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// SignUp creates an unverified account. The caller sends the first code with SendCode.
func (s *Service) SignUp(ctx context.Context, email, displayName, password string) (storage.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return storage.Account{}, err
	}
	if len(password) < minPasswordLen {
		return storage.Account{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.HashCost)
	if err != nil {
		return storage.Account{}, fmt.Errorf("hash password: %w", err)
	}
	acct := storage.Account{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		CreatedAt:    s.Clock.Now(),
	}
	if err := s.Repo.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return storage.Account{}, ErrEmailTaken
		}
		return storage.Account{}, err
	}
	log.Printf("[account][signup] id=%s email=%s", acct.ID, acct.Email)
	return acct, nil
}

func (s *Service) lookup(ctx context.Context, email string) (storage.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return storage.Account{}, err
	}
	acct, err := s.Repo.AccountByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Account{}, ErrUnknownAccount
	}
	return acct, err
}

// SendCode issues a new verification code and mails it. Every send is a new
// code; earlier codes stop working.
func (s *Service) SendCode(ctx context.Context, email string) error {
	acct, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if acct.Verified {
		return ErrAlreadyVerified
	}

	now := s.Clock.Now()
	sent, err := s.Repo.CountVerificationsSince(ctx, acct.ID, now.Add(-sendWindow))
	if err != nil {
		return err
	}
	if sent >= maxSendsPerWindow {
		return ErrResendThrottled
	}

	code, err := s.NewCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.HashCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = defaultCodeTTL
	}
	body := fmt.Sprintf(`
		<h3>Verify your email</h3>
		<p>Your StudyHub verification code is <strong>%s</strong>.</p>
		<p>It expires in %d minutes. If you did not sign up, ignore this email.</p>
	`, code, int(ttl.Minutes()))
	if err := s.Mail.Send(acct.Email, "Your StudyHub verification code", body); err != nil {
		return err
	}
	// Stored only after delivery; a failed send keeps the previous code current.
	if _, err := s.Repo.CreateVerification(ctx, acct.ID, string(hash), now, now.Add(ttl)); err != nil {
		return err
	}
	log.Printf("[account][send] id=%s email=%s", acct.ID, acct.Email)
	return nil
}

// Verify checks code against the latest code sent to email and marks the
// account verified on success.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	acct, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if acct.Verified {
		return ErrAlreadyVerified
	}
	v, err := s.Repo.LatestVerification(ctx, acct.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrCodeInvalid
	}
	if err != nil {
		return err
	}
	if v.Confirmed {
		return ErrCodeInvalid
	}
	now := s.Clock.Now()
	if !now.Before(v.ExpiresAt) {
		return ErrCodeExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(strings.TrimSpace(code))); err != nil {
		attempts, incErr := s.Repo.IncrementAttempts(ctx, v.ID)
		if incErr != nil {
			return incErr
		}
		if attempts >= maxConfirmAttempts {
			if err := s.Repo.ExpireVerification(ctx, v.ID, now); err != nil {
				log.Printf("[account][verify] expire failed id=%d: %v", v.ID, err)
			}
			return ErrTooManyAttempts
		}
		return ErrCodeInvalid
	}

	if err := s.Repo.MarkVerificationConfirmed(ctx, v.ID); err != nil {
		return err
	}
	if err := s.Repo.MarkAccountVerified(ctx, acct.ID, now); err != nil {
		return err
	}
	log.Printf("[account][verify] ok id=%s", acct.ID)
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (storage.Account, error) {
	acct, err := s.lookup(ctx, email)
	if errors.Is(err, ErrUnknownAccount) || errors.Is(err, ErrInvalidEmail) {
		return storage.Account{}, ErrBadCredentials
	}
	if err != nil {
		return storage.Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return storage.Account{}, ErrBadCredentials
	}
	if !acct.Verified {
		return acct, ErrNotVerified
	}
	return acct, nil
}

func (s *Service) Profile(ctx context.Context, email string) (storage.Account, error) {
	return s.lookup(ctx, email)
}

// UpdateProfile sets the display name and, when photoSrc is non-empty,
// copies the photo into PhotoDir as <account id><ext>.
func (s *Service) UpdateProfile(ctx context.Context, email, displayName, photoSrc string) (storage.Account, error) {
	acct, err := s.lookup(ctx, email)
	if err != nil {
		return storage.Account{}, err
	}
	if name := strings.TrimSpace(displayName); name != "" {
		acct.DisplayName = name
	}
	if photoSrc != "" {
		dst, err := s.storePhoto(acct.ID, photoSrc)
		if err != nil {
			return storage.Account{}, err
		}
		acct.PhotoPath = sql.NullString{String: dst, Valid: true}
	}
	if err := s.Repo.UpdateProfile(ctx, acct.ID, acct.DisplayName, acct.PhotoPath); err != nil {
		return storage.Account{}, err
	}
	return acct, nil
}

// RemovePhoto clears the profile photo and deletes the stored copy.
func (s *Service) RemovePhoto(ctx context.Context, email string) error {
	acct, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if !acct.PhotoPath.Valid {
		return nil
	}
	if err := s.Repo.UpdateProfile(ctx, acct.ID, acct.DisplayName, sql.NullString{}); err != nil {
		return err
	}
	if err := os.Remove(acct.PhotoPath.String); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[account][photo] remove %s: %v", acct.PhotoPath.String, err)
	}
	return nil
}

func (s *Service) storePhoto(accountID, src string) (string, error) {
	ext := strings.ToLower(filepath.Ext(src))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return "", ErrUnsupportedFile
	}
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open photo: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(s.PhotoDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(s.PhotoDir, accountID+ext)
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("store photo: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	return dst, nil
}
