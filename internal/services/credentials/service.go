package credentials

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/rules"
	"github.com/Arianini/CSSECDV-MCO/internal/security"
)

// Answers nobody should be allowed to protect an account with.
var deniedSecurityAnswers = map[string]struct{}{
	"password": {},
	"123456":   {},
	"qwerty":   {},
	"abc":      {},
	"admin":    {},
	"test":     {},
	"answer":   {},
	"aaa":      {},
	"none":     {},
	"idk":      {},
}

type AccountStore interface {
	MarkLoginFailure(ctx context.Context, accountID int64, maxAttempts int, lockUntil time.Time) (bool, error)
	RecordSuccessfulLogin(ctx context.Context, accountID int64, now time.Time) error
	UpdatePassword(ctx context.Context, accountID int64, newHash string, historySize int, now time.Time) error
}

type Config struct {
	MaxFailedLogins     int
	LockoutDuration     time.Duration
	PasswordMinAge      time.Duration
	PasswordHistorySize int
}

// Service enforces the credential policy: password complexity, reuse and age,
// account lockout, and security-question hygiene. Expected policy outcomes
// are returned as structured results, never as errors; callers decide how to
// respond.
type Service struct {
	store AccountStore
	cfg   Config
	now   func() time.Time
}

type PasswordCheck struct {
	Valid  bool
	Errors []string
}

type LockState struct {
	Locked  bool
	Message string
}

type ChangeCheck struct {
	Allowed bool
	Message string
}

type QuestionCheck struct {
	Valid   bool
	Message string
}

func NewService(store AccountStore, cfg Config) *Service {
	if cfg.MaxFailedLogins <= 0 {
		cfg.MaxFailedLogins = rules.MaxFailedLogins
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = rules.LockoutDuration
	}
	if cfg.PasswordMinAge <= 0 {
		cfg.PasswordMinAge = rules.PasswordMinAge
	}
	if cfg.PasswordHistorySize <= 0 {
		cfg.PasswordHistorySize = rules.PasswordHistorySize
	}
	return &Service{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// ValidatePassword collects every violated rule so the caller can present the
// complete list. Input is checked as given; nothing is trimmed or corrected.
func (s *Service) ValidatePassword(candidate string) PasswordCheck {
	var violations []string

	if len(candidate) < rules.PasswordMinLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters", rules.PasswordMinLength))
	}
	if len(candidate) > rules.PasswordMaxLength {
		violations = append(violations, fmt.Sprintf("password must be at most %d characters", rules.PasswordMaxLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper {
		violations = append(violations, "password must contain an uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "password must contain a lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain a digit")
	}
	if !hasSpecial {
		violations = append(violations, "password must contain a special character")
	}

	return PasswordCheck{Valid: len(violations) == 0, Errors: violations}
}

func (s *Service) IsAccountLocked(account model.Account, now time.Time) LockState {
	if account.LockoutUntil == nil || !account.LockoutUntil.After(now) {
		return LockState{}
	}
	minutes := rules.RemainingLockMinutes(*account.LockoutUntil, now)
	return LockState{
		Locked:  true,
		Message: fmt.Sprintf("account is locked, try again in %d minute(s)", minutes),
	}
}

// HandleFailedLogin bumps the failure counter through the store's atomic
// increment so concurrent attempts never lose updates, and reports whether
// the account is now locked.
func (s *Service) HandleFailedLogin(ctx context.Context, account model.Account) (LockState, error) {
	if s.store == nil {
		return LockState{}, fmt.Errorf("credential store is not configured")
	}

	now := s.now().UTC()
	locked, err := s.store.MarkLoginFailure(ctx, account.ID, s.cfg.MaxFailedLogins, now.Add(s.cfg.LockoutDuration))
	if err != nil {
		return LockState{}, fmt.Errorf("mark login failure: %w", err)
	}
	if !locked {
		return LockState{}, nil
	}
	minutes := rules.RemainingLockMinutes(now.Add(s.cfg.LockoutDuration), now)
	return LockState{
		Locked:  true,
		Message: fmt.Sprintf("account is locked, try again in %d minute(s)", minutes),
	}, nil
}

func (s *Service) HandleSuccessfulLogin(ctx context.Context, account model.Account, now time.Time) error {
	if s.store == nil {
		return fmt.Errorf("credential store is not configured")
	}
	if err := s.store.RecordSuccessfulLogin(ctx, account.ID, now); err != nil {
		return fmt.Errorf("record successful login: %w", err)
	}
	return nil
}

// IsPasswordReused checks the candidate against the current credential and
// the bounded history via constant-time hash comparison.
func (s *Service) IsPasswordReused(account model.Account, candidate string) bool {
	if security.Matches(account.PasswordHash, candidate) {
		return true
	}
	for _, hash := range account.PasswordHistory {
		if security.Matches(hash, candidate) {
			return true
		}
	}
	return false
}

// UpdatePasswordHistory pushes the outgoing hash onto the history (trimmed to
// the configured depth), installs the new hash and stamps the change time.
func (s *Service) UpdatePasswordHistory(ctx context.Context, account model.Account, newHash string) error {
	if s.store == nil {
		return fmt.Errorf("credential store is not configured")
	}
	if err := s.store.UpdatePassword(ctx, account.ID, newHash, s.cfg.PasswordHistorySize, s.now().UTC()); err != nil {
		return fmt.Errorf("update password history: %w", err)
	}
	return nil
}

// CanChangePassword enforces the minimum password age. A first-ever change
// (no recorded change time) is always allowed.
func (s *Service) CanChangePassword(account model.Account, now time.Time) ChangeCheck {
	if account.PasswordChangedAt == nil {
		return ChangeCheck{Allowed: true}
	}
	eligibleAt := account.PasswordChangedAt.Add(s.cfg.PasswordMinAge)
	if !now.Before(eligibleAt) {
		return ChangeCheck{Allowed: true}
	}
	return ChangeCheck{
		Allowed: false,
		Message: fmt.Sprintf("password was changed recently, try again after %s", eligibleAt.UTC().Format(time.RFC3339)),
	}
}

// ValidateSecurityQuestion rejects trivially guessable answers. The answer is
// compared lower-cased and trimmed; the stored answer keeps its original form
// for hashing.
func (s *Service) ValidateSecurityQuestion(question, answer string) QuestionCheck {
	if strings.TrimSpace(question) == "" {
		return QuestionCheck{Message: "security question is required"}
	}
	normalized := strings.ToLower(strings.TrimSpace(answer))
	if len(normalized) < rules.SecurityAnswerMinLength {
		return QuestionCheck{Message: fmt.Sprintf("security answer must be at least %d characters", rules.SecurityAnswerMinLength)}
	}
	if _, denied := deniedSecurityAnswers[normalized]; denied {
		return QuestionCheck{Message: "security answer is too easy to guess"}
	}
	return QuestionCheck{Valid: true}
}
