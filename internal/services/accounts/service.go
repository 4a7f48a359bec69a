package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	pgrepo "github.com/Arianini/CSSECDV-MCO/internal/repo/postgres"
	"github.com/Arianini/CSSECDV-MCO/internal/security"
	"github.com/Arianini/CSSECDV-MCO/internal/services/audit"
	"github.com/Arianini/CSSECDV-MCO/internal/services/credentials"
)

// loginFailedMessage is deliberately identical for a wrong password and an
// unknown username so responses do not reveal which accounts exist.
const loginFailedMessage = "invalid username and/or password"

var (
	ErrInvalidCredentials = errors.New(loginFailedMessage)
	ErrAccountLocked      = errors.New("account is locked")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrNotFound           = errors.New("account not found")
	ErrForbidden          = errors.New("insufficient role")
)

// ValidationError carries the full list of violated policy rules so the
// client can show all of them at once.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

type AccountStore interface {
	Create(ctx context.Context, username, passwordHash, securityQuestion, securityAnswerHash string) (model.Account, error)
	FindByID(ctx context.Context, accountID int64) (model.Account, error)
	FindByUsername(ctx context.Context, username string) (model.Account, error)
	SetRole(ctx context.Context, accountID int64, role enums.Role, managedTags []enums.Tag) error
	SoftDelete(ctx context.Context, accountID int64) error
}

// CredentialPolicy is satisfied by the credentials service; declared here so
// tests can substitute policy outcomes without a store.
type CredentialPolicy interface {
	ValidatePassword(candidate string) credentials.PasswordCheck
	ValidateSecurityQuestion(question, answer string) credentials.QuestionCheck
	IsAccountLocked(account model.Account, now time.Time) credentials.LockState
	HandleFailedLogin(ctx context.Context, account model.Account) (credentials.LockState, error)
	HandleSuccessfulLogin(ctx context.Context, account model.Account, now time.Time) error
	IsPasswordReused(account model.Account, candidate string) bool
	UpdatePasswordHistory(ctx context.Context, account model.Account, newHash string) error
	CanChangePassword(account model.Account, now time.Time) credentials.ChangeCheck
}

type TokenIssuer interface {
	GenerateAccessToken(accountID int64, role enums.Role) (string, time.Time, error)
}

type Auditor interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

// LoginResult is what a successful authentication hands back: the account,
// a bearer token and the login before this one so the client can surface it.
type LoginResult struct {
	Account       model.Account
	Token         string
	TokenExpires  time.Time
	PreviousLogin *time.Time
}

// Service owns the account lifecycle: registration, authentication, password
// changes, role assignment and removal. Credential policy is delegated so the
// rules live in one place.
type Service struct {
	store  AccountStore
	policy CredentialPolicy
	tokens TokenIssuer
	audit  Auditor
	now    func() time.Time
}

func NewService(store AccountStore, policy CredentialPolicy, tokens TokenIssuer, auditor Auditor) *Service {
	return &Service{
		store:  store,
		policy: policy,
		tokens: tokens,
		audit:  auditor,
		now:    time.Now,
	}
}

// Register creates an account with the default role. Every policy violation
// is collected before anything is stored.
func (s *Service) Register(ctx context.Context, username, password, securityQuestion, securityAnswer, originIP string) (model.Account, error) {
	if s.store == nil || s.policy == nil {
		return model.Account{}, fmt.Errorf("account service dependencies are not configured")
	}

	var violations []string
	username = strings.TrimSpace(username)
	if l := len(username); l < 3 || l > 32 {
		violations = append(violations, "username must be between 3 and 32 characters")
	}
	if check := s.policy.ValidatePassword(password); !check.Valid {
		violations = append(violations, check.Errors...)
	}
	if check := s.policy.ValidateSecurityQuestion(securityQuestion, securityAnswer); !check.Valid {
		violations = append(violations, check.Message)
	}
	if len(violations) > 0 {
		return model.Account{}, &ValidationError{Violations: violations}
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}
	answerHash, err := security.HashPassword(strings.ToLower(strings.TrimSpace(securityAnswer)))
	if err != nil {
		return model.Account{}, fmt.Errorf("hash security answer: %w", err)
	}

	account, err := s.store.Create(ctx, username, passwordHash, strings.TrimSpace(securityQuestion), answerHash)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUsernameTaken) {
			return model.Account{}, ErrUsernameTaken
		}
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.record(ctx, &account.ID, audit.ActionAccountRegistered, account.ID, fmt.Sprintf("username=%s", account.Username), originIP)
	return account, nil
}

// Login authenticates a username/password pair. Unknown usernames, wrong
// passwords and deleted accounts all produce the same error; lockout is
// reported with the remaining time but without confirming the password.
func (s *Service) Login(ctx context.Context, username, password, originIP string) (LoginResult, error) {
	if s.store == nil || s.policy == nil || s.tokens == nil {
		return LoginResult{}, fmt.Errorf("account service dependencies are not configured")
	}
	now := s.now().UTC()

	account, err := s.store.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			// Burn a comparison so the response time does not separate
			// unknown usernames from wrong passwords.
			security.Matches(dummyHash, password)
			s.record(ctx, nil, audit.ActionLoginFailed, 0, fmt.Sprintf("unknown username %q", username), originIP)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find account: %w", err)
	}

	if lock := s.policy.IsAccountLocked(account, now); lock.Locked {
		s.record(ctx, &account.ID, audit.ActionLoginFailed, account.ID, "attempt while locked", originIP)
		return LoginResult{}, fmt.Errorf("%w: %s", ErrAccountLocked, lock.Message)
	}

	if !security.Matches(account.PasswordHash, password) {
		lock, failErr := s.policy.HandleFailedLogin(ctx, account)
		if failErr != nil {
			return LoginResult{}, failErr
		}
		if lock.Locked {
			s.record(ctx, &account.ID, audit.ActionAccountLocked, account.ID, lock.Message, originIP)
			return LoginResult{}, fmt.Errorf("%w: %s", ErrAccountLocked, lock.Message)
		}
		s.record(ctx, &account.ID, audit.ActionLoginFailed, account.ID, "wrong password", originIP)
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.policy.HandleSuccessfulLogin(ctx, account, now); err != nil {
		return LoginResult{}, err
	}

	token, expires, err := s.tokens.GenerateAccessToken(account.ID, account.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	previous := account.LastLogin
	s.record(ctx, &account.ID, audit.ActionLoginSuccess, account.ID, "", originIP)

	account.PreviousLogin = previous
	account.LastLogin = &now
	account.FailedLogins = 0
	account.LockoutUntil = nil
	return LoginResult{
		Account:       account,
		Token:         token,
		TokenExpires:  expires,
		PreviousLogin: previous,
	}, nil
}

// ChangePassword re-authenticates with the current password, then runs the
// full policy gauntlet: complexity, reuse against the history, and minimum
// age. Rejections are audited with the reason.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, currentPassword, newPassword, originIP string) error {
	if s.store == nil || s.policy == nil {
		return fmt.Errorf("account service dependencies are not configured")
	}

	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}

	if !security.Matches(account.PasswordHash, currentPassword) {
		s.record(ctx, &account.ID, audit.ActionPasswordRejected, account.ID, "current password mismatch", originIP)
		return ErrInvalidCredentials
	}

	if check := s.policy.CanChangePassword(account, s.now().UTC()); !check.Allowed {
		s.record(ctx, &account.ID, audit.ActionPasswordRejected, account.ID, check.Message, originIP)
		return &ValidationError{Violations: []string{check.Message}}
	}
	if check := s.policy.ValidatePassword(newPassword); !check.Valid {
		s.record(ctx, &account.ID, audit.ActionPasswordRejected, account.ID, "complexity policy violated", originIP)
		return &ValidationError{Violations: check.Errors}
	}
	if s.policy.IsPasswordReused(account, newPassword) {
		s.record(ctx, &account.ID, audit.ActionPasswordRejected, account.ID, "password reuse", originIP)
		return &ValidationError{Violations: []string{"new password must differ from recent passwords"}}
	}

	newHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.policy.UpdatePasswordHistory(ctx, account, newHash); err != nil {
		return err
	}

	s.record(ctx, &account.ID, audit.ActionPasswordChanged, account.ID, "", originIP)
	return nil
}

// ChangeRole assigns a role; administrators only. Managed tags are accepted
// only when the new role is manager, and each tag must be known.
func (s *Service) ChangeRole(ctx context.Context, actor model.Account, targetID int64, role enums.Role, managedTags []enums.Tag, originIP string) error {
	if s.store == nil {
		return fmt.Errorf("account service dependencies are not configured")
	}
	if actor.Role != enums.RoleAdministrator {
		s.record(ctx, &actor.ID, audit.ActionAccessDenied, targetID, "role change denied", originIP)
		return ErrForbidden
	}
	if !role.Valid() {
		return &ValidationError{Violations: []string{fmt.Sprintf("unknown role %q", role)}}
	}
	if role != enums.RoleManager && len(managedTags) > 0 {
		return &ValidationError{Violations: []string{"managed tags require the manager role"}}
	}
	for _, tag := range managedTags {
		if !tag.Valid() {
			return &ValidationError{Violations: []string{fmt.Sprintf("unknown tag %q", tag)}}
		}
	}

	if err := s.store.SetRole(ctx, targetID, role, managedTags); err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("set role: %w", err)
	}

	s.record(ctx, &actor.ID, audit.ActionRoleChanged, targetID, fmt.Sprintf("role=%s tags=%v", role, managedTags), originIP)
	return nil
}

// Delete soft-deletes an account; administrators only. The row survives so
// the audit trail and the restriction ledger keep valid references.
func (s *Service) Delete(ctx context.Context, actor model.Account, targetID int64, originIP string) error {
	if s.store == nil {
		return fmt.Errorf("account service dependencies are not configured")
	}
	if actor.Role != enums.RoleAdministrator {
		s.record(ctx, &actor.ID, audit.ActionAccessDenied, targetID, "account delete denied", originIP)
		return ErrForbidden
	}

	if err := s.store.SoftDelete(ctx, targetID); err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("soft delete account: %w", err)
	}

	s.record(ctx, &actor.ID, audit.ActionAccountDeleted, targetID, "", originIP)
	return nil
}

// GetByID loads an account for request handling.
func (s *Service) GetByID(ctx context.Context, accountID int64) (model.Account, error) {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func (s *Service) record(ctx context.Context, actorID *int64, action string, targetID int64, detail, originIP string) {
	if s.audit == nil {
		return
	}
	target := ""
	if targetID > 0 {
		target = strconv.FormatInt(targetID, 10)
	}
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		TargetType: audit.TargetAccount,
		TargetID:   target,
		Detail:     detail,
		OriginIP:   originIP,
	})
}

// dummyHash is a bcrypt digest of a random value, used only to equalize
// timing on unknown-username login attempts.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
