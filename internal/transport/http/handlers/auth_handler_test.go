package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	pgrepo "github.com/Arianini/CSSECDV-MCO/internal/repo/postgres"
	acctsvc "github.com/Arianini/CSSECDV-MCO/internal/services/accounts"
	authsvc "github.com/Arianini/CSSECDV-MCO/internal/services/auth"
	credsvc "github.com/Arianini/CSSECDV-MCO/internal/services/credentials"
)

// accountStoreStub backs both the account service and the credential policy
// so a single in-memory map drives the full registration/login path.
type accountStoreStub struct {
	accounts map[int64]model.Account
	byName   map[string]int64
}

func newAccountStoreStub(accounts ...model.Account) *accountStoreStub {
	s := &accountStoreStub{accounts: make(map[int64]model.Account), byName: make(map[string]int64)}
	for _, a := range accounts {
		s.accounts[a.ID] = a
		s.byName[a.Username] = a.ID
	}
	return s
}

func (s *accountStoreStub) Create(_ context.Context, username, passwordHash, securityQuestion, securityAnswerHash string) (model.Account, error) {
	if _, taken := s.byName[username]; taken {
		return model.Account{}, pgrepo.ErrUsernameTaken
	}
	a := model.Account{
		ID:                 int64(len(s.accounts) + 1),
		Username:           username,
		PasswordHash:       passwordHash,
		Role:               enums.RoleUser,
		SecurityQuestion:   securityQuestion,
		SecurityAnswerHash: securityAnswerHash,
		CreatedAt:          time.Now(),
	}
	s.accounts[a.ID] = a
	s.byName[username] = a.ID
	return a, nil
}

func (s *accountStoreStub) FindByID(_ context.Context, accountID int64) (model.Account, error) {
	a, ok := s.accounts[accountID]
	if !ok {
		return model.Account{}, pgrepo.ErrAccountNotFound
	}
	return a, nil
}

func (s *accountStoreStub) FindByUsername(_ context.Context, username string) (model.Account, error) {
	id, ok := s.byName[username]
	if !ok {
		return model.Account{}, pgrepo.ErrAccountNotFound
	}
	return s.accounts[id], nil
}

func (s *accountStoreStub) SetRole(_ context.Context, accountID int64, role enums.Role, managedTags []enums.Tag) error {
	a, ok := s.accounts[accountID]
	if !ok {
		return pgrepo.ErrAccountNotFound
	}
	a.Role = role
	a.ManagedTags = managedTags
	s.accounts[accountID] = a
	return nil
}

func (s *accountStoreStub) SoftDelete(_ context.Context, accountID int64) error {
	if _, ok := s.accounts[accountID]; !ok {
		return pgrepo.ErrAccountNotFound
	}
	return nil
}

func (s *accountStoreStub) MarkLoginFailure(_ context.Context, accountID int64, maxAttempts int, lockUntil time.Time) (bool, error) {
	a, ok := s.accounts[accountID]
	if !ok {
		return false, pgrepo.ErrAccountNotFound
	}
	a.FailedLogins++
	locked := a.FailedLogins >= maxAttempts
	if locked {
		a.LockoutUntil = &lockUntil
	}
	s.accounts[accountID] = a
	return locked, nil
}

func (s *accountStoreStub) RecordSuccessfulLogin(_ context.Context, accountID int64, now time.Time) error {
	a, ok := s.accounts[accountID]
	if !ok {
		return pgrepo.ErrAccountNotFound
	}
	a.PreviousLogin = a.LastLogin
	a.LastLogin = &now
	a.FailedLogins = 0
	a.LockoutUntil = nil
	s.accounts[accountID] = a
	return nil
}

func (s *accountStoreStub) UpdatePassword(_ context.Context, accountID int64, newHash string, historySize int, now time.Time) error {
	a, ok := s.accounts[accountID]
	if !ok {
		return pgrepo.ErrAccountNotFound
	}
	a.PasswordHistory = append([]string{a.PasswordHash}, a.PasswordHistory...)
	if len(a.PasswordHistory) > historySize {
		a.PasswordHistory = a.PasswordHistory[:historySize]
	}
	a.PasswordHash = newHash
	a.PasswordChangedAt = &now
	s.accounts[accountID] = a
	return nil
}

type auditorStub struct {
	entries []model.AuditEntry
}

func (a *auditorStub) Record(_ context.Context, entry model.AuditEntry) {
	a.entries = append(a.entries, entry)
}

type tokenStub struct{}

func (tokenStub) GenerateAccessToken(int64, enums.Role) (string, time.Time, error) {
	return "test-token", time.Now().Add(time.Hour), nil
}

func newAccountService(store *accountStoreStub) *acctsvc.Service {
	policy := credsvc.NewService(store, credsvc.Config{})
	return acctsvc.NewService(store, policy, tokenStub{}, &auditorStub{})
}

func quickHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hash)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string, identity *authsvc.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if identity != nil {
		req = req.WithContext(authsvc.WithIdentity(req.Context(), *identity))
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestRegisterReturnsAllViolations(t *testing.T) {
	h := NewAuthHandler(newAccountService(newAccountStoreStub()))

	rr := postJSON(t, h.Register, "/auth/register",
		`{"username":"ab","password":"short","security_question":"Pet?","security_answer":"idk"}`, nil)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	var payload struct {
		Violations []string `json:"violations"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Violations) < 4 {
		t.Fatalf("expected the full violation list, got %v", payload.Violations)
	}
}

func TestRegisterConflictOnTakenUsername(t *testing.T) {
	store := newAccountStoreStub(model.Account{ID: 1, Username: "alice"})
	h := NewAuthHandler(newAccountService(store))

	rr := postJSON(t, h.Register, "/auth/register",
		`{"username":"alice","password":"Sufficient1!","security_question":"First pet?","security_answer":"rover"}`, nil)

	if rr.Code != http.StatusConflict {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusConflict)
	}
}

func TestLoginFailureMessagesDoNotRevealAccounts(t *testing.T) {
	store := newAccountStoreStub(model.Account{
		ID: 1, Username: "alice", PasswordHash: quickHash(t, "Correct1!"), Role: enums.RoleUser,
	})
	h := NewAuthHandler(newAccountService(store))

	unknown := postJSON(t, h.Login, "/auth/login", `{"username":"nobody","password":"x"}`, nil)
	wrong := postJSON(t, h.Login, "/auth/login", `{"username":"alice","password":"Wrong1!"}`, nil)

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected statuses: %d and %d", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Fatalf("failure bodies must match:\n%s\n%s", unknown.Body.String(), wrong.Body.String())
	}
}

func TestLoginSuccessReturnsTokenAndPreviousLogin(t *testing.T) {
	previous := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Second)
	store := newAccountStoreStub(model.Account{
		ID: 1, Username: "alice", PasswordHash: quickHash(t, "Correct1!"), Role: enums.RoleUser, LastLogin: &previous,
	})
	h := NewAuthHandler(newAccountService(store))

	rr := postJSON(t, h.Login, "/auth/login", `{"username":"alice","password":"Correct1!"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body %s", rr.Code, rr.Body.String())
	}

	var payload struct {
		AccessToken   string     `json:"access_token"`
		PreviousLogin *time.Time `json:"previous_login"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.AccessToken == "" {
		t.Fatalf("expected an access token")
	}
	if payload.PreviousLogin == nil || !payload.PreviousLogin.Equal(previous) {
		t.Fatalf("expected previous login %v, got %v", previous, payload.PreviousLogin)
	}
}

func TestChangePasswordRequiresIdentity(t *testing.T) {
	h := NewAuthHandler(newAccountService(newAccountStoreStub()))

	rr := postJSON(t, h.ChangePassword, "/auth/password",
		`{"current_password":"a","new_password":"b"}`, nil)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestChangePasswordRejectsReuse(t *testing.T) {
	store := newAccountStoreStub(model.Account{
		ID: 1, Username: "alice", PasswordHash: quickHash(t, "Correct1!"), Role: enums.RoleUser,
	})
	h := NewAuthHandler(newAccountService(store))
	identity := &authsvc.Identity{AccountID: 1, Role: enums.RoleUser}

	rr := postJSON(t, h.ChangePassword, "/auth/password",
		`{"current_password":"Correct1!","new_password":"Correct1!"}`, identity)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: got %d body %s", rr.Code, rr.Body.String())
	}
}
