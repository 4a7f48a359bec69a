package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	auditsvc "github.com/Arianini/CSSECDV-MCO/internal/services/audit"
	authsvc "github.com/Arianini/CSSECDV-MCO/internal/services/auth"
)

type auditSinkStub struct {
	entries []model.AuditEntry
}

func (s *auditSinkStub) Insert(_ context.Context, entry model.AuditEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Minute)
	token, _, err := manager.GenerateAccessToken(42, enums.RoleManager)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var seen *authsvc.Identity
	handler := AuthMiddleware(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := authsvc.IdentityFromContext(r.Context()); ok {
			seen = &identity
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "missing header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "not a bearer token", authHeader: "Basic abc123", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + token, wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/manager/reports", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusOK {
				if seen == nil || seen.AccountID != 42 || seen.Role != enums.RoleManager {
					t.Fatalf("identity not propagated: %+v", seen)
				}
			} else if seen != nil {
				t.Fatalf("identity must not be set on rejection")
			}
		})
	}
}

func TestAuthMiddlewareRejectsForeignSecret(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Minute)
	token, _, err := manager.GenerateAccessToken(42, enums.RoleUser)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/check-restriction", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	handler := AuthMiddleware(authsvc.NewJWTManager("other-secret", time.Minute), nil)(okHandler())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireLevel(t *testing.T) {
	tests := []struct {
		name       string
		identity   *authsvc.Identity
		minimum    enums.Role
		wantStatus int
		wantAudit  bool
	}{
		{
			name:       "no identity",
			minimum:    enums.RoleManager,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "user below manager gate",
			identity:   &authsvc.Identity{AccountID: 1, Role: enums.RoleUser},
			minimum:    enums.RoleManager,
			wantStatus: http.StatusForbidden,
			wantAudit:  true,
		},
		{
			name:       "manager below admin gate",
			identity:   &authsvc.Identity{AccountID: 7, Role: enums.RoleManager},
			minimum:    enums.RoleAdministrator,
			wantStatus: http.StatusForbidden,
			wantAudit:  true,
		},
		{
			name:       "manager at manager gate",
			identity:   &authsvc.Identity{AccountID: 7, Role: enums.RoleManager},
			minimum:    enums.RoleManager,
			wantStatus: http.StatusOK,
		},
		{
			name:       "admin above manager gate",
			identity:   &authsvc.Identity{AccountID: 3, Role: enums.RoleAdministrator},
			minimum:    enums.RoleManager,
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sink := &auditSinkStub{}
			auditor := auditsvc.NewService(sink, nil)
			handler := RequireLevel(tc.minimum, auditor)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/manager/reports", nil)
			if tc.identity != nil {
				req = req.WithContext(authsvc.WithIdentity(req.Context(), *tc.identity))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, tc.wantStatus)
			}
			if tc.wantAudit {
				if len(sink.entries) != 1 {
					t.Fatalf("expected one audit entry, got %d", len(sink.entries))
				}
				entry := sink.entries[0]
				if entry.Action != auditsvc.ActionAccessDenied {
					t.Fatalf("unexpected audit action: %q", entry.Action)
				}
				if entry.ActorID == nil || *entry.ActorID != tc.identity.AccountID {
					t.Fatalf("audit entry actor: %+v", entry.ActorID)
				}
			} else if len(sink.entries) != 0 {
				t.Fatalf("unexpected audit entries: %d", len(sink.entries))
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		value string
		token string
		ok    bool
	}{
		{value: "", ok: false},
		{value: "Bearer", ok: false},
		{value: "Bearer   ", ok: false},
		{value: "Basic abc", ok: false},
		{value: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{value: "bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
	}

	for _, tc := range tests {
		token, ok := extractBearerToken(tc.value)
		if ok != tc.ok || token != tc.token {
			t.Fatalf("extractBearerToken(%q) = %q, %v", tc.value, token, ok)
		}
	}
}
