package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/platform/ctxutil"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/services"
)

const testSecret = "middleware-test-secret"

type staticRoles map[uuid.UUID]types.Role

func (s staticRoles) ActorRole(_ context.Context, id uuid.UUID) (types.Role, error) {
	role, ok := s[id]
	if !ok {
		return "", domainagg.Forbidden("actor.role", "Profile not found")
	}
	return role, nil
}

func newAuthRouter(t *testing.T, roles staticRoles) (*gin.Engine, services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth := services.NewAuthService(logger.Nop(), testSecret)
	am := NewAuthMiddleware(logger.Nop(), auth, roles)

	r := gin.New()
	api := r.Group("/api", am.RequireAuth())
	api.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.ActorID(c.Request.Context()).String())
	})
	api.GET("/admin", am.RequireRole(types.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, auth
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	r, auth := newAuthRouter(t, staticRoles{})
	userID := uuid.New()
	token, err := auth.IssueToken(userID, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	rec := get(r, "/api/whoami", token)
	if rec.Code != http.StatusOK || rec.Body.String() != userID.String() {
		t.Fatalf("authorized request: %d %s", rec.Code, rec.Body.String())
	}

	for name, tok := range map[string]string{"missing": "", "garbage": "not-a-jwt"} {
		rec := get(r, "/api/whoami", tok)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s token: status=%d", name, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"code":"unauthorized"`) {
			t.Fatalf("%s token body: %s", name, rec.Body.String())
		}
	}
}

func TestRequireRole(t *testing.T) {
	admin, qa, stranger := uuid.New(), uuid.New(), uuid.New()
	r, auth := newAuthRouter(t, staticRoles{admin: types.RoleAdmin, qa: types.RoleQA})

	cases := []struct {
		name   string
		user   uuid.UUID
		status int
	}{
		{"admin", admin, http.StatusNoContent},
		{"qa", qa, http.StatusForbidden},
		{"no profile", stranger, http.StatusForbidden},
	}
	for _, tc := range cases {
		token, _ := auth.IssueToken(tc.user, time.Minute)
		if rec := get(r, "/api/admin", token); rec.Code != tc.status {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.status, rec.Code)
		}
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-123")
	req.Header.Set(headerTraceID, strings.Repeat("x", maxInboundIDLen+1))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-123" {
		t.Fatalf("request id not propagated: %+v", seen)
	}
	if seen.TraceID == "" || len(seen.TraceID) > maxInboundIDLen {
		t.Fatalf("oversized trace id accepted: %q", seen.TraceID)
	}
	if rec.Header().Get(headerTraceID) != seen.TraceID {
		t.Fatalf("trace header not echoed")
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestLogger(logger.FromZap(zap.New(core))))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db down"))
		c.Status(http.StatusInternalServerError)
	})

	for _, p := range []string{"/ok", "/bad", "/boom"} {
		get(r, p, "")
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("log entries: %d", len(entries))
	}
	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Fatalf("entry %d level: want=%s got=%s", i, want[i], e.Level)
		}
	}
	if got := entries[2].ContextMap()["error"]; got == nil || !strings.Contains(got.(string), "db down") {
		t.Fatalf("error field missing: %v", entries[2].ContextMap())
	}
}
