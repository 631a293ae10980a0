package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/integration-engine/internal/platform/ctxutil"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

const testSecret = "test-secret"

func authRouter(t *testing.T) (*gin.Engine, *uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	seen := new(uuid.UUID)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/me", NewAuthMiddleware(logger.Nop(), testSecret).RequireAuth(), func(c *gin.Context) {
		*seen = ctxutil.GetRequestData(c.Request.Context()).UserID
		c.Status(http.StatusNoContent)
	})
	return r, seen
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	r, seen := authRouter(t)
	userID := uuid.New()
	tok, err := IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, userID, *seen)
	require.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestRequireAuthRejects(t *testing.T) {
	r, _ := authRouter(t)
	expired, err := IssueToken(testSecret, uuid.New(), -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", uuid.New(), time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + foreign},
		{"garbage", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
		})
	}
}

func TestRequireAuthForbidsNilUser(t *testing.T) {
	am := NewAuthMiddleware(logger.Nop(), testSecret)
	tok, err := IssueToken(testSecret, uuid.Nil, time.Hour)
	require.NoError(t, err)
	ctx, err := am.SetContextFromToken(t.Context(), tok)
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, ctxutil.GetRequestData(ctx).UserID)

	r, _ := authRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
