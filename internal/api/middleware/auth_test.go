package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/mjqueue/internal/api/shared"
	"github.com/phrazzld/mjqueue/internal/testutils"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "client-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(time.Hour))
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(-time.Hour))
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), time.Now().Add(time.Hour))
	wrongAlg := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), time.Now().Add(time.Hour))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, wantStatus: http.StatusUnauthorized},
		{name: "wrong algorithm", header: "Bearer " + wrongAlg, wantStatus: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not-a-token", wantStatus: http.StatusUnauthorized},
	}

	m := NewAuthMiddleware(testSecret)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var subject string
			h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ = shared.GetSubject(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			r := httptest.NewRequest("GET", "/api/v1/queue", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, "client-1", subject)
			}
		})
	}
}

func TestTrace(t *testing.T) {
	t.Parallel()

	var traceID string
	h := Trace(testutils.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.NotEmpty(t, traceID)
	assert.Equal(t, traceID, w.Header().Get(TraceHeader))
}
