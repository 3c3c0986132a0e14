package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/core/apperror"
	appctx "stockroom/internal/core/context"
)

type stubValidator map[string]*appctx.UserContext

func (s stubValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

func newEngine(v JWTValidator, permission string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), Trace(), ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/fail", func(c *gin.Context) { _ = c.Error(errors.New("raw")) })
	protected := r.Group("", Auth(v))
	protected.GET("/thing", RequirePermission(permission), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": appctx.GetUserID(c.Request.Context())})
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthAndPermission(t *testing.T) {
	r := newEngine(stubValidator{
		"clerk": {UserID: "clerk", Permissions: []string{"inventory:read"}},
		"guest": {UserID: "guest"},
		"root":  {UserID: "root", IsAdmin: true},
	}, "inventory:read")

	tests := []struct {
		name   string
		token  string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"bad token", "nope", http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"lacks permission", "guest", http.StatusForbidden, apperror.CodeForbidden},
		{"has permission", "clerk", http.StatusOK, ""},
		{"admin bypass", "root", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, "/thing", tt.token)
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
			} else {
				assert.Equal(t, tt.token, body["user"])
			}
		})
	}
}

func TestAuth_RejectsMalformedHeader(t *testing.T) {
	r := newEngine(stubValidator{}, "x")
	req := httptest.NewRequest(http.MethodGet, "/thing", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecovery_Renders500(t *testing.T) {
	w := do(newEngine(stubValidator{}, "x"), "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, decode(t, w)["code"])
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestErrorHandler_HidesUnknownErrors(t *testing.T) {
	w := do(newEngine(stubValidator{}, "x"), "/fail", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, apperror.CodeInternal, body["code"])
	assert.NotContains(t, w.Body.String(), "raw")
}

func TestTrace_KeepsInboundRequestID(t *testing.T) {
	r := newEngine(stubValidator{}, "x")
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	assert.Contains(t, w.Body.String(), "req-42")
}
