package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"FitCoachAI/pkg/limiter"
	"FitCoachAI/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

func TestBearerAuthShape(t *testing.T) {
	r := gin.New()
	r.GET("/chats", BearerAuth(""), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextTokenKey))
	})

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer a b", http.StatusUnauthorized},
		{"Bearer abc123", http.StatusOK},
		{"bearer abc123", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/chats", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Errorf("%q: status = %d, want %d", tc.header, w.Code, tc.status)
		}
		if tc.status == http.StatusUnauthorized && decodeError(t, w) == "" {
			t.Errorf("%q: missing error body", tc.header)
		}
		if tc.status == http.StatusOK && w.Body.String() != "abc123" {
			t.Errorf("%q: token in context = %q", tc.header, w.Body.String())
		}
	}
}

func TestBearerAuthVerifiesJWTWhenSecretSet(t *testing.T) {
	const secret = "s3cret"
	r := gin.New()
	r.GET("/chats", BearerAuth(secret), okHandler)

	sign := func(key string, method jwt.SigningMethod) string {
		tok := jwt.NewWithClaims(method, jwt.MapClaims{"sub": "42", "exp": time.Now().Add(time.Hour).Unix()})
		s, err := tok.SignedString([]byte(key))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	cases := map[string]struct {
		token  string
		status int
	}{
		"valid":     {sign(secret, jwt.SigningMethodHS256), http.StatusOK},
		"wrong key": {sign("other", jwt.SigningMethodHS256), http.StatusUnauthorized},
		"wrong alg": {sign(secret, jwt.SigningMethodHS512), http.StatusUnauthorized},
		"opaque":    {"not-a-jwt", http.StatusUnauthorized},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/chats", nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", name, w.Code, tc.status)
		}
	}
}

func TestQueryTokenAuth(t *testing.T) {
	r := gin.New()
	r.GET("/ws/chat", QueryTokenAuth(""), okHandler)

	for target, want := range map[string]int{
		"/ws/chat?token=abc": http.StatusOK,
		"/ws/chat?token=":    http.StatusUnauthorized,
		"/ws/chat":           http.StatusUnauthorized,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		if w.Code != want {
			t.Errorf("%s: status = %d, want %d", target, w.Code, want)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("header fallback: status = %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		seen, _ = c.Request.Context().Value(logger.RequestIDKey).(string)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("generated id: ctx=%q header=%q", seen, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if seen != "client-id-1" || w.Header().Get(RequestIDHeader) != "client-id-1" {
		t.Fatalf("propagated id: ctx=%q header=%q", seen, w.Header().Get(RequestIDHeader))
	}
}

func TestErrorHandlerRendersGeneric500(t *testing.T) {
	r := gin.New()
	r.Use(Logging(), ErrorHandler())
	r.POST("/chat", func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp: connection refused"))
		c.Abort()
	})
	r.GET("/ok", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := decodeError(t, w); msg != "Internal server error" {
		t.Errorf("error = %q", msg)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Errorf("clean request status = %d", w.Code)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (limiter.Result, error) {
	return limiter.Result{}, errors.New("redis: connection refused")
}

func TestRateLimit(t *testing.T) {
	l := limiter.NewMemory(2, time.Minute)
	defer l.Close()

	r := gin.New()
	r.POST("/chat", BearerAuth(""), RateLimit(l), okHandler)

	send := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := send("alice"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := send("alice")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if decodeError(t, w) != "too many requests" {
		t.Errorf("body = %s", w.Body.String())
	}
	if w.Header().Get("Retry-After") == "" || w.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("headers = %v", w.Header())
	}
	if w := send("bob"); w.Code != http.StatusOK {
		t.Errorf("other token limited: %d", w.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.POST("/chat", RateLimit(failingLimiter{}), okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when limiter is down", w.Code)
	}
}
