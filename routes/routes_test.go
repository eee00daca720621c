package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"FitCoachAI/middleware"
	"FitCoachAI/pkg/database"
	"FitCoachAI/pkg/limiter"
	"FitCoachAI/pkg/memory"
	"FitCoachAI/pkg/services"
	"FitCoachAI/pkg/store"
)

func newTestRouter(t *testing.T, capacity int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("open datastore: %v", err)
	}
	provider, err := services.NewProvider(context.Background(), services.ProviderOptions{Kind: "mock"})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	if m, ok := provider.(*services.MockProvider); ok {
		m.Delay = 0
	}
	mem := memory.New(10, time.Hour, 20)
	t.Cleanup(mem.Close)
	rl := limiter.NewMemory(capacity, time.Minute)
	t.Cleanup(rl.Close)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	RegisterRoutes(r, Deps{
		Chats:   services.NewChatService(store.NewGormStore(db), provider, mem),
		Limiter: rl,
	})
	return r
}

func serve(r *gin.Engine, method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEndpointsRequireBearer(t *testing.T) {
	r := newTestRouter(t, 10)
	endpoints := []struct{ method, path, body string }{
		{http.MethodPost, "/chat", `{"input":"hi"}`},
		{http.MethodGet, "/chats", ""},
		{http.MethodGet, "/chat/1", ""},
		{http.MethodDelete, "/chat/1", ""},
		{http.MethodGet, "/ws/chat", ""},
	}
	for _, ep := range endpoints {
		for _, auth := range []string{"", "Token abc", "Bearer"} {
			if w := serve(r, ep.method, ep.path, ep.body, auth); w.Code != http.StatusUnauthorized {
				t.Errorf("%s %s with %q: status = %d", ep.method, ep.path, auth, w.Code)
			}
		}
	}
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t, 10)
	w := serve(r, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestChatRoundTripWithMockProvider(t *testing.T) {
	r := newTestRouter(t, 10)
	w := serve(r, http.MethodPost, "/chat", `{"input":"Give me a push-up progression"}`, "Bearer abc")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"id":1`) {
		t.Errorf("body = %s", w.Body.String())
	}
	if w := serve(r, http.MethodGet, "/chat/1", "", "Bearer abc"); w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}
}

func TestChatIsRateLimited(t *testing.T) {
	r := newTestRouter(t, 2)
	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodPost, "/chat", `{}`, "Bearer abc"); w.Code != http.StatusBadRequest {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := serve(r, http.MethodPost, "/chat", `{"input":"hi"}`, "Bearer abc")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	// listing is not limited
	if w := serve(r, http.MethodGet, "/chats", "", "Bearer abc"); w.Code != http.StatusOK {
		t.Errorf("list status = %d", w.Code)
	}
}
