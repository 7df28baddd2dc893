package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"guildkeeper/internal/config"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:admindb?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func newTestRouter(t *testing.T, status StatusFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if status == nil {
		status = func() Status { return Status{} }
	}
	cfg := config.Config{OTEL: config.OTELConfig{ServiceName: "test-svc"}}
	return NewRouter(newTestDB(t), cfg, zerolog.Nop(), status)
}

func TestRouter_Healthz(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("response missing X-Request-ID")
	}
}

func TestRouter_Readyz(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /readyz = %d; body=%s", w.Code, w.Body.String())
	}
}

func TestRouter_Statusz(t *testing.T) {
	r := newTestRouter(t, func() Status {
		return Status{GatewayConnected: true, GuardInFlight: 2, WizardSessions: 5}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/statusz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /statusz = %d", w.Code)
	}
	var got Status
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode statusz: %v", err)
	}
	if !got.GatewayConnected || got.GuardInFlight != 2 || got.WizardSessions != 5 {
		t.Fatalf("statusz payload unexpected: %+v", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	r.ServeHTTP(w, req)

	if w.Body.String() != "abc-123" || w.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("incoming request id not propagated: body=%q header=%q", w.Body.String(), w.Header().Get(requestIDHeader))
	}

	// Absent header -> a fresh id is generated.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("request id not generated")
	}
}

func TestRecovery_PanicBecomesJSON500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(zerolog.Nop()))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("panic returned %d; want 500", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode 500 body: %v", err)
	}
	if body["error"] != "internal server error" || body["request_id"] == "" {
		t.Fatalf("500 body unexpected: %v", body)
	}
}

func TestServe_DisabledBlocksUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		cfg := config.Config{Admin: config.AdminConfig{Enabled: false}}
		done <- Serve(ctx, cfg, http.NewServeMux(), zerolog.Nop())
	}()

	select {
	case err := <-done:
		t.Fatalf("Serve returned before cancel: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Serve did not return after cancel")
	}
}
