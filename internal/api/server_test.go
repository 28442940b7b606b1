package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosshub/bosshub-go/internal/infrastructure/config"
	"github.com/bosshub/bosshub-go/internal/infrastructure/database"
	"github.com/bosshub/bosshub-go/internal/infrastructure/logging"
	"github.com/bosshub/bosshub-go/internal/journal"
	"github.com/bosshub/bosshub-go/migrations"
)

type fakeDevice struct {
	state string
	subs  []string
}

func (d fakeDevice) DeviceID() string        { return "a1b2c3d4e5f6" }
func (d fakeDevice) ConnectionState() string { return d.state }
func (d fakeDevice) Subscriptions() []string { return d.subs }

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func testServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Device == nil {
		deps.Device = fakeDevice{state: "connected", subs: []string{"devices/a1b2c3d4e5f6/command"}}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.NewRegistry()
	}
	deps.Version = "1.2.3"
	srv, err := New(deps)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{Device: fakeDevice{}})
	require.Error(t, err)

	_, err = New(Deps{Logger: logging.Discard()})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "all healthy",
			checks: map[string]HealthChecker{
				"mqtt":     checkFunc(func(context.Context) error { return nil }),
				"database": checkFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "one failing",
			checks: map[string]HealthChecker{
				"mqtt":     checkFunc(func(context.Context) error { return errors.New("not connected") }),
				"database": checkFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, Deps{Checks: tt.checks})
			rec := do(t, srv.Handler(), http.MethodGet, "/healthz")
			require.Equal(t, tt.wantStatus, rec.Code)

			var body HealthResponse
			decode(t, rec, &body)
			assert.Equal(t, tt.wantBody, body.Status)
			assert.Len(t, body.Checks, len(tt.checks))
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "not connected", body.Checks["mqtt"])
				assert.Equal(t, "ok", body.Checks["database"])
			}
		})
	}
}

func TestHealth_CheckHasDeadline(t *testing.T) {
	var hadDeadline bool
	srv := testServer(t, Deps{Checks: map[string]HealthChecker{
		"slow": checkFunc(func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		}),
	}})
	do(t, srv.Handler(), http.MethodGet, "/healthz")
	assert.True(t, hadDeadline)
}

func TestStatus(t *testing.T) {
	srv := testServer(t, Deps{Device: fakeDevice{state: "reconnecting"}})
	rec := do(t, srv.Handler(), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body StatusResponse
	decode(t, rec, &body)
	assert.Equal(t, "a1b2c3d4e5f6", body.DeviceID)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, "reconnecting", body.MQTT.State)
	assert.NotNil(t, body.MQTT.Subscriptions)
	assert.Empty(t, body.MQTT.Subscriptions)
	assert.Positive(t, body.Runtime.Goroutines)
}

func TestJournal(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	require.NoError(t, db.Migrate(context.Background(), migrations.FS))

	repo := journal.NewSQLiteRepository(db.DB)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &journal.Entry{Kind: journal.KindCommand, Topic: "devices/x/command", Detail: "PING"}))
	require.NoError(t, repo.Create(ctx, &journal.Entry{Kind: journal.KindFailure, Endpoint: "device/log", StatusCode: 500}))

	srv := testServer(t, Deps{Journal: repo})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/journal")
	require.Equal(t, http.StatusOK, rec.Code)
	var all journal.ListResult
	decode(t, rec, &all)
	assert.Equal(t, 2, all.Total)

	rec = do(t, h, http.MethodGet, "/journal?kind=failure&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var failures journal.ListResult
	decode(t, rec, &failures)
	require.Len(t, failures.Entries, 1)
	assert.Equal(t, "device/log", failures.Entries[0].Endpoint)

	for _, q := range []string{"?limit=abc", "?offset=x", "?kind=bogus"} {
		rec = do(t, h, http.MethodGet, "/journal"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestJournal_Disabled(t *testing.T) {
	srv := testServer(t, Deps{})
	rec := do(t, srv.Handler(), http.MethodGet, "/journal")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body Error
	decode(t, rec, &body)
	assert.Equal(t, ErrCodeUnavailable, body.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "bosshub_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := testServer(t, Deps{Gatherer: reg})
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bosshub_test_total 1")
}

func TestRouting(t *testing.T) {
	srv := testServer(t, Deps{})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestID(t *testing.T) {
	srv := testServer(t, Deps{})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/status")
	assert.Len(t, rec.Header().Get("X-Request-ID"), requestIDBytes*2)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("X-Request-ID", "given-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given-id", rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := testServer(t, Deps{})
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStartAndClose(t *testing.T) {
	srv := testServer(t, Deps{Config: config.StatusServerConfig{Enabled: true, Host: "127.0.0.1", Port: 0}})

	assert.Empty(t, srv.Addr())
	require.Error(t, srv.HealthCheck(context.Background()))

	require.NoError(t, srv.Start(context.Background()))
	require.Error(t, srv.Start(context.Background()), "second Start must fail")
	require.NoError(t, srv.HealthCheck(context.Background()))

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"status":"ok"`))

	require.NoError(t, srv.Close())
}

func TestStart_PortInUse(t *testing.T) {
	first := testServer(t, Deps{Config: config.StatusServerConfig{Host: "127.0.0.1", Port: 0}})
	require.NoError(t, first.Start(context.Background()))
	t.Cleanup(func() { first.Close() }) //nolint:errcheck // Test cleanup

	_, portStr, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	second := testServer(t, Deps{Config: config.StatusServerConfig{Host: "127.0.0.1", Port: port}})
	require.Error(t, second.Start(context.Background()))
}
