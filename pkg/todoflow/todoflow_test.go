package todoflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todoflow/configs"
	"todoflow/delivery/rest/dto"
)

func testOptions(extra ...Option) []Option {
	return append([]Option{
		WithMemoryStore(),
		WithJWT("test-secret", "", time.Hour),
		WithLogger(zap.NewNop()),
	}, extra...)
}

// TestNewWithInvalidOptions tests that New() returns errors for invalid options
func TestNewWithInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"missing jwt secret", []Option{WithMemoryStore()}},
		{"empty postgres dsn", []Option{WithPostgres("")}},
		{"empty mysql dsn", []Option{WithMySQL("")}},
		{"nil shared pool", []Option{WithSharedPostgres(nil)}},
		{"nil shared db", []Option{WithSharedMySQL(nil)}},
		{"bad max connections", []Option{WithPostgres("postgres://localhost/todo", WithMaxConnections(0))}},
		{"negative idle connections", []Option{WithMySQL("root@tcp(localhost)/todo", WithMaxIdleConnections(-1))}},
		{"invalid worker pool size", testOptions(WithWorkerPoolSize(-1))},
		{"invalid route prefix", testOptions(WithRoutePrefix(""))},
		{"invalid wait timeout", testOptions(WithWaitTimeout(0))},
		{"invalid breaker", testOptions(WithCircuitBreaker(0, time.Second))},
		{"negative session idle timeout", testOptions(WithSessionIdleTimeout(-time.Second))},
		{"empty webhook", testOptions(WithWebhook("", "secret"))},
		{"nil logger", testOptions(WithLogger(nil))},
		{"nil config", testOptions(FromConfig(nil))},
		{"unknown driver", testOptions(func(c *Config) error { c.Driver = "sqlite"; return nil })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := &configs.Config{}
	cfg.Database.Driver = configs.DriverMemory
	cfg.Server.RoutePrefix = "/todo"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Worker.PoolSize = 3
	cfg.Auth.JWTSecret = "from-file"
	cfg.Reminder.WebhookURL = "http://hooks.example.com"
	cfg.Session.RestartBackoff = time.Second
	cfg.Session.IdleTimeout = time.Minute

	tf, err := New(FromConfig(cfg), WithLogger(zap.NewNop()), WithWorkerPoolSize(5))
	require.NoError(t, err)

	assert.Equal(t, "/todo", tf.config.RoutePrefix)
	assert.Equal(t, 5, tf.config.WorkerPoolSize, "later options win")
	assert.Equal(t, []string{"*"}, tf.config.CORSOrigins)
	assert.Equal(t, "todoflow", tf.config.Auth.Issuer, "defaults survive empty values")
	assert.Equal(t, 3, tf.config.Reminder.WebhookMaxAttempts)
	assert.NotNil(t, tf.callback)
	assert.Equal(t, time.Minute, tf.config.SessionIdleTimeout)
}

func TestLifecycle(t *testing.T) {
	tf, err := New(testOptions()...)
	require.NoError(t, err)

	assert.Equal(t, "stopped", tf.HealthCheck(context.Background()).Status)

	require.NoError(t, tf.Start())
	assert.Error(t, tf.Start())

	health := tf.HealthCheck(context.Background())
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, configs.DriverMemory, health.Driver)
	assert.Equal(t, 8, health.Workers)

	require.NoError(t, tf.Shutdown(context.Background()))
	require.NoError(t, tf.Shutdown(context.Background()))
	assert.Error(t, tf.Start())
	assert.NoError(t, tf.Close())
}

func TestRegisterRoutesWithNilEngine(t *testing.T) {
	tf, err := New(testOptions()...)
	require.NoError(t, err)

	err = tf.RegisterRoutes(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "engine cannot be nil")
}

func startServer(t *testing.T, opts ...Option) (*Todoflow, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tf, err := New(testOptions(opts...)...)
	require.NoError(t, err)
	require.NoError(t, tf.Start())
	t.Cleanup(func() { _ = tf.Shutdown(context.Background()) })

	router := gin.New()
	require.NoError(t, tf.RegisterRoutes(router))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return tf, srv
}

func TestRoutePrefixAndMetrics(t *testing.T) {
	_, srv := startServer(t, WithRoutePrefix("/internal/todo"))

	resp, err := http.Get(srv.URL + "/internal/todo/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "todoflow_http_requests_total")
	assert.Contains(t, body.String(), `route="/internal/todo/health"`)
}

func TestStreamDeliversSnapshotsAndReminders(t *testing.T) {
	tf, srv := startServer(t)

	token, _, err := tf.IssueToken("alice")
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/todos/stream?token=" + token
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	type message struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	read := func() message {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var m message
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}

	first := read()
	assert.Equal(t, "snapshot", first.Type)

	past := time.Now().Add(-time.Minute).UnixMilli()
	body, _ := json.Marshal(map[string]interface{}{"title": "Call the bank", "reminderTime": past})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/todos?wait=true", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var created dto.MutationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sawSnapshot, sawReminder bool
	for !(sawSnapshot && sawReminder) {
		m := read()
		switch m.Type {
		case "snapshot":
			var snap struct {
				Todos []struct {
					ID string `json:"id"`
				} `json:"todos"`
			}
			require.NoError(t, json.Unmarshal(m.Data, &snap))
			if len(snap.Todos) == 1 && snap.Todos[0].ID == created.ID {
				sawSnapshot = true
			}
		case "reminder":
			var r struct {
				TaskID string `json:"task_id"`
				Title  string `json:"title"`
			}
			require.NoError(t, json.Unmarshal(m.Data, &r))
			assert.Equal(t, created.ID, r.TaskID)
			assert.Equal(t, "Call the bank", r.Title)
			sawReminder = true
		}
	}

	health := tf.HealthCheck(context.Background())
	assert.Equal(t, 1, health.Sessions)
	assert.Equal(t, 1, health.WebSocketClients)
}
