package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ardelane/parley/internal/logging"
	"github.com/ardelane/parley/pkg/adapters/memory"
	"github.com/ardelane/parley/pkg/engine"
	"github.com/ardelane/parley/pkg/layers"
	"github.com/ardelane/parley/pkg/register"
	"github.com/ardelane/parley/pkg/trigram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()

	registry := engine.NewRegistry()
	registry.Register("Hello", func(req *engine.Request, rsp *engine.Responder, trigger, userTrigger engine.Trigger) engine.State {
		return stateFunc(func(ctx context.Context) error {
			return rsp.Send(
				layers.RawText{Text: "hi! having a good day?"},
				layers.QuickRepliesList{Options: []layers.ChoiceOption{
					{Slug: "yes", Text: "Yes"},
					{Slug: "no", Text: "No"},
				}},
			)
		})
	})

	manager := engine.NewManager([]engine.Transition{
		{Dest: "Hello", Factory: engine.Text(engine.NewIntent("HELLO", trigram.Alt("hello")))},
	}, "Hello")

	store := register.New(memory.NewBackend(), register.WithPollInterval(time.Millisecond))
	return engine.New(store, manager, registry)
}

// stateFunc runs the same body for all three entry points.
type stateFunc func(ctx context.Context) error

func (f stateFunc) Handle(ctx context.Context) error   { return f(ctx) }
func (f stateFunc) Confused(ctx context.Context) error { return f(ctx) }
func (f stateFunc) Error(ctx context.Context) error    { return f(ctx) }

func newTestHandler(t *testing.T) http.Handler {
	eng := newTestEngine(t)
	health := func() []engine.Finding {
		return engine.Validate(eng.Manager(), eng.Registry())
	}
	return NewHandler(eng, health, logging.NewNop())
}

func postWebhook(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestWebhook_RepliesSynchronously(t *testing.T) {
	handler := newTestHandler(t)

	rr := postWebhook(t, handler, WebhookRequest{
		Conversation: "conv-1",
		User:         "user-1",
		Layers:       []Layer{{Kind: "raw_text", Text: "hello"}},
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Replies, 1)

	burst := resp.Replies[0]
	require.Len(t, burst, 2)
	assert.Equal(t, "raw_text", burst[0].Kind)
	assert.Equal(t, "hi! having a good day?", burst[0].Text)
	assert.Equal(t, "quick_replies", burst[1].Kind)
	assert.Len(t, burst[1].Options, 2)
}

func TestWebhook_SilentMessageGetsNoReply(t *testing.T) {
	handler := newTestHandler(t)

	rr := postWebhook(t, handler, WebhookRequest{
		Conversation: "conv-1",
		Silent:       true,
		Layers:       []Layer{{Kind: "raw_text", Text: "completely unrelated gibberish"}},
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Empty(t, resp.Replies)
}

func TestWebhook_Rejections(t *testing.T) {
	handler := newTestHandler(t)

	t.Run("MalformedBody", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte("{not json")))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("MissingConversation", func(t *testing.T) {
		rr := postWebhook(t, handler, WebhookRequest{
			Layers: []Layer{{Kind: "raw_text", Text: "hello"}},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("UnknownLayerKind", func(t *testing.T) {
		rr := postWebhook(t, handler, WebhookRequest{
			Conversation: "conv-1",
			Layers:       []Layer{{Kind: "hologram"}},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHealth(t *testing.T) {
	t.Run("HealthyGraph", func(t *testing.T) {
		handler := newTestHandler(t)

		req := httptest.NewRequest("GET", "/healthz", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["ok"])
	})

	t.Run("BrokenGraph", func(t *testing.T) {
		eng := newTestEngine(t)
		health := func() []engine.Finding {
			return []engine.Finding{{Code: "00002", Message: "default state missing"}}
		}
		handler := NewHandler(eng, health, logging.NewNop())

		req := httptest.NewRequest("GET", "/healthz", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["ok"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Body.String())
}
