// Package http exposes the engine as a synchronous webhook: one inbound
// message per request, the buffered replies in the response body.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/ardelane/parley/pkg/engine"
	"github.com/ardelane/parley/pkg/layers"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatcher is the slice of the engine the server needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg engine.Message, platform engine.Platform) error
}

// Layer is the wire form of one message part, inbound or outbound. Kind
// selects which other fields apply.
type Layer struct {
	Kind    string         `json:"kind"`
	Text    string         `json:"text,omitempty"`
	Slug    string         `json:"slug,omitempty"`
	URL     string         `json:"url,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Options []ChoiceOption `json:"options,omitempty"`
}

// ChoiceOption is the wire form of one offered quick reply.
type ChoiceOption struct {
	Slug   string `json:"slug"`
	Text   string `json:"text"`
	Intent string `json:"intent,omitempty"`
}

// WebhookRequest is the inbound body of POST /webhook.
type WebhookRequest struct {
	Conversation string  `json:"conversation"`
	User         string  `json:"user"`
	Layers       []Layer `json:"layers"`

	// Silent suppresses the confused fallback when nothing matches.
	Silent bool `json:"silent,omitempty"`
}

// WebhookResponse carries the buffered reply bursts, in send order.
type WebhookResponse struct {
	Replies [][]Layer `json:"replies"`
}

// Server handles webhook traffic for one engine.
type Server struct {
	engine Dispatcher
	health func() []engine.Finding
	logger *slog.Logger
}

// NewHandler builds the full router: webhook, health and metrics.
func NewHandler(dispatcher Dispatcher, health func() []engine.Finding, logger *slog.Logger) http.Handler {
	s := &Server{engine: dispatcher, health: health, logger: logger}

	r := chi.NewRouter()
	r.Post("/webhook", s.Webhook)
	r.Get("/healthz", s.Health)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Webhook handles one inbound message synchronously.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	var body WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Conversation == "" {
		http.Error(w, "missing conversation", http.StatusBadRequest)
		return
	}

	ls, err := toLayers(body.Layers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg := &message{
		conv:    body.Conversation,
		user:    body.User,
		ls:      ls,
		confuse: !body.Silent,
	}
	sink := &collector{}

	if err := s.engine.Dispatch(r.Context(), msg, sink); err != nil {
		s.logger.Error("dispatch failed", "conversation", body.Conversation, "err", err)
		http.Error(w, "dispatch failed", http.StatusInternalServerError)
		return
	}

	resp := WebhookResponse{Replies: sink.replies()}
	if resp.Replies == nil {
		resp.Replies = [][]Layer{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("could not encode response", "err", err)
	}
}

// Health reports validation findings; a dirty graph answers 503.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	findings := s.health()

	status := http.StatusOK
	if len(findings) > 0 {
		status = http.StatusServiceUnavailable
	}

	problems := make([]string, 0, len(findings))
	for _, f := range findings {
		problems = append(problems, f.String())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"ok":       len(findings) == 0,
		"problems": problems,
	})
}

// message adapts one webhook body to the engine's inbound interface.
type message struct {
	conv    string
	user    string
	ls      []layers.Layer
	confuse bool
}

func (m *message) Platform() string                  { return "http" }
func (m *message) Conversation() engine.Conversation { return engine.Conversation{ID: m.conv} }
func (m *message) User() engine.User                 { return engine.User{ID: m.user} }
func (m *message) Layers() []layers.Layer            { return m.ls }
func (m *message) ShouldConfuse() bool               { return m.confuse }

// collector buffers flushed stacks so the webhook can answer synchronously.
type collector struct {
	mu     sync.Mutex
	stacks []*layers.Stack
}

func (c *collector) Name() string                    { return "http" }
func (c *collector) Accept(stack *layers.Stack) bool { return true }

func (c *collector) Send(ctx context.Context, req *engine.Request, stack *layers.Stack) error {
	c.mu.Lock()
	c.stacks = append(c.stacks, stack)
	c.mu.Unlock()
	return nil
}

func (c *collector) replies() [][]Layer {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]Layer, 0, len(c.stacks))
	for _, stack := range c.stacks {
		out = append(out, fromStack(stack))
	}
	return out
}

func toLayers(dtos []Layer) ([]layers.Layer, error) {
	out := make([]layers.Layer, 0, len(dtos))
	for _, dto := range dtos {
		switch dto.Kind {
		case "raw_text":
			out = append(out, layers.RawText{Text: dto.Text})
		case "quick_reply":
			out = append(out, layers.QuickReply{Slug: dto.Slug})
		case "postback":
			out = append(out, layers.Postback{Payload: dto.Payload})
		case "image":
			out = append(out, layers.Image{URL: dto.URL})
		case "sticker":
			out = append(out, layers.Sticker{Slug: dto.Slug})
		default:
			return nil, fmt.Errorf("unknown layer kind %q", dto.Kind)
		}
	}
	return out, nil
}

func fromStack(stack *layers.Stack) []Layer {
	out := make([]Layer, 0, len(stack.Layers()))
	for _, l := range stack.Layers() {
		switch v := l.(type) {
		case layers.RawText:
			out = append(out, Layer{Kind: v.Kind(), Text: v.Text})
		case layers.QuickReply:
			out = append(out, Layer{Kind: v.Kind(), Slug: v.Slug})
		case layers.Postback:
			out = append(out, Layer{Kind: v.Kind(), Payload: v.Payload})
		case layers.Image:
			out = append(out, Layer{Kind: v.Kind(), URL: v.URL})
		case layers.Sticker:
			out = append(out, Layer{Kind: v.Kind(), Slug: v.Slug})
		case layers.QuickRepliesList:
			dto := Layer{Kind: v.Kind()}
			for _, opt := range v.Options {
				dto.Options = append(dto.Options, ChoiceOption{
					Slug:   opt.Slug,
					Text:   opt.Text,
					Intent: opt.Intent,
				})
			}
			out = append(out, dto)
		default:
			out = append(out, Layer{Kind: l.Kind()})
		}
	}
	return out
}
