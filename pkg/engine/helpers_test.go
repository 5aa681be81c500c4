package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/ardelane/parley/pkg/layers"
	"github.com/ardelane/parley/pkg/trigram"
)

func altOf(positive string, negatives ...string) trigram.Alternative {
	return trigram.Alt(positive, negatives...)
}

// testMessage is a minimal inbound message for tests.
type testMessage struct {
	platform string
	conv     string
	user     string
	ls       []layers.Layer
	confuse  bool
}

func newTestMessage(conv string, confuse bool, ls ...layers.Layer) *testMessage {
	return &testMessage{
		platform: "test",
		conv:     conv,
		user:     "user-1",
		ls:       ls,
		confuse:  confuse,
	}
}

func (m *testMessage) Platform() string           { return m.platform }
func (m *testMessage) Conversation() Conversation { return Conversation{ID: m.conv} }
func (m *testMessage) User() User                 { return User{ID: m.user} }
func (m *testMessage) Layers() []layers.Layer     { return m.ls }
func (m *testMessage) ShouldConfuse() bool        { return m.confuse }

// testPlatform records flushed stacks.
type testPlatform struct {
	mu      sync.Mutex
	sent    []*layers.Stack
	sendErr error
}

func (p *testPlatform) Name() string                     { return "test" }
func (p *testPlatform) Accept(stack *layers.Stack) bool { return true }
func (p *testPlatform) texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	for _, s := range p.sent {
		for _, t := range layers.All[layers.RawText](s) {
			out = append(out, t.Text)
		}
	}
	return out
}

func (p *testPlatform) Send(ctx context.Context, req *Request, stack *layers.Stack) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	p.mu.Lock()
	p.sent = append(p.sent, stack)
	p.mu.Unlock()
	return nil
}

// flakyPlatform fails a given number of sends before behaving normally.
type flakyPlatform struct {
	testPlatform
	failures int
}

func (p *flakyPlatform) Send(ctx context.Context, req *Request, stack *layers.Stack) error {
	p.mu.Lock()
	if p.failures > 0 {
		p.failures--
		p.mu.Unlock()
		return errors.New("pipe broke")
	}
	p.mu.Unlock()
	return p.testPlatform.Send(ctx, req, stack)
}

// scriptedState lets tests plug behavior into the three entry points.
type scriptedState struct {
	handle   func(ctx context.Context) error
	confused func(ctx context.Context) error
	onError  func(ctx context.Context) error
}

func (s *scriptedState) Handle(ctx context.Context) error {
	if s.handle == nil {
		return nil
	}
	return s.handle(ctx)
}

func (s *scriptedState) Confused(ctx context.Context) error {
	if s.confused == nil {
		return nil
	}
	return s.confused(ctx)
}

func (s *scriptedState) Error(ctx context.Context) error {
	if s.onError == nil {
		return nil
	}
	return s.onError(ctx)
}

// fixedScore is a trigger factory returning a constant score, counting how
// many instances were created.
type fixedScore struct {
	mu    sync.Mutex
	score float64
	made  int
}

func (f *fixedScore) factory() TriggerFactory {
	return func(req *Request) Trigger {
		f.mu.Lock()
		f.made++
		f.mu.Unlock()
		return rankFunc(func(ctx context.Context) (float64, error) {
			return f.score, nil
		})
	}
}

func (f *fixedScore) instances() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.made
}
