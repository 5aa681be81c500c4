package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ardelane/parley/internal/logging"
)

// Settings groups the tunables of transition selection.
type Settings struct {
	// MinScore is the minimal trigger score below which a rank counts as
	// no-match.
	MinScore float64

	// JumpPenalty is the factor (< 1.0) applied to wildcard-origin
	// transitions, discouraging jumps out of an unrelated story.
	JumpPenalty float64

	// MaxJumps bounds internal-jump chaining. Exceeding it is fatal for the
	// dispatch cycle.
	MaxJumps int
}

// DefaultSettings mirrors the defaults the engine has always shipped with.
func DefaultSettings() Settings {
	return Settings{
		MinScore:    0.3,
		JumpPenalty: 0.8,
		MaxJumps:    10,
	}
}

// Manager holds the transition list and the default fallback state, and
// answers "which state should run next" for a request.
type Manager struct {
	transitions  []Transition
	defaultState string
	settings     Settings
	allowed      map[string]struct{}
	logger       *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithSettings overrides the selection tunables.
func WithSettings(s Settings) ManagerOption {
	return func(m *Manager) { m.settings = s }
}

// WithManagerLogger configures a logger for selection debug output.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a transition manager with a default fallback state.
func NewManager(transitions []Transition, defaultState string, opts ...ManagerOption) *Manager {
	m := &Manager{
		transitions:  transitions,
		defaultState: defaultState,
		settings:     DefaultSettings(),
		allowed:      make(map[string]struct{}),
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, t := range transitions {
		m.allowed[t.Dest] = struct{}{}
		if t.Origin != "" {
			m.allowed[t.Origin] = struct{}{}
		}
	}

	return m
}

// Settings returns the active selection tunables.
func (m *Manager) Settings() Settings {
	return m.settings
}

// Transitions returns the configured transition list.
func (m *Manager) Transitions() []Transition {
	return m.transitions
}

// DefaultState returns the configured fallback state name.
func (m *Manager) DefaultState() string {
	return m.defaultState
}

// FindTrigger ranks every transition whose internal flag matches the
// requested mode, concurrently, and reduces to the best rank. A zero Trigger
// in the result means nothing scored at or above the minimal threshold. A
// failure in any one trigger aborts the whole ranking: a corrupted max
// reduction must never pick a winner silently.
func (m *Manager) FindTrigger(ctx context.Context, req *Request, origin string, internal bool) (Rank, error) {
	var candidates []Transition
	for _, t := range m.transitions {
		if t.Internal == internal {
			candidates = append(candidates, t)
		}
	}

	ranks := make([]Rank, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range candidates {
		g.Go(func() error {
			rank, err := t.rank(gctx, req, origin, m.settings.JumpPenalty)
			if err != nil {
				return err
			}
			ranks[i] = rank
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Rank{}, err
	}

	var best Rank
	for _, r := range ranks {
		if r.Trigger != nil && r.Score > best.Score {
			best = r
		}
	}

	if best.Trigger == nil || best.Score < m.settings.MinScore {
		return Rank{}, nil
	}

	m.logger.Debug("transition selected",
		"from", origin,
		"to", best.Dest,
		"score", best.Score,
		"internal", internal,
	)
	return best, nil
}

// Upcoming is the resolved outcome of transition selection for one request:
// which state should run, and with which trigger. A nil Trigger means the
// state's confused entry point runs instead of handle.
type Upcoming struct {
	State          string
	Trigger        Trigger
	Score          float64
	DoNotRegister  bool
	DeclaredOrigin string
	ActualOrigin   string
}

// BuildUpcoming resolves the next state for a raw inbound request. It
// returns nil when nothing matched and the message opted out of confusion:
// the dispatch is silently dropped.
func (m *Manager) BuildUpcoming(ctx context.Context, req *Request) (*Upcoming, error) {
	origin := req.Register.State()

	rank, err := m.FindTrigger(ctx, req, origin, false)
	if err != nil {
		return nil, err
	}

	if rank.Trigger != nil {
		return &Upcoming{
			State:          rank.Dest,
			Trigger:        rank.Trigger,
			Score:          rank.Score,
			DoNotRegister:  rank.DoNotRegister,
			DeclaredOrigin: rank.DeclaredOrigin,
			ActualOrigin:   rank.ActualOrigin,
		}, nil
	}

	if !req.Message.ShouldConfuse() {
		return nil, nil
	}

	return &Upcoming{State: m.confusedState(origin)}, nil
}

// confusedState resolves which state should voice confusion: the current one
// when it is a transition endpoint, the configured default otherwise.
func (m *Manager) confusedState(origin string) string {
	if _, ok := m.allowed[origin]; ok && origin != "" {
		return origin
	}
	return m.defaultState
}
