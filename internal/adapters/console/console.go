// Package console runs a bot in the terminal: stdin lines become inbound
// messages, replies render as markdown.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ardelane/parley/pkg/engine"
	"github.com/ardelane/parley/pkg/layers"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Platform renders reply stacks to the terminal.
type Platform struct {
	out     io.Writer
	render  func(string) (string, error)
	profile termenv.Profile
}

// New creates a console platform writing to out.
func New(out io.Writer) *Platform {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	render := func(markdown string) (string, error) {
		if r == nil {
			return markdown, nil
		}
		return r.Render(markdown)
	}
	return &Platform{
		out:     out,
		render:  render,
		profile: termenv.ColorProfile(),
	}
}

func (p *Platform) Name() string                    { return "console" }
func (p *Platform) Accept(stack *layers.Stack) bool { return true }

// Send renders one stack: text as markdown, choices as a slash-command hint,
// media as a bracketed placeholder.
func (p *Platform) Send(ctx context.Context, req *engine.Request, stack *layers.Stack) error {
	for _, l := range stack.Layers() {
		switch v := l.(type) {
		case layers.RawText:
			rendered, err := p.render(v.Text)
			if err != nil {
				rendered = v.Text + "\n"
			}
			fmt.Fprint(p.out, rendered)
		case layers.QuickRepliesList:
			hints := make([]string, 0, len(v.Options))
			for _, opt := range v.Options {
				hints = append(hints, p.hint(opt))
			}
			fmt.Fprintf(p.out, "  %s\n", strings.Join(hints, "  "))
		case layers.Image:
			fmt.Fprintf(p.out, "  [image] %s\n", v.URL)
		case layers.Sticker:
			fmt.Fprintf(p.out, "  [sticker] %s\n", v.Slug)
		}
	}
	return nil
}

func (p *Platform) hint(opt layers.ChoiceOption) string {
	slash := termenv.String("/" + opt.Slug).Foreground(p.profile.Color("#818cf8")).String()
	return fmt.Sprintf("%s (%s)", slash, opt.Text)
}

// ParseLine turns one typed line into message layers. A line starting with a
// slash picks a quick reply by slug; anything else is plain text.
func ParseLine(line string) []layers.Layer {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "/") {
		return []layers.Layer{layers.QuickReply{Slug: strings.TrimPrefix(line, "/")}}
	}
	return []layers.Layer{layers.RawText{Text: line}}
}

// Message is one typed line, bound to the session's conversation.
type Message struct {
	ConversationID string
	UserID         string
	Parts          []layers.Layer
}

func (m *Message) Platform() string                  { return "console" }
func (m *Message) Conversation() engine.Conversation { return engine.Conversation{ID: m.ConversationID} }
func (m *Message) User() engine.User                 { return engine.User{ID: m.UserID} }
func (m *Message) Layers() []layers.Layer            { return m.Parts }
func (m *Message) ShouldConfuse() bool               { return true }
