package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ardelane/parley/pkg/engine"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
)

// Dispatcher is the slice of the engine the chat loop needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg engine.Message, platform engine.Platform) error
}

// Chat is an interactive session between one terminal user and a bot. Each
// session is its own conversation, so registers never collide across runs.
type Chat struct {
	engine   Dispatcher
	platform *Platform
	in       io.Reader
	out      io.Writer
	conv     string
	logger   *slog.Logger
}

// NewChat builds a chat session reading from in and writing to out.
func NewChat(dispatcher Dispatcher, in io.Reader, out io.Writer, logger *slog.Logger) *Chat {
	return &Chat{
		engine:   dispatcher,
		platform: New(out),
		in:       in,
		out:      out,
		conv:     uuid.NewString(),
		logger:   logger,
	}
}

// Run loops until EOF or context cancellation. Typing "/quit" also ends the
// session.
func (c *Chat) Run(ctx context.Context) error {
	profile := termenv.ColorProfile()
	prompt := termenv.String("you> ").Foreground(profile.Color("#a78bfa")).String()

	fmt.Fprintln(c.out, "connected; type a message, /slug to pick a choice, /quit to leave")

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, prompt)
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		if line == "/quit" {
			break
		}

		parts := ParseLine(line)
		if parts == nil {
			continue
		}

		msg := &Message{
			ConversationID: c.conv,
			UserID:         "console",
			Parts:          parts,
		}
		if err := c.engine.Dispatch(ctx, msg, c.platform); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Error("dispatch failed", "err", err)
			fmt.Fprintln(c.out, "something went wrong, try again")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out, "bye!")
	return nil
}
