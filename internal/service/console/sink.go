package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	drepo "GapScout/internal/domain/repository"

	"github.com/charmbracelet/lipgloss"
)

var alertStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#10B981")).
	Padding(0, 1)

// Sink prints alerts to a terminal. Used when no messaging channel is configured.
type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

var _ drepo.AlertSink = (*Sink)(nil)

func New(out io.Writer) *Sink {
	if out == nil {
		out = os.Stdout
	}
	return &Sink{out: out}
}

func (s *Sink) Name() string { return "console" }

func (s *Sink) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.out, alertStyle.Render(text))
	return err
}
