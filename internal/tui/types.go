package tui

import (
	"context"
	"time"

	"codeberg.org/ragcookbook/server/internal/deploy"
	"codeberg.org/ragcookbook/server/internal/platform"
	"github.com/charmbracelet/bubbles/spinner"
)

// where the watched deployment stands
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseReady
	PhaseFailed
	PhaseCanceled
)

// follows a serving endpoint until it is ready
type WatchModel struct {
	deployment   deploy.Deployment
	markdown     string
	instructions string // markdown rendered for the current width
	cancel       context.CancelFunc

	spinner spinner.Model
	phase   Phase
	state   platform.EndpointState
	polls   int
	started time.Time
	elapsed time.Duration
	err     error
	width   int
	now     func() time.Time
}

// sent after every endpoint status check
type StatusMsg struct {
	Endpoint *platform.ServingEndpoint
}

// sent once waiting finished; Err is nil when the endpoint is ready
type DoneMsg struct {
	Err error
}
