package main

import (
	"context"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"codeberg.org/ragcookbook/server/internal/deploy"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/tui"
)

type waitResult struct {
	endpoint *platform.ServingEndpoint
	err      error
}

// polls until the endpoint is ready, in the terminal UI with -watch and
// with a log line per poll otherwise; -timeout bounds the wait
func (c *CLI) waitUntilReady(ctx context.Context, d deploy.Deployment) (*platform.ServingEndpoint, error) {
	ctx, cancel := c.waitContext(ctx)
	defer cancel()

	if !c.flags.Watch {
		return c.deployer.WaitUntilReady(ctx, d.EndpointName, deploy.WaitOptions{
			Interval: c.flags.Interval,
			OnPoll: func(ep *platform.ServingEndpoint) {
				logger.Info("waiting for endpoint",
					"endpoint", ep.Name,
					"ready", ep.State.Ready,
					"config_update", ep.State.ConfigUpdate,
				)
			},
		})
	}

	// log lines would tear the UI
	previous := logger.Default()
	logger.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer logger.SetDefault(previous)

	program := tea.NewProgram(tui.NewWatch(d, deploy.ReviewInstructions(c.flags.AppName), cancel))
	done := make(chan waitResult, 1)

	go func() {
		ep, err := c.deployer.WaitUntilReady(ctx, d.EndpointName, deploy.WaitOptions{
			Interval: c.flags.Interval,
			OnPoll: func(ep *platform.ServingEndpoint) {
				program.Send(tui.StatusMsg{Endpoint: ep})
			},
		})

		done <- waitResult{endpoint: ep, err: err}
		program.Send(tui.DoneMsg{Err: err})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return nil, err
	}

	// the poller returns promptly once the UI quit canceled ctx
	result := <-done

	return result.endpoint, result.err
}

func (c *CLI) waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.flags.Timeout > 0 {
		return context.WithTimeout(ctx, c.flags.Timeout)
	}

	return context.WithCancel(ctx)
}
