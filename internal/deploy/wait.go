package deploy

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/ragcookbook/server/internal/platform"
)

type WaitOptions struct {
	// defaults to DefaultPollInterval
	Interval time.Duration
	// called after every status check
	OnPoll func(*platform.ServingEndpoint)
}

// polls the endpoint until it is ready and not updating; bounded by ctx and
// fails fast when the config update fails or is canceled
func (d *Deployer) WaitUntilReady(ctx context.Context, endpoint string, opts WaitOptions) (*platform.ServingEndpoint, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ep, err := d.platform.GetServingEndpoint(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		if opts.OnPoll != nil {
			opts.OnPoll(ep)
		}

		switch ep.State.ConfigUpdate {
		case platform.ConfigUpdateUpdateFailed, platform.ConfigUpdateUpdateCanceled:
			return ep, fmt.Errorf("%s: %w (%s)", endpoint, ErrUpdateFailed, ep.State.ConfigUpdate)
		}

		if !ep.InProgress() {
			return ep, nil
		}

		select {
		case <-ctx.Done():
			return ep, fmt.Errorf("waiting for %s: %w", endpoint, ctx.Err())
		case <-ticker.C:
		}
	}
}
