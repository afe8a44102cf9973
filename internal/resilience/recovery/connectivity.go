package recovery

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/tema/internal/core/domain"
)

// Prober checks that a collaborator answers.
type Prober interface {
	Ping(ctx context.Context) error
}

// DefaultProbeTimeout bounds each connectivity probe.
const DefaultProbeTimeout = 5 * time.Second

// CheckConnectivity probes every collaborator independently with a short timeout.
func CheckConnectivity(
	ctx context.Context,
	probers map[domain.Service]Prober,
	timeout time.Duration,
) map[domain.Service]bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	var (
		mu  sync.Mutex
		g   errgroup.Group
		out = make(map[domain.Service]bool, len(probers))
	)
	for svc, p := range probers {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			ok := p.Ping(pctx) == nil

			mu.Lock()
			out[svc] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
