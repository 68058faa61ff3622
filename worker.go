package logflux

import (
	"context"
	"time"

	"github.com/logflux/logflux-go/pkg/types"
)

// start spawns the worker pool and, when a flush interval is
// configured, the advisory flush ticker.
func (p *Pipeline) start() {
	for i := 0; i < p.cfg.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	if p.cfg.FlushInterval > 0 {
		p.wg.Add(1)
		go p.flushTicker()
	}
}

// worker drains the queue until the pipeline is cancelled. Delivery
// failures are absorbed here: the loop never terminates because of a
// bad entry or a misbehaving endpoint.
func (p *Pipeline) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		entry := p.q.Poll(pollTimeout)
		if entry == nil {
			continue
		}
		p.deliver(id, entry)
	}
}

// deliver ships one entry through the retry strategy and settles the
// counters. An entry that fails permanently (or exhausts its retries,
// or is cut off by shutdown mid-retry) is counted as failed and
// discarded, never requeued.
func (p *Pipeline) deliver(id int, entry *types.Entry) {
	err := p.policy.Do(p.ctx, func() error {
		ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
		defer cancel()
		return p.sender.Send(ctx, entry)
	})
	if err != nil {
		p.totalFailed.Add(1)
		p.logger.Warn("logflux: delivery failed",
			"worker", id,
			"node", entry.Node,
			"level", entry.Level.String(),
			"err", err,
		)
		return
	}
	p.totalSent.Add(1)
}

// flushTicker periodically samples queue depth. Workers poll
// continuously regardless; the ticker is advisory, surfacing sustained
// backlog in the logs.
func (p *Pipeline) flushTicker() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if size := p.q.Size(); size > 0 {
				p.logger.Debug("logflux: queue backlog", "size", size, "capacity", p.q.Capacity())
			}
		}
	}
}
