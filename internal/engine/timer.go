package engine

import (
	"context"
	"time"
)

// Controller drives the countdown: one Tick per second for as long as it
// runs. Tick itself refuses to act outside an active attempt, so the
// loop is safe to keep running across selection and summary views; it
// simply has no effect there.
type Controller struct {
	eng      *Engine
	interval time.Duration
}

func NewController(eng *Engine) *Controller {
	return &Controller{eng: eng, interval: time.Second}
}

// Run blocks until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.eng.Tick()
		}
	}
}
