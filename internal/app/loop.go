package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/internal/ports"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// DefaultUpdateRate is the control loop frequency in Hz.
const DefaultUpdateRate = 100.0

// ErrSuperseded is returned to a mode request replaced by a newer one before
// the loop served it.
var ErrSuperseded = errors.New("modeswitch: mode request superseded")

// LoopConfig contains configuration for the control loop.
type LoopConfig struct {
	// UpdateRate is the tick frequency in Hz.
	UpdateRate float64
}

type modeRequest struct {
	mode  modeswitch.ControlMode
	reply chan modeReply
}

type modeReply struct {
	result domain.SwitchResult
	err    error
}

// Loop is the fixed-rate control loop. While it runs it is the only
// goroutine touching the coordinator: mode requests from other goroutines
// are handed over and served on the next tick.
type Loop struct {
	config   LoopConfig
	coord    *modeswitch.Coordinator
	switcher *Switcher
	logger   ports.Logger
	emitter  SnapshotEmitter

	mu      sync.Mutex
	next    *modeRequest
	running bool
	mode    modeswitch.ControlMode
	last    *domain.SwitchResult
	ticks   uint64
	snap    domain.Snapshot
}

// NewLoop creates a control loop. emitter may be nil.
func NewLoop(config LoopConfig, coord *modeswitch.Coordinator, switcher *Switcher, logger ports.Logger, emitter SnapshotEmitter) *Loop {
	if config.UpdateRate <= 0 {
		config.UpdateRate = DefaultUpdateRate
	}
	return &Loop{
		config:   config,
		coord:    coord,
		switcher: switcher,
		logger:   logger,
		emitter:  emitter,
	}
}

// Interval returns the tick period.
func (l *Loop) Interval() time.Duration {
	return time.Duration(float64(time.Second) / l.config.UpdateRate)
}

// SetMode records the mode the coordinator is currently in and takes an
// initial snapshot. It is used when ownership of the coordinator is handed
// to the loop and must be called before Run.
func (l *Loop) SetMode(mode modeswitch.ControlMode, last *domain.SwitchResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = mode
	l.last = last
	l.snap = BuildSnapshot(l.coord, StateActive, mode, last, l.ticks)
}

// Mode returns the mode of the last applied switch.
func (l *Loop) Mode() modeswitch.ControlMode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Snapshot returns the last published snapshot.
func (l *Loop) Snapshot() domain.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Open makes the loop accept mode requests before Run starts ticking.
// Requests accepted early are served on the first tick.
func (l *Loop) Open() {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
}

// Run ticks until ctx is canceled. Requests still waiting when it returns
// are answered with domain.ErrNotActive.
func (l *Loop) Run(ctx context.Context) error {
	l.Open()

	defer func() {
		l.mu.Lock()
		l.running = false
		req := l.next
		l.next = nil
		l.mu.Unlock()
		if req != nil {
			req.reply <- modeReply{err: domain.ErrNotActive}
		}
	}()

	ticker := time.NewTicker(l.Interval())
	defer ticker.Stop()

	l.logger.Info("control loop started", ports.Float64("update_rate_hz", l.config.UpdateRate))
	l.publish()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopped", ports.Uint64("ticks", l.Ticks()))
			return ctx.Err()
		case <-ticker.C:
			l.update(ctx)
		}
	}
}

// Ticks returns the number of completed loop iterations.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

func (l *Loop) update(ctx context.Context) {
	l.mu.Lock()
	l.ticks++
	req := l.next
	l.next = nil
	l.mu.Unlock()

	if req == nil {
		return
	}

	result := l.switcher.Switch(ctx, req.mode)

	l.mu.Lock()
	if result.Outcome == domain.OutcomeApplied {
		l.mode = req.mode
	}
	l.last = &result
	l.mu.Unlock()

	l.publish()
	req.reply <- modeReply{result: result}
}

func (l *Loop) publish() {
	l.mu.Lock()
	snap := BuildSnapshot(l.coord, StateActive, l.mode, l.last, l.ticks)
	l.snap = snap
	l.mu.Unlock()

	if l.emitter != nil {
		l.emitter.OnSnapshot(snap)
	}
}

// RequestMode hands a mode request to the loop and waits for the result.
// A request not yet served when a newer one arrives is answered with
// ErrSuperseded.
func (l *Loop) RequestMode(ctx context.Context, mode modeswitch.ControlMode) (domain.SwitchResult, error) {
	req := &modeRequest{mode: mode, reply: make(chan modeReply, 1)}

	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return domain.SwitchResult{}, domain.ErrNotActive
	}
	prev := l.next
	l.next = req
	l.mu.Unlock()

	if prev != nil {
		l.logger.Debug("mode request superseded",
			ports.Stringer("dropped", prev.mode),
			ports.Stringer("mode", mode),
		)
		prev.reply <- modeReply{err: ErrSuperseded}
	}

	select {
	case r := <-req.reply:
		return r.result, r.err
	case <-ctx.Done():
		return domain.SwitchResult{}, ctx.Err()
	}
}
