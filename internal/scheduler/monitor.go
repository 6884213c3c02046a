package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/outagemon/internal/domain"
	"github.com/hamed0406/outagemon/internal/ledger"
	"github.com/hamed0406/outagemon/internal/probe"
	"github.com/hamed0406/outagemon/internal/store"
)

// Confirmer debounces a negative probe into a confirmed-down verdict.
type Confirmer interface {
	Confirm(ctx context.Context, addr string) bool
}

type transitionKind int

const (
	noChange transitionKind = iota
	wentDown
	cameUp
	firstSeen
)

// transition is one device's classified result for a cycle.
type transition struct {
	dev   domain.Device
	kind  transitionKind
	alive bool
	at    time.Time
}

// Snapshot is the read-only view published after every cycle for the status
// API and the exit summary. It never aliases ledger memory.
type Snapshot struct {
	Summary domain.Summary
	Outages map[string][]*domain.OutageRecord
	Devices int
	Online  int
	Offline int
}

// Monitor drives the fixed-interval cycle: day-rollover check, concurrent
// probe fan-out, single-threaded ledger update after the join, refresh of
// ongoing durations, persist. The ledger and the liveness map are touched
// only by Run's goroutine.
type Monitor struct {
	log         *zap.Logger
	devices     []domain.Device
	checker     probe.Checker
	confirmer   Confirmer
	store       store.LedgerStore
	interval    time.Duration
	concurrency int

	states map[string]bool // last-known liveness per address
	ledger *ledger.Ledger

	mu   sync.RWMutex
	snap Snapshot

	now func() time.Time
}

func NewMonitor(
	log *zap.Logger,
	devs []domain.Device,
	checker probe.Checker,
	confirmer Confirmer,
	st store.LedgerStore,
	interval time.Duration,
	concurrency int,
) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Monitor{
		log:         log,
		devices:     devs,
		checker:     checker,
		confirmer:   confirmer,
		store:       st,
		interval:    interval,
		concurrency: concurrency,
		states:      make(map[string]bool, len(devs)),
		now:         time.Now,
	}
}

// Run loops until ctx is cancelled, then persists once more and returns.
// Each cycle sleeps max(0, interval − processing time), so overruns roll
// straight into the next cycle.
func (m *Monitor) Run(ctx context.Context) error {
	m.initLedger(ctx)
	m.publish()
	m.log.Info("monitor_started",
		zap.Int("devices", len(m.devices)),
		zap.Duration("interval", m.interval),
		zap.String("day", m.ledger.Day()),
	)

loop:
	for {
		start := m.now()
		m.runCycle(ctx)
		if ctx.Err() != nil {
			break
		}
		sleep := m.interval - m.now().Sub(start)
		if sleep < 0 {
			sleep = 0
		}
		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			break loop
		case <-t.C:
		}
	}

	// final persist; the run context is already cancelled
	m.ledger.RefreshOngoing(m.now())
	m.persist(context.Background())
	m.publish()
	m.log.Info("monitor_stopped", zap.String("day", m.ledger.Day()))
	return nil
}

// initLedger resumes today's ledger from the store when a file for the
// current day already exists; a broken durable copy is not fatal, the day
// restarts empty and is rewritten on the next persist.
func (m *Monitor) initLedger(ctx context.Context) {
	day := domain.DayKey(m.now())
	saved, err := m.store.Load(ctx, day)
	if err != nil {
		m.log.Warn("resume_failed", zap.String("day", day), zap.Error(err))
		saved = nil
	}
	m.ledger = ledger.Resume(day, saved)
}

func (m *Monitor) runCycle(ctx context.Context) {
	start := m.now()
	m.checkRollover(ctx, start)

	events := m.probeAll(ctx)
	for _, ev := range events {
		m.apply(ev)
	}

	m.ledger.RefreshOngoing(m.now())
	m.persist(ctx)
	m.publish()

	online, offline := m.liveCounts()
	m.log.Info("cycle_complete",
		zap.Int("online", online),
		zap.Int("offline", offline),
		zap.Int("open_outages", m.ledger.OpenCount()),
		zap.Duration("elapsed", m.now().Sub(start)),
	)
}

// checkRollover finalizes the outgoing day and carries still-open outages
// into a fresh ledger. Liveness state is untouched, only ledger bookkeeping
// changes, so the open-outage count is invariant across the boundary.
func (m *Monitor) checkRollover(ctx context.Context, now time.Time) {
	day := domain.DayKey(now)
	if day == m.ledger.Day() {
		return
	}

	m.ledger.RefreshOngoing(now)
	m.persist(ctx)

	next := m.ledger.Rollover(day)
	m.log.Info("day_rollover",
		zap.String("from", m.ledger.Day()),
		zap.String("to", day),
		zap.Int("carried_outages", next.OpenCount()),
	)
	m.ledger = next
}

// probeAll fans one probe task out per device, bounded by concurrency, and
// joins them all before returning, so ledger mutation never races.
func (m *Monitor) probeAll(ctx context.Context) []transition {
	sem := make(chan struct{}, m.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	out := make([]transition, 0, len(m.devices))

	for _, dev := range m.devices {
		d := dev
		prev, seen := m.states[d.Addr]
		if !seen {
			prev = true // unseen devices are assumed reachable
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()

			ev := m.checkDevice(ctx, d, prev, seen)
			if ev.kind == noChange {
				return
			}
			mu.Lock()
			out = append(out, ev)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return out
}

// checkDevice probes once and classifies the cycle for one device. A first
// negative reading is never trusted on its own: it goes through the
// confirmer, and an unconfirmed blip leaves the device's state unchanged.
func (m *Monitor) checkDevice(ctx context.Context, d domain.Device, prev, seen bool) transition {
	alive := m.checker.Check(ctx, d.Addr)

	switch {
	case prev && !alive:
		if m.confirmer.Confirm(ctx, d.Addr) {
			// offline_at is the confirmation completion time
			return transition{dev: d, kind: wentDown, at: m.now()}
		}
		return transition{kind: noChange}
	case !prev && alive:
		// recoveries are not debounced
		return transition{dev: d, kind: cameUp, alive: true, at: m.now()}
	case !seen:
		return transition{dev: d, kind: firstSeen, alive: alive}
	default:
		return transition{kind: noChange}
	}
}

func (m *Monitor) apply(ev transition) {
	switch ev.kind {
	case wentDown:
		m.ledger.Open(ev.dev.Addr, ev.dev.Location, ev.at)
		m.states[ev.dev.Addr] = false
		m.log.Warn("outage_started",
			zap.String("location", ev.dev.Location),
			zap.String("device", ev.dev.Addr),
			zap.String("offline_at", domain.FormatTimestamp(ev.at)),
		)
	case cameUp:
		closed, ok := m.ledger.Close(ev.dev.Addr, ev.at)
		m.states[ev.dev.Addr] = true
		if ok {
			m.log.Info("outage_ended",
				zap.String("location", closed.Location),
				zap.String("device", ev.dev.Addr),
				zap.String("offline_at", closed.OfflineAt),
				zap.String("online_at", domain.FormatTimestamp(ev.at)),
				zap.String("offline_for", domain.FormatDuration(closed.Duration)),
			)
		}
	case firstSeen:
		m.states[ev.dev.Addr] = ev.alive
	}
}

// persist rewrites the day's durable copy. A write failure is logged and the
// next cycle retries; the in-memory ledger is never lost.
func (m *Monitor) persist(ctx context.Context) {
	if err := m.store.Save(ctx, m.ledger.Day(), m.ledger.Records()); err != nil {
		m.log.Error("persist_failed", zap.String("day", m.ledger.Day()), zap.Error(err))
	}
}

func (m *Monitor) liveCounts() (online, offline int) {
	for _, up := range m.states {
		if up {
			online++
		} else {
			offline++
		}
	}
	return online, offline
}

func (m *Monitor) publish() {
	online, offline := m.liveCounts()
	snap := Snapshot{
		Summary: m.ledger.Summary(),
		Outages: m.ledger.Snapshot(),
		Devices: len(m.devices),
		Online:  online,
		Offline: offline,
	}
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
}

// Snapshot returns the view published at the end of the latest cycle. Safe
// to call from any goroutine.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}
