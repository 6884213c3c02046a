package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/outagemon/internal/domain"
)

// --- fakes ---

type fakeChecker struct {
	mu    sync.Mutex
	alive map[string]bool
}

func (f *fakeChecker) Check(ctx context.Context, addr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[addr]
}

func (f *fakeChecker) set(addr string, alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alive == nil {
		f.alive = map[string]bool{}
	}
	f.alive[addr] = alive
}

type fakeConfirmer struct {
	mu      sync.Mutex
	verdict bool
	calls   int
}

func (f *fakeConfirmer) Confirm(ctx context.Context, addr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.verdict
}

func (f *fakeConfirmer) called() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu      sync.Mutex
	saves   int
	byDay   map[string]map[string][]*domain.OutageRecord
	loaded  map[string][]*domain.OutageRecord
	saveErr error
}

func (f *fakeStore) Load(ctx context.Context, day string) (map[string][]*domain.OutageRecord, error) {
	return f.loaded, nil
}

func (f *fakeStore) Save(ctx context.Context, day string, outages map[string][]*domain.OutageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.byDay == nil {
		f.byDay = map[string]map[string][]*domain.OutageRecord{}
	}
	cp := make(map[string][]*domain.OutageRecord, len(outages))
	for location, recs := range outages {
		rs := make([]*domain.OutageRecord, len(recs))
		for i, r := range recs {
			rs[i] = r.Clone()
		}
		cp[location] = rs
	}
	f.byDay[day] = cp
	f.saves++
	return nil
}

func (f *fakeStore) day(day string) map[string][]*domain.OutageRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byDay[day]
}

func newTestMonitor(t *testing.T, devs []domain.Device, chk *fakeChecker, cf *fakeConfirmer, st *fakeStore) *Monitor {
	t.Helper()
	m := NewMonitor(zap.NewNop(), devs, chk, cf, st, time.Second, 4)
	return m
}

var (
	dev1 = domain.Device{Addr: "10.0.0.1", Location: "warehouse"}
	dev2 = domain.Device{Addr: "10.0.0.2", Location: "warehouse"}
	t0   = time.Date(2026, 8, 26, 10, 0, 0, 0, time.Local)
)

func TestCycle_FirstObservationDownConfirmedOpensOneRecord(t *testing.T) {
	chk := &fakeChecker{}
	chk.set(dev1.Addr, false)
	cf := &fakeConfirmer{verdict: true}
	st := &fakeStore{}
	m := newTestMonitor(t, []domain.Device{dev1}, chk, cf, st)
	m.now = func() time.Time { return t0 }

	ctx := context.Background()
	m.initLedger(ctx)
	m.runCycle(ctx)

	if cf.called() != 1 {
		t.Fatalf("want exactly one confirmation, got %d", cf.called())
	}
	recs := st.day("20260826")["warehouse"]
	if len(recs) != 1 {
		t.Fatalf("want exactly one record, got %+v", recs)
	}
	// offline_at is the confirmation completion time, not the first probe time
	if recs[0].OfflineAt != domain.FormatTimestamp(t0) {
		t.Fatalf("offline_at = %q", recs[0].OfflineAt)
	}
	if recs[0].OnlineAt != nil {
		t.Fatalf("new outage must not have online_at")
	}
	snap := m.Snapshot()
	if snap.Summary.OpenOutages != 1 || snap.Offline != 1 {
		t.Fatalf("snapshot wrong: %+v", snap)
	}
}

func TestCycle_BlipProducesNoRecordAndNoStateChange(t *testing.T) {
	chk := &fakeChecker{}
	chk.set(dev1.Addr, false)
	cf := &fakeConfirmer{verdict: false} // device answered during the retries
	st := &fakeStore{}
	m := newTestMonitor(t, []domain.Device{dev1}, chk, cf, st)
	m.now = func() time.Time { return t0 }

	ctx := context.Background()
	m.initLedger(ctx)
	m.runCycle(ctx)

	if got := st.day("20260826"); len(got) != 0 {
		t.Fatalf("blip created records: %+v", got)
	}
	if _, seen := m.states[dev1.Addr]; seen {
		t.Fatalf("blip must leave the device state unchanged")
	}

	// next cycle the device answers: it is simply recorded as reachable
	chk.set(dev1.Addr, true)
	m.runCycle(ctx)
	if up, seen := m.states[dev1.Addr]; !seen || !up {
		t.Fatalf("first clean observation should mark device reachable")
	}
	if cf.called() != 1 {
		t.Fatalf("confirmer called again for a reachable device: %d", cf.called())
	}
}

func TestCycle_RecoveryClosesTheRecord(t *testing.T) {
	chk := &fakeChecker{}
	chk.set(dev1.Addr, false)
	cf := &fakeConfirmer{verdict: true}
	st := &fakeStore{}
	m := newTestMonitor(t, []domain.Device{dev1}, chk, cf, st)

	now := t0
	m.now = func() time.Time { return now }

	ctx := context.Background()
	m.initLedger(ctx)
	m.runCycle(ctx) // opens

	now = t0.Add(125 * time.Second)
	chk.set(dev1.Addr, true)
	m.runCycle(ctx) // closes

	recs := st.day("20260826")["warehouse"]
	if len(recs) != 1 || recs[0].OnlineAt == nil {
		t.Fatalf("recovery did not close the record: %+v", recs)
	}
	if recs[0].OfflineFor != "2 minutes 5 seconds" {
		t.Fatalf("offline_for = %q", recs[0].OfflineFor)
	}
	if *recs[0].OnlineAt != domain.FormatTimestamp(now) {
		t.Fatalf("online_at = %q", *recs[0].OnlineAt)
	}
	if m.ledger.OpenCount() != 0 {
		t.Fatalf("active outage leaked")
	}
}

func TestCycle_TwoDevicesSameLocationSameCycle(t *testing.T) {
	chk := &fakeChecker{}
	chk.set(dev1.Addr, false)
	chk.set(dev2.Addr, false)
	cf := &fakeConfirmer{verdict: true}
	st := &fakeStore{}
	m := newTestMonitor(t, []domain.Device{dev1, dev2}, chk, cf, st)
	m.now = func() time.Time { return t0 }

	ctx := context.Background()
	m.initLedger(ctx)
	m.runCycle(ctx)

	recs := st.day("20260826")["warehouse"]
	if len(recs) != 2 {
		t.Fatalf("want two independent records, got %d", len(recs))
	}
	if m.ledger.OpenCount() != 2 || m.ledger.OpenRecords() != 2 {
		t.Fatalf("open accounting wrong: active=%d records=%d", m.ledger.OpenCount(), m.ledger.OpenRecords())
	}
}

func TestCycle_DayRolloverCarriesOpenOutage(t *testing.T) {
	chk := &fakeChecker{}
	chk.set(dev1.Addr, false)
	cf := &fakeConfirmer{verdict: true}
	st := &fakeStore{}
	m := newTestMonitor(t, []domain.Device{dev1}, chk, cf, st)

	now := time.Date(2026, 8, 26, 23, 59, 0, 0, time.Local)
	m.now = func() time.Time { return now }

	ctx := context.Background()
	m.initLedger(ctx)
	m.runCycle(ctx) // opens late in the day
	offlineAt := domain.FormatTimestamp(now)

	// next cycle lands after midnight, device still down
	now = time.Date(2026, 8, 27, 0, 0, 30, 0, time.Local)
	m.runCycle(ctx)

	// outgoing day was finalized with a live ongoing duration
	old := st.day("20260826")["warehouse"]
	if len(old) != 1 || old[0].OnlineAt != nil {
		t.Fatalf("old day record wrong: %+v", old)
	}
	if old[0].OfflineFor == domain.OngoingMarker {
		t.Fatalf("old day record was not refreshed before the final persist")
	}

	// new day re-opens the outage with the original offline timestamp
	fresh := st.day("20260827")["warehouse"]
	if len(fresh) != 1 {
		t.Fatalf("carried record missing: %+v", st.day("20260827"))
	}
	if fresh[0].OfflineAt != offlineAt {
		t.Fatalf("carried offline_at = %q, want %q", fresh[0].OfflineAt, offlineAt)
	}
	if fresh[0].OnlineAt != nil {
		t.Fatalf("carried record must stay open")
	}
	if m.ledger.OpenCount() != 1 {
		t.Fatalf("open count changed across rollover: %d", m.ledger.OpenCount())
	}

	// recovery in the new day closes with duration measured from the original time
	now = time.Date(2026, 8, 27, 0, 59, 0, 0, time.Local)
	chk.set(dev1.Addr, true)
	m.runCycle(ctx)
	fresh = st.day("20260827")["warehouse"]
	if fresh[0].OnlineAt == nil || fresh[0].OfflineFor != "1 hours 0 minutes 0 seconds" {
		t.Fatalf("carried close wrong: %+v", fresh[0])
	}
}

func TestCycle_PersistFailureKeepsLedgerAndRetries(t *testing.T) {
	chk := &fakeChecker{}
	chk.set(dev1.Addr, false)
	cf := &fakeConfirmer{verdict: true}
	st := &fakeStore{saveErr: errors.New("disk full")}
	m := newTestMonitor(t, []domain.Device{dev1}, chk, cf, st)
	m.now = func() time.Time { return t0 }

	ctx := context.Background()
	m.initLedger(ctx)
	m.runCycle(ctx) // save fails, cycle continues

	if m.ledger.OpenCount() != 1 {
		t.Fatalf("ledger lost the outage on persist failure")
	}

	st.mu.Lock()
	st.saveErr = nil
	st.mu.Unlock()
	m.runCycle(ctx) // next cycle retries the write

	if recs := st.day("20260826")["warehouse"]; len(recs) != 1 {
		t.Fatalf("retry did not persist the ledger: %+v", recs)
	}
}

func TestRun_ShutdownPersistsOnce(t *testing.T) {
	chk := &fakeChecker{}
	chk.set(dev1.Addr, true)
	cf := &fakeConfirmer{}
	st := &fakeStore{}
	m := NewMonitor(zap.NewNop(), []domain.Device{dev1}, chk, cf, st, time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	st.mu.Lock()
	saves := st.saves
	st.mu.Unlock()
	if saves == 0 {
		t.Fatalf("expected at least one persist before exit")
	}
}

func TestResume_LoadsExistingDayFile(t *testing.T) {
	chk := &fakeChecker{}
	cf := &fakeConfirmer{}
	st := &fakeStore{loaded: map[string][]*domain.OutageRecord{
		"lobby": {{OfflineAt: "08/26/2026 09:00:00", OfflineFor: "ONGOING (5 minutes 0 seconds)"}},
	}}
	m := newTestMonitor(t, nil, chk, cf, st)
	m.now = func() time.Time { return t0 }

	m.initLedger(context.Background())
	if got := m.ledger.Records()["lobby"]; len(got) != 1 {
		t.Fatalf("resumed records missing: %+v", got)
	}
	if m.ledger.Summary().TotalOutages != 1 {
		t.Fatalf("summary should include resumed records")
	}
}
