package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/outagemon/internal/domain"
)

// Active tracks one open outage for a device. At most one Active exists per
// address at any time. It references its OutageRecord by generated ID rather
// than slice position so reordering can never corrupt the back-reference.
type Active struct {
	Addr      string
	Location  string
	RecordID  string
	OfflineAt string    // formatted original offline time
	Since     time.Time // numeric form, used for duration math
	Continued bool      // carried over a day boundary
}

// Closed describes an outage that just ended, for logging.
type Closed struct {
	Location  string
	OfflineAt string
	Duration  time.Duration
}

// Ledger owns one calendar day's outage records per location plus the set of
// currently open outages. It is mutated only by the scheduler's coordinating
// loop, after each cycle's probe results have joined, so it carries no lock.
type Ledger struct {
	day     string
	outages map[string][]*domain.OutageRecord
	active  map[string]*Active
}

func New(day string) *Ledger {
	return &Ledger{
		day:     day,
		outages: make(map[string][]*domain.OutageRecord),
		active:  make(map[string]*Active),
	}
}

// Resume rebuilds a ledger from a previously persisted day, so an interrupted
// run picks up where it left off. Loaded records get fresh IDs; records that
// were open when the previous process died stay as they were saved, since the
// file does not record which device they belonged to.
func Resume(day string, saved map[string][]*domain.OutageRecord) *Ledger {
	l := New(day)
	for location, recs := range saved {
		for _, r := range recs {
			cp := r.Clone()
			cp.ID = uuid.NewString()
			l.outages[location] = append(l.outages[location], cp)
		}
	}
	return l
}

func (l *Ledger) Day() string { return l.day }

// Open appends a new record for the location and registers the device's
// active outage. now is the confirmation completion time.
func (l *Ledger) Open(addr, location string, now time.Time) *domain.OutageRecord {
	rec := &domain.OutageRecord{
		ID:         uuid.NewString(),
		OfflineAt:  domain.FormatTimestamp(now),
		OfflineFor: domain.OngoingMarker,
	}
	l.outages[location] = append(l.outages[location], rec)
	l.active[addr] = &Active{
		Addr:      addr,
		Location:  location,
		RecordID:  rec.ID,
		OfflineAt: rec.OfflineAt,
		Since:     now,
	}
	return rec
}

// Close finalizes the device's open outage. Closing a device with no active
// outage is a no-op, which guards against duplicate recovery events.
func (l *Ledger) Close(addr string, now time.Time) (Closed, bool) {
	a, ok := l.active[addr]
	if !ok {
		return Closed{}, false
	}
	delete(l.active, addr)

	elapsed := now.Sub(a.Since)
	if rec := l.find(a.Location, a.RecordID); rec != nil {
		online := domain.FormatTimestamp(now)
		rec.OnlineAt = &online
		rec.OfflineFor = domain.FormatDuration(elapsed)
	}
	return Closed{Location: a.Location, OfflineAt: a.OfflineAt, Duration: elapsed}, true
}

// RefreshOngoing rewrites the duration text of every open outage so a file
// written right after always shows a live elapsed time.
func (l *Ledger) RefreshOngoing(now time.Time) {
	for _, a := range l.active {
		rec := l.find(a.Location, a.RecordID)
		if rec == nil {
			continue
		}
		elapsed := now.Sub(a.Since)
		if a.Continued {
			rec.OfflineFor = domain.ContinuedFor(elapsed)
		} else {
			rec.OfflineFor = domain.OngoingFor(elapsed)
		}
	}
}

// Rollover builds the next day's ledger, re-opening every still-active outage
// as a continuing record that keeps the original offline timestamp. The
// outgoing ledger is left intact for its final persist.
func (l *Ledger) Rollover(day string) *Ledger {
	next := New(day)

	addrs := make([]string, 0, len(l.active))
	for addr := range l.active {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		a := l.active[addr]
		rec := &domain.OutageRecord{
			ID:         uuid.NewString(),
			OfflineAt:  a.OfflineAt,
			OfflineFor: domain.ContinuedMarker,
		}
		next.outages[a.Location] = append(next.outages[a.Location], rec)
		next.active[addr] = &Active{
			Addr:      addr,
			Location:  a.Location,
			RecordID:  rec.ID,
			OfflineAt: a.OfflineAt,
			Since:     a.Since,
			Continued: true,
		}
	}
	return next
}

// Records exposes the live location → record map for persistence. Callers
// outside the coordinating loop must use Snapshot instead.
func (l *Ledger) Records() map[string][]*domain.OutageRecord { return l.outages }

// Snapshot deep-copies the current records for readers outside the loop.
func (l *Ledger) Snapshot() map[string][]*domain.OutageRecord {
	out := make(map[string][]*domain.OutageRecord, len(l.outages))
	for location, recs := range l.outages {
		cp := make([]*domain.OutageRecord, len(recs))
		for i, r := range recs {
			cp[i] = r.Clone()
		}
		out[location] = cp
	}
	return out
}

// OpenCount reports how many outages are currently open.
func (l *Ledger) OpenCount() int { return len(l.active) }

// OpenRecords counts records with no online_at, across all locations.
func (l *Ledger) OpenRecords() int {
	n := 0
	for _, recs := range l.outages {
		for _, r := range recs {
			if r.Open() {
				n++
			}
		}
	}
	return n
}

// Summary rolls the day up for the exit report and the status API.
func (l *Ledger) Summary() domain.Summary {
	s := domain.Summary{
		Day:         l.day,
		OpenOutages: len(l.active),
		ByLocation:  make(map[string]int, len(l.outages)),
	}
	for location, recs := range l.outages {
		s.ByLocation[location] = len(recs)
		s.TotalOutages += len(recs)
	}
	return s
}

func (l *Ledger) find(location, id string) *domain.OutageRecord {
	for _, r := range l.outages[location] {
		if r.ID == id {
			return r
		}
	}
	return nil
}
