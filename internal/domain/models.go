package domain

// Device is one monitored endpoint: an address to probe and the
// human-readable location it belongs to. The device set is fixed for a run.
type Device struct {
	Addr     string
	Location string
}

// OutageRecord is one entry in a day's ledger. OfflineAt is written once at
// creation; OnlineAt and OfflineFor are written once at closure. While the
// outage is open, OnlineAt stays nil and OfflineFor carries an ONGOING marker
// that is refreshed before every persist.
type OutageRecord struct {
	ID         string  `json:"-"` // stable handle for the active-outage back-reference
	OfflineAt  string  `json:"offline_at"`
	OnlineAt   *string `json:"online_at"`
	OfflineFor string  `json:"offline_for"`
}

// Open reports whether the record has not been closed yet.
func (r *OutageRecord) Open() bool { return r.OnlineAt == nil }

// Clone returns an independent copy, used when publishing snapshots.
func (r *OutageRecord) Clone() *OutageRecord {
	cp := *r
	if r.OnlineAt != nil {
		v := *r.OnlineAt
		cp.OnlineAt = &v
	}
	return &cp
}

// Summary is the per-day roll-up printed at shutdown and served by the API.
type Summary struct {
	Day          string         `json:"day"`
	TotalOutages int            `json:"total_outages"`
	OpenOutages  int            `json:"open_outages"`
	ByLocation   map[string]int `json:"by_location"`
}
