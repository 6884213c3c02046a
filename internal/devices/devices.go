package devices

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/outagemon/internal/domain"
)

// Load reads the device list from a CSV file with a header row naming a
// "location" and a "device" column, and returns one Device per data row.
// The monitor cannot run without a valid device set, so every failure here
// is returned to the caller and treated as fatal.
func Load(path string) ([]domain.Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open device list: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse device list: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("device list %s has no data rows", path)
	}

	locCol, addrCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "location":
			locCol = i
		case "device":
			addrCol = i
		}
	}
	if locCol < 0 || addrCol < 0 {
		return nil, fmt.Errorf("device list %s needs location and device columns", path)
	}

	seen := make(map[string]struct{})
	out := make([]domain.Device, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) <= locCol || len(row) <= addrCol {
			return nil, fmt.Errorf("device list row %d is short", i+2)
		}
		addr := strings.TrimSpace(row[addrCol])
		location := strings.TrimSpace(row[locCol])
		if addr == "" || location == "" {
			return nil, fmt.Errorf("device list row %d has an empty field", i+2)
		}
		if _, dup := seen[addr]; dup {
			continue // first mapping wins for a duplicated address
		}
		seen[addr] = struct{}{}
		out = append(out, domain.Device{Addr: addr, Location: location})
	}
	return out, nil
}
