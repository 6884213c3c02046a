package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hamed0406/outagemon/internal/domain"
	"github.com/hamed0406/outagemon/internal/store"
)

var _ store.LedgerStore = (*Store)(nil)

// Store keeps one JSON file per calendar day under a directory,
// named outages_<YYYYMMDD>.json.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure outages directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Load(ctx context.Context, day string) (map[string][]*domain.OutageRecord, error) {
	b, err := os.ReadFile(s.path(day))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read day file: %w", err)
	}
	var out map[string][]*domain.OutageRecord
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode day file: %w", err)
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, day string, outages map[string][]*domain.OutageRecord) error {
	b, err := json.MarshalIndent(outages, "", "  ")
	if err != nil {
		return fmt.Errorf("encode day file: %w", err)
	}
	// write-then-rename so a crash mid-write never truncates the day file
	tmp := s.path(day) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write day file: %w", err)
	}
	if err := os.Rename(tmp, s.path(day)); err != nil {
		return fmt.Errorf("replace day file: %w", err)
	}
	return nil
}

func (s *Store) path(day string) string {
	return filepath.Join(s.dir, "outages_"+day+".json")
}
