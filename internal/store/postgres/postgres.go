package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/outagemon/internal/domain"
	"github.com/hamed0406/outagemon/internal/store"
)

var _ store.LedgerStore = (*Store)(nil)

// Store keeps daily ledgers in Postgres. Expected schema:
//
//	CREATE TABLE outage_records (
//	    day         TEXT NOT NULL,
//	    location    TEXT NOT NULL,
//	    seq         INT  NOT NULL,
//	    offline_at  TEXT NOT NULL,
//	    online_at   TEXT,
//	    offline_for TEXT NOT NULL,
//	    PRIMARY KEY (day, location, seq)
//	);
//
// A day's rows are replaced wholesale on every Save, mirroring the file store.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Load(ctx context.Context, day string) (map[string][]*domain.OutageRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT location, offline_at, online_at, offline_for
		   FROM outage_records
		  WHERE day = $1
		  ORDER BY location, seq`, day)
	if err != nil {
		return nil, fmt.Errorf("load day: %w", err)
	}
	defer rows.Close()

	var out map[string][]*domain.OutageRecord
	for rows.Next() {
		var (
			location   string
			offlineAt  string
			onlineAt   sql.NullString
			offlineFor string
		)
		if err := rows.Scan(&location, &offlineAt, &onlineAt, &offlineFor); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if out == nil {
			out = make(map[string][]*domain.OutageRecord)
		}
		rec := &domain.OutageRecord{OfflineAt: offlineAt, OfflineFor: offlineFor}
		if onlineAt.Valid {
			v := onlineAt.String
			rec.OnlineAt = &v
		}
		out[location] = append(out[location], rec)
	}
	return out, rows.Err()
}

func (s *Store) Save(ctx context.Context, day string, outages map[string][]*domain.OutageRecord) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM outage_records WHERE day = $1`, day); err != nil {
		return fmt.Errorf("clear day: %w", err)
	}
	for location, recs := range outages {
		for seq, r := range recs {
			var online *string
			if r.OnlineAt != nil {
				online = r.OnlineAt
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO outage_records (day, location, seq, offline_at, online_at, offline_for)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				day, location, seq, r.OfflineAt, online, r.OfflineFor,
			); err != nil {
				return fmt.Errorf("insert record: %w", err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
