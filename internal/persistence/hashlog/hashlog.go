// Package hashlog keeps a sqlite journal of (tick, content hash) rows.
// The replay verifier compares re-resolved hashes against it to surface
// determinism mismatches. Writes run on a dedicated goroutine so the
// engine loop never waits on the database.
package hashlog

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

type Log struct {
	db *sql.DB

	ch     chan row
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool
}

type row struct {
	tick   uint64
	hash   string
	kind   string
	orders int
}

// Row is one journal record.
type Row struct {
	Tick   uint64
	Hash   string
	Kind   string
	Orders int
}

func Open(path string) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			tick   INTEGER PRIMARY KEY,
			hash   TEXT NOT NULL,
			kind   TEXT NOT NULL,
			orders INTEGER NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, err
	}

	l := &Log{db: db, ch: make(chan row, 256)}
	l.wg.Add(1)
	go l.writer()
	return l, nil
}

func (l *Log) writer() {
	defer l.wg.Done()
	for r := range l.ch {
		if _, err := l.db.Exec(
			`INSERT OR REPLACE INTO turns (tick, hash, kind, orders) VALUES (?, ?, ?, ?)`,
			int64(r.tick), r.hash, r.kind, r.orders,
		); err != nil {
			// Journal writes are best effort; resolution must not care.
			continue
		}
	}
}

// WriteTurn enqueues a journal row. Drops the row instead of blocking when
// the writer is backed up.
func (l *Log) WriteTurn(tick uint64, hash, kind string, orderCount int) error {
	if l.closed.Load() {
		return fmt.Errorf("hashlog closed")
	}
	select {
	case l.ch <- row{tick: tick, hash: hash, kind: kind, orders: orderCount}:
	default:
	}
	return nil
}

// Range returns journal rows with from <= tick <= to, ascending.
func (l *Log) Range(from, to uint64) ([]Row, error) {
	rows, err := l.db.Query(
		`SELECT tick, hash, kind, orders FROM turns WHERE tick >= ? AND tick <= ? ORDER BY tick ASC`,
		int64(from), int64(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var tick int64
		if err := rows.Scan(&tick, &r.Hash, &r.Kind, &r.Orders); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestTick returns the highest journaled tick, if any.
func (l *Log) LatestTick() (uint64, bool, error) {
	var tick sql.NullInt64
	if err := l.db.QueryRow(`SELECT MAX(tick) FROM turns`).Scan(&tick); err != nil {
		return 0, false, err
	}
	if !tick.Valid {
		return 0, false, nil
	}
	return uint64(tick.Int64), true, nil
}

func (l *Log) Close() error {
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		l.wg.Wait()
		err = l.db.Close()
	})
	return err
}
