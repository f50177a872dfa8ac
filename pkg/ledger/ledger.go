// Package ledger keeps a sqlite record of every mosaic build and its tiles.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abworrall/hips-mosaic/pkg/mosaic"
)

var ErrNoBuild = errors.New("no such build")

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS builds (
			build_id TEXT PRIMARY KEY,
			name TEXT,
			ra DOUBLE,
			dec DOUBLE,
			survey TEXT,
			hips_order INTEGER,
			grid_width INTEGER,
			grid_height INTEGER,
			output_size INTEGER,
			grid_status TEXT,
			state TEXT,
			fallback BOOLEAN,
			residual DOUBLE,
			retrieved INTEGER,
			failed INTEGER,
			output TEXT,
			started TEXT,
			finished TEXT
		);
		CREATE TABLE IF NOT EXISTS tiles (
			build_id TEXT,
			grid_x INTEGER,
			grid_y INTEGER,
			pixel BIGINT,
			hips_order INTEGER,
			cell_state TEXT,
			ra DOUBLE,
			dec DOUBLE,
			url TEXT,
			retrieved BOOLEAN,
			bytes INTEGER,
			error TEXT,
			PRIMARY KEY (build_id, grid_x, grid_y),
			FOREIGN KEY(build_id) REFERENCES builds(build_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger tables: %w", err)
	}

	return &DB{db}, nil
}

type BuildRecord struct {
	ID         string
	Name       string
	RA, Dec    float64
	Survey     string
	Order      int
	GridWidth  int
	GridHeight int
	OutputSize int
	GridStatus string
	State      string
	Fallback   bool
	Residual   float64
	Retrieved  int
	Failed     int
	Output     string // filename of the written mosaic, if any
	Started    time.Time
	Finished   time.Time
}

type TileRecord struct {
	BuildID   string
	GridX     int
	GridY     int
	Pixel     int64
	Order     int
	CellState string
	RA, Dec   float64
	URL       string
	Retrieved bool
	Bytes     int
	Error     string
}

// FromBuild snapshots a build, in whatever state it has reached.
func FromBuild(b *mosaic.Build, output string) (BuildRecord, []TileRecord) {
	r := BuildRecord{
		ID:         b.ID,
		Name:       b.Name,
		RA:         b.Target.RA,
		Dec:        b.Target.Dec,
		Survey:     b.Survey,
		Order:      b.Order,
		GridWidth:  b.GridWidth,
		GridHeight: b.GridHeight,
		OutputSize: b.OutputSize,
		State:      b.State().String(),
		Fallback:   b.Placement.Fallback,
		Residual:   b.Result.Residual,
		Failed:     b.Failed(),
		Output:     output,
		Started:    b.Started,
		Finished:   b.Finished,
	}
	if b.Layout == nil {
		return r, nil
	}
	r.GridStatus = b.Layout.Grid.Status.String()
	r.Retrieved = b.Layout.Retrieved()

	tiles := make([]TileRecord, 0, len(b.Layout.Tiles))
	for _, t := range b.Layout.Tiles {
		tr := TileRecord{
			BuildID:   b.ID,
			GridX:     t.GridX,
			GridY:     t.GridY,
			Pixel:     t.Address.Index,
			Order:     t.Address.Order,
			CellState: t.State.String(),
			RA:        t.SkyCenter.RA,
			Dec:       t.SkyCenter.Dec,
			URL:       t.Locator.URL(),
			Retrieved: t.Retrieved,
			Bytes:     t.Bytes,
		}
		if t.Err != nil {
			tr.Error = t.Err.Error()
		}
		tiles = append(tiles, tr)
	}
	return r, tiles
}

// Fixed width so that the text sorts in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

// execer is what *sql.DB and *sql.Tx have in common.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// RecordBuild inserts or replaces the build row.
func (db *DB) RecordBuild(r BuildRecord) error { return recordBuild(db.DB, r) }

func (db *DB) RecordTile(t TileRecord) error { return recordTile(db.DB, t) }

func recordBuild(ex execer, r BuildRecord) error {
	_, err := ex.Exec(`INSERT OR REPLACE INTO builds (build_id, name, ra, dec, survey, hips_order,
		grid_width, grid_height, output_size, grid_status, state, fallback, residual,
		retrieved, failed, output, started, finished)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.RA, r.Dec, r.Survey, r.Order,
		r.GridWidth, r.GridHeight, r.OutputSize, r.GridStatus, r.State, r.Fallback, r.Residual,
		r.Retrieved, r.Failed, r.Output, formatTime(r.Started), formatTime(r.Finished))
	if err != nil {
		return fmt.Errorf("record build %s: %w", r.ID, err)
	}
	return nil
}

func recordTile(ex execer, t TileRecord) error {
	_, err := ex.Exec(`INSERT OR REPLACE INTO tiles (build_id, grid_x, grid_y, pixel, hips_order,
		cell_state, ra, dec, url, retrieved, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.BuildID, t.GridX, t.GridY, t.Pixel, t.Order,
		t.CellState, t.RA, t.Dec, t.URL, t.Retrieved, t.Bytes, t.Error)
	if err != nil {
		return fmt.Errorf("record tile %s [%d,%d]: %w", t.BuildID, t.GridX, t.GridY, err)
	}
	return nil
}

// Record writes a build and all its tiles in one transaction.
func (db *DB) Record(b *mosaic.Build, output string) error {
	r, tiles := FromBuild(b, output)

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := recordBuild(tx, r); err != nil {
		tx.Rollback()
		return err
	}
	for _, t := range tiles {
		if err := recordTile(tx, t); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (db *DB) Build(id string) (BuildRecord, error) {
	var r BuildRecord
	var started, finished string
	err := db.QueryRow(`SELECT build_id, name, ra, dec, survey, hips_order, grid_width, grid_height,
		output_size, grid_status, state, fallback, residual, retrieved, failed, output, started, finished
		FROM builds WHERE build_id = ?`, id).Scan(
		&r.ID, &r.Name, &r.RA, &r.Dec, &r.Survey, &r.Order, &r.GridWidth, &r.GridHeight,
		&r.OutputSize, &r.GridStatus, &r.State, &r.Fallback, &r.Residual, &r.Retrieved, &r.Failed,
		&r.Output, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%s: %w", id, ErrNoBuild)
	} else if err != nil {
		return r, fmt.Errorf("read build %s: %w", id, err)
	}

	if r.Started, err = parseTime(started); err != nil {
		return r, err
	}
	if r.Finished, err = parseTime(finished); err != nil {
		return r, err
	}
	return r, nil
}

// Tiles returns a build's tiles in row-major order, north row first.
func (db *DB) Tiles(id string) ([]TileRecord, error) {
	rows, err := db.Query(`SELECT build_id, grid_x, grid_y, pixel, hips_order, cell_state, ra, dec,
		url, retrieved, bytes, error FROM tiles WHERE build_id = ? ORDER BY grid_y, grid_x`, id)
	if err != nil {
		return nil, fmt.Errorf("read tiles %s: %w", id, err)
	}
	defer rows.Close()

	var out []TileRecord
	for rows.Next() {
		var t TileRecord
		if err := rows.Scan(&t.BuildID, &t.GridX, &t.GridY, &t.Pixel, &t.Order, &t.CellState,
			&t.RA, &t.Dec, &t.URL, &t.Retrieved, &t.Bytes, &t.Error); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Recent lists the latest builds, newest first.
func (db *DB) Recent(n int) ([]string, error) {
	rows, err := db.Query(`SELECT build_id FROM builds ORDER BY started DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
