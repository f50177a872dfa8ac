package ledger

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hips-mosaic/pkg/hips"
	"github.com/abworrall/hips-mosaic/pkg/mosaic"
	"github.com/abworrall/hips-mosaic/pkg/sky"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// m51Build runs a small 3x3 build where the south west tile never arrives.
func m51Build(t *testing.T) *mosaic.Build {
	t.Helper()
	cfg := mosaic.NewConfig()
	cfg.TileSize = 16
	cfg.OutputSize = 32

	b, err := mosaic.NewBuild(cfg, "M51", sky.Coord{RA: 202.4695833, Dec: 47.1951667})
	require.NoError(t, err)
	require.NoError(t, b.ComputeGrid(hips.NewIndex(nil)))
	tiles, err := b.BeginFetch()
	require.NoError(t, err)

	for _, tile := range tiles {
		if tile.GridX == 0 && tile.GridY == 2 {
			require.NoError(t, b.TileSettled(tile, nil, 0, errors.New("status 404")))
			continue
		}
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		img.SetRGBA(0, 0, color.RGBA{1, 2, 3, 255})
		require.NoError(t, b.TileSettled(tile, img, 2048, nil))
	}
	require.NoError(t, b.Assemble())
	require.NoError(t, b.Center())
	require.NoError(t, b.Finish())
	return b
}

func TestRecordRoundTrip(t *testing.T) {
	db := openTestDB(t)
	b := m51Build(t)
	require.NoError(t, db.Record(b, "out/m51.png"))

	got, err := db.Build(b.ID)
	require.NoError(t, err)
	want := BuildRecord{
		ID:         b.ID,
		Name:       "M51",
		RA:         202.4695833,
		Dec:        47.1951667,
		Survey:     "DSS2_Color",
		Order:      8,
		GridWidth:  3,
		GridHeight: 3,
		OutputSize: 32,
		GridStatus: b.Layout.Grid.Status.String(),
		State:      "Done",
		Residual:   b.Result.Residual,
		Retrieved:  8,
		Failed:     1,
		Output:     "out/m51.png",
	}
	opt := cmp.FilterPath(func(p cmp.Path) bool {
		return p.String() == "Started" || p.String() == "Finished"
	}, cmp.Ignore())
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("build mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got.Started.Equal(b.Started))
	assert.True(t, got.Finished.Equal(b.Finished))

	tiles, err := db.Tiles(b.ID)
	require.NoError(t, err)
	require.Len(t, tiles, 9)

	// row-major, north row first
	center := tiles[4]
	assert.Equal(t, 1, center.GridX)
	assert.Equal(t, 1, center.GridY)
	assert.Equal(t, int64(176440), center.Pixel)
	assert.Equal(t, 8, center.Order)
	assert.Equal(t, "http://alasky.u-strasbg.fr/DSS/DSSColor/Norder8/Dir170000/Npix176440.jpg", center.URL)
	assert.True(t, center.Retrieved)
	assert.Equal(t, 2048, center.Bytes)
	assert.Empty(t, center.Error)

	sw := tiles[6]
	assert.Equal(t, 0, sw.GridX)
	assert.Equal(t, 2, sw.GridY)
	assert.False(t, sw.Retrieved)
	assert.Equal(t, "status 404", sw.Error)
}

func TestRecordReplaces(t *testing.T) {
	db := openTestDB(t)
	r := BuildRecord{ID: "b1", Name: "first", State: "Idle", Started: time.Now()}
	require.NoError(t, db.RecordBuild(r))
	r.Name, r.State = "second", "Done"
	require.NoError(t, db.RecordBuild(r))

	got, err := db.Build("b1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
	assert.Equal(t, "Done", got.State)
	assert.True(t, got.Finished.IsZero())

	tr := TileRecord{BuildID: "b1", GridX: 1, GridY: 1, Pixel: 5}
	require.NoError(t, db.RecordTile(tr))
	tr.Pixel = 6
	require.NoError(t, db.RecordTile(tr))
	tiles, err := db.Tiles("b1")
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	assert.Equal(t, int64(6), tiles[0].Pixel)
}

func TestMissingBuild(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Build("nope")
	assert.ErrorIs(t, err, ErrNoBuild)

	tiles, err := db.Tiles("nope")
	require.NoError(t, err)
	assert.Empty(t, tiles)
}

func TestRecent(t *testing.T) {
	db := openTestDB(t)
	t0 := time.Date(2024, 4, 8, 18, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.RecordBuild(BuildRecord{ID: id, Started: t0.Add(time.Duration(i) * time.Minute)}))
	}
	ids, err := db.Recent(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids)
}

func TestFromBuildBeforeGrid(t *testing.T) {
	b, err := mosaic.NewBuild(mosaic.NewConfig(), "M51", sky.Coord{RA: 202.47, Dec: 47.2})
	require.NoError(t, err)
	r, tiles := FromBuild(b, "")
	assert.Equal(t, "Idle", r.State)
	assert.Empty(t, r.GridStatus)
	assert.Nil(t, tiles)
}
