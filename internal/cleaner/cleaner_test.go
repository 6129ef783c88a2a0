package cleaner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forktv/forkd/internal/cleaner"
	"github.com/forktv/forkd/internal/recdb"
	"github.com/forktv/forkd/internal/recdb/recdbtest"
)

type fixture struct {
	store     *recdb.Store
	thumbsDir string
	cleaner   *cleaner.Cleaner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := recdb.NewStore(filepath.Join(t.TempDir(), "host.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	recdbtest.CreateHostSchema(t, s.DB)

	thumbsDir := t.TempDir()
	return &fixture{
		store:     s,
		thumbsDir: thumbsDir,
		cleaner:   cleaner.New(s, thumbsDir),
	}
}

func (f *fixture) writeThumbnail(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.thumbsDir, name)
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
	return path
}

func (f *fixture) programCount(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.store.DB.QueryRow("SELECT COUNT(*) FROM recorded_programs").Scan(&n))
	return n
}

func at(hour int) time.Time {
	return time.Date(2025, 10, 20, hour, 0, 0, 0, time.UTC)
}

func TestRunDeletesRowsAndThumbnails(t *testing.T) {
	f := newFixture(t)
	recdbtest.InsertProgram(t, f.store.DB, recdbtest.ProgramSpec{
		ID: 1, StartTime: at(9), EndTime: at(10), FilePath: "/rec/old/a.ts", FileHash: "aaa",
	})
	primary := f.writeThumbnail(t, "aaa.webp")
	tile := f.writeThumbnail(t, "aaa_tile.webp")

	f.cleaner.Run(context.Background(), "/rec/old")

	assert.Zero(t, f.programCount(t))
	assert.NoFileExists(t, primary)
	assert.NoFileExists(t, tile)
}

func TestRunKeepsSharedHashThumbnails(t *testing.T) {
	f := newFixture(t)
	// Two programs back the same physical file; only one is under the folder.
	recdbtest.InsertProgram(t, f.store.DB, recdbtest.ProgramSpec{
		ID: 1, StartTime: at(9), EndTime: at(10), FilePath: "/rec/old/a.ts", FileHash: "shared",
	})
	recdbtest.InsertProgram(t, f.store.DB, recdbtest.ProgramSpec{
		ID: 2, StartTime: at(10), EndTime: at(11), FilePath: "/rec/keep/a.ts", FileHash: "shared",
	})
	primary := f.writeThumbnail(t, "shared.webp")

	f.cleaner.Run(context.Background(), "/rec/old")

	assert.Equal(t, 1, f.programCount(t), "the matching program row is still deleted")
	assert.FileExists(t, primary, "shared-hash thumbnails survive")
}

func TestRunDeletesFallbackFormat(t *testing.T) {
	f := newFixture(t)
	recdbtest.InsertProgram(t, f.store.DB, recdbtest.ProgramSpec{
		ID: 1, StartTime: at(9), EndTime: at(10), FilePath: "/rec/old/a.ts", FileHash: "bbb",
	})
	// Only the rarely produced JPEG variants exist.
	primary := f.writeThumbnail(t, "bbb.jpg")
	tile := f.writeThumbnail(t, "bbb_tile.jpg")

	f.cleaner.Run(context.Background(), "/rec/old")

	assert.Zero(t, f.programCount(t))
	assert.NoFileExists(t, primary)
	assert.NoFileExists(t, tile)
}

func TestRunMissingThumbnailsNotFatal(t *testing.T) {
	f := newFixture(t)
	recdbtest.InsertProgram(t, f.store.DB, recdbtest.ProgramSpec{
		ID: 1, StartTime: at(9), EndTime: at(10), FilePath: "/rec/old/a.ts", FileHash: "ccc",
	})

	f.cleaner.Run(context.Background(), "/rec/old")

	assert.Zero(t, f.programCount(t), "absent thumbnails do not block row deletion")
}

func TestRunLeavesOtherFoldersAlone(t *testing.T) {
	f := newFixture(t)
	recdbtest.InsertProgram(t, f.store.DB, recdbtest.ProgramSpec{
		ID: 1, StartTime: at(9), EndTime: at(10), FilePath: "/rec/old/a.ts", FileHash: "ddd",
	})
	recdbtest.InsertProgram(t, f.store.DB, recdbtest.ProgramSpec{
		ID: 2, StartTime: at(10), EndTime: at(11), FilePath: "/rec/oldies/b.ts", FileHash: "eee",
	})
	keep := f.writeThumbnail(t, "eee.webp")

	f.cleaner.Run(context.Background(), "/rec/old")

	assert.Equal(t, 1, f.programCount(t))
	assert.FileExists(t, keep, "sibling folder with a shared name prefix is untouched")
}

func TestRunMissingThumbnailsDirSkipsFileDeletion(t *testing.T) {
	f := newFixture(t)
	c := cleaner.New(f.store, filepath.Join(f.thumbsDir, "does-not-exist"))
	recdbtest.InsertProgram(t, f.store.DB, recdbtest.ProgramSpec{
		ID: 1, StartTime: at(9), EndTime: at(10), FilePath: "/rec/old/a.ts", FileHash: "fff",
	})

	c.Run(context.Background(), "/rec/old")

	assert.Zero(t, f.programCount(t))
}
