// Package recdbtest creates the host application's recording schema and
// seeds fixture rows for tests. The production service never writes to these
// tables, so the DDL lives here instead of in the store.
package recdbtest

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/forktv/forkd/internal/recdb"
)

const hostSchema = `
CREATE TABLE IF NOT EXISTS channels (
	id TEXT PRIMARY KEY,
	display_channel_id TEXT NOT NULL,
	network_id INTEGER NOT NULL,
	service_id INTEGER NOT NULL,
	transport_stream_id INTEGER,
	remocon_id INTEGER NOT NULL,
	channel_number TEXT NOT NULL,
	type TEXT NOT NULL,
	name TEXT NOT NULL,
	jikkyo_force INTEGER,
	is_subchannel INTEGER NOT NULL,
	is_radiochannel INTEGER NOT NULL,
	is_watchable INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS recorded_programs (
	id INTEGER PRIMARY KEY,
	recording_start_margin REAL NOT NULL DEFAULT 0,
	recording_end_margin REAL NOT NULL DEFAULT 0,
	is_partially_recorded INTEGER NOT NULL DEFAULT 0,
	channel_id TEXT REFERENCES channels(id),
	network_id INTEGER,
	service_id INTEGER,
	event_id INTEGER,
	series_id INTEGER,
	series_broadcast_period_id INTEGER,
	title TEXT NOT NULL,
	series_title TEXT,
	episode_number TEXT,
	subtitle TEXT,
	description TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '{}',
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	duration REAL NOT NULL DEFAULT 0,
	is_free INTEGER NOT NULL DEFAULT 1,
	genres TEXT NOT NULL DEFAULT '[]',
	primary_audio_type TEXT NOT NULL DEFAULT '2/0モード(ステレオ)',
	primary_audio_language TEXT NOT NULL DEFAULT '日本語',
	secondary_audio_type TEXT,
	secondary_audio_language TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recorded_videos (
	id INTEGER PRIMARY KEY,
	recorded_program_id INTEGER NOT NULL UNIQUE REFERENCES recorded_programs(id) ON DELETE CASCADE,
	status TEXT NOT NULL DEFAULT 'Recorded',
	file_path TEXT NOT NULL,
	file_hash TEXT NOT NULL,
	file_size INTEGER NOT NULL DEFAULT 0,
	file_created_at TEXT NOT NULL,
	file_modified_at TEXT NOT NULL,
	recording_start_time TEXT,
	recording_end_time TEXT,
	duration REAL NOT NULL DEFAULT 0,
	container_format TEXT NOT NULL DEFAULT 'MPEG-TS',
	video_codec TEXT NOT NULL DEFAULT 'MPEG-2',
	video_codec_profile TEXT NOT NULL DEFAULT 'High',
	video_scan_type TEXT NOT NULL DEFAULT 'Interlaced',
	video_frame_rate REAL NOT NULL DEFAULT 29.97,
	video_resolution_width INTEGER NOT NULL DEFAULT 1440,
	video_resolution_height INTEGER NOT NULL DEFAULT 1080,
	primary_audio_codec TEXT NOT NULL DEFAULT 'AAC-LC',
	primary_audio_channel TEXT NOT NULL DEFAULT 'Stereo',
	primary_audio_sampling_rate INTEGER NOT NULL DEFAULT 48000,
	secondary_audio_codec TEXT,
	secondary_audio_channel TEXT,
	secondary_audio_sampling_rate INTEGER,
	key_frames TEXT NOT NULL DEFAULT '[]',
	cm_sections TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// CreateHostSchema creates the host tables the service reads from.
func CreateHostSchema(tb testing.TB, db *sql.DB) {
	tb.Helper()
	if _, err := db.Exec(hostSchema); err != nil {
		tb.Fatalf("create host schema: %v", err)
	}
}

// ChannelSpec describes a channel fixture row.
type ChannelSpec struct {
	ID   string
	Name string
}

// InsertChannel inserts a channel fixture with fixed tuning metadata.
func InsertChannel(tb testing.TB, db *sql.DB, spec ChannelSpec) {
	tb.Helper()
	name := spec.Name
	if name == "" {
		name = "Channel " + spec.ID
	}
	_, err := db.Exec(`
	INSERT INTO channels (id, display_channel_id, network_id, service_id, transport_stream_id,
		remocon_id, channel_number, type, name, jikkyo_force, is_subchannel, is_radiochannel, is_watchable)
	VALUES (?, ?, 32736, 1024, 32736, 1, '011', 'GR', ?, NULL, 0, 0, 1)`,
		spec.ID, spec.ID, name)
	if err != nil {
		tb.Fatalf("insert channel %s: %v", spec.ID, err)
	}
}

// ProgramSpec describes a recorded program fixture together with its video
// and optional fork extension row. Zero values get filled with defaults.
type ProgramSpec struct {
	ID           int64
	ChannelID    *string
	Title        string
	StartTime    time.Time
	EndTime      time.Time
	FilePath     string
	FileHash     string
	Detail       string // JSON object text
	Genres       string // JSON list text
	KeyFrames    string // JSON list text, "[]" means no key frames
	CMSections   *string
	CommentCount *int64
}

// InsertProgram inserts a program fixture plus its 1:1 video row and, when a
// comment count is given, the fork extension row.
func InsertProgram(tb testing.TB, db *sql.DB, spec ProgramSpec) {
	tb.Helper()

	if spec.Title == "" {
		spec.Title = fmt.Sprintf("Program %d", spec.ID)
	}
	if spec.FilePath == "" {
		spec.FilePath = fmt.Sprintf("/recorded/%d.ts", spec.ID)
	}
	if spec.FileHash == "" {
		spec.FileHash = fmt.Sprintf("hash-%d", spec.ID)
	}
	if spec.Detail == "" {
		spec.Detail = "{}"
	}
	if spec.Genres == "" {
		spec.Genres = "[]"
	}
	if spec.KeyFrames == "" {
		spec.KeyFrames = "[0,512,1024]"
	}

	now := recdb.FormatTime(spec.EndTime)
	duration := spec.EndTime.Sub(spec.StartTime).Seconds()

	_, err := db.Exec(`
	INSERT INTO recorded_programs (id, channel_id, title, description, detail,
		start_time, end_time, duration, genres, created_at, updated_at)
	VALUES (?, ?, ?, '', ?, ?, ?, ?, ?, ?, ?)`,
		spec.ID, spec.ChannelID, spec.Title, spec.Detail,
		recdb.FormatTime(spec.StartTime), recdb.FormatTime(spec.EndTime),
		duration, spec.Genres, now, now)
	if err != nil {
		tb.Fatalf("insert program %d: %v", spec.ID, err)
	}

	_, err = db.Exec(`
	INSERT INTO recorded_videos (id, recorded_program_id, file_path, file_hash, file_size,
		file_created_at, file_modified_at, duration, key_frames, cm_sections, created_at, updated_at)
	VALUES (?, ?, ?, ?, 1073741824, ?, ?, ?, ?, ?, ?, ?)`,
		spec.ID, spec.ID, spec.FilePath, spec.FileHash,
		now, now, duration, spec.KeyFrames, spec.CMSections, now, now)
	if err != nil {
		tb.Fatalf("insert video %d: %v", spec.ID, err)
	}

	if spec.CommentCount != nil {
		_, err = db.Exec(`
		INSERT INTO fork_recorded_videos (recorded_video_id, comment_count)
		VALUES (?, ?)`, spec.ID, *spec.CommentCount)
		if err != nil {
			tb.Fatalf("insert fork row %d: %v", spec.ID, err)
		}
	}
}

// Ptr returns a pointer to v, for optional fixture fields.
func Ptr[T any](v T) *T {
	return &v
}
