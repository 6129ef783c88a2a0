package recdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forktv/forkd/internal/persistence/sqlite"
)

// ErrNotFound is returned when a program id does not resolve. It is distinct
// from a successful lookup with no successor.
var ErrNotFound = errors.New("recdb: program not found")

// Store provides read access to the host recording schema and owns the
// fork_recorded_videos extension table.
type Store struct {
	DB *sql.DB
}

// NewStore opens the host database and ensures the extension table exists.
func NewStore(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("recdb: migration failed: %w", err)
	}
	return s, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// migrate creates the one table this service owns. Everything else in the
// schema belongs to the host application.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fork_recorded_videos (
		recorded_video_id INTEGER NOT NULL PRIMARY KEY REFERENCES recorded_videos ON DELETE CASCADE,
		comment_count INTEGER
	);
	`
	_, err := s.DB.Exec(schema)
	return err
}

const programFromClause = `
	FROM recorded_programs rp
	JOIN recorded_videos rv ON rp.id = rv.recorded_program_id
	LEFT JOIN channels ch ON rp.channel_id = ch.id
	LEFT JOIN fork_recorded_videos frv ON rv.id = frv.recorded_video_id`

// TimetablePrograms returns every program whose broadcast window overlaps
// the half-open interval [windowStart, windowEnd). A program ending exactly
// at windowStart is included, one starting exactly at windowEnd is not.
func (s *Store) TimetablePrograms(ctx context.Context, windowStart, windowEnd time.Time) ([]*RecordedProgram, error) {
	query := `SELECT ` + programColumns + programFromClause + `
	WHERE rp.end_time >= ?
	  AND rp.start_time < ?
	ORDER BY rp.start_time ASC, rp.id ASC`

	rows, err := s.DB.QueryContext(ctx, query, FormatTime(windowStart), FormatTime(windowEnd))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	programs := make([]*RecordedProgram, 0)
	for rows.Next() {
		r, err := scanProgramRow(rows)
		if err != nil {
			return nil, err
		}
		p, err := r.toProgram()
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// NextProgram returns the chronologically next program on the same channel
// as the given program, or nil when none exists. A program without a channel
// has no successor by definition. ErrNotFound is returned when id itself
// does not resolve.
func (s *Store) NextProgram(ctx context.Context, id int64) (*RecordedProgram, error) {
	var channelID sql.NullString
	var endTime string
	err := s.DB.QueryRowContext(ctx,
		`SELECT channel_id, end_time FROM recorded_programs WHERE id = ?`, id,
	).Scan(&channelID, &endTime)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !channelID.Valid {
		return nil, nil
	}

	// Tie-break on id: back-to-back programs can share a start time, and
	// polling clients need a deterministic pick.
	query := `SELECT ` + programColumns + programFromClause + `
	WHERE rp.channel_id = ?
	  AND rp.start_time >= ?
	ORDER BY rp.start_time ASC, rp.id ASC
	LIMIT 1`

	row := s.DB.QueryRowContext(ctx, query, channelID.String, endTime)
	r, err := scanProgramRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toProgram()
}

// OrphanCandidate identifies one program eligible for cleanup.
type OrphanCandidate struct {
	ProgramID int64
	FileHash  string
}

// OrphanCandidates lists the programs whose video file lives under
// folderPath, ordered by program id. Matching is path-boundary aware: the
// folder "/rec/foo" matches "/rec/foo/a.ts" but not "/rec/foobar/a.ts".
func (s *Store) OrphanCandidates(ctx context.Context, folderPath string) ([]OrphanCandidate, error) {
	query := `
	SELECT rp.id, rv.file_hash
	FROM recorded_programs rp
	JOIN recorded_videos rv ON rp.id = rv.recorded_program_id
	WHERE rv.file_path LIKE ? ESCAPE '\'
	ORDER BY rp.id`

	rows, err := s.DB.QueryContext(ctx, query, folderLikePattern(folderPath))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var candidates []OrphanCandidate
	for rows.Next() {
		var c OrphanCandidate
		if err := rows.Scan(&c.ProgramID, &c.FileHash); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// folderLikePattern builds a LIKE pattern that matches files under the given
// folder only. The trailing separator prevents a sibling folder with a
// shared name prefix from matching, and LIKE metacharacters in the
// user-supplied path are escaped.
func folderLikePattern(folderPath string) string {
	p := strings.TrimRight(folderPath, "/")
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(p) + "/%"
}

// CountOtherProgramsWithHash counts programs other than excludeID whose
// video shares the given content hash.
func (s *Store) CountOtherProgramsWithHash(ctx context.Context, excludeID int64, fileHash string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `
	SELECT COUNT(*)
	FROM recorded_programs rp
	JOIN recorded_videos rv ON rp.id = rv.recorded_program_id
	WHERE rv.file_hash = ?
	  AND rp.id != ?`, fileHash, excludeID,
	).Scan(&n)
	return n, err
}

// DeleteProgram removes a program row. The host schema cascades the delete
// to the video and fork rows.
func (s *Store) DeleteProgram(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM recorded_programs WHERE id = ?`, id)
	return err
}
