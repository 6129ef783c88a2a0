// Package cleaner removes orphaned recording rows and their thumbnails.
package cleaner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/forktv/forkd/internal/log"
	"github.com/forktv/forkd/internal/recdb"
)

// Cleaner runs best-effort cleanup passes over recordings below a folder.
type Cleaner struct {
	store         *recdb.Store
	thumbnailsDir string
}

// New returns a Cleaner that deletes rows through store and thumbnail files
// below thumbnailsDir.
func New(store *recdb.Store, thumbnailsDir string) *Cleaner {
	return &Cleaner{store: store, thumbnailsDir: thumbnailsDir}
}

// Run processes every program whose video file lives under folderPath. The
// pass is best-effort: a fault in one candidate is logged and the loop moves
// on, and partial completion is an accepted outcome. Every run carries a job
// id in its log context so its events can be correlated.
func (c *Cleaner) Run(ctx context.Context, folderPath string) {
	ctx = log.ContextWithJobID(ctx, uuid.New().String())
	logger := log.WithComponentFromContext(ctx, "cleaner")

	logger.Info().
		Str("event", "clean.start").
		Str("folder_path", folderPath).
		Msg("starting database cleanup")

	candidates, err := c.store.OrphanCandidates(ctx, folderPath)
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "clean.query_failed").
			Msg("failed to list cleanup candidates")
		return
	}

	deleted := 0
	for _, cand := range candidates {
		if err := c.cleanProgram(ctx, logger, cand); err != nil {
			continue
		}
		deleted++
	}

	logger.Info().
		Str("event", "clean.done").
		Int("candidates", len(candidates)).
		Int("deleted", deleted).
		Msg("database cleanup finished")
}

// cleanProgram handles one candidate: skip thumbnail deletion when another
// program shares the content hash, otherwise delete the thumbnail files,
// then drop the program row (cascades to video and fork rows). Any fault
// aborts only this candidate.
func (c *Cleaner) cleanProgram(ctx context.Context, logger zerolog.Logger, cand recdb.OrphanCandidate) error {
	others, err := c.store.CountOtherProgramsWithHash(ctx, cand.ProgramID, cand.FileHash)
	if err != nil {
		logger.Error().
			Err(err).
			Int64("program_id", cand.ProgramID).
			Str("event", "clean.hash_lookup_failed").
			Msg("failed to check for duplicate file hash")
		return err
	}

	if others > 0 {
		logger.Info().
			Int64("program_id", cand.ProgramID).
			Str("file_hash", cand.FileHash).
			Str("event", "clean.thumbnails_shared").
			Msg("skipping thumbnail deletion, other records share the file hash")
	} else if err := c.deleteThumbnails(logger, cand.FileHash); err != nil {
		return err
	}

	if err := c.store.DeleteProgram(ctx, cand.ProgramID); err != nil {
		logger.Error().
			Err(err).
			Int64("program_id", cand.ProgramID).
			Str("event", "clean.delete_failed").
			Msg("failed to delete program row")
		return err
	}

	logger.Debug().
		Int64("program_id", cand.ProgramID).
		Str("event", "clean.deleted").
		Msg("program row deleted")
	return nil
}

// deleteThumbnails removes the primary and tile thumbnails for a content
// hash. Each is tried as .webp first and .jpg second; a missing .jpg is
// expected because the JPEG variant is rarely produced. A deletion fault
// aborts this program's thumbnail cleanup.
func (c *Cleaner) deleteThumbnails(logger zerolog.Logger, fileHash string) error {
	if info, err := os.Stat(c.thumbnailsDir); err != nil || !info.IsDir() {
		logger.Warn().
			Str("dir", c.thumbnailsDir).
			Str("event", "clean.thumbnails_dir_missing").
			Msg("thumbnails directory not accessible, skipping thumbnail deletion")
		return nil
	}

	for _, name := range []string{fileHash, fileHash + "_tile"} {
		for _, ext := range []string{".webp", ".jpg"} {
			path := filepath.Join(c.thumbnailsDir, name+ext)
			err := os.Remove(path)
			if err == nil {
				logger.Debug().
					Str("path", path).
					Str("event", "clean.thumbnail_deleted").
					Msg("thumbnail file deleted")
				continue
			}
			if os.IsNotExist(err) {
				if ext == ".webp" {
					logger.Warn().
						Str("path", path).
						Str("event", "clean.thumbnail_missing").
						Msg("thumbnail file does not exist")
				}
				continue
			}
			logger.Error().
				Err(err).
				Str("path", path).
				Str("event", "clean.thumbnail_delete_failed").
				Msg("failed to delete thumbnail file")
			return err
		}
	}
	return nil
}
