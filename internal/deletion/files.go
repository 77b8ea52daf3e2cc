// internal/deletion/files.go
package deletion

import (
	"os"
	"path/filepath"

	"github.com/mantra-fm/backend/internal/models"
)

// removeFile deletes a single file best-effort. A missing file is a warning,
// a failed unlink is an error; neither stops the batch. Returns true only
// when the file was actually removed.
func (s *Service) removeFile(path string) bool {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("file already missing, skipping", "path", path)
		} else {
			s.log.Error("failed to stat file", "path", path, "error", err)
		}
		return false
	}
	if err := os.Remove(path); err != nil {
		s.log.Error("failed to delete file", "path", path, "error", err)
		return false
	}
	return true
}

// cleanupFiles removes the physical audio for the plan: every resolved
// ElevenLabs clip, then every targeted mantra's composed output. Runs
// strictly before the database transaction and can never fail the
// operation; files already gone by the time the transaction rolls back are
// an accepted asymmetry.
func (s *Service) cleanupFiles(p *plan) (elevenDeleted, mantraDeleted int) {
	for _, path := range p.elevenPaths {
		if s.removeFile(path) {
			elevenDeleted++
		}
	}

	for i := range p.mantras {
		if p.mantras[i].Filename == "" {
			continue
		}
		if s.removeFile(s.mantraOutputPath(&p.mantras[i])) {
			mantraDeleted++
		}
	}

	s.log.Info("filesystem cleanup done",
		"elevenLabsFilesDeleted", elevenDeleted,
		"mantraFilesDeleted", mantraDeleted)
	return elevenDeleted, mantraDeleted
}

// mantraOutputPath resolves where a mantra's composed audio lives.
func (s *Service) mantraOutputPath(m *models.Mantra) string {
	dir := m.FilePath
	if dir == "" {
		dir = s.outputDir
	}
	return filepath.Join(dir, m.Filename)
}
