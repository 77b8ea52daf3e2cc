// internal/deletion/planner.go
package deletion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/mantra-fm/backend/internal/models"
)

// plan is the read-only output of the lookup stage: everything the later
// stages will remove, resolved before anything is mutated.
type plan struct {
	user          models.User
	mantras       []models.Mantra
	mantraIDs     []uint
	elevenFileIDs []uint
	elevenPaths   []string
}

// buildPlan resolves the user, the deletion-target mantra set and the
// distinct ElevenLabs files reachable from it. When anonymize is set, only
// private mantras are targeted; public ones survive untouched.
func (s *Service) buildPlan(ctx context.Context, userID uint, anonymize bool) (*plan, error) {
	p := &plan{}

	if err := s.db.WithContext(ctx).First(&p.user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up user %d: %w", userID, err)
	}

	q := s.db.WithContext(ctx).
		Joins("JOIN user_mantras ON user_mantras.mantra_id = mantras.id").
		Where("user_mantras.user_id = ?", userID)
	if anonymize {
		q = q.Where("mantras.visibility = ?", models.VisibilityPrivate)
	}
	if err := q.Find(&p.mantras).Error; err != nil {
		return nil, fmt.Errorf("list mantras for user %d: %w", userID, err)
	}

	for _, m := range p.mantras {
		p.mantraIDs = append(p.mantraIDs, m.ID)
	}
	if len(p.mantraIDs) == 0 {
		return p, nil
	}

	// Distinctness is scoped to this batch; a file referenced by two
	// targeted mantras counts once.
	if err := s.db.WithContext(ctx).
		Model(&models.MantraElevenLabsFile{}).
		Where("mantra_id IN ?", p.mantraIDs).
		Distinct("eleven_labs_file_id").
		Pluck("eleven_labs_file_id", &p.elevenFileIDs).Error; err != nil {
		return nil, fmt.Errorf("resolve eleven labs file ids: %w", err)
	}
	if len(p.elevenFileIDs) == 0 {
		return p, nil
	}

	var files []models.ElevenLabsFile
	if err := s.db.WithContext(ctx).
		Where("id IN ?", p.elevenFileIDs).
		Find(&files).Error; err != nil {
		return nil, fmt.Errorf("resolve eleven labs files: %w", err)
	}
	for _, f := range files {
		p.elevenPaths = append(p.elevenPaths, filepath.Join(f.FilePath, f.Filename))
	}

	return p, nil
}
