// internal/deletion/deletion.go

// Package deletion implements the cascading removal of a user and their
// content. It runs in three strictly sequential stages: a read-only lookup
// of everything eligible for removal, a best-effort sweep of the physical
// audio files, and a single transaction that removes or anonymizes the
// database state.
package deletion

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mantra-fm/backend/internal/logger"
	"github.com/mantra-fm/backend/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDeletionInProgress = errors.New("deletion already in progress for this user")
	ErrMantraNotFound     = errors.New("mantra not found")
)

const (
	benevolentEmailPrefix = "benevolent-user-"
	benevolentEmailDomain = "@mantra-fm.app"
)

// BenevolentEmail is the synthetic address an anonymized user ends up with.
// Deterministic per user ID.
func BenevolentEmail(userID uint) string {
	return fmt.Sprintf("%s%d%s", benevolentEmailPrefix, userID, benevolentEmailDomain)
}

// Result is the caller-facing summary of one deletion run. Every field is
// always populated, including when nothing was deleted.
type Result struct {
	UserID                 uint  `json:"userId"`
	MantrasDeleted         int64 `json:"mantrasDeleted"`
	ElevenLabsFilesDeleted int   `json:"elevenLabsFilesDeleted"`
	BenevolentUserCreated  bool  `json:"benevolentUserCreated"`
}

type Service struct {
	db        *gorm.DB
	log       *logger.Logger
	guard     *Guard // nil when redis is not configured
	outputDir string
}

func NewService(db *gorm.DB, log *logger.Logger, guard *Guard, outputDir string) *Service {
	return &Service{
		db:        db,
		log:       log.With("service", "DeletionService"),
		guard:     guard,
		outputDir: outputDir,
	}
}

// DeleteUser removes a user and their content. With anonymize set, public
// mantras survive and the user row is rewritten in place to a benevolent
// placeholder instead of being deleted; listen and queue rows are purged
// either way. File deletion happens before the transaction and is not
// rolled back if the transaction fails.
func (s *Service) DeleteUser(ctx context.Context, userID uint, anonymize bool) (*Result, error) {
	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, userID)
		if err != nil {
			s.log.Warn("deletion guard unavailable, proceeding unguarded", "userID", userID, "error", err)
		} else if !ok {
			return nil, ErrDeletionInProgress
		} else {
			defer s.guard.Release(ctx, userID)
		}
	}

	p, err := s.buildPlan(ctx, userID, anonymize)
	if err != nil {
		return nil, err
	}
	s.log.Info("deletion plan resolved",
		"userID", userID,
		"anonymize", anonymize,
		"mantras", len(p.mantraIDs),
		"elevenLabsFileIDs", p.elevenFileIDs)

	elevenFilesDeleted, _ := s.cleanupFiles(p)

	var mantrasDeleted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(p.elevenFileIDs) > 0 {
			if err := tx.Where("id IN ?", p.elevenFileIDs).
				Delete(&models.ElevenLabsFile{}).Error; err != nil {
				return fmt.Errorf("delete eleven labs records: %w", err)
			}
		}

		n, err := deleteMantraRows(tx, p.mantraIDs)
		if err != nil {
			return err
		}
		mantrasDeleted = n

		// Listen and queue rows go unconditionally by user, so rows
		// pointing at preserved public mantras are cleared too.
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.Listen{}).Error; err != nil {
			return fmt.Errorf("delete listens: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.QueueEntry{}).Error; err != nil {
			return fmt.Errorf("delete queue entries: %w", err)
		}

		if anonymize {
			if err := tx.Model(&models.User{}).Where("id = ?", userID).
				Updates(map[string]interface{}{
					"email":    BenevolentEmail(userID),
					"is_admin": false,
				}).Error; err != nil {
				return fmt.Errorf("anonymize user: %w", err)
			}
		} else {
			if err := tx.Delete(&models.User{}, userID).Error; err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("deletion transaction rolled back", "userID", userID, "error", err)
		return nil, err
	}

	res := &Result{
		UserID:                 userID,
		MantrasDeleted:         mantrasDeleted,
		ElevenLabsFilesDeleted: elevenFilesDeleted,
		BenevolentUserCreated:  anonymize,
	}
	s.log.Info("user deletion complete",
		"userID", userID,
		"mantrasDeleted", res.MantrasDeleted,
		"elevenLabsFilesDeleted", res.ElevenLabsFilesDeleted,
		"benevolentUserCreated", res.BenevolentUserCreated)
	return res, nil
}

// deleteMantraRows removes mantra rows plus their association rows.
// Children go first so the behavior does not depend on engine-level
// cascade configuration. The returned count comes from the mantra delete
// itself and is the authoritative number of content items removed.
func deleteMantraRows(tx *gorm.DB, mantraIDs []uint) (int64, error) {
	if len(mantraIDs) == 0 {
		return 0, nil
	}

	if err := tx.Where("mantra_id IN ?", mantraIDs).
		Delete(&models.UserMantra{}).Error; err != nil {
		return 0, fmt.Errorf("delete ownership rows: %w", err)
	}
	if err := tx.Where("mantra_id IN ?", mantraIDs).
		Delete(&models.MantraElevenLabsFile{}).Error; err != nil {
		return 0, fmt.Errorf("delete eleven labs links: %w", err)
	}
	if err := tx.Where("mantra_id IN ?", mantraIDs).
		Delete(&models.MantraSoundFile{}).Error; err != nil {
		return 0, fmt.Errorf("delete sound file links: %w", err)
	}

	res := tx.Where("id IN ?", mantraIDs).Delete(&models.Mantra{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete mantras: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteMantra removes a single mantra owned by userID, reusing the same
// cascade order as a full user deletion: file first (best-effort), then the
// rows in one transaction. ElevenLabs files are kept; single-mantra removal
// cannot tell whether another mantra still references them.
func (s *Service) DeleteMantra(ctx context.Context, userID, mantraID uint) error {
	var ownership models.UserMantra
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND mantra_id = ?", userID, mantraID).
		First(&ownership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMantraNotFound
		}
		return fmt.Errorf("look up mantra ownership: %w", err)
	}

	var mantra models.Mantra
	if err := s.db.WithContext(ctx).First(&mantra, mantraID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMantraNotFound
		}
		return fmt.Errorf("look up mantra %d: %w", mantraID, err)
	}

	if mantra.Filename != "" {
		s.removeFile(s.mantraOutputPath(&mantra))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND mantra_id = ?", userID, mantraID).
			Delete(&models.Listen{}).Error; err != nil {
			return fmt.Errorf("delete listens: %w", err)
		}
		_, err := deleteMantraRows(tx, []uint{mantraID})
		return err
	})
}
