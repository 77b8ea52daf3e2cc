// internal/deletion/deletion_test.go
package deletion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mantra-fm/backend/internal/logger"
	"github.com/mantra-fm/backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Mantra{},
		&models.UserMantra{},
		&models.ElevenLabsFile{},
		&models.MantraElevenLabsFile{},
		&models.SoundFile{},
		&models.MantraSoundFile{},
		&models.Listen{},
		&models.QueueEntry{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, string) {
	t.Helper()
	outputDir := t.TempDir()
	return NewService(db, logger.NewNop(), nil, outputDir), outputDir
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))
}

// seedUser5 builds the reference scenario: user 5 owns 8 mantras (3 private,
// 5 public) with composed audio on disk, 9 distinct ElevenLabs files (4
// linked only to private mantras, 5 only to public), listen and queue rows,
// and a shared sound file that must survive everything.
type scenario struct {
	user        models.User
	private     []models.Mantra
	public      []models.Mantra
	privateELFs []models.ElevenLabsFile
	publicELFs  []models.ElevenLabsFile
	elfDir      string
}

func seedUser5(t *testing.T, db *gorm.DB, outputDir string) *scenario {
	t.Helper()
	sc := &scenario{elfDir: t.TempDir()}

	sc.user = models.User{ID: 5, Email: "five@example.com", Password: "x", Name: "Five", IsAdmin: true, Verified: true}
	require.NoError(t, db.Create(&sc.user).Error)

	mk := func(visibility string, n int) []models.Mantra {
		out := make([]models.Mantra, 0, n)
		for i := 0; i < n; i++ {
			m := models.Mantra{Title: visibility, Visibility: visibility, Filename: ""}
			require.NoError(t, db.Create(&m).Error)
			m.Filename = "mantra.mp3"
			require.NoError(t, db.Model(&models.Mantra{}).Where("id = ?", m.ID).
				Updates(map[string]interface{}{"filename": m.Filename, "file_path": filepath.Join(outputDir, "m", intStr(m.ID))}).Error)
			require.NoError(t, db.First(&m, m.ID).Error)
			writeFile(t, filepath.Join(m.FilePath, m.Filename))
			require.NoError(t, db.Create(&models.UserMantra{UserID: sc.user.ID, MantraID: m.ID}).Error)
			require.NoError(t, db.Create(&models.Listen{UserID: sc.user.ID, MantraID: m.ID, ListenCount: 3}).Error)
			out = append(out, m)
		}
		return out
	}
	sc.private = mk(models.VisibilityPrivate, 3)
	sc.public = mk(models.VisibilityPublic, 5)

	mkELF := func(mantras []models.Mantra, n int) []models.ElevenLabsFile {
		out := make([]models.ElevenLabsFile, 0, n)
		for i := 0; i < n; i++ {
			f := models.ElevenLabsFile{FilePath: sc.elfDir, Filename: ""}
			require.NoError(t, db.Create(&f).Error)
			f.Filename = "speech-" + intStr(f.ID) + ".mp3"
			require.NoError(t, db.Model(&models.ElevenLabsFile{}).Where("id = ?", f.ID).
				Update("filename", f.Filename).Error)
			writeFile(t, filepath.Join(f.FilePath, f.Filename))
			// Spread links across the group's mantras.
			m := mantras[i%len(mantras)]
			require.NoError(t, db.Create(&models.MantraElevenLabsFile{MantraID: m.ID, ElevenLabsFileID: f.ID}).Error)
			out = append(out, f)
		}
		return out
	}
	sc.privateELFs = mkELF(sc.private, 4)
	sc.publicELFs = mkELF(sc.public, 5)

	sound := models.SoundFile{Name: "rain", ObjectName: "sounds/rain.mp3"}
	require.NoError(t, db.Create(&sound).Error)
	for _, m := range append(append([]models.Mantra{}, sc.private...), sc.public...) {
		require.NoError(t, db.Create(&models.MantraSoundFile{MantraID: m.ID, SoundFileID: sound.ID}).Error)
	}

	require.NoError(t, db.Create(&models.QueueEntry{UserID: sc.user.ID, Status: "completed"}).Error)
	require.NoError(t, db.Create(&models.QueueEntry{UserID: sc.user.ID, Status: "failed"}).Error)

	return sc
}

func intStr(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestDeleteUserFull(t *testing.T) {
	db := newTestDB(t)
	svc, outputDir := newTestService(t, db)
	sc := seedUser5(t, db, outputDir)

	res, err := svc.DeleteUser(context.Background(), sc.user.ID, false)
	require.NoError(t, err)

	assert.Equal(t, sc.user.ID, res.UserID)
	assert.Equal(t, int64(8), res.MantrasDeleted)
	assert.Equal(t, 9, res.ElevenLabsFilesDeleted)
	assert.False(t, res.BenevolentUserCreated)

	assert.Zero(t, count(t, db, &models.User{}, ""))
	assert.Zero(t, count(t, db, &models.Mantra{}, ""))
	assert.Zero(t, count(t, db, &models.UserMantra{}, ""))
	assert.Zero(t, count(t, db, &models.ElevenLabsFile{}, ""))
	assert.Zero(t, count(t, db, &models.MantraElevenLabsFile{}, ""))
	assert.Zero(t, count(t, db, &models.MantraSoundFile{}, ""))
	assert.Zero(t, count(t, db, &models.Listen{}, ""))
	assert.Zero(t, count(t, db, &models.QueueEntry{}, ""))

	// Shared sound files are out of scope for user deletion.
	assert.Equal(t, int64(1), count(t, db, &models.SoundFile{}, ""))

	for _, f := range append(sc.privateELFs, sc.publicELFs...) {
		_, err := os.Stat(filepath.Join(sc.elfDir, "speech-"+intStr(f.ID)+".mp3"))
		assert.True(t, os.IsNotExist(err))
	}
}

func TestDeleteUserBenevolent(t *testing.T) {
	db := newTestDB(t)
	svc, outputDir := newTestService(t, db)
	sc := seedUser5(t, db, outputDir)

	res, err := svc.DeleteUser(context.Background(), sc.user.ID, true)
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.MantrasDeleted)
	assert.Equal(t, 4, res.ElevenLabsFilesDeleted)
	assert.True(t, res.BenevolentUserCreated)

	// Public mantras survive untouched, files included.
	var remaining []models.Mantra
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 5)
	for _, m := range remaining {
		assert.Equal(t, models.VisibilityPublic, m.Visibility)
		assert.NotEmpty(t, m.Filename)
		_, err := os.Stat(filepath.Join(m.FilePath, m.Filename))
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(5), count(t, db, &models.ElevenLabsFile{}, ""))
	assert.Equal(t, int64(5), count(t, db, &models.UserMantra{}, ""))

	// Listen and queue rows go unconditionally, even for preserved mantras.
	assert.Zero(t, count(t, db, &models.Listen{}, "user_id = ?", sc.user.ID))
	assert.Zero(t, count(t, db, &models.QueueEntry{}, "user_id = ?", sc.user.ID))

	var user models.User
	require.NoError(t, db.First(&user, sc.user.ID).Error)
	assert.Equal(t, BenevolentEmail(sc.user.ID), user.Email)
	assert.False(t, user.IsAdmin)
	assert.Equal(t, "Five", user.Name) // other fields untouched
}

func TestDeleteUserNotFound(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)

	res, err := svc.DeleteUser(context.Background(), 999, false)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUserZeroContent(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)

	owner := models.User{Email: "owner@example.com", Password: "x"}
	require.NoError(t, db.Create(&owner).Error)
	public := models.Mantra{Title: "shared", Visibility: models.VisibilityPublic}
	require.NoError(t, db.Create(&public).Error)
	require.NoError(t, db.Create(&models.UserMantra{UserID: owner.ID, MantraID: public.ID}).Error)

	user := models.User{Email: "empty@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.Listen{UserID: user.ID, MantraID: public.ID, ListenCount: 7}).Error)
	require.NoError(t, db.Create(&models.QueueEntry{UserID: user.ID, Status: "pending"}).Error)

	res, err := svc.DeleteUser(context.Background(), user.ID, false)
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.MantrasDeleted)
	assert.Equal(t, 0, res.ElevenLabsFilesDeleted)
	assert.False(t, res.BenevolentUserCreated)

	assert.Zero(t, count(t, db, &models.Listen{}, "user_id = ?", user.ID))
	assert.Zero(t, count(t, db, &models.QueueEntry{}, "user_id = ?", user.ID))
	assert.Zero(t, count(t, db, &models.User{}, "id = ?", user.ID))

	// The other owner's content is untouched.
	assert.Equal(t, int64(1), count(t, db, &models.Mantra{}, ""))
}

func TestDeleteUserPublicOnlyBenevolent(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)

	user := models.User{Email: "pub@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	m := models.Mantra{Title: "open", Visibility: models.VisibilityPublic}
	require.NoError(t, db.Create(&m).Error)
	require.NoError(t, db.Create(&models.UserMantra{UserID: user.ID, MantraID: m.ID}).Error)

	res, err := svc.DeleteUser(context.Background(), user.ID, true)
	require.NoError(t, err)

	// Nothing to delete, but anonymization still happens.
	assert.Equal(t, int64(0), res.MantrasDeleted)
	assert.Equal(t, 0, res.ElevenLabsFilesDeleted)
	assert.True(t, res.BenevolentUserCreated)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Equal(t, BenevolentEmail(user.ID), got.Email)
}

func TestBenevolentEmailDeterminism(t *testing.T) {
	assert.Equal(t, "benevolent-user-42@mantra-fm.app", BenevolentEmail(42))

	db := newTestDB(t)
	svc, _ := newTestService(t, db)

	user := models.User{ID: 42, Email: "answer@example.com", Password: "x", IsAdmin: true}
	require.NoError(t, db.Create(&user).Error)

	_, err := svc.DeleteUser(context.Background(), 42, true)
	require.NoError(t, err)

	var got models.User
	require.NoError(t, db.First(&got, 42).Error)
	assert.Equal(t, "benevolent-user-42@mantra-fm.app", got.Email)
	assert.False(t, got.IsAdmin)
}

func TestDeleteUserRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	svc, outputDir := newTestService(t, db)
	sc := seedUser5(t, db, outputDir)

	forced := errors.New("forced queue failure")
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").
		Register("test:fail_queue_delete", func(tx *gorm.DB) {
			if tx.Statement.Table == "queue_entries" {
				_ = tx.AddError(forced)
			}
		}))

	res, err := svc.DeleteUser(context.Background(), sc.user.ID, false)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, forced)

	// Everything from the earlier transaction steps is back.
	assert.Equal(t, int64(8), count(t, db, &models.Mantra{}, ""))
	assert.Equal(t, int64(9), count(t, db, &models.ElevenLabsFile{}, ""))
	assert.Equal(t, int64(8), count(t, db, &models.UserMantra{}, ""))
	assert.Equal(t, int64(8), count(t, db, &models.Listen{}, ""))
	assert.Equal(t, int64(2), count(t, db, &models.QueueEntry{}, ""))
	assert.Equal(t, int64(1), count(t, db, &models.User{}, "id = ?", sc.user.ID))

	// Files deleted before the transaction are not restored.
	for _, f := range sc.privateELFs {
		_, statErr := os.Stat(filepath.Join(sc.elfDir, "speech-"+intStr(f.ID)+".mp3"))
		assert.True(t, os.IsNotExist(statErr))
	}
}

func TestDeleteMantra(t *testing.T) {
	db := newTestDB(t)
	svc, outputDir := newTestService(t, db)
	sc := seedUser5(t, db, outputDir)

	target := sc.private[0]
	require.NoError(t, svc.DeleteMantra(context.Background(), sc.user.ID, target.ID))

	assert.Zero(t, count(t, db, &models.Mantra{}, "id = ?", target.ID))
	assert.Zero(t, count(t, db, &models.UserMantra{}, "mantra_id = ?", target.ID))
	assert.Zero(t, count(t, db, &models.MantraSoundFile{}, "mantra_id = ?", target.ID))
	assert.Zero(t, count(t, db, &models.Listen{}, "mantra_id = ?", target.ID))
	_, err := os.Stat(filepath.Join(target.FilePath, target.Filename))
	assert.True(t, os.IsNotExist(err))

	// ElevenLabs records stay; single-mantra deletion cannot prove they
	// are unreferenced.
	assert.Equal(t, int64(9), count(t, db, &models.ElevenLabsFile{}, ""))

	// Deleting it again is a not-found.
	err = svc.DeleteMantra(context.Background(), sc.user.ID, target.ID)
	assert.ErrorIs(t, err, ErrMantraNotFound)
}
