// internal/models/models.go
package models

import (
	"time"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Email     string    `gorm:"unique;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Name      string    `json:"name"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	Verified  bool      `gorm:"default:false" json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Mantra struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Text       string    `json:"text"`
	Visibility string    `gorm:"default:'private'" json:"visibility"` // public, private
	VoiceID    string    `json:"voice_id"`
	FilePath   string    `json:"file_path"` // directory of the composed audio; empty means the configured output dir
	Filename   string    `json:"filename"`  // composed audio file; empty until the queuer finishes
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserMantra is the ownership row. Modeled as a join table, though each
// mantra has exactly one owner in practice.
type UserMantra struct {
	ID       uint `gorm:"primarykey" json:"id"`
	UserID   uint `gorm:"not null;index" json:"user_id"`
	MantraID uint `gorm:"not null;index" json:"mantra_id"`
}

// ElevenLabsFile is a synthesized speech clip produced by the text-to-speech
// provider, stored on local disk and shared between mantras via the join
// table below.
type ElevenLabsFile struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	FilePath  string    `gorm:"not null" json:"file_path"`
	Filename  string    `gorm:"not null" json:"filename"`
	VoiceID   string    `json:"voice_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MantraElevenLabsFile struct {
	ID               uint `gorm:"primarykey" json:"id"`
	MantraID         uint `gorm:"not null;index" json:"mantra_id"`
	ElevenLabsFileID uint `gorm:"not null;index" json:"eleven_labs_file_id"`
}

// SoundFile is a raw background audio clip (rain, bowls, ...). Sound files
// are shared across unrelated mantras and are never removed when a user or
// mantra is deleted.
type SoundFile struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	ObjectName string    `gorm:"not null" json:"-"` // object key in the audio bucket
	CreatedAt  time.Time `json:"created_at"`
}

type MantraSoundFile struct {
	ID          uint `gorm:"primarykey" json:"id"`
	MantraID    uint `gorm:"not null;index" json:"mantra_id"`
	SoundFileID uint `gorm:"not null;index" json:"sound_file_id"`
}

// Listen tracks per-user engagement with a mantra, one row per pair.
type Listen struct {
	UserID      uint `gorm:"primarykey;autoIncrement:false" json:"user_id"`
	MantraID    uint `gorm:"primarykey;autoIncrement:false" json:"mantra_id"`
	ListenCount int  `gorm:"default:0" json:"listen_count"`
	Favorite    bool `gorm:"default:false" json:"favorite"`
}

type QueueEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	MantraID  uint      `json:"mantra_id"`
	Status    string    `gorm:"default:'pending'" json:"status"` // pending, processing, completed, failed
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type VerificationToken struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `json:"-"`
}
