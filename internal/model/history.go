package model

import (
	"time"

	"gorm.io/gorm"
)

type SyncStatus string

const (
	StatusSuccess SyncStatus = "SUCCESS"
	StatusFailed  SyncStatus = "FAILED"
)

type Batch string

const (
	BatchNew    Batch = "new"
	BatchStaged Batch = "staged"
)

// History is an audit row per finished transfer. The diff never reads it.
type History struct {
	gorm.Model
	RunID     string     `gorm:"index;not null" json:"run_id"`
	Provider  string     `gorm:"not null" json:"provider"`
	RemoteID  string     `gorm:"not null" json:"remote_id"`
	LocalPath string     `gorm:"not null" json:"local_path"`
	Batch     Batch      `gorm:"not null" json:"batch"`
	Status    SyncStatus `gorm:"not null" json:"status"`
	Bytes     int64      `json:"bytes"`
	ErrMsg    string     `json:"error,omitempty"`
	SyncedAt  time.Time  `gorm:"not null" json:"synced_at"`
}
