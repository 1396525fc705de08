package models

import "time"

// Setting is an append-only, versioned configuration record. Writers insert
// a new row per change; readers take the latest row for a key. This replaces
// process-wide mutable settings such as the worker password.
type Setting struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Key       string `gorm:"size:64;not null;index"`
	Value     string `gorm:"size:255;not null"`
	SetBy     string `gorm:"size:64"`
	CreatedAt time.Time
}
