// Package models defines the GORM models persisted by reportflow.
package models

import "time"

// User is a registered field seller. PlatformID is the chat-platform user
// identifier; reports are attributed to it. A blocked user cannot start a
// report. GroupID is the pre-assigned destination for the "assigned"
// strategy (nil when none has been assigned yet).
type User struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PlatformID string `gorm:"size:64;not null;uniqueIndex"`
	FullName   string `gorm:"size:128;not null"`
	Blocked    bool   `gorm:"default:false"`
	GroupID    *uint  `gorm:"index"`
	CreatedAt  time.Time

	Group *Group `gorm:"foreignKey:GroupID"`
}
