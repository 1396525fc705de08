package models

import "time"

// Sheet identifies one worksheet inside a Google spreadsheet that confirmed
// reports are appended to.
type Sheet struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:128;not null;uniqueIndex"`
	SpreadsheetID string `gorm:"size:128;not null"`
	Worksheet     string `gorm:"size:128;not null"`
	CreatedAt     time.Time
}
