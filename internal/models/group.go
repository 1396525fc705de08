package models

import "time"

// Group is a report destination: a review channel (with optional sub-topic)
// that submitted reports are posted to for approval. SheetID links the
// spreadsheet that confirmed reports from this group are appended to (nil
// when the group has no sheet).
type Group struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null;uniqueIndex"`
	ChannelID string `gorm:"size:128;not null"`
	TopicID   string `gorm:"size:128"`
	SheetID   *uint  `gorm:"index"`
	CreatedAt time.Time

	Sheet *Sheet `gorm:"foreignKey:SheetID"`
}
