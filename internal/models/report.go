package models

import "time"

// Report statuses. Transitions are one-directional: pending is the initial
// state, confirmed and rejected are mutually exclusive terminals.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

// Report is a submitted sales report. It is created with StatusPending when
// the delivered channel message exists, and mutated only by the approval
// handler. MessageID is the delivered channel message the approver acts on.
type Report struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	SubmitterID     string `gorm:"size:64;not null;index"`
	SellerName      string `gorm:"size:128;not null"`
	ClientName      string `gorm:"size:128;not null"`
	PhoneNumber     string `gorm:"size:32;not null"`
	AdditionalPhone string `gorm:"size:32"`
	ProductType     string `gorm:"size:128;not null"`
	ClientLocation  string `gorm:"size:255;not null"`
	ContractID      string `gorm:"size:64;not null"`
	ContractAmount  string `gorm:"size:32;not null"`
	PhotoRef        string `gorm:"size:255;not null"`
	ChannelID       string `gorm:"size:128;not null"`
	TopicID         string `gorm:"size:128"`
	MessageID       string `gorm:"size:128;not null;uniqueIndex"`
	SpreadsheetID   string `gorm:"size:128"`
	Worksheet       string `gorm:"size:128"`
	Status          string `gorm:"size:16;not null;default:pending;index"`
	ConfirmedBy     *string
	ConfirmedAt     *time.Time
	SheetOrdinal    *int
	CreatedAt       time.Time
}
