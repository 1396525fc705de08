package report

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/akramov/reportflow/internal/chat"
	"github.com/akramov/reportflow/internal/models"
	"gorm.io/gorm"
)

// Sentinel errors callers branch on.
var (
	// ErrNoDestination means the submitter has no assigned group.
	ErrNoDestination = errors.New("report: no destination assigned")
	// ErrBlocked means the submitter's account is blocked.
	ErrBlocked = errors.New("report: submitter is blocked")
	// ErrReportNotFound means no report matches the message reference.
	ErrReportNotFound = errors.New("report: report not found")
)

// SettingWorkerPassword is the versioned setting key holding the shared
// worker password. Writers append a new row; readers take the latest.
const SettingWorkerPassword = "worker_password"

// Destination is a resolved review channel plus the sheet that confirmed
// reports should land in.
type Destination struct {
	GroupID       uint
	Name          string
	ChannelID     string
	TopicID       string
	SpreadsheetID string
	Worksheet     string
}

// Store is the relational sink: reports, users, groups, sheets, settings.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("report: store: db is required")
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying gorm handle for read-only consumers (dashboard,
// export).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// UserByPlatformID returns the registered user, or nil when unknown.
func (s *Store) UserByPlatformID(platformID string) (*models.User, error) {
	var user models.User
	err := s.db.Where("platform_id = ?", platformID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("report: lookup user %s: %w", platformID, err)
	}
	return &user, nil
}

// UserByName returns the registered user with the given full name, or nil.
// The approval handler uses it to notify the submitter named on a caption.
func (s *Store) UserByName(fullName string) (*models.User, error) {
	var user models.User
	err := s.db.Where("full_name = ?", fullName).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("report: lookup user by name %q: %w", fullName, err)
	}
	return &user, nil
}

// CheckSubmitter verifies the begin-report preconditions: a registered user
// must not be blocked. Unregistered users pass (they submit under their
// platform display name).
func (s *Store) CheckSubmitter(platformID string) (*models.User, error) {
	user, err := s.UserByPlatformID(platformID)
	if err != nil {
		return nil, err
	}
	if user != nil && user.Blocked {
		return nil, ErrBlocked
	}
	return user, nil
}

// AssignedDestination resolves the group pre-assigned to the submitter.
// Returns ErrNoDestination when the user has no group.
func (s *Store) AssignedDestination(platformID string) (*Destination, error) {
	user, err := s.UserByPlatformID(platformID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.GroupID == nil {
		return nil, ErrNoDestination
	}
	var group models.Group
	if err := s.db.Preload("Sheet").First(&group, *user.GroupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoDestination
		}
		return nil, fmt.Errorf("report: load group %d: %w", *user.GroupID, err)
	}
	return destinationFromGroup(group), nil
}

// Destinations lists every configured group for interactive selection.
func (s *Store) Destinations() ([]Destination, error) {
	var groups []models.Group
	if err := s.db.Preload("Sheet").Order("name").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("report: list groups: %w", err)
	}
	out := make([]Destination, len(groups))
	for i, g := range groups {
		out[i] = *destinationFromGroup(g)
	}
	return out, nil
}

// DestinationByGroupID resolves one group by its id (parsed from a
// selection action).
func (s *Store) DestinationByGroupID(id string) (*Destination, error) {
	gid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("report: bad group id %q: %w", id, err)
	}
	var group models.Group
	if err := s.db.Preload("Sheet").First(&group, uint(gid)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoDestination
		}
		return nil, fmt.Errorf("report: load group %d: %w", gid, err)
	}
	return destinationFromGroup(group), nil
}

func destinationFromGroup(g models.Group) *Destination {
	d := &Destination{
		GroupID:   g.ID,
		Name:      g.Name,
		ChannelID: g.ChannelID,
		TopicID:   g.TopicID,
	}
	if g.Sheet != nil {
		d.SpreadsheetID = g.Sheet.SpreadsheetID
		d.Worksheet = g.Sheet.Worksheet
	}
	return d
}

// CreatePending writes a pending report carrying the delivered message ref.
// The report id comes from the auto-incrementing primary key.
func (s *Store) CreatePending(d Draft, submitterID, sellerName string, ref chat.MessageRef, dest *Destination) (uint, error) {
	rec := models.Report{
		SubmitterID:     submitterID,
		SellerName:      sellerName,
		ClientName:      d.ClientName,
		PhoneNumber:     d.PhoneNumber,
		AdditionalPhone: d.AdditionalPhone,
		ProductType:     d.ProductType,
		ClientLocation:  d.ClientLocation,
		ContractID:      d.ContractID,
		ContractAmount:  d.ContractAmount,
		PhotoRef:        d.PhotoRef,
		ChannelID:       ref.ChannelID,
		TopicID:         ref.TopicID,
		MessageID:       ref.MessageID,
		Status:          models.StatusPending,
	}
	if dest != nil {
		rec.SpreadsheetID = dest.SpreadsheetID
		rec.Worksheet = dest.Worksheet
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("report: create pending report: %w", err)
	}
	return rec.ID, nil
}

// ByMessageID returns the report delivered as the given channel message.
func (s *Store) ByMessageID(messageID string) (*models.Report, error) {
	var rec models.Report
	err := s.db.Where("message_id = ?", messageID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("report: lookup report by message %s: %w", messageID, err)
	}
	return &rec, nil
}

// SetStatus records the approval outcome for the report delivered as the
// given message. Confirming an already-confirmed report is a no-op.
func (s *Store) SetStatus(messageID, status, actorID string) error {
	rec, err := s.ByMessageID(messageID)
	if err != nil {
		return err
	}
	if rec.Status == status {
		return nil
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"confirmed_by": actorID,
		"confirmed_at": now,
	}
	if err := s.db.Model(rec).Updates(updates).Error; err != nil {
		return fmt.Errorf("report: set status %s for message %s: %w", status, messageID, err)
	}
	return nil
}

// SetSheetOrdinal records the spreadsheet row number assigned at append.
func (s *Store) SetSheetOrdinal(messageID string, ordinal int) error {
	result := s.db.Model(&models.Report{}).
		Where("message_id = ?", messageID).
		Update("sheet_ordinal", ordinal)
	if result.Error != nil {
		return fmt.Errorf("report: set sheet ordinal for message %s: %w", messageID, result.Error)
	}
	return nil
}

// StatusCounts returns report counts grouped by status.
func (s *Store) StatusCounts() (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := s.db.Model(&models.Report{}).
		Select("status, COUNT(*) as n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("report: status counts: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// Setting returns the latest value for a versioned setting key, or "" when
// the key has never been set.
func (s *Store) Setting(key string) (string, error) {
	var rec models.Setting
	err := s.db.Where("`key` = ?", key).Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("report: read setting %q: %w", key, err)
	}
	return rec.Value, nil
}

// PutSetting appends a new version of a setting. Earlier rows are retained
// as history.
func (s *Store) PutSetting(key, value, setBy string) error {
	rec := models.Setting{Key: key, Value: value, SetBy: setBy}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("report: write setting %q: %w", key, err)
	}
	return nil
}
