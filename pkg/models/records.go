package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is a []string stored as a JSON text column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	data, err := textColumn(src)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// StringMap is a map[string]string stored as a JSON text column
type StringMap map[string]string

// Value implements driver.Valuer
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		m = StringMap{}
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *StringMap) Scan(src interface{}) error {
	data, err := textColumn(src)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*m = StringMap{}
		return nil
	}
	return json.Unmarshal(data, (*map[string]string)(m))
}

func textColumn(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", src)
	}
}

// ProfileRecord is a row of the remote user_profiles collection
type ProfileRecord struct {
	UserID        string     `json:"user_id" db:"user_id"`
	Email         string     `json:"email" db:"email"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	AvatarURL     string     `json:"avatar_url" db:"avatar_url"`
	Level         Level      `json:"level" db:"level"`
	TotalProgress int        `json:"total_progress" db:"total_progress"`
	Achievements  StringList `json:"achievements" db:"achievements"`
	Bookmarks     StringList `json:"bookmarks" db:"bookmarks"`
	Notes         StringMap  `json:"notes" db:"notes"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// ProfileRecordFrom maps a profile onto a remote row for userID
func ProfileRecordFrom(userID string, p UserProfile) ProfileRecord {
	return ProfileRecord{
		UserID:        userID,
		Email:         p.Email,
		DisplayName:   p.Name,
		Level:         p.Level,
		TotalProgress: p.TotalProgress,
		Achievements:  StringList(p.Achievements),
		Bookmarks:     StringList(p.Bookmarks),
		Notes:         StringMap(p.Notes),
		UpdatedAt:     time.Now().UTC(),
	}
}

// Profile maps the remote row back onto a profile
func (r ProfileRecord) Profile() UserProfile {
	p := UserProfile{
		Name:          r.DisplayName,
		Email:         r.Email,
		Level:         r.Level,
		TotalProgress: r.TotalProgress,
		Achievements:  []string(r.Achievements),
		Bookmarks:     []string(r.Bookmarks),
		Notes:         map[string]string(r.Notes),
	}
	p.Normalize()
	return p
}

// ProgressRecord is a row of the remote learning_progress collection
type ProgressRecord struct {
	UserID      string     `json:"user_id" db:"user_id"`
	ItemID      string     `json:"item_id" db:"item_id"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	Progress    int        `json:"progress" db:"progress"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// ProgressRecordFrom maps a progress entry onto a remote row
func ProgressRecordFrom(userID, itemID string, e ProgressEntry) ProgressRecord {
	return ProgressRecord{
		UserID:      userID,
		ItemID:      itemID,
		Completed:   e.Completed,
		CompletedAt: e.CompletedAt,
		Progress:    ClampProgress(e.Progress),
		UpdatedAt:   time.Now().UTC(),
	}
}

// Entry maps the remote row back onto a progress entry
func (r ProgressRecord) Entry() ProgressEntry {
	return ProgressEntry{
		Completed:   r.Completed,
		CompletedAt: r.CompletedAt,
		Progress:    ClampProgress(r.Progress),
	}
}

// ProgressRecords flattens a progress map into remote rows
func ProgressRecords(userID string, m ProgressMap) []ProgressRecord {
	records := make([]ProgressRecord, 0, len(m))
	for id, e := range m {
		records = append(records, ProgressRecordFrom(userID, id, e))
	}
	return records
}
