package model

import (
	"strings"
	"time"
)

// Base carries the fields every stored record has
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	CompanyID string    `json:"companyId,omitempty" gorm:"type:varchar(64);index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordID returns the canonical id
func (b Base) RecordID() string { return b.ID }

// RecordCompanyID returns the owning company or ""
func (b Base) RecordCompanyID() string { return b.CompanyID }

// ParseDate reads the loosely formatted dates clients store in
// startDate/endDate/paidDate fields.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
