package models

import (
	"fmt"
	"time"
)

// BreakCategory is the closed set of break types the bot tracks.
type BreakCategory string

const (
	CategoryMeal     BreakCategory = "meal"
	CategoryRestroom BreakCategory = "restroom"
	CategorySmoke    BreakCategory = "smoke"
	CategoryOther    BreakCategory = "other"
)

// Categories lists all break categories in menu order.
func Categories() []BreakCategory {
	return []BreakCategory{CategoryMeal, CategoryRestroom, CategorySmoke, CategoryOther}
}

// Valid reports whether c is one of the known categories.
func (c BreakCategory) Valid() bool {
	switch c {
	case CategoryMeal, CategoryRestroom, CategorySmoke, CategoryOther:
		return true
	}
	return false
}

// Label returns the display label used in chat messages and log exports.
func (c BreakCategory) Label() string {
	switch c {
	case CategoryMeal:
		return "🍽️ Eating"
	case CategoryRestroom:
		return "🚻 Comfort Room"
	case CategorySmoke:
		return "🚬 Smoke Break"
	case CategoryOther:
		return "⚠️ Other Concern"
	}
	return "Unknown"
}

// ParseCategory maps a category value back to the enum.
func ParseCategory(s string) (BreakCategory, error) {
	c := BreakCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown break category %q", s)
	}
	return c, nil
}

// BreakAction distinguishes the two halves of a break. The wire values
// match the OUT/BACK columns of the exported logs.
type BreakAction string

const (
	ActionStart BreakAction = "OUT"
	ActionEnd   BreakAction = "BACK"
)

// Valid reports whether a is a known action.
func (a BreakAction) Valid() bool {
	return a == ActionStart || a == ActionEnd
}

// BreakRecord is one immutable log entry for a single Start or End
// action. Records are never mutated after append.
type BreakRecord struct {
	ID       uint          `gorm:"primarykey" json:"id"`
	UserID   int64         `gorm:"not null;index" json:"user_id"`
	Username string        `json:"username"`
	FullName string        `gorm:"not null" json:"full_name"`
	Category BreakCategory `gorm:"type:varchar(20);not null;index" json:"category"`
	Action   BreakAction   `gorm:"type:varchar(10);not null" json:"action"`

	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`

	// Set only on BACK records.
	DurationMinutes float64 `gorm:"not null;default:0" json:"duration_minutes"`

	// Set only on OUT records of the "other" category.
	Reason string `json:"reason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (BreakRecord) TableName() string {
	return "break_records"
}

// IsValid checks the record invariants before it is appended.
func (r *BreakRecord) IsValid() bool {
	if r.UserID == 0 || r.FullName == "" {
		return false
	}
	if !r.Category.Valid() || !r.Action.Valid() {
		return false
	}
	if r.Timestamp.IsZero() {
		return false
	}
	if r.DurationMinutes < 0 {
		return false
	}
	if r.Action == ActionStart && r.DurationMinutes != 0 {
		return false
	}
	return true
}

// IsCompleted reports whether this record closes a break.
func (r *BreakRecord) IsCompleted() bool {
	return r.Action == ActionEnd
}
