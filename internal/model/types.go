package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Enumerations
// -----------------------------------------------------------------------------

// SourceKind identifies one of the supported upstream organizations.
type SourceKind string

const (
	SourceWHO   SourceKind = "WHO"
	SourceUN    SourceKind = "UN"
	SourceILO   SourceKind = "ILO"
	SourceUAE   SourceKind = "UAE"
	SourceIRENA SourceKind = "IRENA"
)

// SourceKinds lists every supported source in canonical order.
var SourceKinds = []SourceKind{SourceWHO, SourceUN, SourceILO, SourceUAE, SourceIRENA}

// ParseSourceKind resolves a case-insensitive source name.
func ParseSourceKind(s string) (SourceKind, bool) {
	for _, k := range SourceKinds {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, true
		}
	}
	return "", false
}

// EventType tags what kind of observance an event is.
type EventType string

const (
	TypeInternationalDay  EventType = "International Day"
	TypeNationalDay       EventType = "National Day"
	TypeInternationalWeek EventType = "International Week"
	TypeCampaign          EventType = "Campaign"
	TypeConference        EventType = "Conference"
)

var eventTypes = []EventType{
	TypeInternationalDay,
	TypeNationalDay,
	TypeInternationalWeek,
	TypeCampaign,
	TypeConference,
}

// ParseEventType matches s against the known types, ignoring case and
// surrounding whitespace.
func ParseEventType(s string) (EventType, bool) {
	s = strings.TrimSpace(s)
	for _, t := range eventTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// Scope is the geographic reach of an event.
type Scope string

const (
	ScopeGlobal   Scope = "Global"
	ScopeNational Scope = "National"
)

// Category is one of the five fixed HSE-BCM domains.
type Category string

const (
	CategoryHealth      Category = "1. Health"
	CategorySafety      Category = "2. Safety"
	CategoryEnvironment Category = "3. Environment"
	CategoryEnergy      Category = "4. Energy"
	CategoryBCM         Category = "5. BCM"
)

// Categories lists the closed category set in classification priority order.
var Categories = []Category{
	CategoryHealth,
	CategorySafety,
	CategoryEnvironment,
	CategoryEnergy,
	CategoryBCM,
}

// ParseCategory accepts either the full label ("3. Environment") or the bare
// name ("environment").
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) || strings.EqualFold(c.Name(), s) {
			return c, true
		}
	}
	return "", false
}

// Name returns the category label without its ordinal prefix.
func (c Category) Name() string {
	if _, name, ok := strings.Cut(string(c), ". "); ok {
		return name
	}
	return string(c)
}

// Priority ranks how prominently an event is shown.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority matches s against the known priorities, ignoring case.
func ParsePriority(s string) (Priority, bool) {
	s = strings.TrimSpace(s)
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		if strings.EqualFold(string(p), s) {
			return p, true
		}
	}
	return "", false
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// CanonicalEvent is the normalized representation all sources map to.
type CanonicalEvent struct {
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`              // Always >= Start
	Type      EventType `json:"type"`             // e.g. "International Day"
	Scope     Scope     `json:"scope"`            // Global or National
	Category  Category  `json:"category"`         // One of Categories
	Brief     string    `json:"brief"`            // May be empty
	Organizer string    `json:"organizer"`        // Source organization
	Source    string    `json:"source,omitempty"` // Reference URL
	Priority  Priority  `json:"priority"`
	Month     int       `json:"month"` // 1-12, derived from Start

	// CategoryDefaulted is set when no classification keyword matched and
	// Category fell back to Health.
	CategoryDefaulted bool       `json:"category_defaulted,omitempty"`
	SourceID          SourceKind `json:"source_id"`
}

// DedupKey is the composite identity used to collapse duplicates across sources.
func (e CanonicalEvent) DedupKey() string {
	return e.Title + "\x00" + e.Start.Format(DateLayout)
}

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthOf returns the 1-12 month number of t.
func MonthOf(t time.Time) int {
	return int(t.Month())
}

// -----------------------------------------------------------------------------
// Sync results
// -----------------------------------------------------------------------------

// SourceError records one source that failed during a sync run.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// SyncResult is the output of one orchestration run.
type SyncResult struct {
	RunID    uuid.UUID        `json:"run_id"`
	Events   []CanonicalEvent `json:"events"`
	Errors   []SourceError    `json:"errors"`
	SyncedAt time.Time        `json:"synced_at"`
	Success  bool             `json:"success"`
}

// Degraded reports whether the run succeeded with at least one failed source.
func (r SyncResult) Degraded() bool {
	return r.Success && len(r.Errors) > 0
}
