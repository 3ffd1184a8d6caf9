package adapter

import (
	"encoding/json"
	"strings"

	"github.com/hsebcm/calendar-sync/internal/model"
)

// -----------------------------------------------------------------------------
// WHO
// -----------------------------------------------------------------------------

type whoRecord struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
}

var whoProfile = profile{
	kind:      model.SourceWHO,
	organizer: "World Health Organization",
	scope:     model.ScopeGlobal,
	category:  model.CategoryHealth,
	priority:  model.PriorityHigh,
	eventType: model.TypeInternationalDay,
}

type whoAdapter struct{}

func (whoAdapter) Source() model.SourceKind { return model.SourceWHO }
func (whoAdapter) sealed()                  {}

func (whoAdapter) Adapt(index int, raw json.RawMessage) (model.CanonicalEvent, error) {
	var r whoRecord
	if err := whoProfile.decode(index, raw, &r); err != nil {
		return model.CanonicalEvent{}, err
	}
	return whoProfile.build(index, fields{
		title:    r.Title,
		start:    r.Date,
		end:      r.EndDate,
		brief:    r.Description,
		url:      r.URL,
		priority: r.Priority,
		typ:      r.Type,
	})
}

// -----------------------------------------------------------------------------
// UN
// -----------------------------------------------------------------------------

type unRecord struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	EndDate     string `json:"endDate"`
	Theme       string `json:"theme"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
}

var unProfile = profile{
	kind:      model.SourceUN,
	organizer: "United Nations",
	scope:     model.ScopeGlobal,
	priority:  model.PriorityMedium,
	eventType: model.TypeInternationalDay,
}

type unAdapter struct{}

func (unAdapter) Source() model.SourceKind { return model.SourceUN }
func (unAdapter) sealed()                  {}

func (unAdapter) Adapt(index int, raw json.RawMessage) (model.CanonicalEvent, error) {
	var r unRecord
	if err := unProfile.decode(index, raw, &r); err != nil {
		return model.CanonicalEvent{}, err
	}
	ev, err := unProfile.build(index, fields{
		title:    r.Name,
		start:    r.Date,
		end:      r.EndDate,
		brief:    r.Description,
		url:      r.URL,
		priority: r.Priority,
		typ:      r.Type,
	})
	if err != nil {
		return model.CanonicalEvent{}, err
	}
	theme := r.Theme
	if strings.TrimSpace(theme) == "" {
		theme = r.Name
	}
	ev.Category, ev.CategoryDefaulted = Classify(theme)
	return ev, nil
}

// -----------------------------------------------------------------------------
// ILO
// -----------------------------------------------------------------------------

type iloRecord struct {
	EventName string `json:"eventName"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Summary   string `json:"summary"`
	Link      string `json:"link"`
	Priority  string `json:"priority"`
	Type      string `json:"type"`
}

var iloProfile = profile{
	kind:      model.SourceILO,
	organizer: "International Labour Organization",
	scope:     model.ScopeGlobal,
	category:  model.CategorySafety,
	priority:  model.PriorityHigh,
	eventType: model.TypeInternationalDay,
}

type iloAdapter struct{}

func (iloAdapter) Source() model.SourceKind { return model.SourceILO }
func (iloAdapter) sealed()                  {}

func (iloAdapter) Adapt(index int, raw json.RawMessage) (model.CanonicalEvent, error) {
	var r iloRecord
	if err := iloProfile.decode(index, raw, &r); err != nil {
		return model.CanonicalEvent{}, err
	}
	return iloProfile.build(index, fields{
		title:    r.EventName,
		start:    r.StartDate,
		end:      r.EndDate,
		brief:    r.Summary,
		url:      r.Link,
		priority: r.Priority,
		typ:      r.Type,
	})
}

// -----------------------------------------------------------------------------
// UAE
// -----------------------------------------------------------------------------

type uaeRecord struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	EndDate     string `json:"end_date"`
	Category    string `json:"category"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
}

var uaeProfile = profile{
	kind:      model.SourceUAE,
	organizer: "UAE Government",
	scope:     model.ScopeNational,
	priority:  model.PriorityHigh,
	eventType: model.TypeNationalDay,
}

type uaeAdapter struct{}

func (uaeAdapter) Source() model.SourceKind { return model.SourceUAE }
func (uaeAdapter) sealed()                  {}

func (uaeAdapter) Adapt(index int, raw json.RawMessage) (model.CanonicalEvent, error) {
	var r uaeRecord
	if err := uaeProfile.decode(index, raw, &r); err != nil {
		return model.CanonicalEvent{}, err
	}
	ev, err := uaeProfile.build(index, fields{
		title:    r.Title,
		start:    r.Date,
		end:      r.EndDate,
		brief:    r.Description,
		url:      r.URL,
		priority: r.Priority,
		typ:      r.Type,
	})
	if err != nil {
		return model.CanonicalEvent{}, err
	}
	if c, ok := model.ParseCategory(r.Category); ok {
		ev.Category = c
	} else {
		ev.Category, ev.CategoryDefaulted = Classify(ev.Title)
	}
	return ev, nil
}

// -----------------------------------------------------------------------------
// IRENA
// -----------------------------------------------------------------------------

type irenaRecord struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
}

var irenaProfile = profile{
	kind:      model.SourceIRENA,
	organizer: "International Renewable Energy Agency",
	scope:     model.ScopeGlobal,
	category:  model.CategoryEnergy,
	priority:  model.PriorityMedium,
	eventType: model.TypeConference,
}

type irenaAdapter struct{}

func (irenaAdapter) Source() model.SourceKind { return model.SourceIRENA }
func (irenaAdapter) sealed()                  {}

func (irenaAdapter) Adapt(index int, raw json.RawMessage) (model.CanonicalEvent, error) {
	var r irenaRecord
	if err := irenaProfile.decode(index, raw, &r); err != nil {
		return model.CanonicalEvent{}, err
	}
	return irenaProfile.build(index, fields{
		title:    r.Title,
		start:    r.Start,
		end:      r.End,
		brief:    r.Description,
		url:      r.URL,
		priority: r.Priority,
		typ:      r.Type,
	})
}
