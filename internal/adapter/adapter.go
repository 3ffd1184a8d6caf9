package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/hsebcm/calendar-sync/internal/model"
)

// Adapter maps one raw record from a single source to a CanonicalEvent.
type Adapter interface {
	Source() model.SourceKind
	Adapt(index int, raw json.RawMessage) (model.CanonicalEvent, error)

	sealed()
}

// NormalizationError reports a single raw record that could not be adapted.
type NormalizationError struct {
	Source model.SourceKind
	Index  int
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s record %d: %s", e.Source, e.Index, e.Reason)
}

// For returns the adapter for kind.
func For(kind model.SourceKind) (Adapter, error) {
	switch kind {
	case model.SourceWHO:
		return whoAdapter{}, nil
	case model.SourceUN:
		return unAdapter{}, nil
	case model.SourceILO:
		return iloAdapter{}, nil
	case model.SourceUAE:
		return uaeAdapter{}, nil
	case model.SourceIRENA:
		return irenaAdapter{}, nil
	default:
		return nil, fmt.Errorf("no adapter for source %q", kind)
	}
}

// envelopeKeys are the wrapper fields searched when a payload is an object
// rather than a bare array.
var envelopeKeys = []string{"events", "data", "results", "items"}

// AdaptAll decodes payload as a JSON array of records and adapts each one.
// Records that fail are returned as NormalizationErrors alongside the events
// that succeeded. A payload that is not an array (or an object wrapping one)
// is a source-level error.
func AdaptAll(a Adapter, payload []byte) ([]model.CanonicalEvent, []*NormalizationError, error) {
	records, err := decodeRecords(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s payload: %w", a.Source(), err)
	}

	events := make([]model.CanonicalEvent, 0, len(records))
	var dropped []*NormalizationError
	for i, raw := range records {
		ev, err := a.Adapt(i, raw)
		if err != nil {
			var ne *NormalizationError
			if errors.As(err, &ne) {
				dropped = append(dropped, ne)
				continue
			}
			dropped = append(dropped, &NormalizationError{Source: a.Source(), Index: i, Reason: err.Error()})
			continue
		}
		events = append(events, ev)
	}
	return events, dropped, nil
}

func decodeRecords(payload []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
		for _, k := range envelopeKeys {
			if inner, ok := obj[k]; ok {
				return decodeRecords(inner)
			}
		}
		return nil, fmt.Errorf("object payload has none of %v", envelopeKeys)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// fields are the raw values every adapter extracts before building an event.
type fields struct {
	title    string
	start    string
	end      string
	brief    string
	url      string
	priority string
	typ      string
}

// profile holds the fixed per-source defaults.
type profile struct {
	kind      model.SourceKind
	organizer string
	scope     model.Scope
	category  model.Category
	priority  model.Priority
	eventType model.EventType
}

// build validates f and assembles the event with the profile's defaults.
// Category is set to the profile default; callers that classify override it.
func (p profile) build(index int, f fields) (model.CanonicalEvent, error) {
	title := normalizeText(f.title)
	if title == "" {
		return model.CanonicalEvent{}, p.fail(index, "missing title")
	}
	if strings.TrimSpace(f.start) == "" {
		return model.CanonicalEvent{}, p.fail(index, "missing date")
	}
	start, err := parseDate(f.start)
	if err != nil {
		return model.CanonicalEvent{}, p.fail(index, err.Error())
	}

	end := start
	if strings.TrimSpace(f.end) != "" {
		if t, err := parseDate(f.end); err == nil && !t.Before(start) {
			end = t
		}
	}

	priority := p.priority
	if v, ok := model.ParsePriority(f.priority); ok {
		priority = v
	}
	eventType := p.eventType
	if v, ok := model.ParseEventType(f.typ); ok {
		eventType = v
	}

	return model.CanonicalEvent{
		Title:     title,
		Start:     start,
		End:       end,
		Type:      eventType,
		Scope:     p.scope,
		Category:  p.category,
		Brief:     normalizeText(f.brief),
		Organizer: p.organizer,
		Source:    strings.TrimSpace(f.url),
		Priority:  priority,
		Month:     model.MonthOf(start),
		SourceID:  p.kind,
	}, nil
}

func (p profile) fail(index int, reason string) *NormalizationError {
	return &NormalizationError{Source: p.kind, Index: index, Reason: reason}
}

func (p profile) decode(index int, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return p.fail(index, "malformed record: "+err.Error())
	}
	return nil
}

// parseDate accepts a calendar date or an RFC3339 timestamp and returns the
// calendar day at UTC midnight.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return model.Date(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return model.Date(t), nil
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", s)
}

// normalizeText NFC-normalizes s and collapses runs of whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
