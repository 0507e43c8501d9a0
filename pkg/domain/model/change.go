package model

import (
	"encoding/json"
	"strings"

	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// ChangeEvent is a row change pushed by the change feed. Row holds the JSON
// encoding of the stored model after the change (before it, for deletes).
type ChangeEvent struct {
	Collection types.Collection      `json:"collection"`
	Type       types.ChangeEventType `json:"type"`
	Row        json.RawMessage       `json:"row"`
}

// NewChangeEvent encodes row into a ChangeEvent
func NewChangeEvent(collection types.Collection, ev types.ChangeEventType, row any) (*ChangeEvent, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	return &ChangeEvent{Collection: collection, Type: ev, Row: raw}, nil
}

// Decode unmarshals the row into v
func (e *ChangeEvent) Decode(v any) error {
	return json.Unmarshal(e.Row, v)
}

// RowFilter is an equality predicate on a top-level row column, written as
// "column=eq.value". The zero value matches every row.
type RowFilter struct {
	Column string
	Value  string
}

// ParseRowFilter parses the "column=eq.value" notation. An empty string
// yields the match-all filter.
func ParseRowFilter(s string) (RowFilter, error) {
	if s == "" {
		return RowFilter{}, nil
	}
	col, rest, ok := strings.Cut(s, "=")
	if !ok || col == "" {
		return RowFilter{}, NewInvalidValueError("filter", s)
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return RowFilter{}, NewInvalidValueError("filter", s)
	}
	return RowFilter{Column: col, Value: val}, nil
}

// EqFilter builds a RowFilter matching column == value
func EqFilter(column, value string) RowFilter {
	return RowFilter{Column: column, Value: value}
}

// IsZero reports whether the filter matches every row
func (f RowFilter) IsZero() bool {
	return f.Column == ""
}

func (f RowFilter) String() string {
	if f.IsZero() {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

// Match evaluates the filter against an event row. Non-string columns are
// compared by their JSON text.
func (f RowFilter) Match(row json.RawMessage) bool {
	if f.IsZero() {
		return true
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil {
		return false
	}
	v, ok := fields[f.Column]
	if !ok {
		return false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s == f.Value
	}
	return string(v) == f.Value
}

// SubscriptionSpec describes what a change feed subscriber wants to receive
type SubscriptionSpec struct {
	Collection types.Collection
	Filter     RowFilter
	Mask       types.ChangeEventType
}

// Accepts reports whether the event passes the subscription
func (s SubscriptionSpec) Accepts(ev *ChangeEvent) bool {
	return ev.Collection == s.Collection && s.Mask.Matches(ev.Type) && s.Filter.Match(ev.Row)
}
