package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh entity ID.
func NewID() string {
	return uuid.NewString()
}

// EncodeRecurrence returns the JSON column value for r (nil when r is nil).
func EncodeRecurrence(r *Recurrence) (*string, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode recurrence: %w", err)
	}
	s := string(b)
	return &s, nil
}

// DecodeRecurrence parses the JSON column value. Empty or null columns yield nil.
func DecodeRecurrence(raw *string) (*Recurrence, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" || v == "null" {
		return nil, nil
	}
	var r Recurrence
	if err := json.Unmarshal([]byte(v), &r); err != nil {
		return nil, fmt.Errorf("decode recurrence: %w", err)
	}
	return &r, nil
}

// UnixOrNil converts an optional time to a nullable unix-seconds column value.
func UnixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Unix()
}

// TimeFromUnix converts a nullable unix-seconds column to an optional UTC time.
func TimeFromUnix(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}

// FirstSectionName returns the name of the first placement that has a section, or "".
func (t *Task) FirstSectionName() string {
	for _, p := range t.Placements {
		if p.SectionName != nil {
			return *p.SectionName
		}
	}
	return ""
}

// ProjectIDs returns the IDs of every project the task is placed in, in placement order.
func (t *Task) ProjectIDs() []string {
	out := make([]string, 0, len(t.Placements))
	for _, p := range t.Placements {
		out = append(out, p.ProjectID)
	}
	return out
}
