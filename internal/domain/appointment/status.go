package appointment

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the canonical appointment lifecycle state. Stored rows carry raw
// strings from two overlapping vocabularies; only Normalize looks at them.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
	StatusUnknown   Status = "UNKNOWN"
)

var rawToStatus = map[string]Status{
	"pending":   StatusPending,
	"scheduled": StatusPending,
	"approved":  StatusApproved,
	"accepted":  StatusApproved,
	"rejected":  StatusRejected,
	"cancelled": StatusRejected,
	"completed": StatusCompleted,
}

// stored is the raw value written for each status. New rows always use it.
var stored = map[Status]string{
	StatusPending:   "pending",
	StatusApproved:  "approved",
	StatusRejected:  "rejected",
	StatusCompleted: "completed",
}

// Normalize maps a raw status onto the canonical set. It never fails: anything
// unrecognized is StatusUnknown.
func Normalize(raw string) Status {
	if s, ok := rawToStatus[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}

// Known is false only for StatusUnknown.
func (s Status) Known() bool {
	_, ok := stored[s]
	return ok
}

// Raw returns the value persisted for s. Unknown has none.
func (s Status) Raw() string { return stored[s] }

// RawValues lists every raw spelling that normalizes to s.
func (s Status) RawValues() []string {
	var out []string
	for raw, st := range rawToStatus {
		if st == s {
			out = append(out, raw)
		}
	}
	sort.Strings(out)
	return out
}

// AllRawValues lists every recognized raw spelling.
func AllRawValues() []string {
	out := make([]string, 0, len(rawToStatus))
	for raw := range rawToStatus {
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

// ParseStatus accepts a canonical name (any case) for query filters.
func ParseStatus(name string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(name)))
	if s.Known() || s == StatusUnknown {
		return s, true
	}
	return "", false
}

// UnknownStatusError marks a raw status outside both vocabularies. It is a
// soft error: callers log it and treat the record as ineligible.
type UnknownStatusError struct {
	Raw string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unrecognized appointment status %q", e.Raw)
}

// CheckStatus returns an *UnknownStatusError when raw does not normalize.
func CheckStatus(raw string) error {
	if !Normalize(raw).Known() {
		return &UnknownStatusError{Raw: raw}
	}
	return nil
}
