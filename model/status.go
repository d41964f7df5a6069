package model

import "strings"

// RequestStatus is the closed set of lifecycle states a FOIA request can be in.
type RequestStatus int

const (
	StatusUnknown RequestStatus = iota
	StatusPending
	StatusInProgress
	StatusCompleted
	StatusRejected
)

var statusNames = map[RequestStatus]string{
	StatusUnknown:    "unknown",
	StatusPending:    "pending",
	StatusInProgress: "in_progress",
	StatusCompleted:  "completed",
	StatusRejected:   "rejected",
}

// ParseStatus maps a stored status string onto its canonical variant.
// Matching ignores case and surrounding whitespace; "processing" and "denied"
// are accepted as synonyms. Anything else is StatusUnknown.
func ParseStatus(s string) RequestStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending
	case "in_progress", "processing":
		return StatusInProgress
	case "completed":
		return StatusCompleted
	case "rejected", "denied":
		return StatusRejected
	default:
		return StatusUnknown
	}
}

func (s RequestStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusUnknown]
}

func (s RequestStatus) Known() bool {
	return s != StatusUnknown
}

// Terminal reports whether no further transitions are expected.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}
