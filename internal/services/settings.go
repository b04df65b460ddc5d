package services

import "time"

// Settings carries the tunables the roster services need. It is built from
// config.Config at startup and passed to every constructor.
type Settings struct {
	// ImporterName is stamped into UpdatedBy on records written by a sync.
	ImporterName string
	// ArrivalWindowDays bounds how far an arrival date may sit from the event start.
	ArrivalWindowDays int
	Deadline          DeadlinePolicy
	// InvitationTTL is the longest an invitation code stays valid.
	InvitationTTL time.Duration
	// FetchTimeout bounds the roster fetch; hitting it counts as an empty roster.
	FetchTimeout time.Duration
	// ContextTimeout bounds each service call, like the request timeouts elsewhere.
	ContextTimeout  time.Duration
	StaffEmail      string
	SysadminEmail   string
	LegacyPersonURL string
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// DefaultSettings returns the values used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		ImporterName:      "Workshops importer",
		ArrivalWindowDays: 30,
		Deadline:          DeadlinePolicy{OffsetDays: 28, MinDays: 10},
		InvitationTTL:     720 * time.Hour,
		FetchTimeout:      30 * time.Second,
		ContextTimeout:    30 * time.Second,
	}
}

func (s Settings) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Settings) timeout() time.Duration {
	if s.ContextTimeout <= 0 {
		return 30 * time.Second
	}
	return s.ContextTimeout
}
