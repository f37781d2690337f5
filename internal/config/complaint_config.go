package config

import "time"

const (
	// Escalation
	DefaultPriorityBumpInterval = 5 * time.Minute
	DefaultPriorityBumpAfter    = 30 * time.Minute
	DefaultEscalationInterval   = time.Hour
	DefaultEscalationAfter      = 24 * time.Hour

	// Store
	DefaultStoreTimeout = 5 * time.Second

	// Notifications
	EventBufferSize  = 256
	ClientBufferSize = 64
	RedisChannel     = "complaints:events"
)

// DefaultVIPMailboxes maps departmental mailboxes to the department they run.
// The dean of student welfare and the director oversee every department.
var DefaultVIPMailboxes = map[string]string{
	"chiefwarden": "hostel",
	"mess":        "mess",
	"it":          "internet",
	"deanacad":    "academic",
	"estate":      "infrastructure",
	"enquiry":     "other",
	"dean.sw":     "all",
	"director":    "all",
}
