package models

import (
	"strconv"
	"time"
)

// EventType names a notification pushed to observers.
type EventType string

const (
	EventNewComplaint       EventType = "new_complaint"
	EventStatusChange       EventType = "complaint_status_change"
	EventComplaintClaimed   EventType = "complaint_claimed"
	EventComplaintUpdate    EventType = "complaint_update"
	EventComplaintEscalated EventType = "complaint_escalated"
)

// TopicBroadcast is the topic every observer receives, including anonymous ones.
const TopicBroadcast = "broadcast"

// ComplaintTopic is the per-complaint room.
func ComplaintTopic(id uint) string {
	return "complaint:" + strconv.FormatUint(uint64(id), 10)
}

// DepartmentTopic is the per-department room.
func DepartmentTopic(d Department) string {
	return "department:" + string(d)
}

// Event is the envelope published on the notification channel.
type Event struct {
	Type    EventType `json:"type"`
	Topics  []string  `json:"topics"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

// UpdatePayload is carried by complaint_update events.
type UpdatePayload struct {
	ComplaintID uint            `json:"complaintId"`
	Update      ComplaintUpdate `json:"update"`
}

// EscalationPayload is carried by complaint_escalated events.
type EscalationPayload struct {
	Rule         string `json:"rule"`
	ComplaintIDs []uint `json:"complaint_ids"`
}

// ClientCommand is sent by observers over the websocket.
type ClientCommand struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Topic  string `json:"topic"`
}
