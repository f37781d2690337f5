package complaint

import (
	"context"
	"sort"
	"time"

	"complaintdesk/backend/internal/models"
)

// TimelineEventType tags an entry of the timeline.
type TimelineEventType string

const (
	TimelineCreated  TimelineEventType = "created"
	TimelineUpdate   TimelineEventType = "update"
	TimelineResolved TimelineEventType = "resolved"
	TimelineRejected TimelineEventType = "rejected"
)

// TimelineEvent is one entry of the display timeline.
type TimelineEvent struct {
	Type        TimelineEventType `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Timeline recomputes the ordered history of a complaint on every call.
// A missing complaint is a NotFound error, not an empty timeline.
func (s *Service) Timeline(ctx context.Context, actor models.Identity, id uint) ([]TimelineEvent, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	updates, err := s.Storage.ListComplaintUpdates(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(&c.Complaint, updates), nil
}

// BuildTimeline merges creation, notes and the terminal transition, sorted
// by timestamp. Ties keep insertion order.
func BuildTimeline(c *models.Complaint, updates []models.ComplaintUpdate) []TimelineEvent {
	events := make([]TimelineEvent, 0, len(updates)+2)
	events = append(events, TimelineEvent{
		Type:        TimelineCreated,
		Title:       "Complaint Filed",
		Description: "Complaint successfully registered in the system.",
		Timestamp:   c.CreatedAt,
	})

	for _, u := range updates {
		title := "Staff Update"
		if u.AuthorRole == models.AuthorStudent {
			title = "Student Comment"
		}
		events = append(events, TimelineEvent{
			Type:        TimelineUpdate,
			Title:       title,
			Description: u.Message,
			Timestamp:   u.CreatedAt,
		})
	}

	switch c.Status {
	case models.StatusResolved:
		events = append(events, TimelineEvent{
			Type:        TimelineResolved,
			Title:       "Complaint Resolved",
			Description: "Issue has been marked as resolved.",
			Timestamp:   c.UpdatedAt,
		})
	case models.StatusRejected:
		events = append(events, TimelineEvent{
			Type:        TimelineRejected,
			Title:       "Complaint Rejected",
			Description: "Issue was rejected.",
			Timestamp:   c.UpdatedAt,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}
