package hub

import (
	"context"
	"strconv"
	"strings"

	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
)

// TopicAuthorizer decides whether an observer may join a topic.
type TopicAuthorizer interface {
	CanSubscribe(ctx context.Context, id *models.Identity, topic string) bool
}

// ComplaintLookup loads a complaint for ownership checks.
type ComplaintLookup func(ctx context.Context, id uint) (*models.ComplaintDetail, error)

// RolePolicy lets anonymous observers join broadcast only, students their own
// complaint rooms, and admins their department and the complaints they may view.
type RolePolicy struct {
	Lookup ComplaintLookup
}

func (p RolePolicy) CanSubscribe(ctx context.Context, id *models.Identity, topic string) bool {
	if topic == models.TopicBroadcast {
		return true
	}
	if id == nil {
		return false
	}

	switch {
	case strings.HasPrefix(topic, "department:"):
		dept, ok := models.ParseDepartment(strings.TrimPrefix(topic, "department:"))
		if !ok || dept == models.DepartmentNone || id.Role == models.RoleStudent {
			return false
		}
		return id.Role == models.RoleSuperAdmin || id.Department.Unscoped() || id.Department == dept

	case strings.HasPrefix(topic, "complaint:"):
		cid, err := strconv.ParseUint(strings.TrimPrefix(topic, "complaint:"), 10, 64)
		if err != nil || cid == 0 || p.Lookup == nil {
			return false
		}
		lookupCtx, cancel := context.WithTimeout(ctx, config.DefaultStoreTimeout)
		defer cancel()
		c, err := p.Lookup(lookupCtx, uint(cid))
		if err != nil {
			return false
		}
		return complaint.CanView(*id, &c.Complaint)
	}
	return false
}
