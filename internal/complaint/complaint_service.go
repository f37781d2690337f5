// Package complaint provides the core logic for handling complaints: the
// claim/resolution state machine, progress notes and the timeline view.
package complaint

import (
	"context"
	"strings"
	"time"

	"complaintdesk/backend/internal/apperrors"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"

	"go.uber.org/zap"
)

// Publisher receives events after the mutation they describe has committed.
// Implementations must not block.
type Publisher interface {
	Publish(ev models.Event)
}

// Publishers fans one event out to several publishers.
type Publishers []Publisher

func (ps Publishers) Publish(ev models.Event) {
	for _, p := range ps {
		p.Publish(ev)
	}
}

// Options are the configurable engine policies.
type Options struct {
	// EnforceDepartmentOnClaim limits scoped admins to claiming complaints
	// whose category belongs to their department.
	EnforceDepartmentOnClaim bool
	// BroadcastAll mirrors update and claim events onto the broadcast topic.
	BroadcastAll bool
}

// Service handles the business logic for complaints.
type Service struct {
	Storage   storage.Storage
	Publisher Publisher
	Logger    *zap.Logger
	Options   Options
	Now       func() time.Time
}

// NewService creates a new complaint service. publisher may be nil.
func NewService(s storage.Storage, publisher Publisher, logger *zap.Logger, opts Options) *Service {
	return &Service{
		Storage:   s,
		Publisher: publisher,
		Logger:    logging.OrNop(logger),
		Options:   opts,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput is a new complaint as submitted by a student.
type CreateInput struct {
	Title       string
	Category    string
	Description *string
	ImageURL    *string
}

// ResolveInput moves a claimed complaint to a terminal status.
type ResolveInput struct {
	Status  string
	Remarks string
}

// List returns the complaints visible to the caller.
func (s *Service) List(ctx context.Context, actor models.Identity) ([]models.ComplaintDetail, error) {
	return s.Storage.ListComplaints(ctx, storage.Scope{
		Role:       actor.Role,
		Department: actor.Department,
		UserID:     actor.UserID,
	})
}

// Get returns one complaint if the caller may see it.
func (s *Service) Get(ctx context.Context, actor models.Identity, id uint) (*models.ComplaintDetail, error) {
	c, err := s.Storage.GetComplaintByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, &c.Complaint) {
		return nil, apperrors.Forbidden(apperrors.CodeNotVisible, "complaint is outside your scope")
	}
	return c, nil
}

// Create files a complaint for a student with no other active complaint.
func (s *Service) Create(ctx context.Context, actor models.Identity, in CreateInput) (*models.ComplaintDetail, error) {
	if actor.Role != models.RoleStudent {
		return nil, apperrors.Forbidden(apperrors.CodeRoleNotAllowed, "only students can file complaints")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.Validation(apperrors.CodeTitleRequired, "title is required")
	}
	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, apperrors.Validation(apperrors.CodeInvalidCategory, "category must be one of academic, hostel, mess, internet, infrastructure, finance, other")
	}

	active, err := s.Storage.HasActiveComplaint(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperrors.Conflict(apperrors.CodeActiveComplaintExists, "you already have an active complaint")
	}

	c := &models.Complaint{
		AuthorID:    actor.UserID,
		Category:    category,
		Title:       title,
		Description: trimmedOrNil(in.Description),
		ImageURL:    trimmedOrNil(in.ImageURL),
	}
	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, err
	}

	created := &models.ComplaintDetail{Complaint: *c, AuthorEmail: actor.Email}
	if fresh, err := s.Storage.GetComplaintByID(ctx, c.ID); err == nil {
		created = fresh
	} else {
		s.Logger.Warn("reload created complaint", zap.Uint("complaint_id", c.ID), zap.Error(err))
	}

	s.publish(models.EventNewComplaint, created, s.topics(created.Category, 0, true))
	return created, nil
}

// Claim assigns an open complaint to the calling admin.
func (s *Service) Claim(ctx context.Context, actor models.Identity, id uint) (*models.ComplaintDetail, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.Forbidden(apperrors.CodeRoleNotAllowed, "only admins can claim complaints")
	}
	if s.Options.EnforceDepartmentOnClaim && actor.Role == models.RoleAdmin {
		current, err := s.Storage.GetComplaintByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !actor.Department.Covers(current.Category) {
			return nil, apperrors.Forbidden(apperrors.CodeDepartmentMismatch, "complaint belongs to another department")
		}
	}

	claimed, err := s.Storage.ClaimComplaint(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("complaint claimed", zap.Uint("complaint_id", id), zap.Uint("admin_id", actor.UserID))
	s.publish(models.EventComplaintClaimed, claimed, s.topics(claimed.Category, claimed.ID, s.Options.BroadcastAll))
	return claimed, nil
}

// Resolve moves a claimed complaint to resolved or rejected. Admins must hold
// the claim; super admins bypass ownership.
func (s *Service) Resolve(ctx context.Context, actor models.Identity, id uint, in ResolveInput) (*models.ComplaintDetail, error) {
	status := models.Status(strings.ToLower(strings.TrimSpace(in.Status)))
	if status != models.StatusResolved && status != models.StatusRejected {
		return nil, apperrors.Validation(apperrors.CodeInvalidStatus, "status must be resolved or rejected")
	}
	remarks := strings.TrimSpace(in.Remarks)
	if remarks == "" {
		return nil, apperrors.Validation(apperrors.CodeRemarksRequired, "remarks are required")
	}
	if !actor.Role.IsStaff() {
		return nil, apperrors.Forbidden(apperrors.CodeRoleNotAllowed, "only admins can resolve complaints")
	}

	resolved, err := s.Storage.ResolveComplaint(ctx, storage.ResolveParams{
		ComplaintID:  id,
		ActorID:      actor.UserID,
		RequireOwner: actor.Role != models.RoleSuperAdmin,
		Status:       status,
		Remarks:      remarks,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("complaint resolved",
		zap.Uint("complaint_id", id),
		zap.Uint("actor_id", actor.UserID),
		zap.String("status", string(status)),
	)
	s.publish(models.EventStatusChange, resolved, s.topics(resolved.Category, resolved.ID, true))
	return resolved, nil
}

// AddUpdate appends a progress note. Students may only annotate their own
// complaints; the complaint status is left untouched.
func (s *Service) AddUpdate(ctx context.Context, actor models.Identity, id uint, message string) (*models.ComplaintUpdate, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.Validation(apperrors.CodeMessageRequired, "message is required")
	}
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	update := &models.ComplaintUpdate{
		ComplaintID: id,
		Message:     message,
		AuthorRole:  models.AuthorRoleFor(actor.Role),
	}
	if err := s.Storage.AddComplaintUpdate(ctx, update); err != nil {
		return nil, err
	}

	s.publish(models.EventComplaintUpdate,
		models.UpdatePayload{ComplaintID: id, Update: *update},
		s.topics(c.Category, id, s.Options.BroadcastAll),
	)
	return update, nil
}

// CanView reports whether actor may read complaint c.
func CanView(actor models.Identity, c *models.Complaint) bool {
	switch actor.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleStudent:
		return c.AuthorID == actor.UserID
	case models.RoleAdmin:
		if actor.Department.Covers(c.Category) {
			return true
		}
		return c.ClaimedBy != nil && *c.ClaimedBy == actor.UserID
	}
	return false
}

// topics returns the rooms an event about a complaint of category is
// delivered to. complaintID 0 omits the per-complaint room.
func (s *Service) topics(category models.Category, complaintID uint, broadcast bool) []string {
	var out []string
	if broadcast {
		out = append(out, models.TopicBroadcast)
	}
	if d, ok := models.DepartmentFor(category); ok {
		out = append(out, models.DepartmentTopic(d))
	}
	out = append(out, models.DepartmentTopic(models.DepartmentAll))
	if complaintID != 0 {
		out = append(out, models.ComplaintTopic(complaintID))
	}
	return out
}

func (s *Service) publish(kind models.EventType, payload any, topics []string) {
	if s.Publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("publish panicked", zap.String("event", string(kind)), zap.Any("panic", r))
		}
	}()
	s.Publisher.Publish(models.Event{
		Type:    kind,
		Topics:  topics,
		Payload: payload,
		SentAt:  s.now(),
	})
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
