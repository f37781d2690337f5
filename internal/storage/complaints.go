package storage

import (
	"context"
	"fmt"

	"complaintdesk/backend/internal/apperrors"
	"complaintdesk/backend/internal/models"

	"gorm.io/gorm"
)

const detailColumns = "c.*, COALESCE(u1.email, '') AS author_email, u2.email AS claimer_email"

// detailQuery selects complaints with both emails resolved in one join.
func detailQuery(tx *gorm.DB) *gorm.DB {
	return tx.Table("complaints AS c").
		Select(detailColumns).
		Joins("LEFT JOIN users u1 ON u1.id = c.author_id").
		Joins("LEFT JOIN users u2 ON u2.id = c.claimed_by")
}

func activeStatuses() []string {
	out := make([]string, 0, len(models.ActiveStatuses))
	for _, st := range models.ActiveStatuses {
		out = append(out, string(st))
	}
	return out
}

// ListComplaints returns the complaints visible to scope, newest first.
func (s *Service) ListComplaints(ctx context.Context, scope Scope) ([]models.ComplaintDetail, error) {
	q := detailQuery(s.db(ctx))

	switch {
	case scope.Role == models.RoleStudent:
		q = q.Where("c.author_id = ?", scope.UserID)
	case scope.Role == models.RoleSuperAdmin, scope.Department.Unscoped():
		// every complaint
	default:
		category, ok := scope.Department.Category()
		if !ok {
			return []models.ComplaintDetail{}, nil
		}
		q = q.Where("c.category = ?", category)
	}

	complaints := []models.ComplaintDetail{}
	if err := q.Order("c.created_at DESC").Order("c.id DESC").Scan(&complaints).Error; err != nil {
		return nil, classify("list complaints", err)
	}
	return complaints, nil
}

// GetComplaintByID returns a complaint with resolved emails.
func (s *Service) GetComplaintByID(ctx context.Context, id uint) (*models.ComplaintDetail, error) {
	return s.getDetail(s.db(ctx), id)
}

func (s *Service) getDetail(tx *gorm.DB, id uint) (*models.ComplaintDetail, error) {
	var rows []models.ComplaintDetail
	if err := detailQuery(tx).Where("c.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, classify("get complaint", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NotFound(apperrors.CodeComplaintNotFound, "complaint not found")
	}
	return &rows[0], nil
}

// HasActiveComplaint reports whether the author owns a non-terminal complaint.
func (s *Service) HasActiveComplaint(ctx context.Context, authorID uint) (bool, error) {
	var count int64
	err := s.db(ctx).Model(&models.Complaint{}).
		Where("author_id = ? AND status IN ?", authorID, activeStatuses()).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, classify("check active complaint", err)
	}
	return count > 0, nil
}

// CreateComplaint inserts an open, medium-priority complaint together with
// its CREATED activity entry.
func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	now := s.now()
	complaint.ID = 0
	complaint.Status = models.StatusOpen
	complaint.Priority = models.PriorityMedium
	complaint.ClaimedBy = nil
	complaint.EscalationFlag = false
	complaint.CreatedAt = now
	complaint.UpdatedAt = now

	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(complaint).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.Conflict(apperrors.CodeActiveComplaintExists, "an active complaint already exists")
			}
			return err
		}
		return s.appendActivity(tx, complaint.ID, complaint.AuthorID, models.ActionCreated, map[string]any{
			"id":          complaint.ID,
			"author_id":   complaint.AuthorID,
			"category":    complaint.Category,
			"status":      complaint.Status,
			"priority":    complaint.Priority,
			"title":       complaint.Title,
			"description": complaint.Description,
			"image_url":   complaint.ImageURL,
		})
	})
	return classify("create complaint", err)
}

// ClaimComplaint assigns an unclaimed complaint to adminID and moves it to
// in_progress. The update is conditional on claimed_by being NULL so
// concurrent claims yield exactly one winner.
func (s *Service) ClaimComplaint(ctx context.Context, id, adminID uint) (*models.ComplaintDetail, error) {
	var claimed *models.ComplaintDetail
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		res := tx.Model(&models.Complaint{}).
			Where("id = ? AND claimed_by IS NULL AND status = ?", id, models.StatusOpen).
			Updates(map[string]any{
				"claimed_by": adminID,
				"status":     models.StatusInProgress,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := s.getDetail(tx, id); err != nil {
				return err
			}
			return apperrors.Conflict(apperrors.CodeAlreadyClaimed, "complaint already claimed")
		}
		if err := s.appendActivity(tx, id, adminID, models.ActionClaimed, map[string]any{
			"claimed_by": adminID,
			"status":     models.StatusInProgress,
		}); err != nil {
			return err
		}
		var err error
		claimed, err = s.getDetail(tx, id)
		return err
	})
	if err != nil {
		return nil, classify("claim complaint", err)
	}
	return claimed, nil
}

// ResolveComplaint moves an in_progress complaint to resolved or rejected and
// records the remarks in the activity log.
func (s *Service) ResolveComplaint(ctx context.Context, p ResolveParams) (*models.ComplaintDetail, error) {
	action := models.ActionResolved
	if p.Status == models.StatusRejected {
		action = models.ActionRejected
	}

	var resolved *models.ComplaintDetail
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Complaint{}).
			Where("id = ? AND status = ?", p.ComplaintID, models.StatusInProgress)
		if p.RequireOwner {
			q = q.Where("claimed_by = ?", p.ActorID)
		}
		res := q.Updates(map[string]any{
			"status":     p.Status,
			"updated_at": s.now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.explainResolveMiss(tx, p)
		}
		if err := s.appendActivity(tx, p.ComplaintID, p.ActorID, action, map[string]any{
			"status":  p.Status,
			"remarks": p.Remarks,
		}); err != nil {
			return err
		}
		var err error
		resolved, err = s.getDetail(tx, p.ComplaintID)
		return err
	})
	if err != nil {
		return nil, classify("resolve complaint", err)
	}
	return resolved, nil
}

func (s *Service) explainResolveMiss(tx *gorm.DB, p ResolveParams) error {
	current, err := s.getDetail(tx, p.ComplaintID)
	if err != nil {
		return err
	}
	switch {
	case current.Status.Terminal():
		return apperrors.Conflict(apperrors.CodeAlreadyTerminal, "complaint is already "+string(current.Status))
	case current.ClaimedBy == nil || current.Status == models.StatusOpen:
		return apperrors.Conflict(apperrors.CodeNotClaimed, "complaint must be claimed before it is resolved")
	case p.RequireOwner && *current.ClaimedBy != p.ActorID:
		return apperrors.Forbidden(apperrors.CodeNotClaimOwner, "complaint is claimed by another admin")
	}
	return apperrors.Conflict(apperrors.CodeInvalidStatus, "complaint changed concurrently")
}

// AddComplaintUpdate appends a progress note. It leaves status and updated_at
// untouched.
func (s *Service) AddComplaintUpdate(ctx context.Context, update *models.ComplaintUpdate) error {
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Complaint{}).Where("id = ?", update.ComplaintID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return apperrors.NotFound(apperrors.CodeComplaintNotFound, "complaint not found")
		}
		update.ID = 0
		update.CreatedAt = s.now()
		return tx.Create(update).Error
	})
	return classify("add complaint update", err)
}

// ListComplaintUpdates returns the notes of a complaint in creation order.
func (s *Service) ListComplaintUpdates(ctx context.Context, complaintID uint) ([]models.ComplaintUpdate, error) {
	updates := []models.ComplaintUpdate{}
	err := s.db(ctx).
		Where("complaint_id = ?", complaintID).
		Order("created_at ASC").Order("id ASC").
		Find(&updates).Error
	if err != nil {
		return nil, classify("list complaint updates", err)
	}
	return updates, nil
}

// ListActivity returns the audit trail of a complaint in creation order.
func (s *Service) ListActivity(ctx context.Context, complaintID uint) ([]models.ActivityLog, error) {
	logs := []models.ActivityLog{}
	err := s.db(ctx).
		Where("complaint_id = ?", complaintID).
		Order("created_at ASC").Order("id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, classify("list activity", err)
	}
	return logs, nil
}

func (s *Service) appendActivity(tx *gorm.DB, complaintID, actorID uint, action models.Action, state any) error {
	snapshot, err := models.NewSnapshot(state)
	if err != nil {
		return err
	}
	entry := &models.ActivityLog{
		ComplaintID: complaintID,
		ActorID:     actorID,
		Action:      action,
		NewState:    snapshot,
		CreatedAt:   s.now(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	return nil
}
