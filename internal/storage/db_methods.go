package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"complaintdesk/backend/internal/apperrors"
	"complaintdesk/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ComplaintCount is one bucket of the oversight summary.
type ComplaintCount struct {
	Status         models.Status   `json:"status"`
	Category       models.Category `json:"category"`
	Priority       models.Priority `json:"priority"`
	EscalationFlag bool            `json:"escalation_flag"`
	Count          int64           `json:"count"`
}

// BumpPriority promotes open low/medium complaints created before the cutoff
// to high priority and returns the ids it touched.
func (s *Service) BumpPriority(ctx context.Context, createdBefore time.Time) ([]uint, error) {
	var ids []uint
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		scope := func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ? AND priority IN ? AND created_at < ?",
				models.StatusOpen,
				[]string{string(models.PriorityLow), string(models.PriorityMedium)},
				createdBefore)
		}
		if err := scope(tx.Model(&models.Complaint{})).Order("id").Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return scope(tx.Model(&models.Complaint{})).
			Where("id IN ?", ids).
			Updates(map[string]any{"priority": models.PriorityHigh, "updated_at": s.now()}).Error
	})
	if err != nil {
		return nil, classify("bump priority", err)
	}
	return ids, nil
}

// FlagEscalations raises escalation_flag on non-terminal complaints created
// before the cutoff and returns the ids it touched.
func (s *Service) FlagEscalations(ctx context.Context, createdBefore time.Time) ([]uint, error) {
	var ids []uint
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		scope := func(q *gorm.DB) *gorm.DB {
			return q.Where("status NOT IN ? AND escalation_flag = ? AND created_at < ?",
				[]string{string(models.StatusResolved), string(models.StatusRejected)},
				false,
				createdBefore)
		}
		if err := scope(tx.Model(&models.Complaint{})).Order("id").Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return scope(tx.Model(&models.Complaint{})).
			Where("id IN ?", ids).
			Updates(map[string]any{"escalation_flag": true, "updated_at": s.now()}).Error
	})
	if err != nil {
		return nil, classify("flag escalations", err)
	}
	return ids, nil
}

// ComplaintCounts groups complaints by status, category, priority and flag.
func (s *Service) ComplaintCounts(ctx context.Context) ([]ComplaintCount, error) {
	counts := []ComplaintCount{}
	err := s.db(ctx).Model(&models.Complaint{}).
		Select("status, category, priority, escalation_flag, COUNT(*) AS count").
		Group("status, category, priority, escalation_flag").
		Scan(&counts).Error
	if err != nil {
		return nil, classify("count complaints", err)
	}
	return counts, nil
}

// SaveUser inserts the user or updates role and department of the existing
// account with the same email.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "department", "full_name", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return classify("save user", err)
	}
	if user.ID == 0 {
		saved, err := s.GetUserByEmail(ctx, user.Email)
		if err != nil {
			return err
		}
		*user = *saved
	}
	return nil
}

// GetUserByID returns a user or a NotFound error.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).First(&user, id).Error; err != nil {
		return nil, userLookupError(err)
	}
	return &user, nil
}

// GetUserByEmail looks a user up by normalised email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, userLookupError(err)
	}
	return &user, nil
}

func userLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(apperrors.CodeUserNotFound, "user not found")
	}
	return apperrors.Transient("get user", err)
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return apperrors.Transient("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.Transient("ping", err)
	}
	return nil
}
