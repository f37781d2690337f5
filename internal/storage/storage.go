package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"complaintdesk/backend/internal/apperrors"
	"complaintdesk/backend/internal/models"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the complaint store. It is the single writer of complaint rows;
// activity logs and updates are append-only.
type Storage interface {
	ListComplaints(ctx context.Context, scope Scope) ([]models.ComplaintDetail, error)
	GetComplaintByID(ctx context.Context, id uint) (*models.ComplaintDetail, error)
	HasActiveComplaint(ctx context.Context, authorID uint) (bool, error)
	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	ClaimComplaint(ctx context.Context, id, adminID uint) (*models.ComplaintDetail, error)
	ResolveComplaint(ctx context.Context, p ResolveParams) (*models.ComplaintDetail, error)

	AddComplaintUpdate(ctx context.Context, update *models.ComplaintUpdate) error
	ListComplaintUpdates(ctx context.Context, complaintID uint) ([]models.ComplaintUpdate, error)
	ListActivity(ctx context.Context, complaintID uint) ([]models.ActivityLog, error)

	BumpPriority(ctx context.Context, createdBefore time.Time) ([]uint, error)
	FlagEscalations(ctx context.Context, createdBefore time.Time) ([]uint, error)
	ComplaintCounts(ctx context.Context) ([]ComplaintCount, error)

	SaveUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	Ping(ctx context.Context) error
}

// Scope selects which complaints a caller may list.
type Scope struct {
	Role       models.Role
	Department models.Department
	UserID     uint
}

// ResolveParams describes a terminal transition.
type ResolveParams struct {
	ComplaintID uint
	ActorID     uint
	// RequireOwner limits the update to the admin holding the claim.
	RequireOwner bool
	Status       models.Status
	Remarks      string
}

// Service is the gorm-backed Storage.
type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{
		DB:  db,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// OpenPostgres connects gorm to Postgres through the lib/pq driver.
func OpenPostgres(dsn string, debugSQL bool) (*gorm.DB, error) {
	level := logger.Warn
	if debugSQL {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        dsn,
	}), &gorm.Config{
		Logger:         logger.New(log.Default(), logger.Config{LogLevel: level, SlowThreshold: time.Second}),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema, including the partial unique index
// that allows one non-terminal complaint per author.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.ActivityLog{},
		&models.ComplaintUpdate{},
	)
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// isUniqueViolation recognises duplicate-key errors from lib/pq and from
// gorm's translated errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// classify passes application errors through and wraps everything else as a
// transient store failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(apperrors.CodeComplaintNotFound, "complaint not found")
	}
	return apperrors.Transient(op, err)
}
