package complaint_test

import (
	"context"
	"sync"
	"time"

	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of storage.Storage.
type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) ListComplaints(ctx context.Context, scope storage.Scope) ([]models.ComplaintDetail, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ComplaintDetail), args.Error(1)
}

func (m *MockStorage) GetComplaintByID(ctx context.Context, id uint) (*models.ComplaintDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplaintDetail), args.Error(1)
}

func (m *MockStorage) HasActiveComplaint(ctx context.Context, authorID uint) (bool, error) {
	args := m.Called(ctx, authorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) ClaimComplaint(ctx context.Context, id, adminID uint) (*models.ComplaintDetail, error) {
	args := m.Called(ctx, id, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplaintDetail), args.Error(1)
}

func (m *MockStorage) ResolveComplaint(ctx context.Context, p storage.ResolveParams) (*models.ComplaintDetail, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplaintDetail), args.Error(1)
}

func (m *MockStorage) AddComplaintUpdate(ctx context.Context, u *models.ComplaintUpdate) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStorage) ListComplaintUpdates(ctx context.Context, complaintID uint) ([]models.ComplaintUpdate, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ComplaintUpdate), args.Error(1)
}

func (m *MockStorage) ListActivity(ctx context.Context, complaintID uint) ([]models.ActivityLog, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActivityLog), args.Error(1)
}

func (m *MockStorage) BumpPriority(ctx context.Context, createdBefore time.Time) ([]uint, error) {
	args := m.Called(ctx, createdBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockStorage) FlagEscalations(ctx context.Context, createdBefore time.Time) ([]uint, error) {
	args := m.Called(ctx, createdBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockStorage) ComplaintCounts(ctx context.Context) ([]storage.ComplaintCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ComplaintCount), args.Error(1)
}

func (m *MockStorage) SaveUser(ctx context.Context, u *models.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(ev models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Event(nil), p.events...)
}

type panickingPublisher struct{}

func (panickingPublisher) Publish(models.Event) { panic("transport down") }
