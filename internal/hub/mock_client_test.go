package hub_test

import (
	"sync"

	"complaintdesk/backend/internal/models"
)

// MockClient is a test double for hub.Client.
type MockClient struct {
	id       string
	identity *models.Identity
	send     chan models.Event

	mu     sync.Mutex
	closed bool
}

func newMockClient(id string, identity *models.Identity, buffer int) *MockClient {
	return &MockClient{id: id, identity: identity, send: make(chan models.Event, buffer)}
}

func (c *MockClient) GetClientID() string                 { return c.id }
func (c *MockClient) GetIdentity() *models.Identity       { return c.identity }
func (c *MockClient) GetSendChannel() chan<- models.Event { return c.send }
func (c *MockClient) Run()                                {}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// DrainMessages returns everything queued for the client.
func (c *MockClient) DrainMessages() []models.Event {
	var out []models.Event
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}
