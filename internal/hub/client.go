package hub

import "complaintdesk/backend/internal/models"

// Client is the interface for any observer connection. It abstracts the
// underlying transport so the hub manages every client uniformly.
type Client interface {
	// GetClientID returns the unique identifier of this connection.
	GetClientID() string
	// GetIdentity returns the authenticated caller, or nil for anonymous
	// observers.
	GetIdentity() *models.Identity

	// GetSendChannel returns the channel the hub delivers events on. The hub
	// never blocks on it.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the connection down. It must be safe to call more than once.
	Close()
}

// Subscription asks the hub to add or remove a client from a topic.
type Subscription struct {
	Client      Client
	Topic       string
	Unsubscribe bool
}
