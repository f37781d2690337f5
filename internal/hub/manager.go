// Package hub fans complaint events out to connected observers by topic.
package hub

import (
	"context"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"

	"go.uber.org/zap"
)

// ManagerService owns the client and topic tables. Only the Run goroutine
// touches them; everything else talks to it over channels.
type ManagerService struct {
	Clients map[string]Client
	topics  map[string]map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	SubscribeCh  chan Subscription
	EventCh      chan models.Event

	Relay  *RedisRelay
	Policy TopicAuthorizer

	logger *zap.Logger
	done   chan struct{}
}

// NewManagerService creates a hub. relay may be nil for single-instance
// deployments.
func NewManagerService(relay *RedisRelay, policy TopicAuthorizer, logger *zap.Logger) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		topics:       make(map[string]map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		SubscribeCh:  make(chan Subscription),
		EventCh:      make(chan models.Event, config.EventBufferSize),
		Relay:        relay,
		Policy:       policy,
		logger:       logging.OrNop(logger),
		done:         make(chan struct{}),
	}
}

// Publish hands an event to the hub without blocking. When the buffer is full
// the event is dropped: delivery is at most once.
func (m *ManagerService) Publish(ev models.Event) {
	if m.Relay != nil {
		m.Relay.Enqueue(ev)
		return
	}
	m.deliverLocal(ev)
}

func (m *ManagerService) deliverLocal(ev models.Event) {
	select {
	case m.EventCh <- ev:
	default:
		m.logger.Warn("event buffer full, dropping event",
			zap.String("type", string(ev.Type)), zap.Strings("topics", ev.Topics))
	}
}

// OnEscalation announces escalation passes to oversight observers.
func (m *ManagerService) OnEscalation(_ context.Context, rule string, ids []uint) {
	m.Publish(models.Event{
		Type:    models.EventComplaintEscalated,
		Topics:  []string{models.DepartmentTopic(models.DepartmentAll)},
		Payload: models.EscalationPayload{Rule: rule, ComplaintIDs: ids},
	})
}

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} {
	return m.done
}

// Run processes registrations, subscriptions and events until ctx ends.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)
	if m.Relay != nil {
		go m.Relay.Run(ctx, m.deliverLocal)
	}

	for {
		select {
		case <-ctx.Done():
			for id, c := range m.Clients {
				c.Close()
				delete(m.Clients, id)
			}
			return

		case c := <-m.RegisterCh:
			m.Clients[c.GetClientID()] = c
			m.subscribe(c, models.TopicBroadcast)
			m.logger.Debug("observer connected", zap.String("client_id", c.GetClientID()))

		case c := <-m.UnregisterCh:
			m.drop(c)

		case sub := <-m.SubscribeCh:
			if _, ok := m.Clients[sub.Client.GetClientID()]; !ok {
				continue
			}
			if sub.Unsubscribe {
				m.unsubscribe(sub.Client, sub.Topic)
			} else {
				m.subscribe(sub.Client, sub.Topic)
			}

		case ev := <-m.EventCh:
			m.deliver(ev)
		}
	}
}

func (m *ManagerService) subscribe(c Client, topic string) {
	members, ok := m.topics[topic]
	if !ok {
		members = make(map[string]Client)
		m.topics[topic] = members
	}
	members[c.GetClientID()] = c
}

func (m *ManagerService) unsubscribe(c Client, topic string) {
	members, ok := m.topics[topic]
	if !ok {
		return
	}
	delete(members, c.GetClientID())
	if len(members) == 0 {
		delete(m.topics, topic)
	}
}

func (m *ManagerService) drop(c Client) {
	id := c.GetClientID()
	if _, ok := m.Clients[id]; !ok {
		return
	}
	for topic := range m.topics {
		m.unsubscribe(c, topic)
	}
	delete(m.Clients, id)
	c.Close()
	m.logger.Debug("observer disconnected", zap.String("client_id", id))
}

// deliver sends ev once to every client subscribed to any of its topics.
// Slow clients whose buffers are full are disconnected.
func (m *ManagerService) deliver(ev models.Event) {
	seen := make(map[string]struct{})
	var slow []Client
	for _, topic := range ev.Topics {
		for id, c := range m.topics[topic] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			select {
			case c.GetSendChannel() <- ev:
			default:
				slow = append(slow, c)
			}
		}
	}
	for _, c := range slow {
		m.logger.Warn("observer too slow, disconnecting", zap.String("client_id", c.GetClientID()))
		m.drop(c)
	}
}
