package feed

// Event is one push delivered to dashboard subscribers. Payload is a
// full snapshot or a suggestion set, never a diff.
type Event struct {
	Type    string      `json:"type"` // "snapshot" | "suggestions"
	Payload interface{} `json:"payload"`
}

const (
	EventSnapshot    = "snapshot"
	EventSuggestions = "suggestions"
)

// Subscriber is one attached dashboard connection, scoped to a tenant.
type Subscriber struct {
	BusinessID string
	Events     chan *Event
}

type broadcast struct {
	businessID string
	event      *Event
}

// Hub fans events out to per-tenant rooms. All room state is owned by
// the Run goroutine; everything else talks to it over channels.
type Hub struct {
	rooms        map[string]map[*Subscriber]struct{}
	registerCh   chan *Subscriber
	unregisterCh chan *Subscriber
	broadcastCh  chan broadcast
}

func NewHub() *Hub {
	return &Hub{
		rooms:        make(map[string]map[*Subscriber]struct{}),
		registerCh:   make(chan *Subscriber),
		unregisterCh: make(chan *Subscriber),
		broadcastCh:  make(chan broadcast),
	}
}

// Subscribe attaches a new subscriber to the tenant's room.
func (h *Hub) Subscribe(businessID string) *Subscriber {
	sub := &Subscriber{
		BusinessID: businessID,
		Events:     make(chan *Event, 16),
	}
	h.registerCh <- sub
	return sub
}

// Unsubscribe detaches a subscriber; its Events channel is closed by
// the hub.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.unregisterCh <- sub
}

// Broadcast delivers an event to every subscriber in the tenant's room.
func (h *Hub) Broadcast(businessID string, event *Event) {
	h.broadcastCh <- broadcast{businessID: businessID, event: event}
}

func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.registerCh:
			room, ok := h.rooms[sub.BusinessID]
			if !ok {
				room = make(map[*Subscriber]struct{})
				h.rooms[sub.BusinessID] = room
			}
			room[sub] = struct{}{}
			incConnections()
			setRooms(len(h.rooms))

		case sub := <-h.unregisterCh:
			room, ok := h.rooms[sub.BusinessID]
			if !ok {
				continue
			}
			if _, ok := room[sub]; ok {
				delete(room, sub)
				close(sub.Events)
				decConnections()
			}
			if len(room) == 0 {
				delete(h.rooms, sub.BusinessID)
				setRooms(len(h.rooms))
			}

		case msg := <-h.broadcastCh:
			room, ok := h.rooms[msg.businessID]
			if !ok {
				continue
			}
			delivered := 0
			for sub := range room {
				select {
				case sub.Events <- msg.event:
					delivered++
				default:
					// Slow subscriber: drop it rather than stall the room.
					close(sub.Events)
					delete(room, sub)
					decConnections()
				}
			}
			if delivered > 0 {
				addDelivered(delivered)
			}
		}
	}
}
