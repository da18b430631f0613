package service

import "context"

// Event is a real-time push event delivered to connected clients. Concrete
// event types live next to the module that emits them; the gateway only
// needs the wire name and a JSON-marshalable body.
type Event interface {
	// EventName returns the wire-level event name, e.g. "phase_update".
	EventName() string
}

// GatewayService defines the broadcast boundary the game modules push through.
type GatewayService interface {
	// Broadcast sends an event to every connected player of the given game.
	Broadcast(ctx context.Context, gameCode string, event Event)
	// SendToUser sends an event to a single user.
	SendToUser(ctx context.Context, userID int64, gameCode string, event Event)
}
