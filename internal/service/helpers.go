package service

import (
	"encoding/json"

	"factorymes/internal/model"
	ws "factorymes/internal/websocket"

	"github.com/google/uuid"
)

// auditEntry builds an audit row. actorID is parsed leniently: the reorder
// scheduler and other automated callers pass an empty or non-uuid actor and
// the row records a nil user.
func auditEntry(actorID, action, entityID, entityName string, details interface{}) *model.AuditLog {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		uid = &parsed
	}

	payload, _ := json.Marshal(details)
	return &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
}

// broadcast pushes an event to the websocket hub without blocking the caller;
// a slow or absent hub never stalls an engine operation.
func broadcast(hub *ws.Hub, event string, data map[string]interface{}) {
	if hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		return
	}
	select {
	case hub.Broadcast <- payload:
	default:
	}
}
