package realtime

import (
	"encoding/json"
	"log"

	"fieldops/internal/task"
)

// Dispatcher pushes task changes to registered connections. It satisfies
// the lifecycle service's Publisher contract.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// taskEvent is the wire shape of a broadcast: the full task plus the
// version counter, so clients can reconcile without a round trip.
type taskEvent struct {
	Type    string     `json:"type"`
	Task    *task.Task `json:"task"`
	Version int64      `json:"version"`
}

// messageEvent is the wire shape of a targeted notification.
type messageEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// BroadcastTask sends the full task state and version counter to every
// live connection. Handles that fail are evicted.
func (d *Dispatcher) BroadcastTask(t *task.Task, version int64) {
	payload, err := json.Marshal(taskEvent{Type: "task_update", Task: t, Version: version})
	if err != nil {
		log.Printf("WARNING: realtime: marshal broadcast for task %d: %v", t.ID, err)
		return
	}
	for uid, conns := range d.registry.All() {
		for _, c := range conns {
			d.deliver(uid, c, payload)
		}
	}
}

// Notify sends a human-readable message to the given identities only.
// Recipients without live connections are skipped silently.
func (d *Dispatcher) Notify(recipients []int64, message string) {
	payload, err := json.Marshal(messageEvent{Type: "notification", Message: message})
	if err != nil {
		log.Printf("WARNING: realtime: marshal notification: %v", err)
		return
	}
	for _, uid := range recipients {
		for _, c := range d.registry.Connections(uid) {
			d.deliver(uid, c, payload)
		}
	}
}

func (d *Dispatcher) deliver(userID int64, c Conn, payload []byte) {
	if err := c.Send(payload); err != nil {
		d.registry.Remove(userID, c.ID())
		c.Close() //nolint:errcheck
	}
}
