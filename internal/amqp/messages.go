package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the transaction events queue.
const (
	KindSync   = "sync"
	KindDelete = "delete"
)

// TransactionEvent is a lightweight pointer to a transaction row. The worker
// fetches the current state from the database, so the payload never goes
// stale in the queue.
type TransactionEvent struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncEvent(id, version int64) *TransactionEvent {
	return &TransactionEvent{Kind: KindSync, ID: id, Version: version, Timestamp: time.Now()}
}

func NewDeleteEvent(id int64) *TransactionEvent {
	return &TransactionEvent{Kind: KindDelete, ID: id, Timestamp: time.Now()}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
