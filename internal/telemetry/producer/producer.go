// Package producer publishes auth events to Kafka for the log forwarding worker.
package producer

import (
	"encoding/json"
	"time"

	"piiwatch/internal/telemetry/domain"
)

// Message is the JSON value written to the audit topic.
type Message struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId,omitempty"`
	Resource  string          `json:"resource,omitempty"`
	ClientIP  string          `json:"clientIp,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Encode renders event as a Message. Metadata that is not valid JSON is carried as a JSON string.
func Encode(event *domain.Event) ([]byte, error) {
	msg := Message{
		Type:      event.Type,
		UserID:    event.UserID,
		Resource:  event.Resource,
		ClientIP:  event.ClientIP,
		CreatedAt: event.CreatedAt.UTC(),
	}
	if len(event.Metadata) > 0 {
		if json.Valid(event.Metadata) {
			msg.Metadata = event.Metadata
		} else {
			quoted, err := json.Marshal(string(event.Metadata))
			if err != nil {
				return nil, err
			}
			msg.Metadata = quoted
		}
	}
	return json.Marshal(msg)
}
