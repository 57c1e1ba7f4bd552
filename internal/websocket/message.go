package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewStatisticsMessage builds a statistics broadcast frame.
func NewStatisticsMessage(stats interface{}) []byte {
	return mustMarshal(Message{Action: "statistics", Payload: stats})
}

// NewIntegrityAlertMessage builds an alert frame for invariant violations.
func NewIntegrityAlertMessage(violations interface{}) []byte {
	return mustMarshal(Message{Action: "integrity_alert", Payload: violations})
}

// NewErrorMessage builds an error frame for a single client.
func NewErrorMessage(msg string) []byte {
	return mustMarshal(Message{Action: "error", Payload: msg})
}

func mustMarshal(m Message) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		// Only reachable with an unmarshalable payload, which would be a
		// programming error.
		return []byte(`{"action":"error","payload":"encoding failure"}`)
	}
	return data
}
