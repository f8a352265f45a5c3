package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorRef names the user whose action produced an event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope wraps every outbox payload. EventID equals the outbox row
// id, so consumers can dedupe on it across redeliveries.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

var ErrMalformedEnvelope = errors.New("malformed event envelope")

// OpenEnvelope decodes raw and rejects envelopes without an id, a version or
// a data object.
func OpenEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	switch data := bytes.TrimSpace(env.Data); {
	case env.EventID == "":
		return env, fmt.Errorf("%w: no eventId", ErrMalformedEnvelope)
	case env.Version <= 0:
		return env, fmt.Errorf("%w: version %d", ErrMalformedEnvelope, env.Version)
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return env, fmt.Errorf("%w: no data", ErrMalformedEnvelope)
	}
	return env, nil
}
