package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// ErrNoDecoder is returned for an event type/version nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns an envelope's data field into a typed event.
type Decoder func(data json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, payload version) to a decoder. Consumers
// populate it once at startup and only read it afterwards.
type DecoderRegistry struct {
	decoders map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]Decoder{}}
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode Decoder) {
	r.decoders[decoderKey{eventType, version}] = decode
}

// RegisterJSON registers a plain json.Unmarshal decoder for T.
func RegisterJSON[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	r.Register(eventType, version, func(data json.RawMessage) (any, error) {
		var event T
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	})
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	decode, ok := r.decoders[decoderKey{eventType, version}]
	if !ok {
		return nil, fmt.Errorf("%w for %s v%d", ErrNoDecoder, eventType, version)
	}
	return decode(data)
}

// DecodeAs decodes and asserts the result is a T.
func DecodeAs[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int, data json.RawMessage) (T, error) {
	var zero T
	decoded, err := r.Decode(eventType, version, data)
	if err != nil {
		return zero, err
	}
	event, ok := decoded.(T)
	if !ok {
		return zero, fmt.Errorf("decoder for %s v%d produced %T, want %T", eventType, version, decoded, zero)
	}
	return event, nil
}
