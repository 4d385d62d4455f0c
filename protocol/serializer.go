package protocol

import "encoding/json"

// Serializer defines the contract for serializing and deserializing command payloads.
// This allows scenario files to use a different format (JSON, Protobuf, etc.)
// while interacting with the auctioneer.
type Serializer interface {
	// Marshal serializes a Go struct (e.g. SubmitShoutCommand) into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a Go struct.
	// v must be a pointer to the target struct.
	Unmarshal(data []byte, v any) error
}

// DefaultJSONSerializer encodes payloads with encoding/json.
type DefaultJSONSerializer struct{}

func (s *DefaultJSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (s *DefaultJSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewCommand wraps payload into a command envelope. A nil payload produces
// a command without payload.
func NewCommand(s Serializer, marketID string, seqID uint64, typ CommandType, payload any) (*Command, error) {
	cmd := &Command{
		MarketID: marketID,
		SeqID:    seqID,
		Type:     typ,
	}
	if payload == nil {
		return cmd, nil
	}

	bytes, err := s.Marshal(payload)
	if err != nil {
		return nil, err
	}
	cmd.Payload = bytes
	return cmd, nil
}
