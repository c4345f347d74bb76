package api

import "encoding/json"

// Codec marshals the wire types with encoding/json. The vocabulary is defined
// as plain Go structs, so both the worker handlers and the SDK client install
// this codec instead of the default protobuf one.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (Codec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, message)
}
