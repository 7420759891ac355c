package json

import jsoniter "github.com/json-iterator/go"

// RawMessage defers decoding of a nested payload to the component that
// knows its shape.
type RawMessage = jsoniter.RawMessage

// All wire encoding (client frames, pub/sub envelopes, cache entries) goes
// through this instance so the whole gateway shares one configuration.
var (
	JSON = jsoniter.ConfigCompatibleWithStandardLibrary

	Marshal   = JSON.Marshal
	Unmarshal = JSON.Unmarshal

	NewDecoder = JSON.NewDecoder
	NewEncoder = JSON.NewEncoder
)
