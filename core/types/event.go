package types

// Event is the wire-level payload broadcast for every campaign and token state
// change. Attribute values are string encoded (hex for addresses and
// identifiers, decimal for amounts) so payloads serialize cleanly to JSON
// consumers and log sinks.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
