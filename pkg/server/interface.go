/*
Package server implements msgpack IPC for tag search services.

The server package provides a minimal interface for prefix search over the
tag taxonomy using msgpack serialization over stdin/stdout.

The protocol uses binary msgpack encoding and supports search requests and
config updates. Messages are processed synchronously with timing info
included in responses.

# IPC

The server operates on a request response model where clients send structured
messages via stdin and receive responses through stdout.
Each message contains an ID field and other fields based on the operation type.

Search requests use mainly this structure:

	{"id": "req_001", "q": "kit", "l": 10}

The server responds with tags ranked by post count:

	{"id": "req_001", "tags": [{"n": "cats", "c": 500, "t": 0, "v": "alias", "a": "kittens"}], "count": 1, "took": 2}

The "v" field tells how the tag was reached ("direct" or "alias"); for alias
hits "a" carries the alternate name that matched the query.

Config management enables runtime adjustment of query knobs without restart:

	{"id": "cfg_001", "action": "get_config"}
	{"id": "cfg_002", "action": "update_config", "settings": {"final": 15}}

Response structures include status information and error details when an op fail.

The raw query goes through the same validation and normalization as the HTTP
surface: byte-length bounds on the raw input, then Unicode NFC, lowercasing,
wildcard and whitespace stripping. The response cache is not consulted here;
editor clients keep their own.

msgpack encoding has ~30 to 50% smaller message sizes compared to JSON.
binary format enables faster parsing and generation, less errors and reducing
latency by ~40 to 70% in most cases.
*/
package server

// Error codes carried by ErrorResponse frames. Stable and matchable by
// clients.
const (
	CodeInvalidQuery     = "invalid_query"
	CodeBadRequest       = "bad_request"
	CodeStoreUnavailable = "store_unavailable"
	CodeInternal         = "internal"
)

// SearchRequest - minimal search request
type SearchRequest struct {
	ID    string `msgpack:"id"`
	Query string `msgpack:"q"`
	Limit int    `msgpack:"l,omitempty"`
}

// SearchTag - one ranked row in a search response
type SearchTag struct {
	Name       string `msgpack:"n"`
	PostCount  int32  `msgpack:"c"`
	Category   int16  `msgpack:"t"`
	Via        string `msgpack:"v"`
	Antecedent string `msgpack:"a,omitempty"`
}

// SearchResponse - search response
type SearchResponse struct {
	ID        string      `msgpack:"id"`
	Tags      []SearchTag `msgpack:"tags"`
	Count     int         `msgpack:"count"`
	TimeTaken int64       `msgpack:"took"`
}

// CONFIG MESSAGES - query knob updates (everything else via TOML)

// ConfigRequest - config management request. Settings applies with
// "update_config"; nil fields stay untouched.
type ConfigRequest struct {
	ID       string          `msgpack:"id"`
	Action   string          `msgpack:"action"` // "get_config", "update_config"
	Settings *ConfigSettings `msgpack:"settings,omitempty"`
}

// ConfigSettings carries the adjustable query knobs
type ConfigSettings struct {
	Direct   *int `msgpack:"direct,omitempty"`
	Alias    *int `msgpack:"alias,omitempty"`
	Final    *int `msgpack:"final,omitempty"`
	MinQuery *int `msgpack:"min_query,omitempty"`
	MaxQuery *int `msgpack:"max_query,omitempty"`
}

// ConfigResponse - config operation response echoing the active values
type ConfigResponse struct {
	ID       string `msgpack:"id"`
	Status   string `msgpack:"status"`
	Direct   int    `msgpack:"direct"`
	Alias    int    `msgpack:"alias"`
	Final    int    `msgpack:"final"`
	MinQuery int    `msgpack:"min_query"`
	MaxQuery int    `msgpack:"max_query"`
}

// ErrorResponse holds basic error information for failed requests
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  string `msgpack:"c"`
}
