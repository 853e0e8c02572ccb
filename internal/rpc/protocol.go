package rpc

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arc-language/omg/internal/model"
)

// Error codes, carried verbatim from the protocol the daemon and every
// client agree on.
const (
	CodeParseError     int32 = -32700
	CodeMethodNotFound int32 = -32601
	CodeInvalidParams  int32 = -32602
	CodeInternalError  int32 = -32603
	CodeNotFound       int32 = -1001
	CodeRateLimited    int32 = -1002
)

// Kind discriminates the Request/Response tagged union.
type Kind string

const (
	KindSearch        Kind = "search"
	KindInfo          Kind = "info"
	KindStatus        Kind = "status"
	KindExplicit      Kind = "explicit"
	KindExplicitCount Kind = "explicit_count"
	KindSecurityAudit Kind = "security_audit"
	KindPing          Kind = "ping"
	KindCacheStats    Kind = "cache_stats"
	KindCacheClear    Kind = "cache_clear"
	KindMetrics       Kind = "metrics"
	KindSuggest       Kind = "suggest"
	KindBatch         Kind = "batch"
	KindDebianSearch  Kind = "debian_search"
)

// Request is the single envelope type for every RPC call. Only the
// fields relevant to Kind are populated; this is the idiomatic way to
// encode a tagged union as a flat struct with a discriminant, in a codec
// (msgpack) with no native tagged-union support.
type Request struct {
	ID    uint64
	Kind  Kind
	Query string   // Search, DebianSearch, Suggest
	Name  string   // Info
	Limit int      // Search, DebianSearch, Suggest
	Batch []Request
}

// Response is the single envelope type for every RPC reply.
type Response struct {
	ID      uint64
	Ok      bool
	Error   *RPCError
	Result  Result
}

// RPCError carries a JSON-RPC-style error code and message.
type RPCError struct {
	Code    int32
	Message string
}

// Result is a loosely-typed payload: exactly one field is populated,
// matching whichever Request.Kind produced it. Unused fields are the
// Go-idiomatic tradeoff for msgpack's lack of tagged unions; each field
// is cheap (nil/zero) when unused.
type Result struct {
	Packages       []model.Package
	Info           *model.DetailedPackageInfo
	Status         *model.StatusResult
	Names          []string
	ExplicitCount  int
	Pong           bool
	CacheStats     *CacheStatsResult
	MetricsResult  *MetricsResult
	Batch          []Response
}

// CacheStatsResult is the CacheStats RPC payload.
type CacheStatsResult struct {
	Hits, Misses int64
}

// MetricsResult is the Metrics RPC payload.
type MetricsResult struct {
	RequestsTotal    uint64
	RequestsFailed   uint64
	ActiveConnections int64
	UptimeSeconds    int64
}

// Encode marshals v (a Request or Response) to msgpack bytes.
func Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// DecodeRequest unmarshals a msgpack-encoded Request.
func DecodeRequest(b []byte) (Request, error) {
	var req Request
	err := msgpack.Unmarshal(b, &req)
	return req, err
}

// DecodeResponse unmarshals a msgpack-encoded Response.
func DecodeResponse(b []byte) (Response, error) {
	var resp Response
	err := msgpack.Unmarshal(b, &resp)
	return resp, err
}

// NewError constructs an Error response for id with the given code and
// message.
func NewError(id uint64, code int32, message string) Response {
	return Response{ID: id, Ok: false, Error: &RPCError{Code: code, Message: message}}
}

// NewSuccess constructs a Success response for id wrapping result.
func NewSuccess(id uint64, result Result) Response {
	return Response{ID: id, Ok: true, Result: result}
}
