package matchdto

// ErrorBody is the JSON error envelope returned by the HTTP surface.
// Kind is a stable machine-readable token; Message is human text. Internal
// details never appear here.
type ErrorBody struct {
	Error ErrorInfo `json:"error"`
}

type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Error kinds.
const (
	KindBadInput        = "bad_input"
	KindUnauthenticated = "unauthenticated"
	KindForbidden       = "forbidden"
	KindNotFound        = "not_found"
	KindPrecondition    = "precondition_failed"
	KindValidation      = "validation_failed"
	KindInternal        = "internal"
)
