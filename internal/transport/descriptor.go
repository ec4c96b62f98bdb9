package transport

// AuthMode selects how a request authenticates against the upstream API.
type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthBasic  AuthMode = "basic"
	AuthBearer AuthMode = "bearer"
)

// FilePart is a single file attached to a multipart request.
type FilePart struct {
	FieldName string
	FileName  string
	Content   []byte
}

// MultipartPayload requests multipart/form-data encoding instead of JSON.
type MultipartPayload struct {
	Fields map[string]string
	Files  []FilePart
}

// Descriptor declares one outgoing upstream request. Descriptors are built
// fresh per trigger and never reused.
type Descriptor struct {
	Endpoint string
	Method   string
	AuthMode AuthMode
	// Body is nil, a *MultipartPayload, or any JSON-serializable value. For
	// GET and HEAD requests a non-nil body is flattened into the query string.
	Body interface{}
}
