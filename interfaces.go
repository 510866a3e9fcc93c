package ranger

import "context"

// HTTPRequest is the capability set the core needs from an HTTP request in
// flight. A concrete implementation over net/http lives in the httpio
// package; the core never dials a connection itself (spec explicitly
// excludes TCP/TLS setup, redirects and auth from this layer).
type HTTPRequest interface {
	// AddHeaderField queues a header to be sent with BeginRequest.
	AddHeaderField(name, value string)
	// SetParameters applies request-level options (timeouts, retries, ...)
	// owned by the collaborator, opaque to the core.
	SetParameters(params RequestParameters)

	// BeginRequest sends the request and blocks until the status line and
	// headers are available.
	BeginRequest(ctx context.Context) error
	// StatusCode returns the HTTP status code of the response.
	StatusCode() int
	// AnswerSize returns Content-Length, or -1 if unknown.
	AnswerSize() int64
	// AnswerHeader returns a response header value and whether it was
	// present.
	AnswerHeader(name string) (string, bool)

	// ReadLine reads into buf up to and including the next '\n', trimming
	// nothing; returns the number of bytes read, or a non-nil error (io.EOF
	// at the end of the body) when no bytes could be read.
	ReadLine(buf []byte) (int, error)
	// ReadSegment reads exactly len(buf) bytes or fails.
	ReadSegment(buf []byte) (int, error)
	// ReadBlock reads up to len(buf) bytes, returning 0 at EOF.
	ReadBlock(buf []byte) (int, error)

	// EndRequest drains and releases the request. Always safe to call more
	// than once.
	EndRequest() error
}

// Initializer is optionally implemented by an IOChainContext that needs a
// one-time setup step (typically a HEAD request) before it can serve reads,
// and that can report the resource's total length as a result.
type Initializer interface {
	Initialize(ctx context.Context) (length int64, err error)
}

// RequestParameters is an opaque bag of transport-level options the core
// passes through to HTTPRequest.SetParameters without interpreting.
type RequestParameters struct {
	Extra map[string]string
}

// IOChainContext exposes the resource identity and the single-range
// fallback primitive the core uses for simulated multirange and for N==1
// vector calls.
type IOChainContext interface {
	// URIFragmentParam returns the value of a URI fragment parameter (for
	// example "multirange=false"), and whether it was present.
	URIFragmentParam(key string) (string, bool)
	// RequestParameters returns the parameters to attach to any request
	// this context issues.
	RequestParameters() RequestParameters
	// Pread performs one single-range read of size bytes at offset into
	// buf, returning the number of bytes actually read.
	Pread(ctx context.Context, buf []byte, size uint64, offset uint64) (int64, error)

	// NewRequest opens a fresh HTTPRequest against this context's
	// resource, ready to have headers added and BeginRequest called.
	NewRequest(ctx context.Context) (HTTPRequest, error)
}
