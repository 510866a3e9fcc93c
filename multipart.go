package ranger

import (
	"errors"

	"github.com/dwhowett/httpiovec/internal/tracelog"
)

// errFallbackToSingleRange signals that the multipart attempt failed at
// its very first part (including failing to even locate a boundary), which
// per spec.md section 4.4 is not a user-visible error: the orchestrator
// recovers by falling back to N single-range pread calls.
var errFallbackToSingleRange = errors.New("ranger: multirange not supported by server")

// routeMultipartBody drives PartHeaderParser across inputs in order,
// copying each part's body into the matching RangeRequest's buffer. It
// implements MultipartBodyRouter (spec.md section 4.4). log traces each part
// as it is parsed and copied, mirroring the DAVIX_SLOG call sites in the
// original's parseMultipartRequest/copyChunk; a nil log is treated as a nop
// logger.
func routeMultipartBody(log *tracelog.Logger, req HTTPRequest, inputs []RangeRequest) ([]RangeResult, int64, error) {
	if log == nil {
		log = tracelog.NewNop()
	}
	results := make([]RangeResult, len(inputs))
	for i := range inputs {
		results[i].Buffer = inputs[i].Buffer
	}

	contentType, _ := req.AnswerHeader("Content-Type")
	boundary, err := extractBoundary(contentType)
	if err != nil {
		return nil, 0, errFallbackToSingleRange
	}

	var total int64
	for i := range inputs {
		info, perr := parsePartHeader(req, boundary)
		if perr != nil {
			if i == 0 {
				return nil, 0, errFallbackToSingleRange
			}
			return nil, 0, perr
		}

		if info.offset == 0 && info.size == 0 {
			// parsePartHeader only ever returns a zero offset/size part
			// when it hit the closing boundary (a real Content-Range
			// always yields size >= 1): end of body reached before all
			// ranges were served. Not an error, just fewer parts than
			// requested.
			return results, total, nil
		}

		want := inputs[i]
		if want.Size != 0 && (info.offset != want.Offset || info.size != want.Size) {
			return nil, 0, errRangeMismatch(want.Offset, want.Size, info.offset, info.size)
		}

		n, cerr := copyChunk(req, want, &results[i])
		if cerr != nil {
			return nil, 0, cerr
		}
		log.Trace("part parsed", "offset", info.offset, "size", info.size)
		total += n
	}

	drainTrailer(req)
	return results, total, nil
}

// copyChunk reads one part's body. A zero-size range drains exactly one
// sentinel byte, since some servers refuse to emit an empty part body and
// emit a single byte instead.
func copyChunk(req HTTPRequest, input RangeRequest, out *RangeResult) (int64, error) {
	if input.Size == 0 {
		trash := make([]byte, 1)
		if _, err := req.ReadSegment(trash); err != nil {
			return 0, errTransport(err)
		}
		out.Size = 0
		return 0, nil
	}

	n, err := req.ReadSegment(input.Buffer[:input.Size])
	if err != nil {
		return 0, errTransport(err)
	}
	out.Size = uint64(n)
	return int64(n), nil
}

// drainTrailer reads and discards any remaining response bytes so the
// underlying connection can be reused.
func drainTrailer(req HTTPRequest) {
	buf := make([]byte, 255)
	for {
		n, err := req.ReadBlock(buf)
		if err != nil || n <= 0 {
			return
		}
	}
}
