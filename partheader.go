package ranger

import (
	"bytes"
	"strconv"
)

// maxPartHeaderLines guards against a server emitting an unbounded header
// stream for a single part.
const maxPartHeaderLines = 100

const partLineBufferSize = 4096

// partHeaderState is the explicit state variable spec.md's design notes
// call for, replacing the original's recursive descent with a loop.
type partHeaderState int

const (
	stateInit partHeaderState = iota
	stateWantRange
	stateWantBlank
	stateDone
)

// parsePartHeader reads header lines of one multipart part via req.ReadLine
// until either a fully-populated chunkInfo is produced (state stateDone) or
// the closing boundary (--boundary--) is recognized, in which case it
// returns a chunkInfo with bounded=true, offset=0, size=0 signalling
// end-of-body.
func parsePartHeader(req HTTPRequest, boundary string) (chunkInfo, error) {
	var info chunkInfo
	state := stateInit
	buf := make([]byte, partLineBufferSize)

	for lines := 0; ; lines++ {
		if lines >= maxPartHeaderLines {
			return chunkInfo{}, errPartTooLong()
		}

		n, err := req.ReadLine(buf)
		if err != nil || n < 0 {
			return chunkInfo{}, errTransport(err)
		}
		line := bytes.TrimRight(buf[:n], "\r\n")

		switch state {
		case stateInit:
			if len(line) == 0 {
				continue // tolerate leading blank lines
			}
			open, closing := matchBoundaryLine(line, boundary)
			if closing {
				info.bounded = true
				return info, nil
			}
			if !open {
				return chunkInfo{}, errInvalidMultipart("invalid boundary delimitation")
			}
			info.bounded = true
			state = stateWantRange

		case stateWantRange:
			if isContentRangeHeader(line) {
				offset, size, err := parseContentRange(line)
				if err != nil {
					return chunkInfo{}, err
				}
				info.offset = offset
				info.size = size
				state = stateWantBlank
			}
			// any other header line (case-insensitive name != Content-Range)
			// is ignored; stay in stateWantRange.

		case stateWantBlank:
			if len(line) != 0 {
				return chunkInfo{}, errInvalidMultipart("malformed part header: expected blank line")
			}
			state = stateDone
			return info, nil
		}
	}
}

// matchBoundaryLine reports whether line opens the boundary ("--boundary")
// or closes the stream ("--boundary--").
func matchBoundaryLine(line []byte, boundary string) (open, closing bool) {
	if len(line) < 2 || line[0] != '-' || line[1] != '-' {
		return false, false
	}
	rest := line[2:]
	b := []byte(boundary)
	if bytes.Equal(rest, b) {
		return true, false
	}
	if bytes.Equal(rest, append(append([]byte{}, b...), '-', '-')) {
		return true, true
	}
	return false, false
}

func isContentRangeHeader(line []byte) bool {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return false
	}
	return bytes.EqualFold(bytes.TrimSpace(line[:idx]), []byte("Content-Range"))
}

// parseContentRange parses a "Content-Range: bytes X-Y[/Z]" line into
// (offset, size). It splits on any of the delimiter bytes " bytes-/\t",
// takes the first two numeric tokens, and rejects overflow, a second token
// smaller than the first, or trailing non-digit bytes within a token.
func parseContentRange(line []byte) (offset, size uint64, err error) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return 0, 0, errInvalidMultipart("malformed Content-Range header")
	}
	value := string(bytes.TrimSpace(line[idx+1:]))

	tokens := tokenize(value, " bytes-/\t")
	if len(tokens) < 2 {
		return 0, 0, errInvalidMultipart("malformed Content-Range header")
	}

	var nums [2]uint64
	for i := 0; i < 2; i++ {
		n, convErr := strconv.ParseUint(tokens[i], 10, 64)
		if convErr != nil {
			return 0, 0, errInvalidMultipart("malformed Content-Range header")
		}
		nums[i] = n
	}
	if nums[1] < nums[0] {
		return 0, 0, errInvalidMultipart("malformed Content-Range header: end before begin")
	}
	return nums[0], nums[1] - nums[0] + 1, nil
}

// tokenize splits s on any byte in delims, discarding empty tokens, mirroring
// the original's tokenSplit(value, " bytes-/\t") behavior.
func tokenize(s string, delims string) []string {
	isDelim := func(r rune) bool {
		for i := 0; i < len(delims); i++ {
			if byte(r) == delims[i] {
				return true
			}
		}
		return false
	}

	var tokens []string
	start := -1
	for i, r := range s {
		if isDelim(r) {
			if start >= 0 {
				tokens = append(tokens, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, s[start:])
	}
	return tokens
}
