package ranger

import (
	"mime"
	"strings"
)

// extractBoundary parses a Content-Type header value and returns the MIME
// boundary token, per RFC 2046 section 5.1.1 (1-70 ASCII bytes). Unlike
// mime.ParseMediaType alone, this rejects a boundary outside that length
// range, matching the original implementation's http_extract_boundary_from_content_type.
func extractBoundary(contentType string) (string, error) {
	if contentType == "" {
		return "", errInvalidMultipart("missing content-type header")
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Fall back to a lenient manual scan: some servers emit a
		// Content-Type mime.ParseMediaType rejects outright (trailing
		// garbage, missing quoting) but which still has a recoverable
		// boundary= token.
		boundary, ok := scanBoundary(contentType)
		if !ok {
			return "", errInvalidMultipart("invalid content-type header")
		}
		return validateBoundary(boundary)
	}

	boundary, ok := params["boundary"]
	if !ok {
		return "", errInvalidMultipart("content-type has no boundary parameter")
	}
	return validateBoundary(boundary)
}

func validateBoundary(boundary string) (string, error) {
	if len(boundary) < 1 || len(boundary) > 70 {
		return "", errBadBoundary(boundary)
	}
	return boundary, nil
}

// scanBoundary locates "boundary=" in a raw header value and returns the
// token that follows, terminated by '"', ';' or end of string.
func scanBoundary(header string) (string, bool) {
	const key = "boundary="
	idx := strings.Index(header, key)
	if idx < 0 {
		return "", false
	}
	rest := header[idx+len(key):]
	if len(rest) > 0 && rest[0] == '"' {
		rest = rest[1:]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end], true
		}
		return rest, true
	}
	if end := strings.IndexByte(rest, ';'); end >= 0 {
		return rest[:end], true
	}
	return rest, true
}
