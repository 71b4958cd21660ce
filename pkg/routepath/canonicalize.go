package routepath

import (
	"errors"
	"strings"
)

// Request path errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
)

// Clean sanitizes a raw request or navigation path before it reaches the
// matcher. The query string, if any, is dropped. Multiple slashes collapse,
// "." segments disappear and ".." segments resolve, then Normalize applies.
//
// Clean rejects:
//   - full URLs and protocol-relative paths (http://, https://, //host)
//   - paths not starting with "/"
//   - backslashes and NUL bytes, literal or encoded
//   - malformed percent-escapes
//   - ".." that would climb above the root
func Clean(raw string) (string, error) {
	if strings.HasPrefix(raw, "http://") ||
		strings.HasPrefix(raw, "https://") ||
		strings.HasPrefix(raw, "//") {
		return "", ErrInvalidPath
	}
	if !strings.HasPrefix(raw, "/") {
		return "", ErrInvalidPath
	}

	path, _, _ := strings.Cut(raw, "?")
	path, _, _ = strings.Cut(path, "#")

	if strings.Contains(path, "\\") {
		return "", ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return "", err
		}
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return "", ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	return Normalize("/" + strings.Join(segments, "/")), nil
}

// validatePercentEscapes checks that every '%' starts a %XX hex escape.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
