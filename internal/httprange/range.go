// Package httprange parses single-range Range headers for seekable playback.
// Multi-range requests are not supported; only the first range is honored.
package httprange

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnsatisfiable marks a syntactically present but unservable range; the
// handler answers 416 with the total size.
var ErrUnsatisfiable = errors.New("range not satisfiable")

type Range struct {
	Start int64
	End   int64
}

func (r Range) Length() int64 { return r.End - r.Start + 1 }

// Parse interprets a Range header value against an object of size bytes.
// An empty header returns ok=false: the caller should serve the full body.
// Anything not satisfying 0 <= start <= end < size fails with
// ErrUnsatisfiable.
func Parse(header string, size int64) (Range, bool, error) {
	if header == "" {
		return Range{}, false, nil
	}

	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return Range{}, false, ErrUnsatisfiable
	}

	// First range only.
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	spec = strings.TrimSpace(spec)

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return Range{}, false, ErrUnsatisfiable
	}

	if startStr == "" {
		// Suffix ranges (bytes=-N) are outside the supported grammar.
		return Range{}, false, ErrUnsatisfiable
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return Range{}, false, ErrUnsatisfiable
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return Range{}, false, ErrUnsatisfiable
		}
	}

	if start > end || end >= size {
		return Range{}, false, ErrUnsatisfiable
	}

	return Range{Start: start, End: end}, true, nil
}
