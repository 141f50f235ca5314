package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxChunk is the largest byte span served for one range request
const MaxChunk int64 = 50 * 1024 * 1024

// ErrRangeNotSatisfiable is returned for ranges outside the file
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// ByteRange is an inclusive span of a file of Size bytes
type ByteRange struct {
	Start int64
	End   int64
	Size  int64
}

// Length is the number of bytes in the span
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// Full reports whether the span covers the whole file
func (r ByteRange) Full() bool {
	return r.Start == 0 && r.End == r.Size-1
}

// ContentRange formats the Content-Range header value
func (r ByteRange) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Size)
}

// ParseRange reads a Range header for a file of size bytes. Spans longer
// than maxChunk are truncated rather than rejected. An empty or non-byte
// header yields the whole file without a cap. Only the first span of a multi-range
// header is honoured
func ParseRange(header string, size, maxChunk int64) (ByteRange, error) {
	full := ByteRange{Start: 0, End: size - 1, Size: size}

	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return full, nil
	}
	spec, _, _ = strings.Cut(spec, ",")
	first, last, _ := strings.Cut(strings.TrimSpace(spec), "-")
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	r := full
	if first == "" && last != "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return ByteRange{Size: size}, ErrRangeNotSatisfiable
		}
		r.Start = max(0, size-n)
	} else {
		if v, err := strconv.ParseInt(first, 10, 64); err == nil {
			r.Start = v
		}
		if v, err := strconv.ParseInt(last, 10, 64); err == nil {
			r.End = min(v, size-1)
		}
	}

	if r.Start < 0 || r.Start >= size || r.Start > r.End {
		return ByteRange{Size: size}, ErrRangeNotSatisfiable
	}
	return capped(r, maxChunk), nil
}

func capped(r ByteRange, maxChunk int64) ByteRange {
	if maxChunk > 0 && r.Length() > maxChunk {
		r.End = r.Start + maxChunk - 1
	}
	return r
}
