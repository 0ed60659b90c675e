// Package stream serves file bytes over HTTP with single-range support and
// bounded, cancellation-aware copying.
package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRange marks a Range header that is not well formed; callers ignore it.
	ErrInvalidRange = errors.New("invalid range header")
	// ErrUnsatisfiable marks a well-formed range that lies outside the content.
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// Range is an inclusive byte window.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Length() int64 { return r.End - r.Start + 1 }

// ContentRange formats the Content-Range value for a 206 response.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// UnsatisfiedRange formats the Content-Range value for a 416 response.
func UnsatisfiedRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// ParseRange interprets a Range header against content of the given size.
// An empty header yields (nil, nil). When several ranges are listed only the
// first is honoured. Supported forms are "a-b", "a-" and the suffix "-n";
// an end beyond the content is clamped to size-1.
func ParseRange(header string, size int64) (*Range, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	unit, set, ok := strings.Cut(header, "=")
	if !ok || !strings.EqualFold(strings.TrimSpace(unit), "bytes") {
		return nil, ErrInvalidRange
	}
	rangeSpec, _, _ := strings.Cut(set, ",")
	first, last, ok := strings.Cut(strings.TrimSpace(rangeSpec), "-")
	if !ok {
		return nil, ErrInvalidRange
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	if first == "" {
		n, err := parseOffset(last)
		if err != nil {
			return nil, err
		}
		if n == 0 || size == 0 {
			return nil, ErrUnsatisfiable
		}
		if n > size {
			n = size
		}
		return &Range{Start: size - n, End: size - 1}, nil
	}

	start, err := parseOffset(first)
	if err != nil {
		return nil, err
	}
	end := size - 1
	if last != "" {
		if end, err = parseOffset(last); err != nil {
			return nil, err
		}
		if end < start {
			return nil, ErrInvalidRange
		}
	}
	if start >= size {
		return nil, ErrUnsatisfiable
	}
	if end > size-1 {
		end = size - 1
	}
	return &Range{Start: start, End: end}, nil
}

// parseOffset accepts only plain decimal digits.
func parseOffset(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidRange
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrInvalidRange
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidRange
	}
	return n, nil
}
