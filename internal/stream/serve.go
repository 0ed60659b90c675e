package stream

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
)

type Disposition string

const (
	Attachment Disposition = "attachment"
	Inline     Disposition = "inline"
)

// Meta describes the content being served.
type Meta struct {
	Filename    string
	ContentType string
	Disposition Disposition
}

// stagedHeaders are dropped before writing so nothing set earlier in the chain
// contradicts the body actually sent.
var stagedHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Content-Disposition",
	"Content-Encoding",
	"ETag",
	"Last-Modified",
}

// Serve writes content to w, honouring a single Range from r. HEAD requests get
// headers only. It returns the number of body bytes written.
func Serve(w http.ResponseWriter, r *http.Request, content io.ReadSeeker, size int64, meta Meta) (int64, error) {
	h := w.Header()
	for _, k := range stagedHeaders {
		h.Del(k)
	}
	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", "private, max-age=0, must-revalidate")
	if meta.Disposition != "" {
		disp := mime.FormatMediaType(string(meta.Disposition), map[string]string{"filename": meta.Filename})
		if disp == "" {
			disp = string(meta.Disposition)
		}
		h.Set("Content-Disposition", disp)
	}

	rng, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		h.Set("Content-Range", UnsatisfiedRange(size))
		h.Del("Content-Type")
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return 0, nil
	case err != nil:
		rng = nil
	}

	status := http.StatusOK
	start, length := int64(0), size
	if rng != nil {
		status = http.StatusPartialContent
		start, length = rng.Start, rng.Length()
		h.Set("Content-Range", rng.ContentRange(size))
	}
	h.Set("Content-Length", strconv.FormatInt(length, 10))

	if start > 0 {
		if _, err := content.Seek(start, io.SeekStart); err != nil {
			return 0, fmt.Errorf("seek to %d: %w", start, err)
		}
	}
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return 0, nil
	}
	return Copy(r.Context(), w, content, length)
}
