package storage

import (
	"bytes"
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotVideo = errors.New("content is not an allowed video type")

var allowedVideoTypes = []string{
	"video/mp4",
	"video/x-m4v",
	"video/webm",
	"video/ogg",
	"video/quicktime",
	"video/x-msvideo",
	"video/x-matroska",
}

// SniffReader detects the content type from the head of r.
// The returned reader replays the consumed bytes followed by the rest of r.
func SniffReader(r io.Reader) (*mimetype.MIME, io.Reader, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	head = head[:n]
	return mimetype.Detect(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// SniffFile detects the content type of the file at path from its first bytes.
func SniffFile(path string) (*mimetype.MIME, error) {
	return mimetype.DetectFile(path)
}

// IsAllowedVideo walks the detected type and its parents against the allow-list.
func IsAllowedVideo(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		for _, allowed := range allowedVideoTypes {
			if m.Is(allowed) {
				return true
			}
		}
	}
	return false
}
