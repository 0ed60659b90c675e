package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// ChunkSize is the size of the buffer bytes pass through on their way to the client.
const ChunkSize = 32 << 10

// Copy moves at most n bytes from src to dst one chunk at a time and stops as soon
// as ctx is done. It returns the number of bytes written.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, n int64) (int64, error) {
	buf := make([]byte, ChunkSize)
	flusher, _ := dst.(http.Flusher)

	var written int64
	for written < n {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		want := int64(len(buf))
		if remaining := n - written; remaining < want {
			want = remaining
		}
		nr, rerr := src.Read(buf[:want])
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				if written < n {
					return written, io.ErrUnexpectedEOF
				}
				return written, nil
			}
			return written, rerr
		}
	}
	return written, nil
}
