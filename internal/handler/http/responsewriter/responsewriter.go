// Package responsewriter records the status code and body size of a
// response so the admin surface's request log can report what each
// breaker-control or health call actually returned.
package responsewriter

import "net/http"

// Recorder wraps an http.ResponseWriter and captures the final status
// code and the number of body bytes written.
type Recorder struct {
	http.ResponseWriter
	status int
	bytes  int
	wrote  bool
}

// Wrap returns a Recorder around w. The status defaults to 200 for
// handlers that never call WriteHeader.
func Wrap(w http.ResponseWriter) *Recorder {
	return &Recorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the first status code written; later calls are
// ignored, matching net/http's superfluous-WriteHeader behavior.
func (r *Recorder) WriteHeader(status int) {
	if r.wrote {
		return
	}
	r.status = status
	r.wrote = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *Recorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// StatusCode returns the recorded status code.
func (r *Recorder) StatusCode() int {
	return r.status
}

// BytesWritten returns the recorded body size.
func (r *Recorder) BytesWritten() int {
	return r.bytes
}

// Unwrap exposes the underlying writer for http.ResponseController.
func (r *Recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
