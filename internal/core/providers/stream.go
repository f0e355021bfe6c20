package providers

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"llmbridge/internal/core/registry"
)

// Stream incrementally decodes a line-oriented event stream into text
// fragments. It is a finite, non-restartable pull sequence: Recv returns
// the next fragment, and io.EOF once the done sentinel (or the source
// end) is reached. Concatenating all fragments in order yields the
// equivalent of a non-streaming answer.
//
// A Stream exclusively owns its response body; it is closed on every exit
// path, including early termination by the caller via Close.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	rule    registry.ResponseRule

	done      bool
	clean     bool
	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps a response body with the streaming rule of an endpoint.
func NewStream(body io.ReadCloser, rule registry.ResponseRule) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{body: body, scanner: sc, rule: rule}
}

// Recv returns the next text fragment, or io.EOF when the stream ends.
// Lines without the configured prefix, payloads that are not JSON, and
// events missing the content path are skipped; heterogeneous backends
// interleave metadata-only events and keep-alives.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			continue
		}

		payload := line
		if prefix := s.rule.StreamLinePrefix; prefix != "" {
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			payload = strings.TrimPrefix(line, prefix)
		}
		payload = strings.TrimSpace(payload)

		if s.rule.StreamDoneValue != "" && payload == s.rule.StreamDoneValue {
			s.finish(true)
			return "", io.EOF
		}

		if !gjson.Valid(payload) {
			continue
		}

		var fragment string
		if s.rule.StreamContentPath != "" {
			if res := gjson.Get(payload, s.rule.StreamContentPath); res.Exists() && res.Type != gjson.Null {
				fragment = res.String()
			}
		}

		if s.rule.StreamDonePath != "" {
			if done := gjson.Get(payload, s.rule.StreamDonePath); done.Exists() && done.Bool() {
				s.finish(true)
				if fragment != "" {
					return fragment, nil
				}
				return "", io.EOF
			}
		}

		if fragment != "" {
			return fragment, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.finish(false)
		return "", err
	}
	// Backend closed the connection without the sentinel. Possibly
	// truncated, still a successful completion for the caller.
	s.finish(false)
	return "", io.EOF
}

// Clean reports whether the stream ended with its done sentinel. A false
// value after EOF means the backend closed early and the accumulated text
// may be truncated.
func (s *Stream) Clean() bool { return s.clean }

// Close releases the underlying transport. Safe to call at any point and
// more than once; callers stopping early must call it.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// Collect drains the stream and returns the concatenated text. The
// transport is released before returning. A non-nil error reports a
// transport failure mid-stream; a truncated-but-readable stream is not an
// error and is visible through Clean.
func (s *Stream) Collect() (string, error) {
	defer s.Close()

	var b strings.Builder
	for {
		fragment, err := s.Recv()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(fragment)
	}
}

func (s *Stream) finish(clean bool) {
	s.done = true
	s.clean = clean
	s.Close()
}
