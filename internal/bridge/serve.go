package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-binmeta/internal/logger"
)

// maxRequestSize bounds one request line
const maxRequestSize = 1 << 20

// Request is one line of the stdio protocol
type Request struct {
	ID        json.RawMessage        `json:"id,omitempty"`
	Method    string                 `json:"method"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Response answers one Request. Exactly one of Result and Error is set,
// except that a nil result is encoded as "result": null.
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result interface{}     `json:"result"`
	Error  *Error          `json:"error,omitempty"`
}

// Serve reads newline-delimited JSON requests from r and writes one response
// line per request to w. A line longer than maxRequestSize is answered with
// INVALID_REQUEST and skipped. It returns nil at EOF and ctx.Err() when the
// context is cancelled between requests.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	br := bufio.NewReaderSize(r, 64*1024)
	encoder := json.NewEncoder(w)

	for {
		line, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var resp Response
		switch {
		case tooLong:
			logger.Warningf("Request exceeds %d bytes, skipping", maxRequestSize)
			resp = Response{Error: &Error{
				Code:    CodeInvalidRequest,
				Message: fmt.Sprintf("request exceeds %d bytes", maxRequestSize),
			}}
		case len(bytes.TrimSpace(line)) == 0:
			continue
		default:
			resp = d.respond(line)
		}

		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// readLine returns the next line without its terminator. Past maxRequestSize
// the rest of the line is drained and tooLong is set.
func readLine(br *bufio.Reader) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(line) > 0 || tooLong) {
				return line, tooLong, nil
			}
			return nil, false, err
		}
		if !tooLong {
			if len(line)+len(chunk) > maxRequestSize {
				line, tooLong = nil, true
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

func (d *Dispatcher) respond(line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		logger.Warningf("Malformed request: %v", err)
		return Response{Error: &Error{Code: CodeInvalidRequest, Message: err.Error()}}
	}

	result, err := d.Handle(MethodCall{Method: req.Method, Arguments: req.Arguments})
	if err != nil {
		return Response{ID: req.ID, Error: toError(err)}
	}
	return Response{ID: req.ID, Result: result}
}

func toError(err error) *Error {
	var bridgeErr *Error
	switch {
	case errors.As(err, &bridgeErr):
		return bridgeErr
	case errors.Is(err, ErrNotImplemented):
		return &Error{Code: CodeNotImplemented, Message: err.Error()}
	default:
		return &Error{Code: CodeInvalidRequest, Message: err.Error()}
	}
}
