// Package bridge exposes metadata lookups as named method calls, the way a
// host application's plugin channel invokes them.
package bridge

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-binmeta/internal/logger"
	"github.com/deploymenttheory/go-binmeta/internal/metadata"
)

// Method names understood by the dispatcher
const (
	MethodGetBinaryFileVersion  = "getBinaryFileVersion"
	MethodGetBinaryFileMetadata = "getBinaryFileMetadata"

	filePathArgument = "filePath"
)

// Error codes reported to callers
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotImplemented  = "NOT_IMPLEMENTED"
	CodeInvalidRequest  = "INVALID_REQUEST"
)

// ErrNotImplemented is returned for method names the dispatcher does not know
var ErrNotImplemented = errors.New("method not implemented")

// Error is a failure reported back to the caller with a machine-readable code
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MethodCall is one request from the host
type MethodCall struct {
	Method    string                 `json:"method"`
	Arguments map[string]interface{} `json:"arguments"`
}

// MetadataReader is the lookup surface the dispatcher needs
type MetadataReader interface {
	ReadVersion(path string) (string, bool)
	ReadMetadata(path string) metadata.Record
}

// Dispatcher routes method calls to a MetadataReader
type Dispatcher struct {
	reader MetadataReader
}

// NewDispatcher creates a dispatcher over reader
func NewDispatcher(reader MetadataReader) *Dispatcher {
	return &Dispatcher{reader: reader}
}

// Handle runs one method call. The filePath argument is validated before
// the method name is looked at, so a bad request for an unknown method
// reports INVALID_ARGUMENT.
//
// getBinaryFileVersion yields a string or nil; getBinaryFileMetadata yields a
// map holding all six metadata keys.
func (d *Dispatcher) Handle(call MethodCall) (interface{}, error) {
	filePath, ok := call.Arguments[filePathArgument].(string)
	if !ok || filePath == "" {
		return nil, &Error{Code: CodeInvalidArgument, Message: "Missing or invalid 'filePath'"}
	}

	switch call.Method {
	case MethodGetBinaryFileVersion:
		version, ok := d.reader.ReadVersion(filePath)
		if !ok {
			logger.Debugf("No version found for %s", filePath)
			return nil, nil
		}
		return version, nil
	case MethodGetBinaryFileMetadata:
		return d.reader.ReadMetadata(filePath).ToMap(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, call.Method)
	}
}
