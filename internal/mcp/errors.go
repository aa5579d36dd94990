// Package mcp implements the Model Context Protocol server for the
// knowledge lookup service. It bridges AI assistant clients with the
// lookup pipeline.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/fixmate/kbsearch/internal/kberrors"
)

// MCP error codes.
const (
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// ProtocolError is an MCP protocol error with code and message.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// MapError converts internal errors to MCP protocol errors.
func MapError(err error) *ProtocolError {
	if err == nil {
		return nil
	}

	var kbErr *kberrors.Error
	if errors.As(err, &kbErr) {
		switch kbErr.Category {
		case kberrors.CategoryValidation:
			return &ProtocolError{
				Code:    ErrCodeInvalidParams,
				Message: kbErr.Message,
			}
		case kberrors.CategoryTransient:
			return &ProtocolError{
				Code:    ErrCodeTimeout,
				Message: kbErr.Message,
			}
		default:
			return &ProtocolError{
				Code:    ErrCodeInternalError,
				Message: kbErr.Message,
			}
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ProtocolError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &ProtocolError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	default:
		return &ProtocolError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}
