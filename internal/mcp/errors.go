// Package mcp exposes the document index to agents over the Model Context
// Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// Application error codes, in the JSON-RPC server-defined range.
const (
	// ErrCodeNotReady means no embedding model is available yet.
	ErrCodeNotReady = -32001

	// ErrCodeEmbeddingFailed means the model rejected or failed a request.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout means the request was cancelled or timed out.
	ErrCodeTimeout = -32003

	// ErrCodeNotFound means an unknown document or chunk id.
	ErrCodeNotFound = -32004

	// ErrCodeUnavailable means a remote embedding service is unreachable.
	ErrCodeUnavailable = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is an error with a protocol code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError reports a bad tool argument.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewNotFoundError reports an unknown resource.
func NewNotFoundError(uri string) *MCPError {
	return &MCPError{Code: ErrCodeNotFound, Message: fmt.Sprintf("resource %q not found", uri)}
}

// MapError converts an application error to an MCPError.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "request was canceled"}
	}

	if de, ok := derrors.As(err); ok {
		return mapDocragError(de)
	}
	return &MCPError{Code: ErrCodeInternalError, Message: "internal server error"}
}

func mapDocragError(de *derrors.DocragError) *MCPError {
	message := de.Message
	if de.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", de.Message, de.Suggestion)
	}

	switch de.Code {
	case derrors.ErrCodeNotReady:
		return &MCPError{Code: ErrCodeNotReady, Message: message}
	case derrors.ErrCodeEmbeddingFailed, derrors.ErrCodeModelLoad:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	case derrors.ErrCodeNotFound, derrors.ErrCodeFileNotFound:
		return &MCPError{Code: ErrCodeNotFound, Message: message}
	}

	switch de.Category {
	case derrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case derrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeUnavailable, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
