package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
)

// Extraction taxonomy. Only ErrBatchLevel aborts a job; the others are recorded
// on the affected order as failure context.
var (
	ErrNoMatchFound       = errors.New("no match found")
	ErrInvalidFieldFormat = errors.New("invalid field format")
	ErrExternalCall       = errors.New("external call failed")
	ErrBatchLevel         = errors.New("batch level failure")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ExternalCallError marks err as an exhausted external dependency call.
func ExternalCallError(dependency string, err error) error {
	return NewAppError("EXTERNAL_CALL_FAILED", dependency, errors.Join(ErrExternalCall, err))
}

// BatchLevelError marks err as a precondition failure that prevents a batch from running.
func BatchLevelError(message string, err error) error {
	return NewAppError("BATCH_LEVEL_FAILURE", message, errors.Join(ErrBatchLevel, err))
}

// ToGRPC maps application errors onto gRPC status errors.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrExternalCall):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
