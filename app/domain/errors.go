package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeFetch      ErrorCode = "fetch_failed"
	CodeParse      ErrorCode = "parse_failed"
	CodeConfig     ErrorCode = "invalid_config"
	CodeEmbedding  ErrorCode = "embedding_failed"
	CodeStoreWrite ErrorCode = "store_write_failed"
	CodeStoreQuery ErrorCode = "store_query_failed"
	CodeGeneration ErrorCode = "generation_failed"
)

// Sentinels for errors.Is. They match any OperationError carrying the same code.
var (
	ErrFetch      = &OperationError{Code: CodeFetch}
	ErrParse      = &OperationError{Code: CodeParse}
	ErrConfig     = &OperationError{Code: CodeConfig}
	ErrEmbedding  = &OperationError{Code: CodeEmbedding}
	ErrStoreWrite = &OperationError{Code: CodeStoreWrite}
	ErrStoreQuery = &OperationError{Code: CodeStoreQuery}
	ErrGeneration = &OperationError{Code: CodeGeneration}
)

type OperationError struct {
	Code      ErrorCode
	Operation string
	Message   string
	Cause     error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "operation failed"
	}
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s (op=%s): %s: %v", e.Code, e.Operation, e.Message, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s (op=%s): %s", e.Code, e.Operation, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s (op=%s): %v", e.Code, e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s (op=%s)", e.Code, e.Operation)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Operation == "" && t.Message == "" && t.Cause == nil && t.Code == e.Code
}

func NewError(code ErrorCode, op, msg string, cause error) error {
	return &OperationError{Code: code, Operation: op, Message: msg, Cause: cause}
}

func FetchError(op string, cause error) error {
	return NewError(CodeFetch, op, "", cause)
}

func ParseError(op, msg string) error {
	return NewError(CodeParse, op, msg, nil)
}

func ConfigError(op, msg string) error {
	return NewError(CodeConfig, op, msg, nil)
}

func EmbeddingServiceError(op string, cause error) error {
	return NewError(CodeEmbedding, op, "", cause)
}

func StoreWriteError(op, msg string, cause error) error {
	return NewError(CodeStoreWrite, op, msg, cause)
}

func StoreQueryError(op string, cause error) error {
	return NewError(CodeStoreQuery, op, "", cause)
}

func GenerationError(op string, cause error) error {
	return NewError(CodeGeneration, op, "", cause)
}

// CodeOf returns the code of the outermost OperationError in the chain, or "".
func CodeOf(err error) ErrorCode {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	return ""
}
