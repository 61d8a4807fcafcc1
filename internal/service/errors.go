package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEntryNotFound      = errors.New("ledger entry not found")
	ErrInvalidTransition  = errors.New("invalid ledger status transition")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrTokenInvalid       = errors.New("reset token is invalid or expired")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrMarketUnavailable  = errors.New("market data unavailable")
	ErrKYCNotFound        = errors.New("kyc not submitted")
	ErrStorage            = errors.New("storage failure")
	ErrSystemBusy         = errors.New("system busy, please retry")
)

// ValidationError 输入校验失败，Field 为出错的字段名
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation 判断是否为输入校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// storageError 把底层存储错误包成 ErrStorage，超时同样视为存储失败
func storageError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: query timeout", op, ErrStorage)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}
