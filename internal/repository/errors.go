package repository

import (
	"errors"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrBalanceNotFound   = errors.New("balance not found")
	ErrBalanceNotEnough  = errors.New("insufficient balance")
	ErrEntryNotFound     = errors.New("ledger entry not found")
	ErrInvalidTransition = errors.New("invalid ledger status transition")
	ErrTokenNotFound     = errors.New("reset token not found")
	ErrKYCNotFound       = errors.New("kyc record not found")
)
