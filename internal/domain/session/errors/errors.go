package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInternal           = errors.New("internal error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrRefreshFailed      = errors.New("refresh failed")
	ErrNetwork            = errors.New("network error")
	ErrNoSession          = errors.New("no session")
)

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

func WrapNetwork(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrNetwork, context, err)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAccountSuspended(err error) bool {
	return errors.Is(err, ErrAccountSuspended)
}

func IsRefreshFailed(err error) bool {
	return errors.Is(err, ErrRefreshFailed)
}

func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

func IsNoSession(err error) bool {
	return errors.Is(err, ErrNoSession)
}
