package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrRateLimited        = errors.New("rate limited")
	ErrLockNotAcquired    = errors.New("lock not acquired")

	// Payment & activation
	ErrUnknownPurpose      = errors.New("unknown payment purpose")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrIntegrityViolation  = errors.New("payment references a missing or invalid entity")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrGatewayRejected     = errors.New("payment gateway rejected request")
	ErrAlreadyHasBusiness  = errors.New("user already owns a business")
	ErrAlreadyAgent        = errors.New("user already has an agent profile")
	ErrAgentNotActive      = errors.New("agent is not active")
	ErrRequestNotPaid      = errors.New("business request has not been paid")
	ErrPackageInactive     = errors.New("package is not active")
	ErrPlanInactive        = errors.New("subscription plan is not active")
	ErrOrderNotPayable     = errors.New("order is not awaiting payment")
	ErrPromotionNotPayable = errors.New("promotion is not awaiting payment")
)

// GatewayError describes a failed call to the mobile-money provider.
// It unwraps to ErrGatewayUnavailable or ErrGatewayRejected.
type GatewayError struct {
	Op         string // collect | status | balance
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway %s: http %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func NewGatewayUnavailable(op string, status int, msg string) error {
	return &GatewayError{Op: op, StatusCode: status, Message: msg, Err: ErrGatewayUnavailable}
}

func NewGatewayRejected(op string, status int, msg string) error {
	return &GatewayError{Op: op, StatusCode: status, Message: msg, Err: ErrGatewayRejected}
}
