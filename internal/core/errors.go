package core

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrFlatTaken          = errors.New("flat already has an active member")
	ErrAlreadyPaid        = errors.New("month already paid")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidCredentials = errors.New("invalid flat number or password")
	ErrInvalidSignature   = errors.New("invalid payment signature")
	ErrVacated            = errors.New("membership has been vacated")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("not permitted")
	ErrGatewayUnavailable = errors.New("online payments are not configured")
	ErrGatewayFailed      = errors.New("payment gateway request failed")
)
