package core

// # Error Codes Reference
//
// Errors shown to residents and the committee carry a code that can be
// quoted to whoever maintains the portal. Codes are grouped by category:
//
// # Spreadsheet Errors (SHEET001-SHEET099)
//
//	SHEET001 - Credentials missing: the service account key file is absent
//	           Action: Place the credential file at the configured path
//	           Match: sheets.ErrCredentialsMissing
//
//	SHEET002 - Tab not found: a required tab is missing from the spreadsheet
//	           Action: Run "rwactl init-workbook" to create the tabs
//	           Match: sheets.ErrTabNotFound
//
//	SHEET003 - Busy: too many spreadsheet calls in flight
//	           Action: Please wait a moment and try again
//	           Match: sheets.ErrTooManyRequests
//
//	SHEET004 - Quota: the spreadsheet API refused the call
//	           Action: Please try again in a minute
//	           Patterns: "quota", "rate limit exceeded", "googleapi: error 429"
//
// # Member Errors (MEM001-MEM099)
//
//	MEM001 - Invalid credentials      (ErrInvalidCredentials)
//	MEM002 - Flat already occupied    (ErrFlatTaken)
//	MEM003 - Membership vacated       (ErrVacated)
//
// # Payment Errors (PAY001-PAY099)
//
//	PAY001 - Month already paid       (ErrAlreadyPaid)
//	PAY002 - Signature mismatch       (ErrInvalidSignature)
//	PAY003 - Gateway not configured   (ErrGatewayUnavailable)
//	PAY004 - Gateway unreachable      (ErrGatewayFailed)
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Not found                (ErrNotFound)
//	REQ002 - Invalid status change    (ErrInvalidTransition)
//	REQ003 - Not permitted            (ErrForbidden)
//	REQ004 - Invalid input            (ErrInvalidInput)
//	REQ005 - Invalid date             (ErrInvalidDate)
//	REQ006 - Invalid amount           (ErrInvalidAmount)
//	REQ007 - Request cancelled        (context.Canceled)
//	REQ008 - Request timed out        (context.DeadlineExceeded, "timeout")
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact the committee
//
// # Matching
//
// Sentinels are matched with errors.Is, in order, before the string
// patterns. Patterns are matched case-insensitively with strings.Contains;
// the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/rwa/internal/sheets"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Status  int    // HTTP status to answer with
}

type errorSentinel struct {
	target error
	msg    UserMessage
}

// errorSentinels maps wrapped sentinel errors to user messages.
var errorSentinels = []errorSentinel{
	{sheets.ErrCredentialsMissing, UserMessage{
		Message: "Spreadsheet credentials are not configured",
		Action:  "Place the credential file at the configured path",
		Code:    "SHEET001",
		Status:  http.StatusInternalServerError,
	}},
	{sheets.ErrTabNotFound, UserMessage{
		Message: "A required spreadsheet tab is missing",
		Action:  "Run rwactl init-workbook to create the tabs",
		Code:    "SHEET002",
		Status:  http.StatusInternalServerError,
	}},
	{sheets.ErrTooManyRequests, UserMessage{
		Message: "The spreadsheet is busy",
		Action:  "Please wait a moment and try again",
		Code:    "SHEET003",
		Status:  http.StatusServiceUnavailable,
	}},
	{ErrInvalidCredentials, UserMessage{
		Message: "Invalid flat number or password",
		Action:  "Check your flat number and password",
		Code:    "MEM001",
		Status:  http.StatusUnauthorized,
	}},
	{ErrFlatTaken, UserMessage{
		Message: "This flat already has an active member",
		Action:  "Vacate the current member first",
		Code:    "MEM002",
		Status:  http.StatusConflict,
	}},
	{ErrVacated, UserMessage{
		Message: "This membership has been vacated",
		Action:  "Contact the committee",
		Code:    "MEM003",
		Status:  http.StatusForbidden,
	}},
	{ErrAlreadyPaid, UserMessage{
		Message: "Maintenance for this month is already paid",
		Action:  "Check your payment history",
		Code:    "PAY001",
		Status:  http.StatusConflict,
	}},
	{ErrInvalidSignature, UserMessage{
		Message: "The payment could not be verified",
		Action:  "Contact the committee with your payment id",
		Code:    "PAY002",
		Status:  http.StatusBadRequest,
	}},
	{ErrGatewayUnavailable, UserMessage{
		Message: "Online payments are not available",
		Action:  "Pay by cash, cheque or bank transfer",
		Code:    "PAY003",
		Status:  http.StatusServiceUnavailable,
	}},
	{ErrGatewayFailed, UserMessage{
		Message: "The payment gateway could not be reached",
		Action:  "Please try again later",
		Code:    "PAY004",
		Status:  http.StatusBadGateway,
	}},
	{ErrNotFound, UserMessage{
		Message: "Record not found",
		Action:  "Check the number and try again",
		Code:    "REQ001",
		Status:  http.StatusNotFound,
	}},
	{ErrInvalidTransition, UserMessage{
		Message: "That status change is not allowed",
		Action:  "Refresh and check the current status",
		Code:    "REQ002",
		Status:  http.StatusConflict,
	}},
	{ErrForbidden, UserMessage{
		Message: "You are not permitted to do this",
		Action:  "Contact the committee",
		Code:    "REQ003",
		Status:  http.StatusForbidden,
	}},
	{ErrInvalidInput, UserMessage{
		Message: "Some of the details are invalid",
		Action:  "Correct the highlighted details and try again",
		Code:    "REQ004",
		Status:  http.StatusBadRequest,
	}},
	{ErrInvalidDate, UserMessage{
		Message: "Invalid date",
		Action:  "Use DD/MM/YYYY or YYYY-MM-DD",
		Code:    "REQ005",
		Status:  http.StatusBadRequest,
	}},
	{ErrInvalidAmount, UserMessage{
		Message: "Invalid amount",
		Action:  "Enter the amount in rupees, e.g. 1500 or 1500.00",
		Code:    "REQ006",
		Status:  http.StatusBadRequest,
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ007",
		Status:  499,
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Please try again",
		Code:    "REQ008",
		Status:  http.StatusGatewayTimeout,
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors from external APIs that carry no sentinel.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "quota",
		msg: UserMessage{
			Message: "The spreadsheet service is rate limiting us",
			Action:  "Please try again in a minute",
			Code:    "SHEET004",
			Status:  http.StatusServiceUnavailable,
		},
	},
	{
		pattern: "googleapi: error 429",
		msg: UserMessage{
			Message: "The spreadsheet service is rate limiting us",
			Action:  "Please try again in a minute",
			Code:    "SHEET004",
			Status:  http.StatusServiceUnavailable,
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ008",
			Status:  http.StatusGatewayTimeout,
		},
	},
}

// defaultMessage is returned when no specific pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact the committee",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts an error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("record: %w", ErrAlreadyPaid))
//	// msg.Code == "PAY001", msg.Status == 409
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, es := range errorSentinels {
		if errors.Is(err, es.target) {
			return es.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
