/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
reply envelopes and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Friend and Group Business Logic Errors
	ErrAddFriendFailed:   {Code: ErrAddFriendFailed, Message: "Could not add friend."},
	ErrCreateGroupFailed: {Code: ErrCreateGroupFailed, Message: "Could not create group."},
	ErrJoinGroupFailed:   {Code: ErrJoinGroupFailed, Message: "Could not join group."},

	// 3xxx: User, Session, and Security Errors
	ErrAlreadyOnline:      {Code: ErrAlreadyOnline, Message: "Account is already signed in elsewhere."},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect id or password."},
	ErrRegisterFailed:     {Code: ErrRegisterFailed, Message: "Registration failed."},
	ErrNameTaken:          {Code: ErrNameTaken, Message: "Name is already taken."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
