/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients. Codes appear
on the wire as the "errno" field of reply envelopes.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Friend and Group Business Logic Errors
const (
	// ErrAddFriendFailed indicates that the friend relationship could not be stored.
	ErrAddFriendFailed = 2101

	// ErrCreateGroupFailed indicates that the group record could not be created.
	ErrCreateGroupFailed = 2102

	// ErrJoinGroupFailed indicates that the group membership could not be stored.
	ErrJoinGroupFailed = 2103
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrAlreadyOnline indicates that a login was attempted for an account
	// that already holds an online session somewhere in the deployment.
	ErrAlreadyOnline = 3001

	// ErrInvalidCredentials indicates that the supplied id/password pair did not match.
	ErrInvalidCredentials = 3002

	// ErrRegisterFailed indicates that the new account record could not be stored.
	ErrRegisterFailed = 3003

	// ErrNameTaken indicates that the requested account name is already registered.
	ErrNameTaken = 3004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
