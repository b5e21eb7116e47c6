package resputil

type ErrorCode int

const (
	OK ErrorCode = 0

	// General
	InvalidRequest ErrorCode = 40001

	// Token
	TokenExpired ErrorCode = 40101
	TokenInvalid ErrorCode = 40102

	// Login
	InvalidCredentials ErrorCode = 40106
	TooManyAttempts    ErrorCode = 40107

	// User is not allowed to access the resource
	UserNotAllowed ErrorCode = 40301

	// Entity lookups
	NotFound ErrorCode = 40400

	// State conflicts: duplicate application, priority collision,
	// capacity exceeded, non-original second submitter
	Conflict ErrorCode = 40900

	// Recommender or forecaster failure after retries
	UpstreamUnavailable ErrorCode = 50301

	// Indicates laziness of the developer
	// Frontend will directly print the message without any translation
	NotSpecified ErrorCode = 99999
)
