package constant

const (
	ALREADY_EXISTS       = "%s already exists"
	CREATED              = "%s created successfully"
	INVALID_REQUEST      = "Invalid request payload"
	INVALID_CREDENTIALS  = "invalid email or password"
	SOMETHING_WENT_WRONG = "something went wrong"
	INVALID_TOKEN        = "Invalid or expired token"
	TOKEN_EXPIRED        = "Token has expired"
	TOKEN_REQUIRED       = "Token is required"
	MALFORMED_TOKEN      = "Invalid/Malformed auth token"
)
