package common

const (
	// AuthorizationHeaderName carries "Bearer <access token>" on API requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the only authorization scheme the API accepts.
	BearerScheme = "Bearer"

	// APIKeyHeaderName authenticates the server against the AI assistant service.
	APIKeyHeaderName = "X-API-Key"

	// RequestIDHeaderName is echoed back on every API response.
	RequestIDHeaderName = "X-Request-ID"
)
