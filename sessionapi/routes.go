package sessionapi

// HTTP contract shared by HTTPClient and the development server.
const (
	RouteSession     = "/api/session"
	RouteSessionByID = "/api/session/{id}"

	HeaderRequestID = "X-Request-ID"
	ContentTypeJSON = "application/json"
)
