package handler

// Swagger type definitions for API documentation.

// Response wraps a successful response.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}

// MessageData is the payload of responses that only carry a message.
type MessageData struct {
	Message string `json:"message" example:"cancellation requested"`
}
