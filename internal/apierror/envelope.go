package apierror

import "time"

// SuccessMeta is the `success` block of a success envelope.
type SuccessMeta struct {
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	StatusCode int    `json:"status_code"`
}

// SuccessEnvelope is the response body for successful operations.
type SuccessEnvelope struct {
	Success SuccessMeta `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorBody is the `error` block of a failure envelope.
type ErrorBody struct {
	Code       Code                   `json:"code"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Suggestion string                 `json:"suggestion"`
	Category   string                 `json:"category"`
	Timestamp  string                 `json:"timestamp"`
	StatusCode int                    `json:"status_code"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// ErrorEnvelope is the response body for failed operations.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NewSuccessEnvelope builds a success envelope with the given message, HTTP
// status and payload.
func NewSuccessEnvelope(message string, status int, data interface{}) SuccessEnvelope {
	return SuccessEnvelope{
		Success: SuccessMeta{
			Message:    message,
			Timestamp:  nowStamp(),
			StatusCode: status,
		},
		Data: data,
	}
}

// NewErrorEnvelope builds a failure envelope for the given error.
func NewErrorEnvelope(err *Error) ErrorEnvelope {
	d := describe(err.Code)
	return ErrorEnvelope{
		Error: ErrorBody{
			Code:       err.Code,
			Title:      d.Title,
			Message:    d.Message,
			Suggestion: d.Suggestion,
			Category:   d.Category,
			Timestamp:  nowStamp(),
			StatusCode: err.HTTPStatus(),
			Details:    err.Details,
		},
	}
}
