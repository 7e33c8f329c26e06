package utils

import "time"

// APIResponse is the envelope every HTTP endpoint answers with. Validation
// verdicts ride in Data; Success reflects the verdict, not just transport
// health, so a denied scan is a well-formed response with Success=false.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func ErrorResponse(message, detail string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     detail,
		Timestamp: time.Now().UTC(),
	}
}
