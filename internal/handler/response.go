package handler

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	// Errors carries the path-addressed validation map on 422 responses,
	// e.g. {"medications[2].dosage": "dosage is required"}.
	Errors map[string]string `json:"errors,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

func NewValidationResponse(errs map[string]string) *Response {
	return &Response{
		Status:  "invalid",
		Message: "draft failed validation",
		Errors:  errs,
	}
}
