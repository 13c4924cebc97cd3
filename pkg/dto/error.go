package dto

type ErrorResponse struct {
	Error any `json:"error"`
}

type StatusErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
