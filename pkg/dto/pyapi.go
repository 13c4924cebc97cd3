package dto

type PyAPIHealth struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type PyAPIStatusResponse struct {
	Health  PyAPIHealth `json:"health"`
	Message string      `json:"message"`
}
