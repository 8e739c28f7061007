package dto

type ThresholdsResponse struct {
	Recognition float64 `json:"recognition"`
	Duplicate   float64 `json:"duplicate"`
}

type UpdateThresholdsRequest struct {
	Recognition *float64 `json:"recognition,omitempty"`
	Duplicate   *float64 `json:"duplicate,omitempty"`
}
