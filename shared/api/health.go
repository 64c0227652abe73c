package api

// ReadinessResponse maps each dependency to "ok" or a short failure reason.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
