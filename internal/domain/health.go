package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// EngineMetrics is returned by GET /v1/metrics/engine.
type EngineMetrics struct {
	SnapshotsBuilt     int64   `json:"snapshotsBuilt"`
	SnapshotFailures   int64   `json:"snapshotFailures"`
	IntegrityFailures  int64   `json:"integrityFailures"`
	ParseFallbacks     int64   `json:"parseFallbacks"`
	AdviceCacheHitRate float64 `json:"adviceCacheHitRate"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
