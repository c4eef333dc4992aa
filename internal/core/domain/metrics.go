package domain

// MetricsSnapshot is the aggregate view exposed by the performance monitor.
type MetricsSnapshot struct {
	TotalQueries    int64            `json:"total_queries"`
	ErrorCount      int64            `json:"error_count"`
	ErrorRate       float64          `json:"error_rate"`
	AvgResponseTime float64          `json:"avg_response_time"`
	MinResponseTime float64          `json:"min_response_time"`
	MaxResponseTime float64          `json:"max_response_time"`
	WindowSize      int              `json:"window_size"`
	ModelUsage      map[string]int64 `json:"model_usage"`
	QueryTypeUsage  map[string]int64 `json:"query_type_usage"`
	UptimeSeconds   float64          `json:"uptime_seconds"`
}
