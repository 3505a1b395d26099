package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	Error string `json:"error"`
	// HTTP status code.
	// example: 503
	Code int `json:"code" example:"503"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Lifecycle state: LOADING, READY or FAILED.
	// example: READY
	State string `json:"state" example:"READY"`
	// Execution backend: accelerated or generic (empty while loading).
	// example: accelerated
	Backend string `json:"backend,omitempty" example:"accelerated"`
	// Numeric precision of the loaded weights.
	// example: float16
	Precision string `json:"precision,omitempty" example:"float16"`
	// Device description as logged at load time.
	// example: CUDA (FLOAT16)
	Device string `json:"device,omitempty" example:"CUDA (FLOAT16)"`
	// Model file in use.
	Model string `json:"model,omitempty"`
	// Transport kind and address clients connect to.
	Transport string `json:"transport"`
	Address   string `json:"address"`
	// Jobs waiting for the worker lane.
	QueueLen int `json:"queue_len"`
	// 1 while a transcription job is executing.
	InService int `json:"in_service"`
	// Jobs completed since start.
	JobsTotal uint64 `json:"jobs_total"`
	// Jobs that ended with an error frame.
	JobsFailed uint64 `json:"jobs_failed"`
	// Last load error, if any.
	Error string `json:"error,omitempty"`
	// Uptime of the server in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
	// Resident set size of the server process in bytes.
	RSSBytes uint64 `json:"rss_bytes,omitempty"`
}
