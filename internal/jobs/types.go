package jobs

const (
	TaskInvalidateCache = "cache:invalidate"

	QueueCache = "cache"
)

// InvalidatePayload names a cache resource family and the params every
// deleted key must carry, e.g. {"airline", {"code": "BA"}}.
type InvalidatePayload struct {
	Resource string            `json:"resource"`
	Params   map[string]string `json:"params,omitempty"`
}
