package outbox

const (
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Message is the row shape persisted inside the same DB transaction as state
// changes. Worker relays read pending rows and publish to the event bus;
// undeliverable events surface with StatusFailed.
type Message struct {
	ID         string
	EventType  string
	Payload    []byte
	Status     string
	RetryCount int
}
