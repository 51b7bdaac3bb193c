package events

// Topic constants for domain events emitted by the checkout flow.
const (
	TopicCheckoutCompleted = "checkout.completed"
	TopicCheckoutFailed    = "checkout.failed"
)

// DefaultTopics returns the canonical list of topics that consumers can
// subscribe to.
func DefaultTopics() []string {
	return []string{
		TopicCheckoutCompleted,
		TopicCheckoutFailed,
	}
}
