package publishers

import "context"

// Publisher sends events to a downstream sink (webhook, SQS, SNS, Pub/Sub).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Filter is implemented by publishers that take only some event kinds.
type Filter interface {
	Accepts(kind string) bool
}
