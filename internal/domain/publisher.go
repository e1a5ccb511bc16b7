package domain

import "context"

// PublishRequest is an outbound message for the hosted queue.
type PublishRequest struct {
	Destination  string // callback URL the queue will POST the body to
	Body         []byte
	Delay        string // "<seconds>s", empty for immediate delivery
	Deduplicated bool
	Retries      *int // nil leaves the provider default in place
}

// PublishResponse is what the queue returns for an accepted message.
type PublishResponse struct {
	MessageID    string `json:"messageId"`
	URL          string `json:"url,omitempty"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
}

// Publisher hands messages to the hosted queue. Implementations must not
// retry: redelivery belongs to the provider.
type Publisher interface {
	PublishJSON(ctx context.Context, req *PublishRequest) (*PublishResponse, error)
}
