package clients

import "context"

// Answerer produces a reply for a message in a conversation thread.
type Answerer interface {
	Generate(ctx context.Context, threadID, userMessage string) (string, error)
}

type Interface interface {
	Subscribe(Answerer) error
	Close() error
}

type Client struct {
	answerer Answerer
}
