package chain

import "context"

// HeadSubscriber streams new chain heads.
type HeadSubscriber interface {
	// SubscribeNewHeads subscribes to eth_subscribe("newHeads").
	// The channel is closed when the client closes.
	SubscribeNewHeads(ctx context.Context) (<-chan Head, error)

	// Close closes the WebSocket connection.
	Close() error
}

// Head is a new block header notification.
type Head struct {
	Number    uint64
	Hash      string
	Timestamp uint64
}
