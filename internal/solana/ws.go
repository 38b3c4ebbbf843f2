package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature subscribes to the one-shot confirmation notification
	// for a signature. The returned channel receives exactly one notification
	// and is then closed; it is also closed without a value if the connection
	// drops before the notification arrives.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is a signatureSubscribe result message.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{}
}
