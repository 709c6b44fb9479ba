package streaming

// Transport is a bidirectional message channel to one consumer. The
// simulator only sends; whatever owns the connection reads Receive.
type Transport interface {
	// Send delivers msg without blocking on the consumer.
	Send(msg Message) error
	// Receive yields inbound messages until the transport closes.
	Receive() <-chan Message
	Close() error
}
