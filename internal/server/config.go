// ABOUTME: Connection settings for the browser chat server
// ABOUTME: Buffer sizes and the per-frame read limit applied to every WebSocket
package server

// DefaultMaxMessageSize caps one inbound frame at Cloud Speech's synchronous request size
const DefaultMaxMessageSize int64 = 10 << 20

// Config holds WebSocket settings
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
}

// DefaultConfig returns the default WebSocket settings
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		MaxMessageSize:  DefaultMaxMessageSize,
	}
}
