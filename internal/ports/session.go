package ports

// Session is a command/response connection to a single instrument. Adapters
// enforce their configured timeout on every operation; no call blocks
// indefinitely. Implementations are not safe for concurrent use: the
// acquisition loop owns the session exclusively for the run's duration.
type Session interface {
	// Write sends an ASCII command that produces no response.
	Write(cmd string) error

	// Query sends an ASCII query and returns the instrument's string response.
	Query(cmd string) (string, error)

	// QueryBlock sends a query whose response is a raw byte block, returned
	// as read, including any vendor framing.
	QueryBlock(cmd string) ([]byte, error)

	// Close releases the underlying handle. Idempotent.
	Close() error
}
