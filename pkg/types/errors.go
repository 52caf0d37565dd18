package types

import "fmt"

// AuthError indicates a venue rejected our credentials. Fatal for the
// affected venue client; never retried.
type AuthError struct {
	Venue   string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth failed: %s", e.Venue, e.Message)
}

// SequenceGapError indicates a Kalshi orderbook delta arrived out of
// sequence. The delta is dropped; recovery relies on the venue re-sending a
// snapshot.
type SequenceGapError struct {
	Ticker   string
	Expected int64
	Got      int64
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("sequence gap on %s: expected seq %d, got %d", e.Ticker, e.Expected, e.Got)
}

// ValidationError indicates a rejected input (settings out of range, invalid
// pair, malformed ticker summary). Never partially applied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// CoordinationError indicates a two-phase-commit operation failed: a
// participant NACKed, an ACK never arrived, or the commit phase broke.
type CoordinationError struct {
	OperationID string
	Phase       string
	Reason      string
}

func (e *CoordinationError) Error() string {
	return fmt.Sprintf("coordination op %s failed during %s: %s", e.OperationID, e.Phase, e.Reason)
}

// ClientSendError indicates a broadcast to one client socket failed or timed
// out. The client is disconnected; other clients are unaffected.
type ClientSendError struct {
	ClientID string
	Cause    error
}

func (e *ClientSendError) Error() string {
	return fmt.Sprintf("send to client %s failed: %v", e.ClientID, e.Cause)
}

func (e *ClientSendError) Unwrap() error { return e.Cause }
