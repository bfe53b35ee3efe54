// Package picoerr names the error taxonomy shared by every PicoCoin core
// package. Validation failures are values, not exceptions: a rejected block
// or transaction is logged and dropped, never fatal.
package picoerr

import "errors"

// Sentinel kinds. Wrap these with fmt.Errorf("...: %w", Kind) so callers can
// still errors.Is/errors.As across package boundaries.
var (
	// AuthError marks a local password/GCM-tag failure (identity only).
	AuthError = errors.New("auth error")
	// SerdeError marks a malformed or schema-mismatched inbound frame.
	SerdeError = errors.New("serde error")
	// CryptoError marks a signature verification failure.
	CryptoError = errors.New("crypto error")
	// ValidationError marks a chain/transaction validation rejection.
	ValidationError = errors.New("validation error")
	// IOError marks a socket or persistence failure.
	IOError = errors.New("io error")
)

// Is reports whether err carries kind somewhere in its chain.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
