// Package shared defines sentinel errors used across camlink components.
// Callers should match them with errors.Is.
package shared

import "errors"

var (
	// Resource errors (current session aborted, process stays up).
	ErrorStorage = errors.New("storage error")

	// Transport errors on the modem command channel.
	ErrorChannelInit = errors.New("command channel init failed")
	ErrorNoPrompt    = errors.New("no prompt from command channel")
	ErrorCommand     = errors.New("command rejected")

	// Derivation errors (upload rejected before any network activity).
	ErrorMissingIdentifier = errors.New("filename has no identifier prefix")

	// Handshake errors on the sending side.
	ErrorNoReady       = errors.New("no READY from receiver")
	ErrorNoAck         = errors.New("no ACK from receiver")
	ErrorNoDone        = errors.New("no DONE from receiver")
	ErrorRemoteTimeout = errors.New("receiver reported timeout")

	// Repository errors.
	ErrorNotFound = errors.New("not found")

	// Auth errors (ingest endpoint).
	ErrorInvalidToken            = errors.New("invalid token")
	ErrorInvalidAuthheaderFormat = errors.New("invalid auth header format")
)
