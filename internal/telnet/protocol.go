// Package telnet implements the small subset of the TELNET protocol a
// deception shell needs: discarding negotiation sequences from inbound data
// and assembling newline-terminated lines from a byte stream.
package telnet

// Command codes (RFC 854).
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Subnegotiation begin
	NOP  byte = 241
	SE   byte = 240 // Subnegotiation end
)

// Option codes.
const (
	OptEcho byte = 1
)

// WillEcho returns the negotiation telling the peer that the server echoes,
// which suppresses local echo on most clients.
func WillEcho() []byte {
	return []byte{IAC, WILL, OptEcho}
}

// takesOption reports whether cmd is followed by a single option byte.
func takesOption(cmd byte) bool {
	switch cmd {
	case DO, DONT, WILL, WONT:
		return true
	default:
		return false
	}
}
