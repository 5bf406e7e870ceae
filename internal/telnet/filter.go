package telnet

// StripCommands returns the data bytes of chunk with every TELNET command
// sequence removed. Byte order is preserved.
//
// IAC DO/DONT/WILL/WONT consume one option byte. Every other command,
// including SE and NOP, consumes only itself. An IAC at the end of the chunk,
// or a negotiation whose option byte is missing, is dropped. Chunks are
// filtered independently, so a sequence split across reads is not rejoined.
func StripCommands(chunk []byte) []byte {
	out := make([]byte, 0, len(chunk))
	for i := 0; i < len(chunk); i++ {
		if chunk[i] != IAC {
			out = append(out, chunk[i])
			continue
		}
		i++
		if i < len(chunk) && takesOption(chunk[i]) {
			i++
		}
	}
	return out
}
