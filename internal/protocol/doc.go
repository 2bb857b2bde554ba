// Package protocol implements the AudioSocket wire format: a 1-byte frame
// kind, a big-endian 16-bit payload length and the payload itself. It is
// stateless; framing state (what to do with each frame) lives in the relay.
package protocol
