// Package relay terminates one framed AudioSocket TCP connection and exposes
// a concurrency-safe Read/Write/Hangup surface to the application.
//
// Each accepted connection runs one frame loop goroutine that owns all socket
// reads. Inbound audio lands in a bounded rx queue and every inbound audio
// frame triggers exactly one outbound frame, drawn from the bounded tx queue
// or synthesized as silence. Both queues drop on overflow instead of
// blocking, so a slow application can never stall the wire and a hot wire can
// never stall the application.
package relay
