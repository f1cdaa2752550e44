// Package command implements the controller's command link.
//
// Commands are small CBOR-encoded messages carried in length-prefixed frames
// (4-byte big-endian length followed by the payload). A Channel is the
// bidirectional endpoint the BIT manager rebinds to the active test: inbound
// commands are emitted on its Received signal and outbound commands are
// passed to Send.
//
// Two Channel implementations are provided. Loopback keeps everything in
// process and is used by the interactive console and tests. Hub serves any
// number of framed byte streams (typically TCP connections accepted by
// Serve), fanning outbound commands out to every stream and merging inbound
// commands from all of them.
package command
