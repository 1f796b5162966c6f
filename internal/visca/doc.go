// Package visca implements the camera's binary command channel: VISCA
// packets carried over a persistent TCP connection.
//
// # Packet Format
//
// Every packet ends with the terminator 0xFF. Packets sent to the camera
// start with 0x8n where n is the camera address (1 for a single camera
// over IP). Replies start with 0xm0 where m = n + 8, so address 1 answers
// with 0x90:
//
//	81 01 06 04 FF       command (pan/tilt home)
//	90 4y FF             acknowledge, y is the socket number
//	90 5y FF             completion (commands)
//	90 50 .. .. FF       completion with data (inquiries)
//	90 6y EE FF          error, EE is the error code
//
// A packet is never longer than 16 bytes.
//
// # Connection Lifecycle
//
// Client.Open is non-blocking. It starts a connect loop that retries with
// exponential backoff until the camera answers or Close is called.
// Callers that need the connection must wait on Client.WaitReady.
// Status changes are reported through the OnStatus callback:
//
//	connecting → ok → (I/O fault) → connecting → ok ...
//	any state → Close(reason, status) → status
//
// # Errors
//
// A camera error reply is returned as *ProtocolError. Everything else
// that goes wrong on the wire (not connected, write or read failure,
// timeout) is a *TransportError.
package visca
