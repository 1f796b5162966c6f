// Package server is ptzlink's local API: camera control, the published
// variables and Prometheus metrics over HTTP, plus a websocket stream of
// variable updates.
//
// # Endpoints
//
//	GET  /api/status                 transport status and target
//	GET  /api/variables              definitions with current values
//	GET  /api/ws                     websocket stream (see Message)
//	GET  /api/speed                  current pan/tilt speed
//	PUT  /api/speed                  {"speed": n}, out of range resets to 0x0C
//	POST /api/speed/increase|decrease
//	POST /api/ptz/{direction}        up, down, left, right, upleft, ...
//	POST /api/ptz/stop|home
//	POST /api/zoom/{tele|wide|stop}
//	POST /api/preset/{n}/{recall|set}
//	GET  /api/power                  power inquiry
//	GET  /metrics                    Prometheus
//
// A command the camera refuses answers 409; a command that cannot reach
// the camera answers 503.
//
// # Websocket Stream
//
// Each frame is a JSON Message. A client receives the current definitions
// and values right after connecting, then every update:
//
//	{"type":"definitions","definitions":[{"id":"tally_mode","name":"Tally Mode"}],"at":"..."}
//	{"type":"values","values":{"tally_mode":"1"},"at":"..."}
package server
