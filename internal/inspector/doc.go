// Package inspector serves a live view of a reactive state object.
//
// A Hub owns one runtime and funnels every access through a single
// goroutine. The Server exposes it over HTTP:
//
//	GET    /state        whole state as JSON, with an ETag
//	GET    /state/{key}  one key
//	PUT    /state/{key}  write a JSON value
//	DELETE /state/{key}  remove a key
//	GET    /stats        registry and wrapper cache sizes
//	GET    /ws           WebSocket stream of state frames
//	GET    /metrics      Prometheus metrics
//
// Each WebSocket client gets its own deep watcher on the state and receives
// a snapshot frame followed by one change frame per write.
package inspector
