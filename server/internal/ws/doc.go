// Package ws streams health snapshots to WebSocket clients.
//
// New(source, interval) creates a Hub. Hub.Run(ctx) drives the broadcast
// ticker and closes every connection when ctx is cancelled. Hub.ServeHTTP is
// mounted at /ws/stream; it sends the current snapshot on connect and then
// one per tick:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/health */ }
//	}
//
// Snapshots are recomputed from the event log for every message. Clients
// whose send buffer fills up are disconnected.
package ws
