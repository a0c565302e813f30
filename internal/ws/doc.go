// Package ws implements the WebSocket hub that streams the /api/data payload.
//
// New(src, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker and blocks until ctx is cancelled,
// then closes all active connections.
// Hub.SetInterval changes the broadcast period of a running hub.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, starts the engine
// if needed, sends the current data immediately on connect, then streams
// updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "data",
//	  "data":  { /* same schema as GET /api/data */ }
//	}
//
// The upgrader accepts all origins. The endpoint is mounted at /ws/stream.
package ws
