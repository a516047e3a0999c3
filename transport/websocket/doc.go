// Package websocket pushes mission updates to browsers and other watchers.
//
// Clients connect with the session they want to follow (?session=ab12) and
// receive JSON messages:
//
//	{"session_id": "ab12", "event": "state_update", "mission_state": {...}}
//	{"session_id": "ab12", "event": "lost", "data": {...}}
//
// A state_update carries the full mission state after every deploy, script,
// plan run or reset. Other events mirror the service events (deploy, move,
// lost, saved, reset, grid_replaced). Incoming client messages are ignored.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Broadcasts never block: a client whose buffer is full is disconnected.
package websocket
