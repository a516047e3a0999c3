// Package api provides HTTP REST API handlers for the Mars Rovers mission server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_name": "sample"}, optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Summary across sessions (?sessionIds=a,b or ?configName=x)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Mission Operations:
//   - GET /api/sessions/{id}/state - Grid, lost positions and counters
//   - POST /api/sessions/{id}/rovers - Deploy one rover
//   - POST /api/sessions/{id}/script - Run a record script
//   - POST /api/sessions/{id}/plan - Deploy the config's planned rovers
//   - POST /api/sessions/{id}/reset - Restore the config's grid
//   - GET /api/sessions/{id}/reports - Paginated reports (?page=1&limit=20&order=desc)
//   - GET /api/sessions/{id}/positions/{x}/{y} - Describe one coordinate
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Get one configuration
//   - POST /api/configs - Save a configuration
//
// Deploy body:
//
//	{"x": 1, "y": 1, "orientation": "E", "instructions": "RFRFRFRF"}
//
// Script body, one record per line:
//
//	{"script": "5 3\n1 1 E\nRFRFRFRF\n3 2 N\nFRRFLLFFRRFLL"}
//
// A script that hits a malformed line still returns 200; the response has
// completed=false and names the stopping line and reason.
//
// Errors are returned as JSON with 400 for malformed input, 404 for an
// unknown session or config and 500 otherwise:
//
//	{"error": "session not found"}
//
// Mutating endpoints push the new mission state and its events to WebSocket
// clients watching the session on /ws?session={id}.
package api
