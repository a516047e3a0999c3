// Package mcp exposes the Mars Rovers REST API as Model Context Protocol tools.
//
// Client is a thin proxy: every tool call becomes one or more REST requests
// against a running server, and the JSON responses are rendered as text for
// the agent.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - mission_state: grid map, lost positions and counters
//   - deploy_rover: one rover with start and instruction string
//   - run_script: newline separated records
//   - run_plan: the config's planned rovers
//   - reset_mission
//   - rover_reports: paginated reports
//   - list_configs
//   - mission_instructions
//   - describe_position
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
