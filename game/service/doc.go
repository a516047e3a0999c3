// Package service provides the business logic layer for the Mars Rovers
// mission server.
//
// The service package implements:
//   - Multi-session mission management
//   - Rover deployment, record scripts and configured rover plans
//   - Paginated report history
//   - Configuration listing, loading and saving
//
// Core Interfaces:
//
// MissionService is the main service interface providing high-level mission
// operations. SessionManager handles session creation, retrieval, and
// lifecycle. ConfigManager manages mission configuration loading.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine. Each session owns one grid, so rovers deployed in the same
// session share its lost-position memory. All mutations go through a single
// service lock, which means rovers are applied to a grid one at a time.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	missionService := service.NewMissionService(sessionMgr, configMgr)
//
//	info, err := missionService.CreateSession(ctx, "sample")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := missionService.Deploy(ctx, info.ID, service.DeployRequest{
//		X: 1, Y: 1, Orientation: "E", Instructions: "RFRFRFRF",
//	})
//	fmt.Println(result.Output) // 1 1 E
package service
