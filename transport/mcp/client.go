package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mars-rovers/game/engine"
	"github.com/wricardo/mars-rovers/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Mars Rovers Mission Control",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Mars Rovers Mission Control - MCP Interface

This is a thin client that proxies all requests to the REST API server.

MISSION:
Rovers are deployed one at a time onto a rectangular grid and driven with
L (turn left), R (turn right) and F (forward). A rover that drives off the
grid is LOST, and its last position is remembered: later rovers ignore an
F that would take them off the grid from that same position.

AVAILABLE TOOLS:
- create_session: Create a new mission session
- list_sessions: List all sessions
- get_session: Get session details
- mission_state: Grid, lost positions and counters
- deploy_rover: Deploy one rover with a start and instruction string
- run_script: Run a record script (grid line, rover lines, instruction lines)
- run_plan: Deploy the rovers listed in the session's configuration
- reset_mission: Restore the configured grid and clear reports
- rover_reports: Paginated rover reports
- list_configs: List available mission configurations
- mission_instructions: Full rules and input format
- describe_position: Inspect one grid coordinate`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new mission session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the config to use (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all mission sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Mission operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "mission_state",
		Description: "Get the grid, lost positions and rover counters of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleMissionState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "deploy_rover",
		Description: "Deploy one rover at x,y facing an orientation and run its instructions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Start X coordinate",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Start Y coordinate",
				},
				"orientation": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"N", "E", "S", "W"},
					"description": "Start orientation",
				},
				"instructions": map[string]interface{}{
					"type":        "string",
					"description": "Instruction string made of L, R and F (e.g. FRRFLLFFRRFLL)",
				},
			},
			Required: []string{"session_id", "x", "y", "orientation", "instructions"},
		},
	}, c.handleDeployRover)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_script",
		Description: "Run a multi-line record script: an optional grid line \"W H\", rover lines \"X Y O\" and instruction lines",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"script": map[string]interface{}{
					"type":        "string",
					"description": "Newline separated records",
				},
			},
			Required: []string{"session_id", "script"},
		},
	}, c.handleRunScript)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_plan",
		Description: "Deploy the rovers listed in the session's configuration",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRunPlan)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_mission",
		Description: "Reset the mission to its configured grid and clear all reports",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rover_reports",
		Description: "Get rover reports for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Deployment order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRoverReports)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available mission configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "mission_instructions",
		Description: "Get the complete mission rules and input format",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleMissionInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_position",
		Description: "Describe one grid coordinate: whether it is inside the grid, on an edge, or a remembered lost position",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribePosition)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func toolArgs(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	configName, _ := args["config_name"].(string)

	body := map[string]string{}
	if configName != "" {
		body["config_name"] = configName
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.MissionState != nil {
		result += "\n" + formatMissionState(session.MissionState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		rovers := 0
		if s.MissionState != nil {
			rovers = s.MissionState.TotalRovers
		}
		result += fmt.Sprintf("- %s (Config: %s, Rovers: %d, Created: %s)\n",
			s.ID, s.ConfigName, rovers, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := toolArgs(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleMissionState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := toolArgs(request)["session_id"].(string)

	var state engine.MissionState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMissionState(&state)), nil
}

func (c *Client) handleDeployRover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y must be integers"), nil
	}
	orientation, _ := args["orientation"].(string)
	instructions, _ := args["instructions"].(string)

	body := service.DeployRequest{
		X:            x,
		Y:            y,
		Orientation:  orientation,
		Instructions: instructions,
	}

	var result service.DeployResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/rovers"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDeployResult(&result)), nil
}

func (c *Client) handleRunScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	script, _ := args["script"].(string)

	var result service.ScriptResult
	body := map[string]string{"script": script}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/script"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatScriptResult(&result)), nil
}

func (c *Client) handleRunPlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := toolArgs(request)["session_id"].(string)

	var result service.PlanResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/plan"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Deployed %d planned rovers:\n", len(result.Reports))
	for _, line := range result.Output {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + formatMissionState(result.MissionState))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := toolArgs(request)["session_id"].(string)

	var response struct {
		Message string               `json:"message"`
		State   *engine.MissionState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatMissionState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRoverReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/reports")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatReports(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, config := range configs {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Grid: %dx%d, Lost positions: %d, Planned rovers: %d\n\n",
			config.Name, config.ConfigID, config.Description,
			config.Width, config.Height, config.SeededLost, config.PlannedRovers)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMissionInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Mars Rovers Mission Control - Complete Instructions

THE GRID:
• The grid spans 0..W on x and 0..H on y, inclusive; "5 3" is 6 columns by 4 rows
• x grows to the East, y grows to the North
• Positions a rover was lost from are remembered for the rest of the mission

ROVER COMMANDS:
• L - turn 90° left, position unchanged
• R - turn 90° right, position unchanged
• F - move one cell in the facing direction
  N: y+1   E: x+1   S: y-1   W: x-1

LOST ROVERS:
• A rover that moves off the grid is LOST at its last on-grid position
• It stops executing its remaining instructions
• Its last position is remembered; a later rover standing on that position
  ignores any F that would take it off the grid (a "save")
• Turns are never ignored, and moves that stay on the grid are never ignored

OUTPUT FORMAT:
• One line per rover: "<x> <y> <orientation>"
• Lost rovers append " LOST", e.g. "3 3 N LOST"

SCRIPT FORMAT (run_script):
• A line with two numbers sets the grid: "5 3"
• A line with three tokens places a rover: "1 1 E"
• Any other single-token line is an instruction string: "RFRFRFRF"
• The same rover definition is re-used by later instruction lines
• A line with any other token count stops the script with an error

EXAMPLE:
  5 3
  1 1 E
  RFRFRFRF
  3 2 N
  FRRFLLFFRRFLL
  0 3 W
  LLFFFLFLFL
produces
  1 1 E
  3 3 N LOST
  2 3 S

SESSIONS:
• Each session has its own grid and lost-position memory
• Session IDs are short case-insensitive strings
• reset_mission restores the configured grid and clears reports
• run_plan deploys the rovers listed in the session's configuration`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribePosition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y must be integers"), nil
	}

	var info engine.PositionInfo
	path := sessionPath(sessionID, fmt.Sprintf("/positions/%d/%d", x, y))
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPositionInfo(&info)), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatMissionState(session.MissionState))
}

// formatMissionState renders counters and a map with north at the top.
// X marks a lost position; a surviving rover's final cell shows its heading.
func formatMissionState(state *engine.MissionState) string {
	if state == nil || state.Grid == nil {
		return "No mission state available"
	}

	var b strings.Builder
	g := state.Grid

	fmt.Fprintf(&b, "Grid: %d %d | Rovers: %d | Lost: %d | Saves: %d\n",
		g.Width, g.Height, state.TotalRovers, state.LostRovers, state.Saves)

	lost := g.LostPositions()
	if len(lost) > 0 {
		parts := make([]string, len(lost))
		for i, p := range lost {
			parts[i] = fmt.Sprintf("(%d,%d)", p.X, p.Y)
		}
		fmt.Fprintf(&b, "Lost positions: %s\n", strings.Join(parts, " "))
	}
	b.WriteString("\n")

	finals := make(map[engine.Position]engine.Orientation)
	for _, r := range state.Reports {
		if !r.Final.Lost {
			finals[r.Final.Position()] = r.Final.Orientation
		}
	}

	for y := g.Height; y >= 0; y-- {
		for x := 0; x <= g.Width; x++ {
			p := engine.Position{X: x, Y: y}
			switch o, ok := finals[p]; {
			case g.IsLostPosition(p):
				b.WriteString("X")
			case ok:
				b.WriteString(string(o))
			default:
				b.WriteString(".")
			}
		}
		b.WriteString("\n")
	}

	if len(state.Reports) > 0 {
		b.WriteString("\nRover results:\n")
		for _, r := range state.Reports {
			fmt.Fprintf(&b, "%d. %s\n", r.Sequence, r.String())
		}
	}

	return b.String()
}

func formatDeployResult(result *service.DeployResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Rover survived\n")
	} else {
		b.WriteString("✗ Rover lost\n")
	}
	fmt.Fprintf(&b, "Output: %s\n", result.Output)
	if result.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", result.Message)
	}
	rep := result.Report
	fmt.Fprintf(&b, "Executed %d of %d instructions, saves: %d\n",
		rep.Executed, len(rep.Instructions), rep.Saves)

	for _, step := range rep.Steps {
		fmt.Fprintf(&b, "  %d. %s (%d,%d)->(%d,%d) %s %s\n",
			step.Idx, step.Instruction, step.From.X, step.From.Y, step.To.X, step.To.Y,
			step.Orientation, step.Outcome)
	}
	return b.String()
}

func formatScriptResult(result *service.ScriptResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d records, deployed %d rovers\n", result.LinesProcessed, len(result.Reports))
	if len(result.Output) > 0 {
		b.WriteString("\nOutput:\n")
		for _, line := range result.Output {
			b.WriteString(line + "\n")
		}
	}
	if !result.Completed {
		fmt.Fprintf(&b, "\nStopped on line %d: %s\n", result.StoppedOnLine, result.StoppedReason)
	}
	return b.String()
}

func formatReports(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rover Reports (Page %d/%d), Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalReports)

	for _, r := range history.Reports {
		fmt.Fprintf(&b, "%d. start %s program %s -> %s [saves: %d]\n",
			r.Sequence, engine.FormatRover(r.Start), r.Instructions, r.String(), r.Saves)
	}
	if history.HasNext {
		b.WriteString("\n(more reports on the next page)\n")
	}
	return b.String()
}

func formatPositionInfo(info *engine.PositionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Position (%d,%d)\n", info.Position.X, info.Position.Y)
	fmt.Fprintf(&b, "In bounds: %t\n", info.InBounds)
	fmt.Fprintf(&b, "Edge: %t\n", info.Edge)
	fmt.Fprintf(&b, "Lost position: %t\n", info.LostPosition)
	if info.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", info.Description)
	}
	return b.String()
}
