package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mars-rovers/game/engine"
	"github.com/wricardo/mars-rovers/game/input"
)

// missionServiceImpl implements the MissionService interface
type missionServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewMissionService creates a new mission service instance
func NewMissionService(sessions SessionManager, configs ConfigManager) MissionService {
	return &missionServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *missionServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *missionServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return sess, nil
}

// touchSession loads a session and bumps its last accessed time. Callers
// must hold the write lock since readers of the session run under RLock.
func (s *missionServiceImpl) touchSession(sessionID string) (*Session, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *missionServiceImpl) persist(sessionID string) {
	if err := s.sessions.Save(sessionID); err != nil {
		Logf("Warning: failed to persist session %s: %v", sessionID, err)
	}
}

func (s *missionServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		MissionState:   snapshot(sess.Engine.GetState()),
		MissionConfig:  sess.Config,
	}
}

// CreateSession creates a new mission session
func (s *missionServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.MissionConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let the session manager generate the ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.sessionInfo(sess, configName), nil
}

// GetSession retrieves session information
func (s *missionServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, ""), nil
}

// ListSessions returns all active sessions
func (s *missionServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, ""))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *missionServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Deploy lands one rover on the session grid and runs its instructions
func (s *missionServiceImpl) Deploy(ctx context.Context, sessionID string, req DeployRequest) (*DeployResult, error) {
	orientation, err := engine.ParseOrientation(strings.ToUpper(strings.TrimSpace(req.Orientation)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	program, err := engine.ParseInstructions(strings.ToUpper(strings.TrimSpace(req.Instructions)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(program) == 0 {
		return nil, fmt.Errorf("%w: instructions are required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touchSession(sessionID)
	if err != nil {
		return nil, err
	}

	start := engine.NewRover(req.X, req.Y, orientation)
	if !sess.Engine.Grid().InBounds(start.Position()) {
		return nil, fmt.Errorf("%w: start %d %d is outside the %dx%d grid",
			ErrInvalidRequest, req.X, req.Y, sess.Engine.Grid().Width, sess.Engine.Grid().Height)
	}

	report := sess.Engine.Deploy(start, program)
	s.persist(sessionID)

	message := fmt.Sprintf("Rover %d finished at %s", report.Sequence, report.String())
	if report.Final.Lost {
		message = fmt.Sprintf("Rover %d lost off the grid at %d %d", report.Sequence, report.Final.X, report.Final.Y)
	}

	return &DeployResult{
		Success:      !report.Final.Lost,
		Report:       report,
		Output:       report.String(),
		MissionState: snapshot(sess.Engine.GetState()),
		Message:      message,
		Events:       reportEvents(report),
	}, nil
}

// RunScript feeds a multi-line record script through the session. Grid
// records replace the session grid, rover records set the current rover and
// instruction records deploy it. The run stops at the first bad record;
// rovers deployed before it are kept.
func (s *missionServiceImpl) RunScript(ctx context.Context, sessionID, script string) (*ScriptResult, error) {
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("%w: script is empty", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touchSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &ScriptResult{
		Reports:   []engine.Report{},
		Output:    []string{},
		Completed: true,
	}
	state := input.State{Grid: sess.Engine.Grid()}

	for i, line := range strings.Split(script, "\n") {
		if err := ctx.Err(); err != nil {
			result.Completed = false
			result.StoppedOnLine = i + 1
			result.StoppedReason = err.Error()
			break
		}

		rec, err := input.Parse(line)
		if err == nil {
			state, err = s.applyRecord(sess, state, rec, result)
		}
		if err != nil {
			lineErr := &input.LineError{Line: i + 1, Text: strings.TrimSpace(line), Err: err}
			result.Completed = false
			result.StoppedOnLine = lineErr.Line
			result.StoppedReason = lineErr.Error()
			break
		}
		if rec != nil {
			result.LinesProcessed++
		}
	}

	s.persist(sessionID)
	result.MissionState = snapshot(sess.Engine.GetState())
	return result, nil
}

func (s *missionServiceImpl) applyRecord(sess *Session, state input.State, rec input.Record, result *ScriptResult) (input.State, error) {
	program, ok := rec.(input.ProgramRecord)
	if !ok {
		next, _, err := state.Apply(rec)
		if err != nil {
			return state, err
		}
		if next.Grid != state.Grid {
			if err := sess.Engine.SetGrid(next.Grid); err != nil {
				return state, err
			}
			result.Events = append(result.Events, MissionEvent{
				Type:      EventGridReplaced,
				Message:   fmt.Sprintf("Grid replaced with %dx%d, lost memory cleared", next.Grid.Width, next.Grid.Height),
				Timestamp: time.Now(),
			})
		}
		return next, nil
	}

	if state.Rover == nil {
		return state, input.ErrNoRover
	}

	report := sess.Engine.Deploy(*state.Rover, program.Program)
	result.Reports = append(result.Reports, report)
	result.Output = append(result.Output, report.String())
	result.Events = append(result.Events, reportEvents(report)...)
	return state, nil
}

// RunPlan deploys every rover listed in the session's configuration
func (s *missionServiceImpl) RunPlan(ctx context.Context, sessionID string) (*PlanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touchSession(sessionID)
	if err != nil {
		return nil, err
	}

	reports, err := sess.Engine.RunPlan()
	if err != nil {
		return nil, fmt.Errorf("failed to run plan: %w", err)
	}
	s.persist(sessionID)

	result := &PlanResult{
		Reports:      reports,
		Output:       make([]string, 0, len(reports)),
		MissionState: snapshot(sess.Engine.GetState()),
	}
	for _, r := range reports {
		result.Output = append(result.Output, r.String())
		result.Events = append(result.Events, reportEvents(r)...)
	}
	return result, nil
}

// Reset restores the session grid to its configuration
func (s *missionServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.MissionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touchSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	s.persist(sessionID)

	return snapshot(state), nil
}

// GetMissionState returns the current mission state
func (s *missionServiceImpl) GetMissionState(ctx context.Context, sessionID string) (*engine.MissionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot(sess.Engine.GetState()), nil
}

// GetReports returns paginated rover reports
func (s *missionServiceImpl) GetReports(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetReports()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	reports := []engine.Report{}
	if opts.Page > totalPages {
		return &HistoryResponse{
			Reports:      reports,
			TotalReports: total,
			Page:         opts.Page,
			PageSize:     opts.Limit,
			TotalPages:   totalPages,
			HasPrevious:  true,
		}, nil
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			reports = append(reports, history[i])
		}
	} else if start < total {
		reports = append(reports, history[start:end]...)
	}

	return &HistoryResponse{
		Reports:      reports,
		TotalReports: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// DescribePosition explains what the session grid knows about a coordinate
func (s *missionServiceImpl) DescribePosition(ctx context.Context, sessionID string, p engine.Position) (*engine.PositionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	info := sess.Engine.DescribePosition(p)
	return &info, nil
}

// ListConfigs returns available mission configurations
func (s *missionServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific mission configuration
func (s *missionServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.MissionConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a mission configuration to disk
func (s *missionServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.MissionConfig) error {
	if err := s.configs.SaveConfig(configName, config); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// reportEvents turns one rover report into the events clients see
func reportEvents(report engine.Report) []MissionEvent {
	now := time.Now()
	events := []MissionEvent{{
		Type:      EventDeploy,
		Message:   fmt.Sprintf("Rover %d deployed at %s with %q", report.Sequence, engine.FormatRover(report.Start), report.Instructions),
		Timestamp: now,
		Position:  report.Start.Position(),
	}}

	for _, step := range report.Steps {
		if step.Outcome == engine.OutcomeIgnored {
			events = append(events, MissionEvent{
				Type:      EventSaved,
				Message:   fmt.Sprintf("Rover %d ignored instruction %d at known lost position %d %d", report.Sequence, step.Idx, step.From.X, step.From.Y),
				Timestamp: now,
				Position:  step.From,
			})
		}
	}

	if report.Final.Lost {
		events = append(events, MissionEvent{
			Type:      EventLost,
			Message:   fmt.Sprintf("Rover %d lost at %s", report.Sequence, report.String()),
			Timestamp: now,
			Position:  report.Final.Position(),
		})
	} else {
		events = append(events, MissionEvent{
			Type:      EventMove,
			Message:   fmt.Sprintf("Rover %d finished at %s", report.Sequence, report.String()),
			Timestamp: now,
			Position:  report.Final.Position(),
		})
	}
	return events
}

// snapshot copies a mission state so callers can encode it after the lock
// is released
func snapshot(state *engine.MissionState) *engine.MissionState {
	if state == nil {
		return nil
	}
	cp := *state
	if state.Grid != nil {
		cp.Grid = state.Grid.Clone()
	}
	cp.Reports = make([]engine.Report, len(state.Reports))
	copy(cp.Reports, state.Reports)
	return &cp
}
