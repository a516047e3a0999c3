package session

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mars-rovers/game/config"
	"github.com/wricardo/mars-rovers/game/engine"
	"github.com/wricardo/mars-rovers/game/service"
)

func init() {
	service.SetLogger(nil)
}

func newConfigManager(t *testing.T) *config.Manager {
	t.Helper()
	manager, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	return manager
}

// backends returns a fresh instance of every persistence implementation
func backends(t *testing.T, configs service.ConfigManager) map[string]SessionPersistence {
	t.Helper()

	file, err := NewFilePersistence(t.TempDir(), configs)
	require.NoError(t, err)

	db, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "sessions.db"), configs)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]SessionPersistence{
		"file":   file,
		"sqlite": db,
	}
}

func newTestSession(t *testing.T, id string) *service.Session {
	t.Helper()
	cfg := createTestConfig()
	eng, err := engine.NewEngine(cfg)
	require.NoError(t, err)
	now := time.Now().Truncate(time.Millisecond)
	return &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         cfg,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	for name, p := range backends(t, newConfigManager(t)) {
		t.Run(name, func(t *testing.T) {
			sess := newTestSession(t, "ab12")

			// one rover lost at 3 3, one saved by its memory
			sess.Engine.Deploy(engine.NewRover(3, 2, engine.North), mustProgram(t, "FRRFLLFFRRFLL"))
			sess.Engine.Deploy(engine.NewRover(0, 3, engine.West), mustProgram(t, "LLFFFLFLFL"))

			require.NoError(t, p.Save(sess))
			assert.True(t, p.Exists("ab12"))
			assert.True(t, p.Exists("AB12"), "IDs are case-insensitive")

			loaded, err := p.Load("ab12")
			require.NoError(t, err)

			assert.Equal(t, sess.ID, loaded.ID)
			assert.Equal(t, sess.Config.Name, loaded.Config.Name)
			assert.True(t, sess.CreatedAt.Equal(loaded.CreatedAt))

			state := loaded.Engine.GetState()
			assert.Equal(t, 2, state.TotalRovers)
			assert.Equal(t, 1, state.LostRovers)
			assert.Equal(t, 1, state.Saves)
			assert.Equal(t, []engine.Position{{X: 3, Y: 3}}, state.Grid.LostPositions())

			// the restored memory still saves later rovers
			report := loaded.Engine.Deploy(engine.NewRover(3, 3, engine.North), mustProgram(t, "F"))
			assert.Equal(t, "3 3 N", report.String())
			assert.Equal(t, 3, report.Sequence)
		})
	}
}

func TestPersistence_Overwrite(t *testing.T) {
	for name, p := range backends(t, newConfigManager(t)) {
		t.Run(name, func(t *testing.T) {
			sess := newTestSession(t, "over")
			require.NoError(t, p.Save(sess))

			sess.Engine.Deploy(engine.NewRover(1, 1, engine.East), mustProgram(t, "RFRFRFRF"))
			require.NoError(t, p.Save(sess))

			loaded, err := p.Load("over")
			require.NoError(t, err)
			assert.Len(t, loaded.Engine.GetReports(), 1)

			ids, err := p.ListAll()
			require.NoError(t, err)
			assert.Equal(t, []string{"over"}, ids)
		})
	}
}

func TestPersistence_DeleteAndList(t *testing.T) {
	for name, p := range backends(t, newConfigManager(t)) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"s1", "s2", "s3"} {
				require.NoError(t, p.Save(newTestSession(t, id)))
			}

			ids, err := p.ListAll()
			require.NoError(t, err)
			sort.Strings(ids)
			assert.Equal(t, []string{"s1", "s2", "s3"}, ids)

			require.NoError(t, p.Delete("s2"))
			assert.False(t, p.Exists("s2"))
			assert.ErrorIs(t, p.Delete("s2"), ErrSessionNotFound)

			_, err = p.Load("s2")
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestPersistence_SaveNil(t *testing.T) {
	for name, p := range backends(t, newConfigManager(t)) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, p.Save(nil))
		})
	}
}

func TestFilePersistence_FileStructure(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersistence(dir, newConfigManager(t))
	require.NoError(t, err)

	require.NoError(t, p.Save(newTestSession(t, "file1")))

	data, err := os.ReadFile(filepath.Join(dir, "file1.json"))
	require.NoError(t, err)

	for _, field := range []string{`"id"`, `"config_name"`, `"mission_config"`, `"mission_state"`, `"lost_positions"`} {
		assert.Contains(t, string(data), field)
	}

	// no temp file is left behind
	_, err = os.Stat(filepath.Join(dir, "file1.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFilePersistence_LoadByConfigName(t *testing.T) {
	dir := t.TempDir()
	configs := newConfigManager(t)
	p, err := NewFilePersistence(dir, configs)
	require.NoError(t, err)

	// older files carry only the config name
	legacy := `{"id":"old1","config_name":"sample","mission_state":{"grid":{"width":5,"height":3,"lost_positions":[{"x":3,"y":3}]},"reports":[]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old1.json"), []byte(legacy), 0644))

	loaded, err := p.Load("old1")
	require.NoError(t, err)
	assert.Equal(t, configs.GetDefault().Name, loaded.Config.Name)
	assert.True(t, loaded.Engine.Grid().IsLostPosition(engine.Position{X: 3, Y: 3}))
}

func TestFilePersistence_RejectsDegenerateGrid(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersistence(dir, newConfigManager(t))
	require.NoError(t, err)

	tampered := `{"id":"bad1","config_name":"sample","mission_state":{"grid":{"width":0,"height":3,"lost_positions":[]},"reports":[]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad1.json"), []byte(tampered), 0644))

	_, err = p.Load("bad1")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidGrid)
}

func TestManagerWithPersistence(t *testing.T) {
	for name, p := range backends(t, newConfigManager(t)) {
		t.Run(name, func(t *testing.T) {
			manager := NewManagerWithPersistence(p)
			cfg := createTestConfig()

			sess, err := manager.Create("", cfg)
			require.NoError(t, err)
			assert.True(t, p.Exists(sess.ID), "Create persists the session")

			sess.Engine.Deploy(engine.NewRover(3, 2, engine.North), mustProgram(t, "FRRFLLFFRRFLL"))
			require.NoError(t, manager.Save(sess.ID))

			// a fresh manager finds the session through persistence
			restarted := NewManagerWithPersistence(p)
			got, err := restarted.Get(sess.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, got.Engine.GetState().LostRovers)

			// LoadPersistedSessions fills memory up front
			warm := NewManagerWithPersistence(p)
			require.NoError(t, warm.LoadPersistedSessions())
			assert.Equal(t, 1, warm.Count())

			// DeleteFromMemory keeps the stored copy
			require.NoError(t, warm.DeleteFromMemory(sess.ID))
			assert.True(t, p.Exists(sess.ID))

			// Delete removes both
			require.NoError(t, restarted.Delete(sess.ID))
			assert.False(t, p.Exists(sess.ID))
			_, err = restarted.Get(sess.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestManager_SaveAllSessions(t *testing.T) {
	for name, p := range backends(t, newConfigManager(t)) {
		t.Run(name, func(t *testing.T) {
			manager := NewManagerWithPersistence(p)
			for _, id := range []string{"m1", "m2"} {
				_, err := manager.Create(id, createTestConfig())
				require.NoError(t, err)
			}
			require.NoError(t, manager.SaveAllSessions())

			ids, err := p.ListAll()
			require.NoError(t, err)
			assert.Len(t, ids, 2)
			assert.NoError(t, manager.Close())
		})
	}
}

func mustProgram(t *testing.T, s string) []engine.Instruction {
	t.Helper()
	program, err := engine.ParseInstructions(s)
	require.NoError(t, err)
	return program
}
