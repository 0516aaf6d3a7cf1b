package monitor

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperleonid/Calc-sub001/internal/logging"
)

func TestService_WritesStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	var calls atomic.Int32
	s := NewService(Dependencies{
		Status: func() (any, error) {
			calls.Add(1)
			return map[string]any{"phaseIndex": 2}, nil
		},
		LogManager: logging.NewSlogManager(),
		StatusPath: path,
		Interval:   10 * time.Millisecond,
	})

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out struct {
		Status map[string]any `json:"status"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 2.0, out.Status["phaseIndex"])
}

func TestService_StatusErrorKeepsRunning(t *testing.T) {
	var calls atomic.Int32
	s := NewService(Dependencies{
		Status: func() (any, error) {
			calls.Add(1)
			return nil, errors.New("no plan")
		},
		LogManager: logging.NewSlogManager(),
		StatusPath: filepath.Join(t.TempDir(), "status.json"),
		Interval:   5 * time.Millisecond,
	})
	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestService_StartFailsOnBadPath(t *testing.T) {
	s := NewService(Dependencies{StatusPath: filepath.Join(t.TempDir(), "missing", "status.json")})
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
	s.Stop()
}
