package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sniperleonid/Calc-sub001/internal/logging"
)

// DefaultInterval is the status refresh period.
const DefaultInterval = time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Status     func() (any, error)
	LogManager *logging.SlogManager
	StatusPath string
	Interval   time.Duration
}

// Service rewrites a status file with the session state on every tick.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// WriteStatus replaces the contents of f with the current status.
func (s *Service) WriteStatus(f *os.File) error {
	status, err := s.deps.Status()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(struct {
		Time   time.Time `json:"time"`
		Status any       `json:"status"`
	}{time.Now().UTC(), status}, "", "  ")
	if err != nil {
		b = []byte(fmt.Sprintf(`{"error": %q}`, err))
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(b, '\n'))
	return err
}

// Start creates the status file and starts the monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	statusFile, err := os.Create(s.deps.StatusPath)
	if err != nil {
		return fmt.Errorf("error creating status file: %w", err)
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer func() {
			statusFile.Close()
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(s.done)
		}()

		s.deps.LogManager.WriteLog("startStatusMonitor", "Starting status monitor goroutine", "DEBUG")
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			if err := s.WriteStatus(statusFile); err != nil {
				s.deps.LogManager.WriteLog("startStatusMonitor", fmt.Sprintf("Error writing status: %v", err), "ERROR")
			}
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the final write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	stop, done := s.stopChan, s.done
	s.stopChan = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	<-done
}
