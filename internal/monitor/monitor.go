package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zkplatoon/platoon/pkg/core"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Snapshot func() core.Snapshot
	// Pending reports recorder events not yet written. Optional.
	Pending    func() int
	StatusPath string
	Interval   time.Duration
	Logger     *slog.Logger
}

// Status is the document written to StatusPath.
type Status struct {
	Time          time.Time     `json:"time"`
	State         core.RunState `json:"state"`
	Tick          uint64        `json:"tick"`
	FaultCounter  int           `json:"faultCounter"`
	Faulty        []string      `json:"faulty"`
	Labels        []string      `json:"labels"`
	PendingWrites int           `json:"pendingWrites"`
}

// Service manages status monitoring
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
		deps.Interval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current platoon status
func (s *Service) GetStatus() Status {
	snap := s.deps.Snapshot()
	st := Status{
		Time:         snap.Time,
		State:        snap.State,
		Tick:         snap.Tick,
		FaultCounter: snap.Counter,
		Faulty:       []string{},
		Labels:       make([]string, 0, len(snap.Entities)),
	}
	for _, e := range snap.Entities {
		st.Labels = append(st.Labels, e.Label)
		if e.Faulty {
			st.Faulty = append(st.Faulty, e.ID.Name())
		}
	}
	if s.deps.Pending != nil {
		st.PendingWrites = s.deps.Pending()
	}
	return st
}

// WriteStatus replaces StatusPath with the current status.
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.deps.StatusPath), 0755); err != nil {
		return fmt.Errorf("error creating status directory: %w", err)
	}
	tmp := s.deps.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("error writing status file: %w", err)
	}
	return os.Rename(tmp, s.deps.StatusPath)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.deps.StatusPath == "" {
		s.mu.Unlock()
		return fmt.Errorf("status path not set")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "path", s.deps.StatusPath, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its goroutine.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()
	<-done
}
