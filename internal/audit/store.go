package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/config"
	"github.com/aegisshield/biometric-engine/internal/forensic"
)

// Store is the process-local, append-only buffer of recognition log entries
// awaiting hand-off to the external audit layer. Entries are batched before
// they become queryable and expired by the retention loop; they are never
// mutated.
type Store struct {
	config    config.AuditConfig
	logger    *zap.Logger
	entries   []*forensic.RecognitionLogEntry
	index     map[string]*forensic.RecognitionLogEntry
	batch     []*forensic.RecognitionLogEntry
	lastFlush time.Time
	mu        sync.RWMutex
	running   bool
	stopChan  chan struct{}
}

// Filters restricts a log query. Zero values match everything.
type Filters struct {
	OperatorID string     `json:"operatorId,omitempty"`
	CaseID     string     `json:"caseId,omitempty"`
	MatchFound *bool      `json:"matchFound,omitempty"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// Statistics summarizes the stored entries.
type Statistics struct {
	TotalEntries   int            `json:"totalEntries"`
	MatchesFound   int            `json:"matchesFound"`
	OperatorCounts map[string]int `json:"operatorCounts"`
	CaseCounts     map[string]int `json:"caseCounts"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

// NewStore creates a new recognition log store.
func NewStore(cfg config.AuditConfig, logger *zap.Logger) *Store {
	return &Store{
		config:    cfg,
		logger:    logger.Named("audit_store"),
		index:     make(map[string]*forensic.RecognitionLogEntry),
		batch:     make([]*forensic.RecognitionLogEntry, 0, cfg.BatchSize),
		lastFlush: time.Now(),
		stopChan:  make(chan struct{}),
	}
}

// Start starts the background flush and retention loops.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("audit store is already running")
	}

	s.logger.Info("Starting audit store")

	// Fresh channel each start so the store can be restarted after Stop.
	// The loops receive it as an argument so a later restart cannot race
	// with loops from a previous run.
	s.stopChan = make(chan struct{})
	go s.flushLoop(ctx, s.stopChan)
	go s.retentionLoop(ctx, s.stopChan)

	s.running = true
	return nil
}

// Stop stops the store, flushing any pending batch.
func (s *Store) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("Stopping audit store")

	close(s.stopChan)
	s.flushBatchLocked()
	s.running = false

	return nil
}

// Append adds one entry. The entry joins the pending batch and becomes
// queryable after the next flush, or immediately when the batch is full.
func (s *Store) Append(ctx context.Context, entry *forensic.RecognitionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("audit store is not running")
	}

	if _, exists := s.index[entry.LogID]; exists {
		return fmt.Errorf("duplicate log id %s", entry.LogID)
	}

	s.batch = append(s.batch, entry)
	s.index[entry.LogID] = entry

	if len(s.batch) >= s.config.BatchSize {
		s.flushBatchLocked()
	}

	return nil
}

// Get returns the entry with the given log id.
func (s *Store) Get(logID string) (*forensic.RecognitionLogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.index[logID]
	return entry, ok
}

// Query returns entries matching the filters, newest first. Pending batch
// entries are included.
func (s *Store) Query(filters Filters) []*forensic.RecognitionLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*forensic.RecognitionLogEntry, 0)
	for _, entry := range s.entries {
		if matchesFilters(entry, filters) {
			matched = append(matched, entry)
		}
	}
	for _, entry := range s.batch {
		if matchesFilters(entry, filters) {
			matched = append(matched, entry)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return []*forensic.RecognitionLogEntry{}
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}

	return matched
}

// GetStatistics summarizes all stored entries.
func (s *Store) GetStatistics() *Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Statistics{
		OperatorCounts: make(map[string]int),
		CaseCounts:     make(map[string]int),
		GeneratedAt:    time.Now().UTC(),
	}

	count := func(entry *forensic.RecognitionLogEntry) {
		stats.TotalEntries++
		stats.OperatorCounts[entry.Operator.UserID]++
		if entry.Forensic.CaseID != "" {
			stats.CaseCounts[entry.Forensic.CaseID]++
		}
		if entry.Result != nil && entry.Result.MatchFound {
			stats.MatchesFound++
		}
	}
	for _, entry := range s.entries {
		count(entry)
	}
	for _, entry := range s.batch {
		count(entry)
	}

	return stats
}

// Len returns the number of stored entries, including the pending batch.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries) + len(s.batch)
}

func (s *Store) flushLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if len(s.batch) > 0 && time.Since(s.lastFlush) >= s.config.FlushInterval {
				s.flushBatchLocked()
			}
			s.mu.Unlock()
		}
	}
}

func (s *Store) retentionLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.enforceRetention()
		}
	}
}

func (s *Store) flushBatchLocked() {
	if len(s.batch) == 0 {
		return
	}

	s.entries = append(s.entries, s.batch...)

	s.logger.Debug("Flushed recognition log batch", zap.Int("count", len(s.batch)))

	s.batch = s.batch[:0]
	s.lastFlush = time.Now()
}

func (s *Store) enforceRetention() {
	if s.config.RetentionPeriod <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.config.RetentionPeriod)
	kept := s.entries[:0]
	expired := 0
	for _, entry := range s.entries {
		if entry.Timestamp.Before(cutoff) {
			delete(s.index, entry.LogID)
			expired++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept

	if expired > 0 {
		s.logger.Info("Expired recognition log entries", zap.Int("count", expired))
	}
}

func matchesFilters(entry *forensic.RecognitionLogEntry, filters Filters) bool {
	if filters.OperatorID != "" && entry.Operator.UserID != filters.OperatorID {
		return false
	}
	if filters.CaseID != "" && entry.Forensic.CaseID != filters.CaseID {
		return false
	}
	if filters.MatchFound != nil {
		found := entry.Result != nil && entry.Result.MatchFound
		if found != *filters.MatchFound {
			return false
		}
	}
	if filters.StartTime != nil && entry.Timestamp.Before(*filters.StartTime) {
		return false
	}
	if filters.EndTime != nil && entry.Timestamp.After(*filters.EndTime) {
		return false
	}
	return true
}
