package repository

import (
	"sync"
	"time"

	"ecosort_service/internal/domain/model"
)

// LogFilter narrows down which session log entries are returned.
type LogFilter struct {
	Limit    int
	Classes  []string
	Category model.Category
	Start    time.Time
	End      time.Time
}

// LogStore keeps the detection log for the current session in memory.
// Safe for concurrent use by the request handlers.
type LogStore struct {
	mu        sync.RWMutex
	entries   []model.LogEntry
	sessionID string
}

func NewLogStore() *LogStore {
	return &LogStore{
		sessionID: newSessionID(),
	}
}

func newSessionID() string {
	return time.Now().Format("20060102_150405")
}

func (s *LogStore) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Add appends one detection to the session log and returns the entry.
func (s *LogStore) Add(d model.Detection) model.LogEntry {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	entry := model.LogEntry{
		ID:            len(s.entries) + 1,
		Timestamp:     now,
		FormattedTime: now.Format("2006-01-02 15:04:05"),
		ClassName:     d.ClassName,
		Category:      d.Category,
		Confidence:    d.Confidence,
		Box:           d.Box,
		SessionID:     s.sessionID,
	}
	s.entries = append(s.entries, entry)
	return entry
}

// AddBatch appends all detections of one inference call.
func (s *LogStore) AddBatch(detections []model.Detection) []model.LogEntry {
	entries := make([]model.LogEntry, 0, len(detections))
	for _, d := range detections {
		entries = append(entries, s.Add(d))
	}
	return entries
}

// Entries returns filtered log entries, newest first.
func (s *LogStore) Entries(filter LogFilter) []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	classSet := make(map[string]struct{}, len(filter.Classes))
	for _, c := range filter.Classes {
		classSet[c] = struct{}{}
	}

	filtered := make([]model.LogEntry, 0, len(s.entries))
	// Walk backwards so newer entries come first.
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if len(classSet) > 0 {
			if _, ok := classSet[e.ClassName]; !ok {
				continue
			}
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if !filter.Start.IsZero() && e.Timestamp.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && e.Timestamp.After(filter.End) {
			continue
		}
		filtered = append(filtered, e)
		if filter.Limit > 0 && len(filtered) >= filter.Limit {
			break
		}
	}
	return filtered
}

// All returns a copy of every entry in insertion order, for exports.
func (s *LogStore) All() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]model.LogEntry, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// Total returns the number of entries recorded this session.
func (s *LogStore) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Statistics aggregates the whole session log into per-category and
// per-class counts.
func (s *LogStore) Statistics() model.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.Statistics{
		ClassCounts: make(map[string]int),
		SessionID:   s.sessionID,
	}
	for _, e := range s.entries {
		stats.TotalDetections++
		stats.ClassCounts[e.ClassName]++
		switch e.Category {
		case model.CategoryInorganic:
			stats.InorganicCount++
		case model.CategoryOrganic:
			stats.OrganicCount++
		}
	}
	if stats.TotalDetections > 0 {
		total := float64(stats.TotalDetections)
		stats.InorganicPercentage = round1(float64(stats.InorganicCount) / total * 100)
		stats.OrganicPercentage = round1(float64(stats.OrganicCount) / total * 100)
	}
	return stats
}

// Clear drops all entries and starts a new session. Returns the new
// session id.
func (s *LogStore) Clear() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.sessionID = newSessionID()
	return s.sessionID
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
