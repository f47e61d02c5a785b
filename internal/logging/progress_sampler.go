package logging

import (
	"strings"
	"sync"
)

// ProgressSampler suppresses repetitive progress logs. Each key (a shot
// name, or "" for the overall run) emits only when its percentage crosses
// into a new bucket.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	last       map[string]int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 5%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, last: make(map[string]int)}
}

// ShouldLog reports whether progress for key should be logged. Negative
// percentages mean unknown and only log the first time a key is seen.
func (s *ProgressSampler) ShouldLog(key string, percent float64) bool {
	if s == nil {
		return true
	}
	key = strings.TrimSpace(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.last[key]
	if !seen {
		prev = -1
	}
	if percent < 0 {
		if !seen {
			s.last[key] = -1
			return true
		}
		return false
	}
	if percent > 100 {
		percent = 100
	}
	bucket := int(percent / s.bucketSize)
	if bucket > prev || !seen {
		s.last[key] = bucket
		return true
	}
	return false
}

// Reset clears the sampler state (e.g. when a new run starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.last = make(map[string]int)
	s.mu.Unlock()
}
