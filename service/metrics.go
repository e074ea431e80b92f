package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks vote processing, mining effort and verification runs.
type MetricsCollector struct {
	mu sync.RWMutex

	votingStartTime time.Time
	votingEndTime   time.Time
	votingCount     int
	votingTotalTime time.Duration
	rejectedCount   int

	totalAttempts int
	lastAttempts  int
	maxAttempts   int
	cappedBlocks  int

	verifications        int
	verificationFailures int
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Count          int       `json:"count"`
	Rejected       int       `json:"rejected"`
	ProcessingTime int64     `json:"processing_time_ms"`
}

type MiningMetrics struct {
	TotalAttempts int `json:"total_attempts"`
	LastAttempts  int `json:"last_attempts"`
	MaxAttempts   int `json:"max_attempts"`
	CappedBlocks  int `json:"capped_blocks"`
}

type VerificationMetrics struct {
	Runs     int `json:"runs"`
	Failures int `json:"failures"`
}

// MetricsResponse provides the metrics for all operations
type MetricsResponse struct {
	Voting       OperationMetrics    `json:"voting"`
	Mining       MiningMetrics       `json:"mining"`
	Verification VerificationMetrics `json:"verification"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordVote records a mined vote and the work spent finding its nonce.
func (mc *MetricsCollector) RecordVote(duration time.Duration, attempts int, capped bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	if mc.votingCount == 0 {
		mc.votingStartTime = now.Add(-duration)
	}
	mc.votingCount++
	mc.votingEndTime = now
	mc.votingTotalTime += duration

	mc.totalAttempts += attempts
	mc.lastAttempts = attempts
	if attempts > mc.maxAttempts {
		mc.maxAttempts = attempts
	}
	if capped {
		mc.cappedBlocks++
	}
}

func (mc *MetricsCollector) RecordRejected() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.rejectedCount++
}

func (mc *MetricsCollector) RecordVerification(ok bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.verifications++
	if !ok {
		mc.verificationFailures++
	}
}

// GetMetrics returns current metrics for all operations
func (mc *MetricsCollector) GetMetrics() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return MetricsResponse{
		Voting: OperationMetrics{
			StartTime:      mc.votingStartTime,
			EndTime:        mc.votingEndTime,
			Count:          mc.votingCount,
			Rejected:       mc.rejectedCount,
			ProcessingTime: mc.votingTotalTime.Milliseconds(),
		},
		Mining: MiningMetrics{
			TotalAttempts: mc.totalAttempts,
			LastAttempts:  mc.lastAttempts,
			MaxAttempts:   mc.maxAttempts,
			CappedBlocks:  mc.cappedBlocks,
		},
		Verification: VerificationMetrics{
			Runs:     mc.verifications,
			Failures: mc.verificationFailures,
		},
	}
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingStartTime = time.Time{}
	mc.votingEndTime = time.Time{}
	mc.votingCount = 0
	mc.votingTotalTime = 0
	mc.rejectedCount = 0

	mc.totalAttempts = 0
	mc.lastAttempts = 0
	mc.maxAttempts = 0
	mc.cappedBlocks = 0

	mc.verifications = 0
	mc.verificationFailures = 0
}
