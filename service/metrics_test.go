package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordVote(10*time.Millisecond, 300, false)
	mc.RecordVote(20*time.Millisecond, 5001, true)
	mc.RecordRejected()
	mc.RecordVerification(true)
	mc.RecordVerification(false)

	m := mc.GetMetrics()
	require.Equal(t, 2, m.Voting.Count)
	require.Equal(t, 1, m.Voting.Rejected)
	require.EqualValues(t, 30, m.Voting.ProcessingTime)
	require.False(t, m.Voting.StartTime.After(m.Voting.EndTime))
	require.Equal(t, MiningMetrics{TotalAttempts: 5301, LastAttempts: 5001, MaxAttempts: 5001, CappedBlocks: 1}, m.Mining)
	require.Equal(t, VerificationMetrics{Runs: 2, Failures: 1}, m.Verification)

	mc.Reset()
	require.Equal(t, MetricsResponse{}, mc.GetMetrics())
}
