package observability_test

import (
	"testing"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/infra/observability"

	"github.com/stretchr/testify/assert"
)

func TestEngineSnapshot_CountsEvents(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrSnapshot("success")
	m.IncrSnapshot("success")
	m.IncrSnapshot("error")
	m.IncrIntegrityError("transaction")
	m.IncrIntegrityError("budget")
	m.IncrParse("fallback")
	m.IncrParse("parsed")
	m.IncrCacheHit("advice")
	m.IncrCacheHit("advice")
	m.IncrCacheHit("advice")
	m.IncrCacheMiss("advice")
	m.RecordRequestDuration("dashboard.build", 10*time.Millisecond)

	snap := m.GetEngineSnapshot()
	assert.Equal(t, int64(2), snap.SnapshotsBuilt)
	assert.Equal(t, int64(1), snap.SnapshotFailures)
	assert.Equal(t, int64(2), snap.IntegrityFailures)
	assert.Equal(t, int64(1), snap.ParseFallbacks)
	assert.InDelta(t, 0.75, snap.AdviceCacheHitRate, 1e-9)
}

func TestEngineSnapshot_NoTraffic(t *testing.T) {
	snap := observability.NewMetrics().GetEngineSnapshot()
	assert.Zero(t, snap.SnapshotsBuilt)
	assert.Zero(t, snap.AdviceCacheHitRate)
}
