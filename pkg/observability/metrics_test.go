package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/espalier/pkg/domain"
)

func TestHooksDriveCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hooks := m.Hooks()

	hooks.OnMutation(&domain.MutationEvent{Op: "addSlice"})
	hooks.OnMutation(&domain.MutationEvent{Op: "addSlice"})
	hooks.OnMutation(&domain.MutationEvent{Op: "connect"})
	hooks.OnReject(&domain.RejectEvent{Op: "connect", Kind: domain.KindCycle})
	hooks.OnCommit(&domain.CommitEvent{SliceID: "s1", Warnings: 2, Duration: 5 * time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues("addSlice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("connect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("connect", "CYCLE")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.commitWarnings))
}

func TestRegistryExposure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Hooks().OnMutation(&domain.MutationEvent{Op: "addElement"})

	families, err := reg.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["espalier_mutations_total"])
	assert.True(t, names["espalier_commit_duration_seconds"])
	assert.True(t, names["espalier_commit_warnings_total"])
}
