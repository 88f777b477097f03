package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"aurenix/internal/metrics"
	"aurenix/internal/service/servicetest"
)

var cheapParams = servicetest.FastArgon2

// metricValue reads a counter from the registry; labels are name/value pairs.
func metricValue(t *testing.T, m *metrics.Metrics, name string, labels ...string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	next:
		for _, metric := range family.GetMetric() {
			pairs := map[string]string{}
			for _, lp := range metric.GetLabel() {
				pairs[lp.GetName()] = lp.GetValue()
			}
			for i := 0; i+1 < len(labels); i += 2 {
				if pairs[labels[i]] != labels[i+1] {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}
