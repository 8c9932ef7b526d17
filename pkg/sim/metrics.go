package sim

import "github.com/codeready-toolchain/socialsim/pkg/models"

// metricFuncs maps known metric keys to their computation over per-action
// totals. Run metrics use the same keys over totals summed across turns.
var metricFuncs = map[string]func(totals map[models.ActionType]int) float64{
	"total_likes": func(t map[models.ActionType]int) float64 {
		return float64(t[models.ActionTypeLike])
	},
	"total_comments": func(t map[models.ActionType]int) float64 {
		return float64(t[models.ActionTypeComment])
	},
	"total_follows": func(t map[models.ActionType]int) float64 {
		return float64(t[models.ActionTypeFollow])
	},
	"total_actions": func(t map[models.ActionType]int) float64 {
		sum := 0
		for _, n := range t {
			sum += n
		}
		return float64(sum)
	},
}

// KnownMetricKey reports whether a metric key can be computed.
func KnownMetricKey(key string) bool {
	_, ok := metricFuncs[key]
	return ok
}

// ComputeMetrics evaluates the configured keys over action totals. An unknown
// key raises MetricsComputationError before any value is produced, failing
// the run before any metric write.
func ComputeMetrics(keys []string, totals map[models.ActionType]int) (map[string]float64, error) {
	for _, key := range keys {
		if !KnownMetricKey(key) {
			return nil, &MetricsComputationError{Key: key}
		}
	}
	metrics := make(map[string]float64, len(keys))
	for _, key := range keys {
		metrics[key] = metricFuncs[key](totals)
	}
	return metrics, nil
}
