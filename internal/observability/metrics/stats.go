package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// OracleStats summarises calls for one purpose.
type OracleStats struct {
	Calls       uint64  `json:"calls"`
	Errors      uint64  `json:"errors"`
	MeanSeconds float64 `json:"meanSeconds"`
}

// Stats is the /stats payload.
type Stats struct {
	TotalTurns           uint64                 `json:"totalTurns"`
	TurnsByStage         map[string]uint64      `json:"turnsByStage"`
	UncertaintyOverrides uint64                 `json:"uncertaintyOverrides"`
	RecoveredTurns       uint64                 `json:"recoveredTurns"`
	Fallbacks            map[string]uint64      `json:"fallbacks"`
	Oracle               map[string]OracleStats `json:"oracle"`
}

// Snapshot reads the reflection families from gatherer.
func Snapshot(gatherer prometheus.Gatherer) (Stats, error) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	stats := Stats{
		TurnsByStage: map[string]uint64{},
		Fallbacks:    map[string]uint64{},
		Oracle:       map[string]OracleStats{},
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return stats, err
	}

	for _, mf := range mfs {
		switch mf.GetName() {
		case TurnsFamily:
			for _, m := range mf.GetMetric() {
				n := uint64(m.GetCounter().GetValue())
				stats.TotalTurns += n
				stats.TurnsByStage[labelValue(m, "stage")] += n
				if labelValue(m, "uncertainty_override") == "true" {
					stats.UncertaintyOverrides += n
				}
				if labelValue(m, "recovered") == "true" {
					stats.RecoveredTurns += n
				}
			}
		case FallbacksFamily:
			for _, m := range mf.GetMetric() {
				stats.Fallbacks[labelValue(m, "component")] += uint64(m.GetCounter().GetValue())
			}
		case OracleCallsFamily:
			for _, m := range mf.GetMetric() {
				purpose := labelValue(m, "purpose")
				s := stats.Oracle[purpose]
				n := uint64(m.GetCounter().GetValue())
				s.Calls += n
				if labelValue(m, "status") != "ok" {
					s.Errors += n
				}
				stats.Oracle[purpose] = s
			}
		}
	}

	// Means need the call totals first, so histograms get a second pass.
	for _, mf := range mfs {
		if mf.GetName() != OracleLatencyFamily {
			continue
		}
		sums := map[string]float64{}
		counts := map[string]uint64{}
		for _, m := range mf.GetMetric() {
			purpose := labelValue(m, "purpose")
			sums[purpose] += m.GetHistogram().GetSampleSum()
			counts[purpose] += m.GetHistogram().GetSampleCount()
		}
		for purpose, count := range counts {
			if count == 0 {
				continue
			}
			s := stats.Oracle[purpose]
			s.MeanSeconds = sums[purpose] / float64(count)
			stats.Oracle[purpose] = s
		}
	}
	return stats, nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// StatsHandler serves GET /stats.
func StatsHandler(gatherer prometheus.Gatherer, logger *logging.Logger) http.HandlerFunc {
	if logger == nil {
		logger = logging.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := Snapshot(gatherer)
		if err != nil {
			logger.Error("failed to gather metrics", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to gather stats"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(stats)
	}
}
