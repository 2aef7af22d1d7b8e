// Package prometheus records per-query latency summaries labeled by model
// and statement type.
package prometheus

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	orm "github.com/calyxdb/orm"
)

type MiddlewareBuilder struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
}

func (m MiddlewareBuilder) Build() orm.Middleware {
	vector := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: m.Namespace,
		Subsystem: m.Subsystem,
		Name:      m.Name,
		Help:      m.Help,
		Objectives: map[float64]float64{
			0.5:   0.01,
			0.75:  0.01,
			0.90:  0.01,
			0.99:  0.001,
			0.999: 0.0001,
		},
	}, []string{"model", "type", "outcome"})

	prometheus.MustRegister(vector)

	return func(next orm.Handler) orm.Handler {
		return func(ctx context.Context, qc *orm.QueryContext) *orm.QueryResult {
			startTime := time.Now()
			res := next(ctx, qc)
			outcome := "ok"
			if res.Err != nil {
				outcome = "error"
			}
			duration := time.Since(startTime).Milliseconds()
			vector.WithLabelValues(qc.Model.Name, qc.Type, outcome).
				Observe(float64(duration))
			return res
		}
	}
}
