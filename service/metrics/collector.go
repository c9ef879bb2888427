/*
 * @module service/metrics/collector
 * @description Prometheus指标采集：指标计算次数与耗时、HTTP合成调用计数
 * @architecture 观测层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 业务层打点 -> promhttp在/metrics暴露
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs main.go, service/calculation/calculator.go
 */

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	calculationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpihub_kpi_calculation_total",
		Help: "指标计算次数，按指标名与结果状态分类",
	}, []string{"kpi", "status"})

	calculationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kpihub_kpi_calculation_duration_seconds",
		Help:    "指标计算耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"kpi"})

	voiceSynthesisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpihub_voice_synthesis_total",
		Help: "语音合成调用次数，按供应商与结果状态分类",
	}, []string{"provider", "status"})
)

// ObserveCalculation 记录一次指标计算
func ObserveCalculation(kpi, status string, duration time.Duration) {
	calculationTotal.WithLabelValues(kpi, status).Inc()
	if status == "ok" {
		calculationDuration.WithLabelValues(kpi).Observe(duration.Seconds())
	}
}

// ObserveVoiceSynthesis 记录一次语音合成调用
func ObserveVoiceSynthesis(provider, status string) {
	voiceSynthesisTotal.WithLabelValues(provider, status).Inc()
}
