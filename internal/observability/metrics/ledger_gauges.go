package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	lodging "lodging-ledger/internal/lodging/domain"
)

const gaugeLoadTimeout = 5 * time.Second

// RegisterLedgerGauges exposes document-derived gauges computed at scrape
// time from the gateway.
func RegisterLedgerGauges(gateway lodging.Gateway, logger *slog.Logger) {
	if gateway == nil {
		return
	}
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "months_recorded",
			Help: "Months with a lodging record",
		},
		func() float64 {
			return summaryValue(gateway, logger, func(s lodging.Summary) float64 { return float64(s.Months) })
		},
	))
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "months_open",
			Help: "Months not yet closed",
		},
		func() float64 {
			return summaryValue(gateway, logger, func(s lodging.Summary) float64 { return float64(s.Months - s.ClosedMonths) })
		},
	))
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "days_logged",
			Help: "Lodging days logged across all months",
		},
		func() float64 {
			return summaryValue(gateway, logger, func(s lodging.Summary) float64 { return float64(s.TotalDays) })
		},
	))
}

func summaryValue(gateway lodging.Gateway, logger *slog.Logger, pick func(lodging.Summary) float64) float64 {
	ctx, cancel := context.WithTimeout(context.Background(), gaugeLoadTimeout)
	defer cancel()
	doc, err := gateway.Load(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("metrics gauge load failed", "error", err)
		}
		return 0
	}
	value := pick(lodging.Summarize(doc))
	if value < 0 {
		return 0
	}
	return value
}
