package observability

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks scrape and normalize counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PagesVisited    prometheus.Counter
	PagesTimedOut   prometheus.Counter
	TilesExtracted  prometheus.Counter
	TilesSkipped    prometheus.Counter
	RecordsIn       prometheus.Counter
	RecordsDropped  *prometheus.CounterVec
	RecordsOut      prometheus.Counter
	FieldsDefaulted *prometheus.CounterVec
	ItemsStored     *prometheus.CounterVec
	StopReasons     *prometheus.CounterVec

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PagesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogcrawl_pages_visited_total",
			Help: "Listing pages extracted",
		}),
		PagesTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogcrawl_pages_timed_out_total",
			Help: "Listing pages that never finished loading",
		}),
		TilesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogcrawl_tiles_extracted_total",
			Help: "Product tiles turned into raw records",
		}),
		TilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogcrawl_tiles_skipped_total",
			Help: "Product tiles skipped for missing mandatory fields",
		}),
		RecordsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogcrawl_records_in_total",
			Help: "Raw records fed to the normalizer",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogcrawl_records_dropped_total",
			Help: "Raw records dropped by the normalizer, by stage",
		}, []string{"stage"}),
		RecordsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogcrawl_records_out_total",
			Help: "Clean records produced",
		}),
		FieldsDefaulted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogcrawl_fields_defaulted_total",
			Help: "Fields replaced by their default value, by field",
		}, []string{"field"}),
		ItemsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogcrawl_items_stored_total",
			Help: "Clean records written, by storage backend",
		}, []string{"backend"}),
		StopReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogcrawl_stop_reason_total",
			Help: "Pagination runs ended, by stop reason",
		}, []string{"reason"}),
		logger: logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		m.PagesVisited, m.PagesTimedOut, m.TilesExtracted, m.TilesSkipped,
		m.RecordsIn, m.RecordsDropped, m.RecordsOut, m.FieldsDefaulted, m.ItemsStored,
		m.StopReasons,
	)
	return m
}

func (m *Metrics) PageVisited() {
	if m != nil {
		m.PagesVisited.Inc()
	}
}

func (m *Metrics) PageTimedOut() {
	if m != nil {
		m.PagesTimedOut.Inc()
	}
}

func (m *Metrics) TileExtracted() {
	if m != nil {
		m.TilesExtracted.Inc()
	}
}

func (m *Metrics) TileSkipped() {
	if m != nil {
		m.TilesSkipped.Inc()
	}
}

func (m *Metrics) RecordIn(n int) {
	if m != nil {
		m.RecordsIn.Add(float64(n))
	}
}

func (m *Metrics) RecordDropped(stage string) {
	if m != nil {
		m.RecordsDropped.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) RecordOut(n int) {
	if m != nil {
		m.RecordsOut.Add(float64(n))
	}
}

func (m *Metrics) FieldDefaulted(field string) {
	if m != nil {
		m.FieldsDefaulted.WithLabelValues(field).Inc()
	}
}

func (m *Metrics) Stored(backend string, n int) {
	if m != nil {
		m.ItemsStored.WithLabelValues(backend).Add(float64(n))
	}
}

func (m *Metrics) Stopped(reason string) {
	if m != nil {
		m.StopReasons.WithLabelValues(reason).Inc()
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in Prometheus text exposition format to
// path, for pickup by a node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	m.logger.Info("metrics written", "path", path)
	return nil
}
