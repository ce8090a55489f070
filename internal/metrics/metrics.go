// Package metrics exposes ccdash counters and catalog gauges to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"ccdash/config/models"
	"ccdash/config/storage"
)

// Catalog is the read side of the configuration manager.
type Catalog interface {
	List() ([]models.Summary, error)
	ListBackups() ([]string, error)
}

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	switches       *prometheus.CounterVec
	backupsCreated prometheus.Counter
	restores       *prometheus.CounterVec
	usageSource    *prometheus.CounterVec
}

// New creates the metric set. A nil catalog skips the scrape-time gauges.
func New(catalog Catalog) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccdash_config_switches_total",
			Help: "Configuration switch attempts by result.",
		}, []string{"result"}),
		backupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ccdash_backups_created_total",
			Help: "Timestamped backups written.",
		}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccdash_backup_restores_total",
			Help: "Backup restore attempts by result.",
		}, []string{"result"}),
		usageSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccdash_usage_source_total",
			Help: "Dashboard responses by usage data source.",
		}, []string{"source"}),
	}

	m.registry.MustRegister(
		m.switches,
		m.backupsCreated,
		m.restores,
		m.usageSource,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if catalog != nil {
		m.registry.MustRegister(newCatalogCollector(catalog))
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// result labels an outcome by error kind.
func result(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := models.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// ObserveSwitch counts a switch attempt. A successful switch that took a
// backup also counts that backup.
func (m *Metrics) ObserveSwitch(receipt *models.SwitchReceipt, err error) {
	m.switches.WithLabelValues(result(err)).Inc()
	if err == nil && receipt != nil && storage.IsBackupName(receipt.BackupCreated) {
		m.backupsCreated.Inc()
	}
}

// ObserveBackup counts a manual backup.
func (m *Metrics) ObserveBackup(name string) {
	if storage.IsBackupName(name) {
		m.backupsCreated.Inc()
	}
}

// ObserveRestore counts a restore attempt and its safety backup.
func (m *Metrics) ObserveRestore(safety string, err error) {
	m.restores.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.ObserveBackup(safety)
	}
}

// ObserveUsageSource counts which source answered a dashboard request.
func (m *Metrics) ObserveUsageSource(source string) {
	m.usageSource.WithLabelValues(source).Inc()
}

// catalogCollector reads the configuration directory on each scrape.
type catalogCollector struct {
	catalog Catalog

	configurations *prometheus.Desc
	backups        *prometheus.Desc
	active         *prometheus.Desc
}

func newCatalogCollector(catalog Catalog) *catalogCollector {
	return &catalogCollector{
		catalog: catalog,
		configurations: prometheus.NewDesc(
			"ccdash_configurations",
			"Configurations found in the Claude directory.",
			nil, nil,
		),
		backups: prometheus.NewDesc(
			"ccdash_backups",
			"Timestamped backups found in the Claude directory.",
			nil, nil,
		),
		active: prometheus.NewDesc(
			"ccdash_active_configuration",
			"Always 1, labelled with the active configuration id.",
			[]string{"id"}, nil,
		),
	}
}

func (c *catalogCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.configurations
	ch <- c.backups
	ch <- c.active
}

func (c *catalogCollector) Collect(ch chan<- prometheus.Metric) {
	summaries, err := c.catalog.List()
	if err != nil {
		log.WithError(err).Warn("metrics: failed to list configurations")
	} else {
		ch <- prometheus.MustNewConstMetric(c.configurations, prometheus.GaugeValue, float64(len(summaries)))
		for _, s := range summaries {
			if s.IsActive {
				ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, 1, s.ID)
			}
		}
	}

	backups, err := c.catalog.ListBackups()
	if err != nil {
		log.WithError(err).Warn("metrics: failed to list backups")
		return
	}
	ch <- prometheus.MustNewConstMetric(c.backups, prometheus.GaugeValue, float64(len(backups)))
}
