package penmark

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects preview-server counters on a private registry, so
// /metrics exposes only penmark series plus the HTTP metrics the echo
// middleware registers on the same registry.
type Metrics struct {
	Registry *prometheus.Registry

	PostsVisible  prometheus.Gauge
	PostsHidden   prometheus.Gauge
	LoadProblems  prometheus.Gauge
	IndexedDocs   prometheus.Gauge
	CacheReloads  prometheus.Counter
	SearchQueries prometheus.Counter
	LoginFailures prometheus.Counter
}

// NewMetrics creates and registers all penmark collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PostsVisible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "penmark",
			Name:      "posts_visible",
			Help:      "Posts currently visible on the site.",
		}),
		PostsHidden: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "penmark",
			Name:      "posts_hidden",
			Help:      "Drafts and scheduled posts not yet visible.",
		}),
		LoadProblems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "penmark",
			Name:      "load_problems",
			Help:      "Source files skipped on the last content load.",
		}),
		IndexedDocs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "penmark",
			Name:      "search_indexed_docs",
			Help:      "Documents in the full-text search index.",
		}),
		CacheReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "penmark",
			Name:      "cache_reloads_total",
			Help:      "Content cache reloads since start.",
		}),
		SearchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "penmark",
			Name:      "search_queries_total",
			Help:      "Search queries served.",
		}),
		LoginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "penmark",
			Name:      "login_failures_total",
			Help:      "Failed drafts login attempts.",
		}),
	}

	m.Registry.MustRegister(
		m.PostsVisible,
		m.PostsHidden,
		m.LoadProblems,
		m.IndexedDocs,
		m.CacheReloads,
		m.SearchQueries,
		m.LoginFailures,
	)
	return m
}
