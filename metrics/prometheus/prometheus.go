package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/metrics"
)

// Factory creates counters in its own registry. When metrics are enabled in the config, Start serves the
// registry over HTTP at /metrics.
type Factory struct {
	config     conf.Config
	lock       sync.Mutex
	registry   *prometheus.Registry
	httpServer *http.Server
	started    bool
}

func NewFactory(config conf.Config) *Factory {
	return &Factory{config: config, registry: prometheus.NewRegistry()}
}

var _ metrics.Factory = &Factory{}

func (f *Factory) Registry() *prometheus.Registry {
	return f.registry
}

func (f *Factory) CreateCounter(name string, description string) (metrics.Counter, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.started {
		return nil, errors.New("not started")
	}
	counter := promauto.With(f.registry).NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: description,
	})
	return &Counter{pCounter: counter}, nil
}

func (f *Factory) Start() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.started {
		return errors.New("already started")
	}
	f.started = true
	if !f.config.EnableMetrics {
		return nil
	}
	metricsListenAddr := conf.DefaultMetricsListenAddr
	if f.config.MetricsListenAddr != "" {
		metricsListenAddr = f.config.MetricsListenAddr
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{}))
	f.httpServer = &http.Server{Addr: metricsListenAddr, Handler: mux}
	go func(srv *http.Server) {
		log.Debugf("starting prometheus http server on address %s", metricsListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("prometheus http export server failed to listen %v", err)
		}
	}(f.httpServer)
	return nil
}

func (f *Factory) Stop() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.started {
		return errors.New("not started")
	}
	f.started = false
	if f.httpServer != nil {
		srv := f.httpServer
		f.httpServer = nil
		return srv.Close()
	}
	return nil
}

type Counter struct {
	pCounter prometheus.Counter
}

func (c *Counter) Inc() {
	c.pCounter.Inc()
}

func (c *Counter) Add(delta float64) {
	c.pCounter.Add(delta)
}
