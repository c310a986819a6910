package metrics

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/logger"
	"codeberg.org/mutker/fx5204ps/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
)

const (
	exporterName      = "fx5204ps_exporter"
	healthPath        = "/healthz"
	readHeaderTimeout = 5 * time.Second
)

type service struct {
	cfg      Config
	registry *prometheus.Registry
	handler  http.Handler
	log      logger.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// No-op implementation
type noopExporter struct{}

func NewService(cfg Config, reader telemetry.Reader) (Exporter, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If metrics is disabled, return a no-op exporter
	if !cfg.Enabled {
		logger.Debug().Msg("Metrics export disabled, using no-op exporter")
		return &noopExporter{}, nil
	}

	registry := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		version.NewCollector(exporterName),
		newCollector(reader, cfg.Temperature),
	} {
		if err := registry.Register(c); err != nil {
			return nil, errFactory.Wrap(ErrRegisterFailed, err)
		}
	}

	s := &service{
		cfg:      cfg,
		registry: registry,
		log:      logger.With("metrics"),
	}
	s.handler = s.newHandler()

	logger.Debug().
		Str("address", cfg.Address).
		Str("path", cfg.Path).
		Msg("Metrics service initialized successfully")

	return s, nil
}

func (s *service) newHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, promhttp.HandlerFor(
		s.registry,
		promhttp.HandlerOpts{
			Registry: s.registry,
		},
	))
	mux.HandleFunc(healthPath, healthProbe)
	mux.HandleFunc("/", rootHandler(s.cfg.Path))

	return mux
}

func healthProbe(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func rootHandler(metricsPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html>
<head><title>FX5204PS Exporter</title></head>
<body>
<h1>FX5204PS Exporter</h1>
<p><a href="` + metricsPath + `">Metrics</a></p>
</body>
</html>`))
	}
}

func (s *service) Handler() http.Handler {
	return s.handler
}

func (s *service) Start() error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errFactory.WithData(ErrServiceRunning, "metrics server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return errFactory.Wrap(ErrListenFailed, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan<- struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.ErrorWithCode(errFactory.Wrap(ErrListenFailed, err)).Msg("Metrics server stopped")
		}
	}(s.server, s.done)

	s.log.Info().Str("address", ln.Addr().String()).Msg("Serving metrics")

	return nil
}

func (s *service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *service) Close(ctx context.Context) error {
	errFactory := errors.New()

	s.mu.Lock()
	srv, done := s.server, s.done
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return errFactory.Wrap(ErrServiceClose, err)
	}
	<-done

	return nil
}

// No-op implementation
func (*noopExporter) Start() error {
	return nil
}

func (*noopExporter) Close(_ context.Context) error {
	return nil
}

func (*noopExporter) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (*noopExporter) Addr() string {
	return ""
}
