package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	uerrors "github.com/codz-dev/uploader/internal/errors"
	"github.com/codz-dev/uploader/pkg/deletion"
	"github.com/codz-dev/uploader/pkg/formbridge"
	"github.com/codz-dev/uploader/pkg/middleware"
	"github.com/codz-dev/uploader/pkg/mount"
	"github.com/codz-dev/uploader/pkg/upload"
	"github.com/codz-dev/uploader/pkg/widget"
)

// Fixed endpoint paths.
const (
	WebSocketPath = "/_uploader/ws"
	UploadPath    = "/_uploader/upload"
	PreviewPath   = widget.DefaultPreviewPath
	ScriptPath    = mount.DefaultScriptURL
	MetricsPath   = "/metrics"
)

// Server is the HTTP/WebSocket server for uploader pages.
type Server struct {
	config   *ServerConfig
	router   chi.Router
	sessions *SessionManager

	// Collaborators
	store     upload.Store
	previews  *upload.Previews
	deleter   widget.Deleter
	submitter *formbridge.Submitter
	pages     PageSource

	// Metrics
	metrics  *middleware.Metrics
	registry *prometheus.Registry

	upgrader   websocket.Upgrader
	httpServer *http.Server
	logger     *slog.Logger
	rootLogger *slog.Logger // without the server component, for widgets
}

// Option configures a Server.
type Option func(*Server)

// WithPageSource sets where host pages come from. Default: DemoPage().
func WithPageSource(p PageSource) Option {
	return func(s *Server) {
		s.pages = p
	}
}

// WithDeleter replaces the deletion client.
func WithDeleter(d widget.Deleter) Option {
	return func(s *Server) {
		s.deleter = d
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRegistry sets the Prometheus registry metrics are registered with
// and served from. Default: a fresh registry per server.
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

// New creates a Server staging files in store.
func New(config *ServerConfig, store upload.Store, opts ...Option) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	config.fill()

	s := &Server{
		config: config,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rootLogger = s.logger
	s.logger = s.logger.With("component", "server")

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = middleware.NewMetrics(middleware.WithRegistry(s.registry))
	if s.pages == nil {
		s.pages = DemoPage()
	}
	if s.deleter == nil {
		s.deleter = deletion.New(
			deletion.WithTimeout(config.DeleteTimeout),
			deletion.WithRetryMax(config.DeleteRetries),
			deletion.WithLogger(s.rootLogger.With("component", "deletion")),
		)
	}
	s.submitter = formbridge.NewSubmitter(config.SubmitTimeout, s.rootLogger)
	s.previews = upload.NewPreviews(store, config.MaxPreviews, config.PreviewTTL)
	s.sessions = NewSessionManager(config.MaxPages, config.PageTTL, s.rootLogger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.CheckOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Trace(middleware.WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != MetricsPath
	})))
	r.Use(s.metrics.Handler)

	r.Get("/", s.handlePage)
	r.Post("/", s.handleReceive)

	r.Get(WebSocketPath, s.HandleWebSocket)
	r.Method(http.MethodPost, UploadPath, upload.Handler(s.store, &upload.Config{
		MaxFileSize: s.config.MaxUploadSize,
		TempExpiry:  s.config.StagingExpiry,
	}))
	r.Get(PreviewPath+"/{token}", func(w http.ResponseWriter, r *http.Request) {
		s.previews.Serve(w, r, chi.URLParam(r, "token"))
	})
	r.Get(ScriptPath, s.serveThinClient)
	r.Head(ScriptPath, s.serveThinClient)

	r.Method(http.MethodGet, MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the server as an http.Handler for mounting in another
// router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handlePage mounts the host page and starts its session.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	rc, err := s.pages.Open(r)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("open host page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	sess := newSession(s.config.SessionConfig, s.store, s.submitter, s.metrics, s.rootLogger.With("component", "session"))
	base := requestURL(r)
	cookie := r.Header.Get("Cookie")

	page, err := mount.Mount(rc, mount.Options{
		Widget: widget.Options{
			Loop:        sess,
			Deleter:     s.deleter,
			Previews:    s.previews,
			PreviewPath: PreviewPath,
			Recorder:    s.metrics,
			Logger:      s.rootLogger,
			Cookie:      cookie,
			BaseURL:     base,

			StagingLimit: s.config.MaxUploadSize,
		},
		ScriptURL: ScriptPath,
		PageID:    sess.ID,
	})
	if err != nil {
		sess.Close()
		s.logger.Error("mount host page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	sess.setPage(page, base, cookie)

	html, err := page.HTML()
	if err != nil {
		sess.Close()
		s.logger.Error("render host page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess.Start()
	s.sessions.Add(sess)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, html)
}

// HandleWebSocket attaches a client to the session of the page it names.
// An unknown page gets a U052 frame, telling the client to reload.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("page")
	sess := s.sessions.Get(id)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.WebSocketError("upgrade")
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	if sess == nil {
		s.logger.Info("websocket for unknown page", "page", id)
		data, _ := json.Marshal(errorFrame(uerrors.New("U052").WithDetail(id)))
		deadline := time.Now().Add(s.config.SessionConfig.WriteTimeout)
		conn.SetWriteDeadline(deadline)
		_ = conn.WriteMessage(websocket.TextMessage, data)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "page expired"), deadline)
		conn.Close()
		return
	}

	sess.Attach(conn)
}

// handleReceive is the demo page's form action. It reports what arrived
// and redirects back, as a typical application would.
func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := 0
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			files++
			s.logger.Info("form file received", "field", field, "name", fh.Filename, "size", fh.Size)
		}
	}
	for field, values := range r.MultipartForm.Value {
		s.logger.Info("form field received", "field", field, "values", values)
	}
	http.Redirect(w, r, "/?received="+strconv.Itoa(files), http.StatusSeeOther)
}

// requestURL reconstructs the absolute URL of r.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go upload.RunCleanup(cleanupCtx, s.store, s.config.StagingExpiry/4, s.config.StagingExpiry, func(err error) {
		s.logger.Warn("staging cleanup", "error", err)
	})

	// Set up graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	// Close all sessions first
	s.sessions.Shutdown()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *middleware.Metrics {
	return s.metrics
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
