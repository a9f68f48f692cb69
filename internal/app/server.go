package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/carrygg/metagraph/graph/model"
	"github.com/carrygg/metagraph/interact"
	"github.com/carrygg/metagraph/internal/controller"
	"github.com/carrygg/metagraph/middleware"
	"github.com/carrygg/metagraph/render"
)

const defaultPort = "8080"

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	Production bool   `env:"PRODUCTION" envDefault:"false"`
	// Levels are {trace, debug, info, warn, error, fatal, panic}.
	// See github.com/rs/zerolog@v1.19.0/log.go for possible values.
	LogLevel string `env:"LOGLEVEL" envDefault:"debug"`
	// HTTP timeouts (read and write)
	HTTPTimeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
	// DataFile is an optional GraphData JSON file pushed to new sessions and
	// watched for changes, standing in for the external search backend.
	DataFile string `env:"DATA" envDefault:""`
	// IconDir is an optional directory of icon assets, layed out as
	// <dir>/<type>/<key>.png; missing assets fall back to plain shapes.
	IconDir string `env:"ICON_DIR" envDefault:""`
}

func GetEnvConfig() Config {
	conf := Config{}
	env.Parse(&conf)
	return conf
}

var (
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "metagraph_active_sessions",
		Help: "Number of connected graph sessions.",
	})
	metricTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "metagraph_tick_duration_seconds",
		Help:    "Wall time of one simulation tick.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
	metricRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metagraph_rebuilds_total",
		Help: "Number of working-set rebuilds (snapshot or filter changes).",
	})
)

// Server hosts one graph session per websocket connection and fans data
// file reloads out to all of them.
type Server struct {
	conf     Config
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*sessionConn
	data     *model.Graph
}

type sessionConn struct {
	session *controller.Session
	emitter *wsEmitter
}

func NewServer(conf Config) *Server {
	return &Server{
		conf: conf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// the graph host serves first-party clients only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: map[string]*sessionConn{},
	}
}

// wsEmitter serializes outbound session events onto one websocket
// connection. gorilla/websocket allows a single concurrent writer, hence
// the lock: frames arrive from the tick loop, tooltips from the read loop.
type wsEmitter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

type outboundMsg struct {
	Type    string         `json:"type"`
	Token   string         `json:"token,omitempty"`
	Source  string         `json:"source,omitempty"`
	X       float64        `json:"x,omitempty"`
	Y       float64        `json:"y,omitempty"`
	Content *model.Tooltip `json:"content,omitempty"`
	Frame   *render.Frame  `json:"frame,omitempty"`
}

func (e *wsEmitter) send(msg outboundMsg) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.conn.WriteJSON(msg); err != nil {
		log.Debug().Msgf("dropping outbound '%s' message: %v", msg.Type, err)
	}
}

func (e *wsEmitter) SelectToken(token, source string) {
	e.send(outboundMsg{Type: "selectToken", Token: token, Source: source})
}

func (e *wsEmitter) ShowTooltip(x, y float64, content model.Tooltip) {
	e.send(outboundMsg{Type: "showTooltip", X: x, Y: y, Content: &content})
}

func (e *wsEmitter) HideTooltip() {
	e.send(outboundMsg{Type: "hideTooltip"})
}

func (e *wsEmitter) Frame(f render.Frame) {
	e.send(outboundMsg{Type: "frame", Frame: &f})
}

type inboundMsg struct {
	Type      string           `json:"type"`
	Data      *model.Graph     `json:"data,omitempty"`
	Filter    []model.NodeType `json:"filter,omitempty"`
	Width     float64          `json:"width,omitempty"`
	Height    float64          `json:"height,omitempty"`
	Highlight []string         `json:"highlight,omitempty"`
	Pointer   *interact.Event  `json:"pointer,omitempty"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(r.Context()).Error().Msgf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	emitter := &wsEmitter{conn: conn}
	session := controller.NewSession(r.Context(), emitter, s.iconResolver())
	session.ObserveTicks(func(d time.Duration) {
		metricTickDuration.Observe(d.Seconds())
	})
	s.mu.Lock()
	s.sessions[session.ID] = &sessionConn{session: session, emitter: emitter}
	data := s.data
	s.mu.Unlock()
	metricActiveSessions.Inc()
	log.Ctx(r.Context()).Info().Str("session", session.ID).Msg("session connected")
	defer func() {
		s.mu.Lock()
		delete(s.sessions, session.ID)
		s.mu.Unlock()
		metricActiveSessions.Dec()
		session.Close()
	}()
	if data != nil {
		metricRebuilds.Inc()
		session.ApplyData(data)
	}
	for {
		msg := inboundMsg{}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Ctx(r.Context()).Warn().Str("session", session.ID).Msgf("read failed: %v", err)
			}
			return
		}
		s.dispatch(session, msg)
	}
}

func (s *Server) dispatch(session *controller.Session, msg inboundMsg) {
	switch msg.Type {
	case "data":
		if msg.Data != nil {
			metricRebuilds.Inc()
			session.ApplyData(msg.Data)
		}
	case "filter":
		filter := model.TypeFilter{}
		for _, t := range msg.Filter {
			filter[t] = true
		}
		metricRebuilds.Inc()
		session.SetTypeFilter(filter)
	case "resize":
		session.Resize(msg.Width, msg.Height)
	case "highlight":
		session.Highlight(msg.Highlight)
	case "pointer":
		if msg.Pointer != nil {
			session.Pointer(*msg.Pointer)
		}
	default:
		log.Debug().Str("session", session.ID).Msgf("ignoring unknown message type '%s'", msg.Type)
	}
}

// iconResolver resolves icons from the configured asset directory; without
// one, nodes render as plain shapes.
func (s *Server) iconResolver() render.IconResolver {
	if s.conf.IconDir == "" {
		return nil
	}
	return func(typ model.NodeType, key string) (string, error) {
		rel := filepath.Join(string(typ), key+".png")
		if _, err := os.Stat(filepath.Join(s.conf.IconDir, rel)); err != nil {
			return "", errors.Wrapf(err, "no icon asset for %s/%s", typ, key)
		}
		return "/icons/" + rel, nil
	}
}

// loadData reads and broadcasts the configured GraphData file.
func (s *Server) loadData() error {
	file, err := os.Open(s.conf.DataFile)
	if err != nil {
		return errors.Wrapf(err, "failed to open data file '%s'", s.conf.DataFile)
	}
	defer file.Close()
	g := model.Graph{}
	if err := json.NewDecoder(file).Decode(&g); err != nil {
		return errors.Wrapf(err, "failed to decode data file '%s'", s.conf.DataFile)
	}
	s.mu.Lock()
	s.data = &g
	conns := make([]*sessionConn, 0, len(s.sessions))
	for _, c := range s.sessions {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		metricRebuilds.Inc()
		c.session.ApplyData(&g)
	}
	log.Info().Int("nodes", len(g.Nodes)).Int("edges", len(g.Edges)).Msg("data file loaded")
	return nil
}

// watchData pushes fresh snapshots to all sessions whenever the data file
// changes.
func (s *Server) watchData(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create data file watcher")
	}
	if err := watcher.Add(filepath.Dir(s.conf.DataFile)); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "failed to watch '%s'", s.conf.DataFile)
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.conf.DataFile || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := s.loadData(); err != nil {
					log.Error().Msgf("data reload failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Msgf("data watcher: %v", err)
			}
		}
	}()
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/graph", middleware.AddAll(http.HandlerFunc(s.handleGraph)))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if s.conf.IconDir != "" {
		mux.Handle("/icons/", http.StripPrefix("/icons/", http.FileServer(http.Dir(s.conf.IconDir))))
	}
	return mux
}

// Run starts the server and blocks until ctx is cancelled.
func Run(ctx context.Context) error {
	conf := GetEnvConfig()
	level, err := zerolog.ParseLevel(conf.LogLevel)
	if err != nil {
		println("failed to parse LOGLEVEL: '" + conf.LogLevel + "', setting to debug")
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if !conf.Production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if conf.Port == "" {
		conf.Port = defaultPort
	}
	s := NewServer(conf)
	if conf.DataFile != "" {
		if err := s.loadData(); err != nil {
			log.Warn().Msgf("initial data load failed: %v", err)
		}
		if err := s.watchData(ctx); err != nil {
			return err
		}
	}
	server := http.Server{
		Addr:         ":" + conf.Port,
		Handler:      s.routes(),
		ReadTimeout:  conf.HTTPTimeout,
		WriteTimeout: conf.HTTPTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	log.Info().Msgf("serving graph sessions on http://0.0.0.0:%s/graph", conf.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "ListenAndServe")
	}
	return nil
}
