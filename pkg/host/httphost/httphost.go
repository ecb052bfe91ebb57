// Package httphost exposes the session controller on a local http endpoint,
// e.g. for browser overlays or a plugin bridge.
package httphost

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/host"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

const (
	DefaultCommandTimeout = 5 * time.Second
	maxTickSize           = 1 << 16
)

type (
	Option func(*Surface)
	// Surface serves the properties and commands of the agent. The latest
	// published status is kept for GET /properties.
	Surface struct {
		agent          host.Agent
		commandTimeout time.Duration
		latest         atomic.Pointer[model.SessionStatus]
		l              *log.Logger
	}
)

func WithCommandTimeout(arg time.Duration) Option {
	return func(s *Surface) {
		s.commandTimeout = arg
	}
}

func WithLogger(arg *log.Logger) Option {
	return func(s *Surface) {
		s.l = arg
	}
}

func New(agent host.Agent, opts ...Option) *Surface {
	ret := &Surface{
		agent:          agent,
		commandTimeout: DefaultCommandTimeout,
		l:              log.Default().Named("http"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Publish remembers st as the latest status
func (s *Surface) Publish(st model.SessionStatus) error {
	s.latest.Store(&st)
	return nil
}

func (s *Surface) status() model.SessionStatus {
	if st := s.latest.Load(); st != nil {
		return *st
	}
	return s.agent.Status()
}

// Handler returns the routes of the surface wrapped with CORS and otel
func (s *Surface) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /properties", s.handleProperties)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /commands/{name}", s.handleCommand)
	mux.HandleFunc("POST /tick", s.handleTick)
	return otelhttp.NewHandler(newCORS().Handler(mux), "host")
}

// ListenAndServe serves the surface on addr (h2c) until ctx is done
func (s *Surface) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.l.Warn("http shutdown", log.ErrorField(err))
		}
	}()
	s.l.Info("Starting http surface", log.String("addr", addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Surface) handleProperties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, host.PropertiesOf(s.status()))
}

func (s *Surface) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Surface) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name != host.CmdStartSetupTest && name != host.CmdStopSetupTest {
		writeJSON(w, http.StatusNotFound, host.CommandResult{
			Command: name, Error: host.ErrUnknownCommand.Error(),
		})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.commandTimeout)
	defer cancel()
	res := host.Execute(ctx, s.agent, name)
	s.l.Debug("command executed",
		log.String("command", name), log.Bool("ok", res.OK), log.String("error", res.Error))
	// a rejected command is acknowledged as well, the result tells why
	writeJSON(w, http.StatusOK, res)
}

func (s *Surface) handleTick(w http.ResponseWriter, r *http.Request) {
	var d model.GameData
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTickSize)).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if !s.agent.Tick(&d) {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	//nolint:errchkjson // nothing left to do if the client is gone
	json.NewEncoder(w).Encode(v)
}

func newCORS() *cors.Cors {
	// overlays run in the browser, any origin may read the properties
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Type"},
	})
}
