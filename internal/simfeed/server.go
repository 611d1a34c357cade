package simfeed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/okian/roundwatch/pkg/logger"
)

// PublishPath is where the game server publishes round results.
const PublishPath = "/ws/result/publish_results"

const writeTimeout = 5 * time.Second

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msgType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(msgType, data)
}

// Server publishes table rounds to every connected client.
type Server struct {
	cfg      Config
	table    *Table
	upgrader websocket.Upgrader
	router   *mux.Router

	mu      sync.Mutex
	clients map[string]*client

	logger logger.Logger
}

// NewServer creates a publisher for cfg.
func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:      cfg,
		table:    NewTable(cfg.Players, cfg.StartBalance, cfg.MaxBet, cfg.Seed),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		router:   mux.NewRouter(),
		clients:  make(map[string]*client),
		logger:   logger.Get().Named("simfeed"),
	}
	s.router.HandleFunc(PublishPath, s.handleSubscribe).Methods(http.MethodGet)
	return s
}

// Handler returns the HTTP handler serving PublishPath.
func (s *Server) Handler() http.Handler { return s.router }

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := &client{id: uuid.NewString(), conn: conn}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info(r.Context(), "result subscriber connected", logger.String("id", c.id))

	// the endpoint is publish-only; reading just detects the peer leaving
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(c)
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c.id]
	delete(s.clients, c.id)
	s.mu.Unlock()
	if ok {
		_ = c.conn.Close()
		s.logger.Info(context.Background(), "result subscriber left", logger.String("id", c.id))
	}
}

func (s *Server) snapshot() []*client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

// PublishNext plays one round and sends it to every client.
func (s *Server) PublishNext(ctx context.Context) error {
	ev := s.table.Next()
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	for _, c := range s.snapshot() {
		if err := c.write(websocket.TextMessage, data); err != nil {
			s.logger.Warn(ctx, "publish failed", logger.String("id", c.id), logger.Error(err))
			s.drop(c)
		}
	}
	s.logger.Debug(ctx, "round published",
		logger.Int("round", ev.Round),
		logger.Int("seated", len(ev.Balances)),
	)
	return nil
}

// Run publishes a round every interval until ctx ends, the configured
// number of rounds is reached or every player has left. Clients get a
// normal close frame at the end.
func (s *Server) Run(ctx context.Context) error {
	defer s.closeAll()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.Clients() == 0 && s.cfg.WaitForClients {
				continue
			}
			if err := s.PublishNext(ctx); err != nil {
				return err
			}
			if s.cfg.Rounds > 0 && s.table.Round() >= s.cfg.Rounds {
				s.logger.Info(ctx, "all rounds published", logger.Int("rounds", s.table.Round()))
				return nil
			}
			if s.table.Seated() == 0 {
				s.logger.Info(ctx, "table empty", logger.Int("rounds", s.table.Round()))
				return nil
			}
		}
	}
}

func (s *Server) closeAll() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game over")
	for _, c := range s.snapshot() {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.mu.Unlock()
	}
}

// ListenAndServe serves on cfg.Addr and publishes rounds until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info(ctx, "publishing results",
		logger.String("addr", s.cfg.Addr),
		logger.String("path", PublishPath),
		logger.Int("players", s.cfg.Players),
	)

	runErr := s.Run(ctx)

	// give clients a moment to read the close frame
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err, ok := <-errCh; ok && err != nil {
		return err
	}
	return runErr
}
