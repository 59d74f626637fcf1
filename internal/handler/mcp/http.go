package mcp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"cheque-bot/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// HTTPServer serves the MCP tools over streamable HTTP behind bearer API keys
type HTTPServer struct {
	mcpServer     *server.MCPServer
	apiKeyStorage storage.APIKeyStorage
	staticKeys    []string
	log           *zap.Logger

	server  *http.Server
	port    string
	running bool
	mu      sync.RWMutex
}

// NewHTTPServer creates a new MCP HTTP server controller. staticKeys are
// accepted in addition to the keys in apiKeyStorage, which may be nil.
func NewHTTPServer(mcpServer *server.MCPServer, apiKeyStorage storage.APIKeyStorage, staticKeys []string, port string, log *zap.Logger) *HTTPServer {
	if log == nil {
		log = zap.NewNop()
	}
	if port == "" {
		port = "8875"
	}
	return &HTTPServer{
		mcpServer:     mcpServer,
		apiKeyStorage: apiKeyStorage,
		staticKeys:    staticKeys,
		log:           log.Named("mcp_http"),
		port:          port,
	}
}

// Handler returns the HTTP routes
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	streamable := server.NewStreamableHTTPServer(s.mcpServer, server.WithStateLess(true))
	r.With(s.authenticate).Handle("/mcp", streamable)

	return r
}

// Start starts the MCP HTTP server
func (s *HTTPServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	if !s.hasKeys() {
		s.log.Warn("[MCP HTTP] no API keys configured, every request will be rejected")
	}

	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("failed to listen on :%s: %w", s.port, err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true

	go func() {
		s.log.Info("[MCP HTTP] Starting server", zap.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("[MCP HTTP] Server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the MCP HTTP server
func (s *HTTPServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("server is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.running = false
	s.log.Info("[MCP HTTP] Server stopped")
	return nil
}

// IsRunning returns whether the server is running
func (s *HTTPServer) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetPort returns the configured port
func (s *HTTPServer) GetPort() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

func (s *HTTPServer) hasKeys() bool {
	if len(s.staticKeys) > 0 {
		return true
	}
	if s.apiKeyStorage == nil {
		return false
	}
	keys, err := s.apiKeyStorage.GetAPIKeys()
	return err == nil && len(keys) > 0
}

func (s *HTTPServer) isValidKey(key string) bool {
	for _, k := range s.staticKeys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return s.apiKeyStorage != nil && s.apiKeyStorage.IsValidAPIKey(key)
}

// authenticate rejects requests without a valid "Authorization: Bearer <key>" header
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeRPCError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			writeRPCError(w, http.StatusUnauthorized, "Invalid Authorization format. Use: Bearer <token>")
			return
		}

		if !s.isValidKey(strings.TrimSpace(parts[1])) {
			s.log.Warn("[MCP HTTP] rejected API key", zap.String("remote", r.RemoteAddr))
			writeRPCError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeRPCError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    -32001,
			"message": message,
		},
	})
}
