// Package mcp provides an MCP (Model Context Protocol) server for porewalk.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/porewalk/internal/logging"
	"github.com/nvandessel/porewalk/internal/pathutil"
	"github.com/nvandessel/porewalk/internal/ratelimit"
	"github.com/nvandessel/porewalk/internal/simulation"
	"github.com/nvandessel/porewalk/internal/store"
)

// DefaultMaxParticles bounds the ensemble size of a single tool call.
const DefaultMaxParticles = 10000

// Server wraps the MCP SDK server and provides porewalk-specific functionality.
type Server struct {
	server *sdk.Server
	store  store.RunStore
	runner *simulation.Runner
	audit  *AuditLogger
	log    *slog.Logger

	toolLimiters ratelimit.ToolLimiters

	// fieldDirs holds the directories grids may be loaded from.
	fieldDirs []string

	// sims bounds concurrently running simulations.
	sims         chan struct{}
	maxParticles int
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "porewalk")
	Version string // Server version
	Dir     string // Run store directory

	// MaxConcurrent bounds simultaneous simulations (default 1).
	MaxConcurrent int
	// MaxParticles bounds the ensemble of one simulation (default DefaultMaxParticles).
	MaxParticles int

	// Limits overrides the per-tool rate limits; nil uses
	// ratelimit.DefaultLimits and an empty map disables limiting.
	Limits map[string]ratelimit.Limit

	Logger *slog.Logger
}

// NewServer creates a new MCP server with porewalk tools.
func NewServer(cfg *Config) (*Server, error) {
	runStore, err := store.NewSQLiteRunStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return newServer(cfg, runStore), nil
}

func newServer(cfg *Config, runStore store.RunStore) *Server {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	concurrent := cfg.MaxConcurrent
	if concurrent < 1 {
		concurrent = 1
	}
	maxParticles := cfg.MaxParticles
	if maxParticles < 1 {
		maxParticles = DefaultMaxParticles
	}

	limits := cfg.Limits
	if limits == nil {
		limits = ratelimit.DefaultLimits()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:       mcpServer,
		store:        runStore,
		runner:       simulation.NewRunner(runStore, simulation.WithLogger(log)),
		audit:        NewAuditLogger(cfg.Dir),
		log:          log,
		toolLimiters: ratelimit.NewToolLimiters(limits),
		fieldDirs:    pathutil.AllowedFieldDirs(cfg.Dir),
		sims:         make(chan struct{}, concurrent),
		maxParticles: maxParticles,
	}

	s.registerTools()
	s.registerResources()
	return s
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.Close()
	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	s.audit.Close()
	return s.store.Close()
}
