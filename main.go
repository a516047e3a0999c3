// Command mars-rovers runs the Mars Rovers mission simulator.
//
// It supports three modes:
//  1. "run <file|->" – the batch driver: reads records from a file (or stdin) and prints
//     one "x y o [LOST]" line per rover
//  2. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  3. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config directory, session storage, debug logging, version
// output, and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mars-rovers/api"
	"github.com/wricardo/mars-rovers/game/config"
	"github.com/wricardo/mars-rovers/game/input"
	"github.com/wricardo/mars-rovers/game/service"
	"github.com/wricardo/mars-rovers/game/session"
	"github.com/wricardo/mars-rovers/transport/mcp"
	"github.com/wricardo/mars-rovers/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Mars Rovers Mission Server"
)

// Session store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", getEnvDefault("CONFIG_DIR", "configs"), "Directory containing mission configurations")
	store        = flag.String("store", getEnvDefault("SESSION_STORE", StoreFile), "Session store: file or sqlite")
	sessionsDir  = flag.String("sessions-dir", getEnvDefault("SESSIONS_DIR", "sessions"), "Directory for file session storage")
	dbPath       = flag.String("db-path", getEnvDefault("SESSIONS_DB", "sessions.db"), "SQLite database path for sqlite session storage")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getEnvDefault returns the environment value for key, or fallback when unset.
func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// serverConfig is the subset of flags needed to build the services
type serverConfig struct {
	ConfigDir   string
	Store       string
	SessionsDir string
	DBPath      string
}

func flagConfig() serverConfig {
	return serverConfig{
		ConfigDir:   *configDir,
		Store:       *store,
		SessionsDir: *sessionsDir,
		DBPath:      *dbPath,
	}
}

// services bundles what the server modes need
type services struct {
	Mission     service.MissionService
	Sessions    *session.Manager
	Persistence session.SessionPersistence
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  run <file|->      Process a record file (or stdin) and print rover positions\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s run input.txt          # Print the final position of every rover\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s                        # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -store sqlite server   # Keep sessions in sessions.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp              # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	// The batch driver keeps stdout for rover lines and needs no services
	if mode == "run" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		code := runBatch(ctx, args[1:], os.Stdin, os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	}

	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcs, err := initializeServices(flagConfig())
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer shutdownServices(svcs)

	go sessionCleanupRoutine(ctx, svcs.Sessions)
	go persistenceSyncRoutine(ctx, svcs.Sessions, svcs.Persistence)

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(ctx, svcs.Mission)

	case "server", "http":
		runHTTPServer(ctx, svcs.Mission)

	default:
		log.Printf("Unknown mode: %s. Use 'run', 'server' (default) or 'stdio-mcp'", mode)
		flag.Usage()
	}
}

// runBatch is the original line driver: it reads records from the named file
// ("-" for stdin) and writes one rover line per instruction record. It
// returns the process exit code.
func runBatch(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Missing input")
		return 1
	}

	var r io.Reader
	if args[0] == "-" {
		r = stdin
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open input: %v\n", err)
			return 1
		}
		defer f.Close()
		r = f
	}

	if _, err := input.Process(ctx, r, stdout, input.State{}); err != nil {
		var lineErr *input.LineError
		switch {
		case errors.As(err, &lineErr) && errors.Is(err, input.ErrMalformedRecord):
			fmt.Fprintf(stderr, "'%s' is an unknown instruction (line %d)\n", lineErr.Text, lineErr.Line)
		case errors.As(err, &lineErr):
			fmt.Fprintf(stderr, "line %d: %v\n", lineErr.Line, lineErr.Err)
		default:
			fmt.Fprintln(stderr, err)
		}
		return 1
	}
	return 0
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, missionService service.MissionService) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	apiServer := api.NewServer(missionService, hub)

	addr := fmt.Sprintf("%s:%d", *host, *port)

	// Create MCP client for /mcp endpoint
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	ngrokShouldRun := *ngrokEnabled
	if !ngrokShouldRun {
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			ngrokShouldRun = true
		}
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter)
		}()
	}

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
}

// mcpHandler serves single JSON-RPC MCP messages over HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx ends
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}

	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	// Serve returns once the tunnel is closed
	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// newPersistence opens the session store selected by cfg.Store
func newPersistence(cfg serverConfig, configs service.ConfigManager) (session.SessionPersistence, error) {
	switch cfg.Store {
	case StoreFile, "":
		return session.NewFilePersistence(cfg.SessionsDir, configs)
	case StoreSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return session.NewSQLitePersistence(cfg.DBPath, configs)
	default:
		return nil, fmt.Errorf("unknown session store %q (use %s or %s)", cfg.Store, StoreFile, StoreSQLite)
	}
}

// initializeServices wires config and session managers into the mission service
// and loads any persisted sessions.
func initializeServices(cfg serverConfig) (*services, error) {
	configManager, err := config.NewManager(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := newPersistence(cfg, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)

	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	log.Printf("Sessions: %d loaded (store: %s)", sessionManager.Count(), cfg.Store)

	return &services{
		Mission:     service.NewMissionService(sessionManager, configManager),
		Sessions:    sessionManager,
		Persistence: persistence,
	}, nil
}

// shutdownServices flushes sessions and releases the store
func shutdownServices(svcs *services) {
	if err := svcs.Sessions.SaveAllSessions(); err != nil {
		log.Printf("Warning: %v", err)
	}
	if err := svcs.Sessions.Close(); err != nil {
		log.Printf("Warning: Failed to close session store: %v", err)
	}
}

// sessionCleanupRoutine periodically drops sessions from memory that have not
// been accessed within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(24 * time.Hour); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// persistenceSyncRoutine periodically removes sessions from memory whose
// stored copy was deleted out from under the server.
func persistenceSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	if persistence == nil {
		return
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := pruneOrphanedSessions(manager, persistence); pruned > 0 {
				log.Printf("Store sync: pruned %d orphaned sessions from memory", pruned)
			}
		}
	}
}

func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.Printf("Pruned session %s from memory (store record deleted)", s.ID)
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, missionService service.MissionService) {
	var baseURL string

	externalURL := "http://localhost:8080"
	log.Printf("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
		baseURL = externalURL
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("Failed to get available port: %v", err)
		}

		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{
			Handler: api.NewServer(missionService, hub),
		}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)

	if baseURL == externalURL {
		log.Println("MCP stdio server ready (using external HTTP server)")
	} else {
		log.Println("MCP stdio server ready (using internal HTTP server)")
	}

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Printf("MCP stdio server error: %v", err)
	}
}
