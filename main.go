package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antibyte/retrobasic/pkg/auth"
	"github.com/antibyte/retrobasic/pkg/configuration"
	"github.com/antibyte/retrobasic/pkg/logger"
	"github.com/antibyte/retrobasic/pkg/server"
	"github.com/antibyte/retrobasic/pkg/store"
	tlsmanager "github.com/antibyte/retrobasic/pkg/tls"
)

const shutdownTimeout = 10 * time.Second

// Web-Client, in das Binary eingebettet
//
//go:embed web
var webFiles embed.FS

func main() {
	configPath := flag.String("config", "settings.cfg", "path to the configuration file")
	flag.Parse()

	// Konfiguration vor allem anderen laden
	if err := configuration.Initialize(*configPath); err != nil {
		fmt.Printf("Error initializing configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.ConfigInfo("Server started - configuration loaded from: %s", *configPath)

	dbPath := configuration.GetString("Database", "path", "retrobasic.db")
	db, err := store.Open(dbPath)
	if err != nil {
		logger.Fatal(logger.AreaDatabase, "Database initialization failed: %v", err)
	}
	defer db.Close()
	logger.Info(logger.AreaDatabase, "Program library opened: %s", dbPath)

	tlsManager, err := tlsmanager.NewManager(tlsmanager.LoadConfig())
	if err != nil {
		logger.Fatal(logger.AreaTLS, "TLS manager initialization failed: %v", err)
	}

	sessions := server.NewHandler(db)
	mux := newMux(db, sessions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, mux, tlsManager); err != nil {
		logger.Error(logger.AreaGeneral, "Server stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	sessions.Shutdown(shutdownCtx)
	logger.Info(logger.AreaGeneral, "Server shut down")
}

// newMux registriert alle HTTP-Routen
func newMux(db *store.Store, sessions *server.Handler) *http.ServeMux {
	authHandler := auth.NewHandler(db)
	mux := http.NewServeMux()

	mux.HandleFunc("/api/session", authHandler.HandleSession)
	mux.HandleFunc("/api/session/validate", auth.HandleTokenValidation)
	mux.HandleFunc("/api/logout", auth.HandleLogout)
	mux.HandleFunc("/api/programs", auth.RequireSessionToken(servePrograms(db)))
	mux.HandleFunc("/ws", auth.RequireSessionToken(sessions.HandleWebSocket))

	// Root-Route zuletzt, sie fängt alles andere ab
	static, err := fs.Sub(webFiles, "web")
	if err != nil {
		logger.Fatal(logger.AreaGeneral, "Embedded web client missing: %v", err)
	}
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

// servePrograms listet die gespeicherten Programme des Benutzers
func servePrograms(db *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		claims, ok := auth.GetClaimsFromContext(r.Context())
		if !ok || claims.IsGuest() {
			http.Error(w, "Login required", http.StatusForbidden)
			return
		}
		programs, err := db.Programs(r.Context(), claims.Owner())
		if err != nil {
			logger.Error(logger.AreaDatabase, "Listing programs for %s failed: %v", claims.Owner(), err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(programs); err != nil {
			logger.Error(logger.AreaGeneral, "Encoding program list failed: %v", err)
		}
	}
}

// serve startet HTTP oder HTTPS und blockiert bis ctx endet oder ein Server ausfällt
func serve(ctx context.Context, handler http.Handler, tlsManager *tlsmanager.Manager) error {
	var servers []*http.Server
	errorChan := make(chan error, 2)

	start := func(srv *http.Server, useTLS bool) {
		servers = append(servers, srv)
		go func() {
			var err error
			if useTLS {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errorChan <- fmt.Errorf("%s: %w", srv.Addr, err)
			}
		}()
	}

	if tlsManager.Enabled() {
		logger.Info(logger.AreaTLS, "Starting HTTPS server on %s", tlsManager.HTTPSAddr())
		start(&http.Server{
			Addr:      tlsManager.HTTPSAddr(),
			Handler:   handler,
			TLSConfig: tlsManager.TLSConfig(),
		}, true)
		if tlsManager.NeedsHTTPServer() {
			logger.Info(logger.AreaTLS, "Starting HTTP server for challenges/redirects on %s", tlsManager.HTTPAddr())
			start(&http.Server{Addr: tlsManager.HTTPAddr(), Handler: tlsManager.HTTPHandler()}, false)
		}
	} else {
		addr := configuration.GetString("Server", "listen_address", "")
		if addr == "" {
			addr = tlsManager.HTTPAddr()
		}
		logger.Info(logger.AreaGeneral, "Starting HTTP server on %s", addr)
		start(&http.Server{Addr: addr, Handler: handler}, false)
	}

	var err error
	select {
	case err = <-errorChan:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		srv.Shutdown(shutdownCtx)
	}
	return err
}
