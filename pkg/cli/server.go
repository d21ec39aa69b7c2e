package cli

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mchmarny/creditrisk/pkg/dataset"
	"github.com/mchmarny/creditrisk/pkg/explore"
	"github.com/mchmarny/creditrisk/pkg/store"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080

	portFlagName      = "port"
	noBrowserFlagName = "no-browser"
)

//go:embed templates/*
var embedFS embed.FS

func newServerCmd() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Start local HTTP server showing the charts and summaries",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  portFlagName,
				Usage: "Port on which the server will listen",
				Value: serverPortDefault,
			},
			&cli.BoolFlag{
				Name:    noBrowserFlagName,
				Aliases: []string{"nb"},
				Usage:   "Do not open browser automatically",
			},
		},
	}
}

// server holds what the handlers read. The table is loaded once and only
// read afterwards; every request draws its own Figure.
type server struct {
	explorer *explore.Explorer
	table    *dataset.Table
	store    *store.Store
	tmpl     *template.Template
}

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	e, err := explore.New(cfg.Config)
	if err != nil {
		return err
	}

	t, err := e.Load(ctx, cfg.Config.Input)
	if err != nil {
		return err
	}

	address := fmt.Sprintf("127.0.0.1:%d", int(cmd.Int(portFlagName)))
	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(e, t, cfg.Store),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	url := fmt.Sprintf("http://%s", address)
	slog.Info("server started", "address", url)

	if !cmd.Bool(noBrowserFlagName) {
		if err := openTarget(url); err != nil {
			slog.Error("failed to open browser", "error", err)
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("error starting server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(e *explore.Explorer, t *dataset.Table, st *store.Store) *http.ServeMux {
	srv := &server{
		explorer: e,
		table:    t,
		store:    st,
		tmpl:     template.Must(template.New("").Funcs(templateFuncs).ParseFS(embedFS, "templates/*.html")),
	}

	mux := http.NewServeMux()

	// Views
	mux.HandleFunc("GET /{$}", srv.homeViewHandler)
	mux.HandleFunc("GET /charts/{name}", srv.chartHandler)

	// Data API
	mux.HandleFunc("GET /data/summary", srv.summaryAPIHandler)
	mux.HandleFunc("GET /data/history", srv.historyAPIHandler)

	return mux
}
