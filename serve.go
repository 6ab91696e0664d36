package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/minios-linux/datrans/config"
	"github.com/minios-linux/datrans/i18n"
	"github.com/minios-linux/datrans/pipeline"
	"github.com/minios-linux/datrans/provider"
	"github.com/minios-linux/datrans/server"
	"github.com/minios-linux/datrans/settings"
)

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var (
		addr    string
		verbose bool
		pf      providerFlags
		ef      engineFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: i18n.T("Run the HTTP translation service"),
		Long: `Run an HTTP service that translates posted records.

Endpoints:
  GET  /api/v1/health        Provider reachability
  POST /api/v1/translate     Translate a JSON array of records
  GET  /api/v1/runs/:run_id  Report of a recent run

Provider and engine settings come from datrans.yaml when present and
are overridden by flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := config.Load(rootDir)
			if err != nil {
				return err
			}
			if job == nil {
				job = &config.File{}
			}
			p := pf.apply(cmd.Flags(), job.Provider)
			e := ef.apply(cmd.Flags(), job.Engine)

			prov, cfg, err := buildProvider(p, pf.apiKey, verbose)
			if err != nil {
				return err
			}

			eo := engineOptions(e)
			eo.Verbose = verbose
			opts := pipeline.Options{Engine: eo, OnLog: logInfo, OnWarn: logWarning, OnError: logError}

			if !verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			var middleware []gin.HandlerFunc
			if verbose {
				middleware = append(middleware, gin.Logger())
			}
			router := server.NewRouter(server.NewAPI(prov, cfg.ID, opts), middleware...)

			srv := &http.Server{Addr: addr, Handler: router}
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			logInfo(i18n.T("Serving %s on %s"), cfg.Name, addr)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logInfo(i18n.T("Shutting down..."))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log requests and engine details")
	pf.register(cmd)
	ef.register(cmd.Flags())

	return cmd
}

// ---------------------------------------------------------------------------
// providers
// ---------------------------------------------------------------------------

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: i18n.T("List translation providers"),
		Run: func(cmd *cobra.Command, args []string) {
			for _, line := range providerTable() {
				fmt.Println(line)
			}
		},
	}
}

// providerTable renders one line per provider: id, name, auth and endpoint.
func providerTable() []string {
	defs := provider.DefaultConfigs()
	lines := make([]string, 0, len(defs))
	for _, id := range provider.IDs() {
		d := defs[id]
		auth := "no key"
		if d.NeedsKey {
			auth = "key: " + strings.TrimSpace(settings.EnvAPIKey+" "+settings.EnvVarForProvider(id))
			if settings.GetAPIKey(id) != "" {
				auth += " (stored)"
			}
		}
		endpoint := d.BaseURL
		if endpoint == "" {
			endpoint = "-"
		}
		lines = append(lines, fmt.Sprintf("%-14s %-24s %-42s %s", id, d.Name, auth, endpoint))
	}
	return lines
}
