package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmcleod/sqlconsole/api"
	"github.com/jmcleod/sqlconsole/audit"
	"github.com/jmcleod/sqlconsole/db"
	"github.com/jmcleod/sqlconsole/web"
)

var (
	port           int
	dataDir        string
	configFile     string
	tlsCert        string
	tlsKey         string
	anonymousQuery bool
	acquireTimeout time.Duration
)

// fileConfig is the YAML configuration file structure. Every field is
// optional; environment variables and flags win over the file.
type fileConfig struct {
	DSN            string `yaml:"dsn"`
	PoolMax        int32  `yaml:"pool_max"`
	Port           int    `yaml:"port"`
	DataDir        string `yaml:"data_dir"`
	AnonymousQuery *bool  `yaml:"anonymous_query"`
	AcquireTimeout string `yaml:"acquire_timeout"` // e.g. "5s"
	TLS            struct {
		Cert string `yaml:"cert"`
		Key  string `yaml:"key"`
	} `yaml:"tls"`
}

func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the SQL console server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		dbCfg := db.ConfigFromEnv()
		if configFile != "" {
			fc, err := loadConfigFile(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dbCfg.DSN == "" {
				dbCfg.DSN = fc.DSN
			}
			if dbCfg.PoolMax == 0 {
				dbCfg.PoolMax = fc.PoolMax
			}
			if !cmd.Flags().Changed("port") && fc.Port != 0 {
				port = fc.Port
			}
			if !cmd.Flags().Changed("data-dir") && fc.DataDir != "" {
				dataDir = fc.DataDir
			}
			if !cmd.Flags().Changed("anonymous-query") && fc.AnonymousQuery != nil {
				anonymousQuery = *fc.AnonymousQuery
			}
			if !cmd.Flags().Changed("acquire-timeout") && fc.AcquireTimeout != "" {
				d, err := time.ParseDuration(fc.AcquireTimeout)
				if err != nil {
					return fmt.Errorf("parse acquire_timeout: %w", err)
				}
				acquireTimeout = d
			}
			if tlsCert == "" {
				tlsCert = fc.TLS.Cert
				tlsKey = fc.TLS.Key
			}
		}
		if dbCfg.DSN == "" {
			logger.Warn("No base DSN configured; every query will fail until " + db.EnvDSN + " is set.")
		}

		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}

		auditStore, err := audit.Open(dataDir + "/audit.db")
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer auditStore.Close()

		provisioner := db.NewProvisioner(dbCfg)
		defer provisioner.Close()

		a := api.New(provisioner,
			api.WithLogger(logger),
			api.WithAuditRecorder(auditStore),
			api.WithAnonymousQuery(anonymousQuery),
			api.WithAcquireTimeout(acquireTimeout),
		)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(api.SecurityHeaders)

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Handle("/metrics", a.MetricsHandler())

		r.Mount("/api", a.Router())

		webHandler, err := web.Handler()
		if err != nil {
			return err
		}
		r.Handle("/*", webHandler)

		var tlsConfig *tls.Config
		if tlsCert != "" && tlsKey != "" {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		// No WriteTimeout: query responses stream for as long as the
		// client keeps reading. Slow-client protection comes from the
		// header and idle timeouts plus request cancellation.
		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if tlsConfig != nil {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d (data: %s)...\n", port, dataDir)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&configFile, "config", "", "Path to YAML config file")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
	serverCmd.Flags().BoolVar(&anonymousQuery, "anonymous-query", true, "Allow queries on the shared pool without a session")
	serverCmd.Flags().DurationVar(&acquireTimeout, "acquire-timeout", 0, "Max wait for a pooled connection (0 waits indefinitely)")
}
