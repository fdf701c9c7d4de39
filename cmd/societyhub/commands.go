package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/societyhub/internal/audit"
	"github.com/mmynk/societyhub/internal/auth"
	"github.com/mmynk/societyhub/internal/config"
	"github.com/mmynk/societyhub/internal/filestore"
	"github.com/mmynk/societyhub/internal/httpapi"
	"github.com/mmynk/societyhub/internal/metrics"
	"github.com/mmynk/societyhub/internal/service"
	"github.com/mmynk/societyhub/internal/storage/sqlstore"
	"github.com/mmynk/societyhub/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

// setup loads the config, installs the default logger and opens the store.
func setup(ctx context.Context, configPath string) (config.Config, *sqlstore.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logging.SetupWith(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	store, err := sqlstore.Open(ctx, sqlstore.Dialect(cfg.Storage.Driver), cfg.Storage.DSN)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("Storage initialized", "driver", cfg.Storage.Driver)
	return cfg, store, nil
}

func newZap(format string) (*zap.Logger, error) {
	if strings.EqualFold(format, "json") {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, store, err := setup(ctx, *configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			files, err := filestore.Open(ctx, cfg.Files)
			if err != nil {
				return fmt.Errorf("failed to initialize file store: %w", err)
			}

			zapLog, err := newZap(cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize audit logger: %w", err)
			}
			defer zapLog.Sync()

			auditLog := audit.New(store, zapLog.Named("audit"), cfg.Audit.Mode)
			m := metrics.New()
			authenticator := auth.NewPasswordAuthenticator(store)
			jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)

			svc := httpapi.Services{
				Auth:      service.NewAuthService(authenticator, jwtManager, store, auditLog, slog.Default()),
				Societies: service.NewSocietyService(store, authenticator, auditLog, m),
				Tenancy:   service.NewTenancyService(store, files, filestore.NewTextRenderer(files), authenticator, auditLog, m),
				Notices:   service.NewNoticeService(store, auditLog, m),
				Bills:     service.NewBillService(store, auditLog, m),
			}
			handler := httpapi.New(svc, jwtManager, m, store, cfg.MaxUploadBytes).Routes()

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           h2c.NewHandler(handler, &http2.Server{}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				slog.Info("Server starting", "address", cfg.Addr, "files", cfg.Files.Driver, "audit", cfg.Audit.Mode)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				slog.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Open runs the migrations.
			_, store, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer store.Close()
			slog.Info("Migrations applied")
			return nil
		},
	}
}

func createSuperadminCmd(configPath *string) *cobra.Command {
	var name, phone string
	cmd := &cobra.Command{
		Use:   "create-superadmin",
		Short: "Create the initial superadmin account",
		Long:  "Create the initial superadmin account. The password is read from SOCIETYHUB_SUPERADMIN_PASSWORD.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("SOCIETYHUB_SUPERADMIN_PASSWORD")
			if password == "" {
				return errors.New("SOCIETYHUB_SUPERADMIN_PASSWORD is not set")
			}

			cfg, store, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			authSvc := service.NewAuthService(
				auth.NewPasswordAuthenticator(store),
				auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration),
				store, nil, slog.Default(),
			)
			created, err := authSvc.EnsureSuperadmin(cmd.Context(), name, phone, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "superadmin %s created\n", phone)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "superadmin %s already exists\n", phone)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Superadmin", "display name")
	cmd.Flags().StringVar(&phone, "phone", "", "login phone number")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.NewPasswordAuthenticator(nil).ValidateCredential(args[0]); err != nil {
				return err
			}
			hash, err := auth.HashPassword(args[0], cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
