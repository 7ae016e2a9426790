package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"med-reminder/internal/config"
	"med-reminder/internal/httpapi"
	"med-reminder/internal/logging"
	"med-reminder/internal/repository"
	"med-reminder/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medreminder",
		Short:         "Medication reminder scheduling service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg         config.Config
	log         zerolog.Logger
	db          *gorm.DB
	loc         *time.Location
	medRepo     *repository.MedicationRepository
	reminderSvc *service.ReminderService
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	medRepo := repository.NewMedicationRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	return &app{
		cfg:         cfg,
		log:         logger,
		db:          db,
		loc:         loc,
		medRepo:     medRepo,
		reminderSvc: service.NewReminderService(medRepo, reminderRepo, loc, logger),
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tracker service.ScheduleTracker
	if a.cfg.SchedulerEnabled {
		scheduler := service.NewSchedulerService(a.loc, a.medRepo, a.reminderSvc, a.log, a.cfg.FireTimeout)
		if err := scheduler.Arm(ctx); err != nil {
			return fmt.Errorf("arm scheduler: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		tracker = scheduler
	}

	medSvc := service.NewMedicationService(a.medRepo, tracker, a.log)
	treatmentSvc := service.NewTreatmentService(repository.NewTreatmentRepository(a.db), a.reminderSvc, tracker, a.log)

	srv := &http.Server{
		Addr: a.cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Medications: medSvc,
			Treatments:  treatmentSvc,
			Reminders:   a.reminderSvc,
			Logger:      a.log,
			JWTSecret:   a.cfg.JWTSecret,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Bool("scheduler", a.cfg.SchedulerEnabled).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.log.Info().Msg("shutdown complete")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// setup migrates on open.
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			a.log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <medication-id>",
		Short: "Generate today's reminders for one medication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			gen, err := a.reminderSvc.GenerateForMedication(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			for _, w := range gen.Warnings {
				a.log.Warn().Str("field", w.Field).Msg(w.Message)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(gen.Reminders)
		},
	}
}
