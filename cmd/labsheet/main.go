// Package main is the entrypoint for the labsheet CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sandunwb/labsheet/internal/cloud"
	"github.com/sandunwb/labsheet/internal/config"
	"github.com/sandunwb/labsheet/internal/metrics"
	"github.com/sandunwb/labsheet/internal/models"
	"github.com/sandunwb/labsheet/internal/notifications"
	"github.com/sandunwb/labsheet/internal/render"
	"github.com/sandunwb/labsheet/internal/scheduler"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "labsheet",
		Short: "Lab sheet generator - automated weekly practical sheets",
		Long: `Labsheet keeps a collection of weekly lab schedules and generates
the sheet for each upcoming practical ahead of time, optionally
mirroring schedules and documents to cloud storage.

Run 'labsheet init' to set up your student details.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newScheduleCmd(),
		newRunCmd(),
		newGenerateCmd(),
		newSyncCmd(),
		newHistoryCmd(),
		newCloudCmd(),
		newTemplatesCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Labsheet %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Built:      %s\n", BuildDate)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newInitCmd() *cobra.Command {
	var (
		name      string
		studentID string
		outputDir string
		template  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up student details and defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return err
			}

			if name != "" {
				cfg.StudentName = name
			}
			if studentID != "" {
				cfg.StudentID = studentID
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if template != "" {
				if err := render.NewRegistry().Validate(template); err != nil {
					return err
				}
				cfg.DefaultTemplate = template
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.SaveDefault(); err != nil {
				return err
			}

			path, _ := config.DefaultConfigPath()
			fmt.Printf("Configuration saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "student name printed on sheets")
	cmd.Flags().StringVar(&studentID, "id", "", "student id printed on sheets")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory generated sheets are written to")
	cmd.Flags().StringVar(&template, "template", "", "default sheet template")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage weekly lab schedules",
	}
	cmd.AddCommand(
		newScheduleAddCmd(),
		newScheduleListCmd(),
		newScheduleShowCmd(),
		newSchedulePauseCmd(),
		newScheduleResumeCmd(),
		newScheduleDisableCmd(),
		newScheduleDeleteCmd(),
		newScheduleSkipCmd(),
		newScheduleIncrementCmd(),
		newScheduleNextCmd(),
	)
	return cmd
}

func newScheduleAddCmd() *cobra.Command {
	var (
		moduleCode      string
		moduleName      string
		day             string
		labTime         string
		generateBefore  int
		practicalNumber int
		template        string
		sheetType       string
		repeat          bool
		noAutoIncrement bool
		noPadding       bool
		noUpload        bool
		noConfirm       bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a weekly lab schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := openManager()
			if err != nil {
				return err
			}

			dayOfWeek, err := parseDay(day)
			if err != nil {
				return err
			}
			clock, err := models.ParseClockTime(labTime)
			if err != nil {
				return err
			}

			if template == "" {
				template = cfg.DefaultTemplate
			}
			if err := render.NewRegistry().Validate(template); err != nil {
				return err
			}

			opts := []models.Option{
				models.WithTemplate(template),
				models.WithGenerateBefore(generateBefore),
				models.WithPracticalNumber(practicalNumber),
				models.WithAutoIncrement(!noAutoIncrement),
				models.WithZeroPadding(!noPadding),
				models.WithRepeatMode(repeat),
				models.WithOneDriveUpload(!noUpload),
				models.WithConfirmation(!noConfirm),
			}
			if sheetType != "" {
				opts = append(opts, models.WithSheetType(sheetType))
			}

			sched, res, err := mgr.Create(cmd.Context(), moduleCode, moduleName, dayOfWeek, clock, opts...)
			if err != nil {
				return err
			}
			if !res.LocalOK() {
				return res.Local
			}

			fmt.Printf("Added %s (%s %s) with id %s\n", sched.ModuleCode, sched.DayName(), sched.FormattedTime(), sched.ID)
			reportRemote(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&moduleCode, "module-code", "", "module code, e.g. SE3040")
	cmd.Flags().StringVar(&moduleName, "module-name", "", "module name")
	cmd.Flags().StringVar(&day, "day", "", "lab day: monday..sunday or 0..6")
	cmd.Flags().StringVar(&labTime, "time", "", "lab start time, 24h HH:MM")
	cmd.Flags().IntVar(&generateBefore, "generate-before", models.DefaultGenerateBeforeMinutes, "minutes before the lab to generate the sheet")
	cmd.Flags().IntVar(&practicalNumber, "practical", 1, "starting practical number")
	cmd.Flags().StringVar(&template, "template", "", "sheet template (default from config)")
	cmd.Flags().StringVar(&sheetType, "sheet-type", "", "sheet type label, e.g. Practical or Tutorial")
	cmd.Flags().BoolVar(&repeat, "repeat", false, "reuse the same practical number every week")
	cmd.Flags().BoolVar(&noAutoIncrement, "no-auto-increment", false, "do not advance the practical number after generation")
	cmd.Flags().BoolVar(&noPadding, "no-padding", false, "do not zero-pad the practical number")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "do not upload generated sheets to cloud storage")
	cmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "do not send a confirmation email")

	cobra.CheckErr(cmd.MarkFlagRequired("module-code"))
	cobra.CheckErr(cmd.MarkFlagRequired("module-name"))
	cobra.CheckErr(cmd.MarkFlagRequired("day"))
	cobra.CheckErr(cmd.MarkFlagRequired("time"))
	return cmd
}

func newScheduleListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules with their next generation time",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := openManager()
			if err != nil {
				return err
			}

			schedules := mgr.GetAll()
			if activeOnly {
				schedules = mgr.GetActive()
			}
			if len(schedules) == 0 {
				fmt.Println("No schedules.")
				return nil
			}

			for _, s := range schedules {
				fmt.Printf("%s  %-8s %-10s %s %s  next: %s  [%s]\n",
					shortID(s.ID.String()),
					s.ModuleCode,
					s.DayName(),
					s.FormattedTime(),
					s.SheetLabel(),
					mgr.NextGenerationTimeString(s),
					s.Status,
				)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "show only active schedules")
	return cmd
}

func newScheduleShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one schedule in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := openManager()
			if err != nil {
				return err
			}
			s, err := resolveSchedule(mgr, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("ID:               %s\n", s.ID)
			fmt.Printf("Module:           %s - %s\n", s.ModuleCode, s.ModuleName)
			fmt.Printf("Lab:              %s %s\n", s.DayName(), s.FormattedTime())
			fmt.Printf("Sheet:            %s (%s template)\n", s.SheetLabel(), s.TemplateID)
			fmt.Printf("Status:           %s\n", s.Status)
			fmt.Printf("Generate before:  %d minutes\n", s.GenerateBeforeMinutes)
			fmt.Printf("Next generation:  %s\n", mgr.NextGenerationTimeString(s))
			fmt.Printf("Auto increment:   %t (repeat mode %t)\n", s.AutoIncrement, s.RepeatMode)
			fmt.Printf("Cloud upload:     %t\n", s.UploadToOneDrive)
			fmt.Printf("Confirmation:     %t\n", s.SendConfirmation)
			if len(s.SkipDates) > 0 {
				fmt.Printf("Skip dates:       %s\n", strings.Join(s.SkipDates, ", "))
			}
			if s.LastGeneratedAt != nil {
				fmt.Printf("Last generated:   %s\n", s.LastGeneratedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

// scheduleActionCmd builds a subcommand that applies one manager action
// to a schedule id.
func scheduleActionCmd(use, short, done string, action func(*scheduler.Manager, context.Context, *models.Schedule) (bool, scheduler.SyncResult)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := openManager()
			if err != nil {
				return err
			}
			s, err := resolveSchedule(mgr, args[0])
			if err != nil {
				return err
			}

			ok, res := action(mgr, cmd.Context(), s)
			if !ok {
				return fmt.Errorf("schedule %s not found", args[0])
			}
			if !res.LocalOK() {
				return res.Local
			}

			fmt.Printf("%s %s\n", done, s.ModuleCode)
			reportRemote(res)
			return nil
		},
	}
}

func newSchedulePauseCmd() *cobra.Command {
	return scheduleActionCmd("pause", "Pause a schedule", "Paused",
		func(m *scheduler.Manager, ctx context.Context, s *models.Schedule) (bool, scheduler.SyncResult) {
			return m.Pause(ctx, s.ID)
		})
}

func newScheduleResumeCmd() *cobra.Command {
	return scheduleActionCmd("resume", "Resume a paused schedule", "Resumed",
		func(m *scheduler.Manager, ctx context.Context, s *models.Schedule) (bool, scheduler.SyncResult) {
			return m.Resume(ctx, s.ID)
		})
}

func newScheduleDisableCmd() *cobra.Command {
	return scheduleActionCmd("disable", "Disable a schedule", "Disabled",
		func(m *scheduler.Manager, ctx context.Context, s *models.Schedule) (bool, scheduler.SyncResult) {
			return m.Disable(ctx, s.ID)
		})
}

func newScheduleDeleteCmd() *cobra.Command {
	return scheduleActionCmd("delete", "Delete a schedule", "Deleted",
		func(m *scheduler.Manager, ctx context.Context, s *models.Schedule) (bool, scheduler.SyncResult) {
			return m.Delete(ctx, s.ID)
		})
}

func newScheduleIncrementCmd() *cobra.Command {
	return scheduleActionCmd("increment", "Advance the practical number", "Incremented",
		func(m *scheduler.Manager, ctx context.Context, s *models.Schedule) (bool, scheduler.SyncResult) {
			return m.IncrementPracticalNumber(ctx, s.ID)
		})
}

func newScheduleSkipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skip <id> <date>",
		Short: "Skip one lab occurrence (date as 2006-01-02)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := openManager()
			if err != nil {
				return err
			}
			s, err := resolveSchedule(mgr, args[0])
			if err != nil {
				return err
			}
			if _, err := time.Parse("2006-01-02", args[1]); err != nil {
				return fmt.Errorf("invalid date %q: want 2006-01-02", args[1])
			}

			ok, res := mgr.AddSkipDate(cmd.Context(), s.ID, args[1])
			if !ok {
				fmt.Printf("%s is already skipped for %s\n", args[1], s.ModuleCode)
				return nil
			}
			if !res.LocalOK() {
				return res.Local
			}

			fmt.Printf("Skipping %s for %s\n", args[1], s.ModuleCode)
			reportRemote(res)
			return nil
		},
	}
}

func newScheduleNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next <id>",
		Short: "Show when the next sheet will be generated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := openManager()
			if err != nil {
				return err
			}
			s, err := resolveSchedule(mgr, args[0])
			if err != nil {
				return err
			}

			next := mgr.NextGenerationTime(s)
			fmt.Printf("%s %s: %s (%s)\n",
				s.ModuleCode, s.SheetLabel(),
				mgr.NextGenerationTimeString(s),
				next.Format("2006-01-02 15:04"),
			)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var scanSpec string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the generation loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg.LogLevel)
			driver, history, err := buildDriver(cfg, scanSpec, logger)
			if err != nil {
				return err
			}
			if history != nil {
				defer history.Close()
			}

			var metricsSrv *http.Server
			if cfg.MetricsAddr != "" {
				reg := prometheus.NewRegistry()
				m, err := metrics.New(reg)
				if err != nil {
					return err
				}
				driver.SetMetrics(m)

				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
				go func() {
					logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener started")
					if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error().Err(err).Msg("metrics listener failed")
					}
				}()
			}

			if err := driver.Start(); err != nil {
				return err
			}
			// fire anything already due instead of waiting a scan interval
			driver.Scan(cmd.Context())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			logger.Info().Str("signal", sig.String()).Msg("shutting down")

			driver.Stop()
			if metricsSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metricsSrv.Shutdown(ctx)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scanSpec, "scan-interval", "@every 1m", "cron spec for the due-schedule scan")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run a single scan, generating anything due now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg.LogLevel)
			driver, history, err := buildDriver(cfg, "", logger)
			if err != nil {
				return err
			}
			if history != nil {
				defer history.Close()
			}

			driver.Scan(cmd.Context())
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror schedules and configuration to cloud storage",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "now",
			Short: "Upload the schedule file to cloud storage",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, mgr, err := openManager()
				if err != nil {
					return err
				}
				if err := mgr.SyncToCloud(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("Schedules synced to cloud.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "push",
			Short: "Upload the user configuration to cloud storage",
			RunE:  func(cmd *cobra.Command, args []string) error { return runConfigSync(cmd.Context(), "push") },
		},
		&cobra.Command{
			Use:   "pull",
			Short: "Download the user configuration from cloud storage",
			RunE:  func(cmd *cobra.Command, args []string) error { return runConfigSync(cmd.Context(), "pull") },
		},
	)
	return cmd
}

func runConfigSync(ctx context.Context, direction string) error {
	cfg, err := config.LoadDefault()
	if err != nil {
		return err
	}
	configDir, err := config.DefaultConfigDir()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	remote, err := buildRemote(ctx, cfg, configDir, logger)
	if err != nil {
		return err
	}
	if remote == nil {
		return fmt.Errorf("no cloud provider configured")
	}

	sm := cloud.NewSyncManager(remote, configDir, logger)
	if direction == "push" {
		err = sm.Push(ctx)
	} else {
		err = sm.Pull(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Configuration %sed.\n", direction)
	return nil
}

func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		scheduleID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return err
			}
			configDir, err := config.DefaultConfigDir()
			if err != nil {
				return err
			}

			logger := newLogger(cfg.LogLevel)
			history, err := scheduler.NewHistoryStore(configDir, logger)
			if err != nil {
				return err
			}
			defer history.Close()

			var entries []*scheduler.HistoryEntry
			if scheduleID != "" {
				_, mgr, err := openManager()
				if err != nil {
					return err
				}
				s, err := resolveSchedule(mgr, scheduleID)
				if err != nil {
					return err
				}
				entries, err = history.ListBySchedule(cmd.Context(), s.ID, limit)
				if err != nil {
					return err
				}
			} else {
				entries, err = history.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
			}

			if len(entries) == 0 {
				fmt.Println("No history.")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  %-8s %-14s %s",
					e.StartedAt.Local().Format("2006-01-02 15:04"),
					e.ModuleCode,
					e.SheetLabel,
					e.Status,
				)
				if e.Error != "" {
					line += "  (" + e.Error + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	cmd.Flags().StringVar(&scheduleID, "schedule", "", "only show one schedule's history")
	return cmd
}

func newCloudCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Manage cloud storage sign-in",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Sign in to OneDrive",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := oneDriveStore()
				if err != nil {
					return err
				}

				fmt.Println("Open this URL in a browser and sign in:")
				fmt.Println()
				fmt.Println("  " + store.AuthURL("labsheet"))
				fmt.Println()
				fmt.Print("Paste the code from the redirect URL: ")

				var code string
				if _, err := fmt.Scanln(&code); err != nil {
					return fmt.Errorf("read code: %w", err)
				}
				if err := store.Authenticate(cmd.Context(), strings.TrimSpace(code)); err != nil {
					return err
				}

				name, err := store.UserDisplayName(cmd.Context())
				if err != nil {
					fmt.Println("Signed in.")
					return nil
				}
				fmt.Printf("Signed in as %s.\n", name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Sign out of OneDrive",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := oneDriveStore()
				if err != nil {
					return err
				}
				if err := store.SignOut(); err != nil {
					return err
				}
				fmt.Println("Signed out.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show cloud storage status",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.LoadDefault()
				if err != nil {
					return err
				}
				configDir, err := config.DefaultConfigDir()
				if err != nil {
					return err
				}

				if cfg.CloudProvider == config.ProviderNone {
					fmt.Println("No cloud provider configured.")
					return nil
				}
				fmt.Printf("Provider: %s\n", cfg.CloudProvider)

				remote, err := buildRemote(cmd.Context(), cfg, configDir, newLogger(cfg.LogLevel))
				if err != nil {
					return err
				}
				if remote.IsAuthenticated() {
					fmt.Println("Status:   authenticated")
				} else {
					fmt.Println("Status:   not authenticated")
				}

				sm := cloud.NewSyncManager(remote, configDir, newLogger(cfg.LogLevel))
				if status, ok := sm.Status(); ok {
					outcome := "ok"
					if !status.Success {
						outcome = "failed: " + status.Error
					}
					fmt.Printf("Last config sync: %s (%s, %s)\n",
						status.LastSyncAt.Local().Format("2006-01-02 15:04"), status.Direction, outcome)
				}
				return nil
			},
		},
	)
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List available sheet templates",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range render.NewRegistry().List() {
				fmt.Printf("%-10s %-10s %s\n", t.ID, t.Name, t.Description)
			}
		},
	}
}

// newLogger builds the CLI logger at the configured level.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// openManager loads the config and opens the schedule manager with the
// configured remote store attached.
func openManager() (*config.Config, *scheduler.Manager, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, nil, err
	}
	configDir, err := config.DefaultConfigDir()
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg.LogLevel)
	remote, err := buildRemote(context.Background(), cfg, configDir, logger)
	if err != nil {
		return nil, nil, err
	}

	var remoteStore scheduler.RemoteStore
	if remote != nil {
		remoteStore = remote
	}
	return cfg, scheduler.NewManager(configDir, remoteStore, logger), nil
}

// buildRemote constructs the configured cloud store, or nil when no
// provider is configured.
func buildRemote(ctx context.Context, cfg *config.Config, configDir string, logger zerolog.Logger) (cloud.Store, error) {
	switch cfg.CloudProvider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderOneDrive:
		return cloud.NewOneDriveStore(cfg.OneDrive, configDir, logger)
	case config.ProviderS3:
		return cloud.NewS3Store(ctx, cfg.S3, logger)
	default:
		return nil, fmt.Errorf("unknown cloud_provider %q", cfg.CloudProvider)
	}
}

func oneDriveStore() (*cloud.OneDriveStore, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	if cfg.CloudProvider != config.ProviderOneDrive {
		return nil, fmt.Errorf("cloud_provider is %q, not onedrive", cfg.CloudProvider)
	}
	configDir, err := config.DefaultConfigDir()
	if err != nil {
		return nil, err
	}
	return cloud.NewOneDriveStore(cfg.OneDrive, configDir, newLogger(cfg.LogLevel))
}

// buildDriver wires manager, renderer, history, remote store and
// notifier into a firing driver.
func buildDriver(cfg *config.Config, scanSpec string, logger zerolog.Logger) (*scheduler.Driver, *scheduler.HistoryStore, error) {
	configDir, err := config.DefaultConfigDir()
	if err != nil {
		return nil, nil, err
	}

	remote, err := buildRemote(context.Background(), cfg, configDir, logger)
	if err != nil {
		return nil, nil, err
	}

	var remoteStore scheduler.RemoteStore
	if remote != nil {
		remoteStore = remote
	}
	mgr := scheduler.NewManager(configDir, remoteStore, logger)

	renderer := render.NewTextRenderer(render.NewRegistry(), logger)
	driver := scheduler.NewDriver(mgr, renderer, scheduler.DriverConfig{
		StudentName: cfg.StudentName,
		StudentID:   cfg.StudentID,
		OutputDir:   cfg.OutputDir,
		NotifyEmail: cfg.NotificationEmail,
		CloudFolder: cfg.CloudFolder,
		ScanSpec:    scanSpec,
	}, logger)

	history, err := scheduler.NewHistoryStore(configDir, logger)
	if err != nil {
		return nil, nil, err
	}
	driver.SetHistoryStore(history)

	if remote != nil {
		driver.SetRemoteStore(remote)
	}

	if cfg.NotificationEmail != "" && cfg.SMTP.Host != "" {
		notifier, err := notifications.NewEmailService(cfg.SMTP, logger)
		if err != nil {
			history.Close()
			return nil, nil, err
		}
		driver.SetNotifier(notifier)
	}

	return driver, history, nil
}

// resolveSchedule finds a schedule by full id or unambiguous id prefix.
func resolveSchedule(mgr *scheduler.Manager, id string) (*models.Schedule, error) {
	var match *models.Schedule
	for _, s := range mgr.GetAll() {
		if s.ID.String() == id {
			return s, nil
		}
		if strings.HasPrefix(s.ID.String(), id) {
			if match != nil {
				return nil, fmt.Errorf("id prefix %q is ambiguous", id)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("schedule %s not found", id)
	}
	return match, nil
}

// parseDay accepts a weekday name or a Monday-based index 0..6.
func parseDay(day string) (int, error) {
	names := map[string]int{
		"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
		"friday": 4, "saturday": 5, "sunday": 6,
		"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
	}
	if n, ok := names[strings.ToLower(day)]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(day)
	if err != nil || n < 0 || n > 6 {
		return 0, fmt.Errorf("invalid day %q: want monday..sunday or 0..6", day)
	}
	return n, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func reportRemote(res scheduler.SyncResult) {
	if res.RemoteOK() {
		return
	}
	if errors.Is(res.Remote, scheduler.ErrRemoteUnavailable) {
		return
	}
	fmt.Fprintf(os.Stderr, "warning: cloud sync failed: %v\n", res.Remote)
}
