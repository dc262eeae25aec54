package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/luki/twatch/internal/capture"
	"github.com/luki/twatch/internal/config"
	"github.com/luki/twatch/internal/monitor"
	"github.com/luki/twatch/internal/sensor"
	"github.com/luki/twatch/internal/store"
)

// logFileName receives log output while the terminal UI owns the screen.
const logFileName = "twatch.log"

var (
	// capture flag values
	delayMS       int    // Poll interval in milliseconds
	lower         int    // Trigger arming temperature
	upper         int    // Trigger exit temperature
	captures      int    // Ticks to record in count mode
	sourceName    string // Sensor source
	hwmonRoot     string // hwmon sysfs root
	nvidia        bool   // Also poll nvidia-smi
	smart         bool   // Also poll smartctl
	recordUnknown bool   // Record readings of unknown class
	showUnknown   bool   // Show readings of unknown class live
	noTUI         bool   // Log progress instead of the live view
	noPlot        bool   // Skip the plot after capture
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Record until the CPU temperature exceeds the upper bound",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd, config.ModeTrigger)
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Record a fixed number of ticks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd, config.ModeCount)
	},
}

func runCapture(cmd *cobra.Command, mode string) error {
	cfg, err := loadConfig(cmd, mode)
	if err != nil {
		return err
	}

	src, err := sensor.New(cfg.Source, cfg.HwmonRoot, cfg.Nvidia, cfg.Smartctl)
	if err != nil {
		return err
	}
	st := store.New(cfg.SessionDir)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := record(ctx, cfg, src, st)
	if res.Path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Session %d: %s after %d ticks (%s)\n",
			res.SessionID, res.Reason, res.Ticks, res.Path)
	}
	if err != nil {
		return err
	}

	if !cfg.Plot {
		return nil
	}
	return renderSession(cmd.OutOrStdout(), st, res.SessionID, cfg.KeyPolicy())
}

// record runs the engine under the live view or the log observer.
func record(ctx context.Context, cfg config.Config, src sensor.Source, st *store.Store) (capture.Result, error) {
	mopts := monitor.Options{Policy: cfg.Policy(), ShowUnknown: cfg.ShowUnknown}
	run := func(ctx context.Context, obs capture.Observer) (capture.Result, error) {
		eng, err := capture.New(src, st, capture.Options{
			Interval:      cfg.Interval(),
			Policy:        cfg.Policy(),
			RecordUnknown: cfg.RecordUnknown,
			Observer:      obs,
		})
		if err != nil {
			return capture.Result{}, err
		}
		return eng.Run(ctx)
	}

	if !cfg.TUI {
		return run(ctx, monitor.LogObserver(logrus.WithField("mode", cfg.Mode), mopts))
	}

	restore, err := logToFile(cfg.SessionDir)
	if err != nil {
		return capture.Result{}, err
	}
	defer restore()
	return monitor.Run(ctx, mopts, run, tea.WithAltScreen())
}

// logToFile redirects logrus into the session directory and returns a
// function restoring the previous output.
func logToFile(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	prev := logrus.StandardLogger().Out
	logrus.SetOutput(f)
	return func() {
		logrus.SetOutput(prev)
		f.Close()
	}, nil
}

func addCaptureFlags(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().IntVarP(&delayMS, "delay", "d", def.DelayMS, "Poll interval in milliseconds")
	cmd.Flags().StringVar(&sourceName, "source", def.Source, "Sensor source (hwmon, lm-sensors, gopsutil)")
	cmd.Flags().StringVar(&hwmonRoot, "hwmon-root", "", "hwmon sysfs root (default /sys/class/hwmon)")
	cmd.Flags().BoolVar(&nvidia, "nvidia", def.Nvidia, "Also poll GPU temperatures via nvidia-smi")
	cmd.Flags().BoolVar(&smart, "smartctl", def.Smartctl, "Also poll SATA drive temperatures via smartctl")
	cmd.Flags().BoolVar(&recordUnknown, "record-unknown", def.RecordUnknown, "Record readings of unknown device class")
	cmd.Flags().BoolVar(&showUnknown, "show-unknown", def.ShowUnknown, "Show readings of unknown device class")
	cmd.Flags().BoolVar(&noTUI, "no-tui", !def.TUI, "Log progress instead of the live view")
	cmd.Flags().BoolVar(&noPlot, "no-plot", !def.Plot, "Do not plot the session afterwards")
}

// applyCaptureFlags copies explicitly set capture flags into cfg. Flags the
// command does not define are never reported as changed.
func applyCaptureFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("delay") {
		cfg.DelayMS = delayMS
	}
	if flags.Changed("lower") {
		cfg.Lower = lower
	}
	if flags.Changed("upper") {
		cfg.Upper = upper
	}
	if flags.Changed("captures") {
		cfg.Captures = captures
	}
	if flags.Changed("source") {
		cfg.Source = sourceName
	}
	if flags.Changed("hwmon-root") {
		cfg.HwmonRoot = hwmonRoot
	}
	if flags.Changed("nvidia") {
		cfg.Nvidia = nvidia
	}
	if flags.Changed("smartctl") {
		cfg.Smartctl = smart
	}
	if flags.Changed("record-unknown") {
		cfg.RecordUnknown = recordUnknown
	}
	if flags.Changed("show-unknown") {
		cfg.ShowUnknown = showUnknown
	}
	if flags.Changed("no-tui") {
		cfg.TUI = !noTUI
	}
	if flags.Changed("no-plot") {
		cfg.Plot = !noPlot
	}
}

func init() {
	def := config.Default()

	addCaptureFlags(triggerCmd)
	triggerCmd.Flags().IntVarP(&lower, "lower", "i", def.Lower, "Temperature (°C) at which the trigger arms")
	triggerCmd.Flags().IntVarP(&upper, "upper", "e", def.Upper, "Temperature (°C) above which capture stops")

	addCaptureFlags(countCmd)
	countCmd.Flags().IntVarP(&captures, "captures", "c", def.Captures, "Number of ticks to record")

	rootCmd.AddCommand(triggerCmd, countCmd)
}
