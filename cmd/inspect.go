package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luki/twatch/internal/capture"
	"github.com/luki/twatch/internal/config"
	"github.com/luki/twatch/internal/power"
	"github.com/luki/twatch/internal/sensor"
	"github.com/luki/twatch/internal/store"
)

var powerRoot string // power_supply sysfs root

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, "")
		if err != nil {
			return err
		}
		st := store.New(cfg.SessionDir)
		ids, err := st.IDs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintf(out, "No sessions in %s\n", st.Dir())
			return nil
		}
		for _, id := range ids {
			fmt.Fprintf(out, "%d\t%s\n", id, st.Path(id))
		}
		return nil
	},
}

var tempCmd = &cobra.Command{
	Use:   "temp",
	Short: "Print the current CPU temperature",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, "")
		if err != nil {
			return err
		}
		src, err := sensor.New(cfg.Source, cfg.HwmonRoot, cfg.Nvidia, cfg.Smartctl)
		if err != nil {
			return err
		}
		readings, err := src.Poll(cmd.Context())
		if err != nil {
			return fmt.Errorf("%w: %w", capture.ErrSensorUnavailable, err)
		}
		cpu, ok := sensor.FirstOf(readings, sensor.CPU)
		if !ok {
			return fmt.Errorf("%w: no CPU reading", capture.ErrSensorUnavailable)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "CPU TEMP: %dC (%s)\n", cpu.Temp, cpu.Label)
		return nil
	},
}

var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Print the current battery power draw",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, "")
		if err != nil {
			return err
		}
		root := cfg.PowerRoot
		if cmd.Flags().Changed("power-root") {
			root = powerRoot
		}
		watts, err := power.Read(root)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Current watts: %.2fW\n", watts)
		return nil
	},
}

func init() {
	def := config.Default()
	tempCmd.Flags().StringVar(&sourceName, "source", def.Source, "Sensor source (hwmon, lm-sensors, gopsutil)")
	tempCmd.Flags().StringVar(&hwmonRoot, "hwmon-root", "", "hwmon sysfs root (default /sys/class/hwmon)")

	powerCmd.Flags().StringVar(&powerRoot, "power-root", "", "power_supply sysfs root (default /sys/class/power_supply)")

	rootCmd.AddCommand(sessionsCmd, tempCmd, powerCmd)
}
