package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/luki/twatch/internal/chart"
	"github.com/luki/twatch/internal/config"
	"github.com/luki/twatch/internal/series"
	"github.com/luki/twatch/internal/store"
	"github.com/luki/twatch/internal/viewer"
)

var (
	sessionID int  // Session to plot; negative selects the latest
	byLabel   bool // Key series by class and label
	plotWidth int  // Chart width in columns
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot a recorded session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, "")
		if err != nil {
			return err
		}
		st := store.New(cfg.SessionDir)

		id := sessionID
		if id < 0 {
			if id, err = st.Latest(); err != nil {
				return err
			}
		}
		return renderSession(cmd.OutOrStdout(), st, id, cfg.KeyPolicy())
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse recorded sessions interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, "")
		if err != nil {
			return err
		}
		return viewer.Run(store.New(cfg.SessionDir), cfg.KeyPolicy())
	},
}

// renderSession parses session id and draws it to out.
func renderSession(out io.Writer, st *store.Store, id int, policy series.KeyPolicy) error {
	s, err := series.ParseFile(st.Path(id), policy)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %d in %s", errNoSession, id, st.Dir())
	}
	if err != nil {
		return err
	}
	if s.Skipped > 0 {
		fmt.Fprintf(out, "skipped %d unparseable lines\n", s.Skipped)
	}
	return chart.Terminal{
		Out:   out,
		Width: plotWidth,
		Title: fmt.Sprintf("Session %d", id),
	}.Render(s)
}

// applyPlotFlags copies explicitly set plot flags into cfg.
func applyPlotFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("by-label") {
		cfg.KeyBy = series.ByClass.String()
		if byLabel {
			cfg.KeyBy = series.ByLabel.String()
		}
	}
}

// errNoSession is returned when an explicit session id does not exist.
var errNoSession = errors.New("session not found")

func init() {
	plotCmd.Flags().IntVar(&sessionID, "session", -1, "Session id to plot (default latest)")
	plotCmd.Flags().BoolVar(&byLabel, "by-label", false, "Plot one series per class and label")
	plotCmd.Flags().IntVar(&plotWidth, "width", 60, "Chart width in columns")

	browseCmd.Flags().BoolVar(&byLabel, "by-label", false, "Browse one series per class and label")

	rootCmd.AddCommand(plotCmd, browseCmd)
}
