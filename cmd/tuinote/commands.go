package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuinote/internal/config"
	"github.com/verte-zerg/tuinote/internal/export"
	"github.com/verte-zerg/tuinote/internal/generator"
	"github.com/verte-zerg/tuinote/internal/midiin"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/stats"
	"github.com/verte-zerg/tuinote/internal/statsui"
	"github.com/verte-zerg/tuinote/internal/store"
	"github.com/verte-zerg/tuinote/internal/theory"
)

var (
	statsKey         string
	statsClef        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool
	statsTopN        int

	historyFormat string
	historyOut    string

	exportKey    string
	exportClef   string
	exportLength int
	exportBPM    float64
	exportSeed   int64
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	ranges := generator.DefaultRanges()
	return fmt.Sprintf(`# tuinote configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# length = %d              # Notes per exercise
# keys = %q             # Enabled keys, comma separated or "all"
# allow-any-key = true     # Draw the key at random from keys
# default-key = %q        # Key used when allow-any-key is false
# clefs = %q     # Enabled clefs
# policy = %q       # Mistake policy: strict restarts, lenient retries the note
# order = %q     # Note order: ascending or random
# midi-in = ""             # MIDI input port name (empty: first available)
# focus-weak = false       # Bias practice toward weak notes
# weak-top = %d             # Number of weak notes to focus on
# weak-factor = %.1f        # Extra weight for weak notes
# weak-window = %d         # Number of recent exercises to compute weak notes
# bell = false             # Ring the terminal bell on wrong notes and completed exercises

[ranges]
# Inclusive MIDI note numbers (60 = C4).
# treble-min = %d
# treble-max = %d
# bass-min = %d
# bass-max = %d

[log]
# level = %q
# file = ""                # Defaults to $XDG_STATE_HOME/tuinote/tuinote.log
`,
		generator.DefaultLength,
		defaultKeys,
		defaultDefaultKey,
		defaultClefs,
		defaultPolicy,
		defaultOrder,
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
		ranges[theory.Treble].Min,
		ranges[theory.Treble].Max,
		ranges[theory.Bass].Min,
		ranges[theory.Bass].Max,
		defaultLogLevel,
	)
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List supported key signatures",
		Args:  cobra.NoArgs,
		RunE:  runKeysCmd,
	}
}

func runKeysCmd(cmd *cobra.Command, _ []string) error {
	for _, k := range theory.AllKeys() {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-3s %-3s %s\n", k.Name(), signatureLabel(k), scaleLabel(k)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func signatureLabel(k theory.Key) string {
	switch n := k.Sharps(); {
	case n > 0:
		return fmt.Sprintf("%d#", n)
	case n < 0:
		return fmt.Sprintf("%db", -n)
	default:
		return "-"
	}
}

func scaleLabel(k theory.Key) string {
	names := make([]string, 0, 7)
	for _, pc := range k.ScalePitchClasses() {
		names = append(names, theory.Spell(theory.MiddleC+theory.Pitch(pc), k).Name())
	}
	return strings.Join(names, " ")
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List MIDI input ports",
		Args:  cobra.NoArgs,
		RunE:  runPortsCmd,
	}
}

func runPortsCmd(cmd *cobra.Command, _ []string) error {
	defer midiin.CloseDriver()
	ports := midiin.Ports()
	if len(ports) == 0 {
		logErrln("No MIDI input ports found.")
		return nil
	}
	for _, name := range ports {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsKey, "key", "", "key filter")
	cmd.Flags().StringVar(&statsClef, "clef", "", "clef filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N exercises")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the dashboard")
	cmd.Flags().IntVar(&statsTopN, "top", 5, "most practised notes to list with --plain")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain {
		report, err := stats.BuildReport(context.Background(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		w := cmd.OutOrStdout()
		if err := stats.RenderSummary(w, report.Sessions); err != nil {
			return err
		}
		if err := stats.RenderCurves(w, report.Sessions, cfg.CurveWindow); err != nil {
			return err
		}
		if top := stats.TopPitchesByFrequency(report.NoteAggsAll, statsTopN); len(top) > 0 {
			labels := make([]string, len(top))
			for i, p := range top {
				labels[i] = stats.PitchLabel(p)
			}
			if _, err := fmt.Fprintf(w, "Most practised: %s\n\n", strings.Join(labels, ", ")); err != nil {
				return err
			}
		}
		return stats.RenderNoteTable(w, report.NoteAggsAll)
	}

	m := statsui.NewModel(statsui.StoreSource{Store: st}, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func buildStatsConfig() (model.StatsConfig, error) {
	cfg := model.StatsConfig{
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}
	if statsKey != "" {
		k, err := theory.KeyByName(statsKey)
		if err != nil {
			return cfg, fmt.Errorf("invalid --key: %w", err)
		}
		cfg.Key = k.Name()
	}
	if statsClef != "" {
		clef, err := theory.ParseClef(statsClef)
		if err != nil {
			return cfg, fmt.Errorf("invalid --clef: %w", err)
		}
		cfg.Clef = clef.String()
	}
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Work with exercise history",
	}
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full history as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE:  runHistoryExportCmd,
	}
	exportCmd.Flags().StringVar(&historyFormat, "format", "", "json or yaml (default: from --out extension, else json)")
	exportCmd.Flags().StringVarP(&historyOut, "out", "o", "", "output file (default: stdout)")
	historyCmd.AddCommand(exportCmd)
	return historyCmd
}

func runHistoryExportCmd(cmd *cobra.Command, _ []string) error {
	format := export.FormatForPath(historyOut)
	if historyFormat != "" {
		parsed, err := export.ParseFormat(historyFormat)
		if err != nil {
			return err
		}
		format = parsed
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	records, err := st.ListRecords(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if historyOut == "" {
		return export.WriteHistory(cmd.OutOrStdout(), records, format)
	}
	f, err := os.Create(historyOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", historyOut, err)
	}
	if err := export.WriteHistory(f, records, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", historyOut, err)
	}
	logErrf("Wrote %d exercises to %s\n", len(records), historyOut)
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file.mid>",
		Short: "Generate one exercise and save it as a MIDI file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportKey, "key", "", "key (default: random)")
	cmd.Flags().StringVar(&exportClef, "clef", "", "clef (default: random)")
	cmd.Flags().IntVar(&exportLength, "length", generator.DefaultLength, "notes per exercise")
	cmd.Flags().Float64Var(&exportBPM, "bpm", export.DefaultBPM, "tempo")
	cmd.Flags().Int64Var(&exportSeed, "seed", 0, "random seed (default: time based)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	if _, err := newLogger(logLevel, os.Stderr); err != nil {
		return err
	}
	cfg := generator.DefaultConfig()
	cfg.Length = exportLength

	var req generator.Request
	if exportKey != "" {
		k, err := theory.KeyByName(exportKey)
		if err != nil {
			return fmt.Errorf("invalid --key: %w", err)
		}
		req.Key = &k
	}
	if exportClef != "" {
		clef, err := theory.ParseClef(exportClef)
		if err != nil {
			return fmt.Errorf("invalid --clef: %w", err)
		}
		req.Clef = &clef
	}

	gen := generator.New()
	if cmd.Flags().Changed("seed") {
		gen = generator.NewWithSeed(exportSeed)
	}
	ex, err := gen.Generate(cfg, req)
	if err != nil {
		return err
	}
	if err := export.WriteSMF(args[0], ex, exportBPM); err != nil {
		return err
	}
	names := make([]string, 0, ex.Len())
	for _, sp := range ex.Spellings() {
		names = append(names, sp.String())
	}
	logErrf("Wrote %s (%s, %s): %s\n", args[0], ex.Key().Name(), ex.Clef(), strings.Join(names, " "))
	return nil
}
