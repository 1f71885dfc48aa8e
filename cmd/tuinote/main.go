// Package main provides the CLI entrypoint for tuinote.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the rtmidi driver

	"github.com/verte-zerg/tuinote/internal/config"
	"github.com/verte-zerg/tuinote/internal/generator"
	"github.com/verte-zerg/tuinote/internal/midiin"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/session"
	"github.com/verte-zerg/tuinote/internal/store"
	"github.com/verte-zerg/tuinote/internal/theory"
	"github.com/verte-zerg/tuinote/internal/tui"
)

const (
	defaultKeys        = "all"
	defaultDefaultKey  = "C"
	defaultClefs       = "treble,bass"
	defaultPolicy      = "strict"
	defaultOrder       = "ascending"
	defaultWeakTop     = 4
	defaultWeakFactor  = 2.0
	defaultWeakWindow  = 20
	defaultCurveWindow = 20
	defaultLogLevel    = "info"
)

var (
	practiceLength     int
	practiceKeys       string
	practiceDefaultKey string
	practiceAnyKey     bool
	practiceClefs      string
	practicePolicy     string
	practiceOrder      string
	practiceMIDIIn     string
	practiceNoMIDI     bool
	practiceFocusWeak  bool
	practiceWeakTop    int
	practiceWeakFactor float64
	practiceWeakWindow int
	practiceBell       bool

	logLevel string
	logFile  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuinote",
		Short:         "TUI sight-reading trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file used while the practice UI runs")

	rootCmd.Flags().IntVar(&practiceLength, "length", generator.DefaultLength, "notes per exercise")
	rootCmd.Flags().StringVar(&practiceKeys, "keys", defaultKeys, "enabled keys, comma separated or 'all'")
	rootCmd.Flags().StringVar(&practiceDefaultKey, "default-key", defaultDefaultKey, "key used when --any-key is off")
	rootCmd.Flags().BoolVar(&practiceAnyKey, "any-key", true, "draw the key at random from --keys")
	rootCmd.Flags().StringVar(&practiceClefs, "clefs", defaultClefs, "enabled clefs (treble, bass)")
	rootCmd.Flags().StringVar(&practicePolicy, "policy", defaultPolicy, "mistake policy (strict, lenient)")
	rootCmd.Flags().StringVar(&practiceOrder, "order", defaultOrder, "note order (ascending, random)")
	rootCmd.Flags().StringVar(&practiceMIDIIn, "midi-in", "", "MIDI input port name (default: first available)")
	rootCmd.Flags().BoolVar(&practiceNoMIDI, "no-midi", false, "use the computer keyboard only")
	rootCmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "bias practice toward weak notes")
	rootCmd.Flags().IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of weak notes to focus on")
	rootCmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "extra weight for weak notes")
	rootCmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent exercises to compute weak notes")
	rootCmd.Flags().BoolVar(&practiceBell, "bell", false, "ring the terminal bell on wrong notes and completed exercises")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newPortsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "length", &practiceLength, fileCfg.Practice.Length)
	applyStringConfig(cmd, "keys", &practiceKeys, fileCfg.Practice.Keys)
	applyStringConfig(cmd, "default-key", &practiceDefaultKey, fileCfg.Practice.DefaultKey)
	applyBoolConfig(cmd, "any-key", &practiceAnyKey, fileCfg.Practice.AllowAnyKey)
	applyStringConfig(cmd, "clefs", &practiceClefs, fileCfg.Practice.Clefs)
	applyStringConfig(cmd, "policy", &practicePolicy, fileCfg.Practice.Policy)
	applyStringConfig(cmd, "order", &practiceOrder, fileCfg.Practice.Order)
	applyStringConfig(cmd, "midi-in", &practiceMIDIIn, fileCfg.Practice.MIDIIn)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, fileCfg.Practice.FocusWeak)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, fileCfg.Practice.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, fileCfg.Practice.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, fileCfg.Practice.WeakWindow)
	applyBoolConfig(cmd, "bell", &practiceBell, fileCfg.Practice.Bell)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)

	if err := theory.ValidateSpellings(); err != nil {
		return fmt.Errorf("spelling table is incomplete: %w", err)
	}
	cfg, err := buildPracticeConfig(fileCfg.Ranges)
	if err != nil {
		return err
	}

	if logFile == "" {
		logFile = config.DefaultLogPath()
	}
	logger, closeLog, err := newFileLogger(logLevel, logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	history, err := st.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if cfg.FocusWeak {
		aggs, err := st.GetWeakNotes(ctx, cfg.WeakWindow, "")
		if err != nil {
			logErrf("failed to load weak notes: %v\n", err)
		} else if len(aggs) == 0 {
			logErrln("no stats available for weak-note focus yet; using normal generator")
		}
	}

	events := tui.NewEvents(0, logger)
	midiPort := ""
	if !practiceNoMIDI {
		defer midiin.CloseDriver()
		listener, err := midiin.Open(cfg.MIDIInput, nil, logger, events.Note)
		switch {
		case err == nil:
			defer listener.Close()
			midiPort = listener.Port()
		case errors.Is(err, midiin.ErrNoPorts) && cfg.MIDIInput == "":
			logErrln("no MIDI input found; use the computer keyboard (a w s e d ...)")
		default:
			logErrf("MIDI input unavailable: %v; using the computer keyboard\n", err)
		}
	}

	m, err := tui.NewModel(ctx, tui.Options{
		Session: session.Options{
			Config:    cfg,
			Generator: generator.New(),
			Recorder:  st,
			Weak:      st,
			Logger:    logger,
			History:   history,
		},
		Events:   events,
		MIDIPort: midiPort,
		Bell:     practiceBell,
	})
	if err != nil {
		return fmt.Errorf("failed to start practice: %w", err)
	}
	defer m.Close()

	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return m.Err()
}

func buildPracticeConfig(ranges config.RangesConfig) (model.Config, error) {
	keys, err := theory.ParseKeys(practiceKeys)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid --keys: %w", err)
	}
	defaultKey, err := theory.KeyByName(practiceDefaultKey)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid --default-key: %w", err)
	}
	clefs, err := parseClefs(practiceClefs)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid --clefs: %w", err)
	}
	policy, err := model.ParseMistakePolicy(practicePolicy)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid --policy: %w", err)
	}
	order, err := model.ParseOrderPolicy(practiceOrder)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid --order: %w", err)
	}
	resolved, err := ranges.Resolve(generator.DefaultRanges())
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid [ranges]: %w", err)
	}

	cfg := model.Config{
		Exercise: model.ExerciseConfig{
			Length:      practiceLength,
			AllowAnyKey: practiceAnyKey,
			Keys:        keys,
			DefaultKey:  defaultKey,
			Clefs:       clefs,
			Ranges:      resolved,
			Order:       order,
		},
		Mistakes:   policy,
		MIDIInput:  practiceMIDIIn,
		FocusWeak:  practiceFocusWeak,
		WeakTop:    practiceWeakTop,
		WeakFactor: practiceWeakFactor,
		WeakWindow: practiceWeakWindow,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	if cfg.Exercise.Length < 2 {
		return fmt.Errorf("--length must be >= 2")
	}
	if cfg.WeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	if err := generator.ValidateConfig(cfg.Exercise); err != nil {
		return fmt.Errorf("--length %d does not fit the configured ranges:\n%w", cfg.Exercise.Length, err)
	}
	return nil
}

func parseClefs(list string) ([]theory.Clef, error) {
	seen := map[theory.Clef]struct{}{}
	var clefs []theory.Clef
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clef, err := theory.ParseClef(part)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[clef]; ok {
			continue
		}
		seen[clef] = struct{}{}
		clefs = append(clefs, clef)
	}
	if len(clefs) == 0 {
		return nil, fmt.Errorf("no clefs in %q", list)
	}
	return clefs, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
