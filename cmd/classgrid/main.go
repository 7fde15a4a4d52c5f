// Package main provides the CLI entrypoint for classgrid.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/classgrid/internal/config"
	"github.com/verte-zerg/classgrid/internal/csvio"
	"github.com/verte-zerg/classgrid/internal/model"
	"github.com/verte-zerg/classgrid/internal/planner"
	"github.com/verte-zerg/classgrid/internal/reminder"
	"github.com/verte-zerg/classgrid/internal/report"
	"github.com/verte-zerg/classgrid/internal/store"
	"github.com/verte-zerg/classgrid/internal/tui"
	"github.com/verte-zerg/classgrid/internal/workspace"
)

const (
	defaultTotalMinutes = 120.0
	defaultMinMinutes   = 10.0
	defaultRoundTo      = 5.0
	defaultStart        = "19:00"
	defaultEnd          = "21:00"
)

var (
	courseFile string

	planTotal  float64
	planMin    float64
	planRound  float64
	planStart  string
	planEnd    string
	useMinutes bool
	outPath    string

	exportSchedule bool

	remindSchedule string
	remindCommand  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "classgrid",
		Short:         "Weekly timetable editor with a study time planner",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runEditorCmd,
	}
	rootCmd.Flags().StringVar(&courseFile, "file", "", "import a course CSV before opening the editor")
	addPlannerFlags(rootCmd)
	rootCmd.Flags().StringVar(&remindCommand, "notify-command", reminder.DefaultCommand, "desktop notification command")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMinutesCmd())
	rootCmd.AddCommand(newBlocksCmd())
	rootCmd.AddCommand(newConflictsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newRemindCmd())

	return rootCmd
}

func addPlannerFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&planTotal, "total", defaultTotalMinutes, "total study minutes to distribute")
	cmd.Flags().Float64Var(&planMin, "min", defaultMinMinutes, "minimum minutes per course")
	cmd.Flags().Float64Var(&planRound, "round", defaultRoundTo, "round minutes to a multiple of this value")
	cmd.Flags().StringVar(&planStart, "start", defaultStart, "study window start (HH:MM)")
	cmd.Flags().StringVar(&planEnd, "end", defaultEnd, "study window end (HH:MM)")
}

func runEditorCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyPlannerConfig(cmd, fileCfg.Planner)
	applyStringConfig(cmd, "notify-command", &remindCommand, fileCfg.Reminder.Command)
	params, window := plannerSettings()
	if err := validateConfig(params, window); err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	ctx := context.Background()
	ws := workspace.New(st)
	if err := ws.Load(ctx); err != nil {
		return err
	}
	if courseFile != "" {
		n, err := importFile(ctx, ws, courseFile)
		if err != nil {
			return err
		}
		logErrf("Imported %d courses from %s\n", n, courseFile)
	}

	m := tui.NewModel(ws, tui.Options{
		Minutes:       params,
		Window:        window,
		NotifyCommand: remindCommand,
	})
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

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
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newMinutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minutes",
		Short: "Distribute study minutes across courses",
		Args:  cobra.NoArgs,
		RunE:  runMinutesCmd,
	}
	cmd.Flags().StringVar(&courseFile, "file", "", "course CSV (default: stored timetable)")
	addPlannerFlags(cmd)
	return cmd
}

func runMinutesCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyPlannerConfig(cmd, fileCfg.Planner)
	params, window := plannerSettings()
	if err := validateConfig(params, window); err != nil {
		return err
	}
	ws, cleanup, err := openWorkspace(cmd.Context(), courseFile)
	if err != nil {
		return err
	}
	defer cleanup()

	allocation, err := ws.ComputeMinutes(params)
	if err != nil {
		return err
	}
	return report.RenderAllocation(cmd.OutOrStdout(), allocation, report.Options{})
}

func newBlocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Pack today's study window into 30-minute course blocks",
		Args:  cobra.NoArgs,
		RunE:  runBlocksCmd,
	}
	cmd.Flags().StringVar(&courseFile, "file", "", "course CSV (default: stored timetable)")
	addPlannerFlags(cmd)
	cmd.Flags().BoolVar(&useMinutes, "use-minutes", false, "derive block targets from the minute allocation")
	cmd.Flags().StringVar(&outPath, "out", "", "write the schedule CSV to this path")
	return cmd
}

func runBlocksCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyPlannerConfig(cmd, fileCfg.Planner)
	params, window := plannerSettings()
	if err := validateConfig(params, window); err != nil {
		return err
	}
	ws, cleanup, err := openWorkspace(cmd.Context(), courseFile)
	if err != nil {
		return err
	}
	defer cleanup()

	if useMinutes {
		if _, err := ws.ComputeMinutes(params); err != nil {
			return err
		}
	}
	schedule, err := ws.MakeBlocks(cmd.Context(), time.Now(), window)
	if err != nil {
		if len(schedule) == 0 {
			return err
		}
		logErrf("%v\n", err)
	}
	if err := report.RenderSchedule(cmd.OutOrStdout(), schedule); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if outPath == "" {
		return nil
	}
	out, err := ws.ExportScheduleCSV()
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outPath, out)
}

func newConflictsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List cells claimed by more than one course",
		Args:  cobra.NoArgs,
		RunE:  runConflictsCmd,
	}
	cmd.Flags().StringVar(&courseFile, "file", "", "course CSV (default: stored timetable)")
	return cmd
}

func runConflictsCmd(cmd *cobra.Command, _ []string) error {
	ws, cleanup, err := openWorkspace(cmd.Context(), courseFile)
	if err != nil {
		return err
	}
	defer cleanup()

	conflicts := ws.Conflicts()
	if err := report.RenderConflicts(cmd.OutOrStdout(), conflicts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%d conflicting cells", len(conflicts))
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored timetable or latest study plan as CSV",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output path (- for stdout)")
	cmd.Flags().BoolVar(&exportSchedule, "schedule", false, "export the latest study plan instead of the timetable")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	ctx := cmd.Context()
	var out string
	if exportSchedule {
		plan, err := st.LatestPlan(ctx)
		if err != nil {
			return err
		}
		if len(plan) == 0 {
			return workspace.ErrNoSchedule
		}
		if out, err = csvio.ExportSchedule(plan); err != nil {
			return err
		}
	} else {
		ws := workspace.New(st)
		if err := ws.Load(ctx); err != nil {
			return err
		}
		out = ws.ExportCoursesCSV()
	}
	return writeOutput(cmd.OutOrStdout(), outPath, out)
}

func newRemindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Notify at the start of every study block",
		Args:  cobra.NoArgs,
		RunE:  runRemindCmd,
	}
	cmd.Flags().StringVar(&remindSchedule, "schedule", "", "schedule CSV (default: latest stored plan)")
	cmd.Flags().StringVar(&remindCommand, "command", reminder.DefaultCommand, "desktop notification command")
	return cmd
}

func runRemindCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "command", &remindCommand, fileCfg.Reminder.Command)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	now := time.Now()
	schedule, err := loadSchedule(ctx, remindSchedule, now)
	if err != nil {
		return err
	}
	schedule = reminder.AlignToDay(schedule, now)

	out := cmd.OutOrStdout()
	dispatcher := reminder.NewDispatcher(
		reminder.CommandNotifier{Command: remindCommand},
		reminder.AlertNotifier{W: out},
		reminder.WithErrorHandler(func(err error) {
			logErrf("failed to deliver reminder: %v\n", err)
		}),
	)
	tasks := dispatcher.Start(ctx, schedule)
	if !dispatcher.Granted() {
		logErrf("%q not available; falling back to terminal alerts\n", remindCommand)
	}
	for _, task := range tasks {
		if _, err := fmt.Fprintf(out, "%s  %s\n", task.FireAt.Format("Mon 15:04"), reminder.Title(task.Assignment)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if err := dispatcher.Wait(ctx); err != nil {
		if n := dispatcher.Stop(); n > 0 {
			logErrf("Cancelled %d pending reminders\n", n)
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

func loadSchedule(ctx context.Context, path string, day time.Time) ([]model.BlockAssignment, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schedule: %w", err)
		}
		return csvio.ParseSchedule(string(data), day)
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)
	plan, err := st.LatestPlan(ctx)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, workspace.ErrNoSchedule
	}
	return plan, nil
}

// openWorkspace loads the stored timetable, or a detached workspace built from
// a course CSV when path is set. The stored snapshot is never touched by the latter.
func openWorkspace(ctx context.Context, path string) (*workspace.Workspace, func(), error) {
	if path != "" {
		ws := workspace.New(nil)
		if _, err := importFile(ctx, ws, path); err != nil {
			return nil, nil, err
		}
		return ws, func() {}, nil
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	ws := workspace.New(st)
	if err := ws.Load(ctx); err != nil {
		closeStore(st)
		return nil, nil, err
	}
	return ws, func() { closeStore(st) }, nil
}

func importFile(ctx context.Context, ws *workspace.Workspace, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	n, err := ws.ImportCSV(ctx, string(data))
	if err != nil {
		return n, fmt.Errorf("failed to import %s: %w", path, err)
	}
	return n, nil
}

func writeOutput(stdout io.Writer, path, content string) error {
	if path == "-" {
		if _, err := io.WriteString(stdout, content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logErrf("Wrote %s\n", path)
	return nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

func applyPlannerConfig(cmd *cobra.Command, cfg config.PlannerConfig) {
	applyFloatConfig(cmd, "total", &planTotal, cfg.TotalMinutes)
	applyFloatConfig(cmd, "min", &planMin, cfg.MinMinutes)
	applyFloatConfig(cmd, "round", &planRound, cfg.RoundTo)
	applyStringConfig(cmd, "start", &planStart, cfg.Start)
	applyStringConfig(cmd, "end", &planEnd, cfg.End)
}

func plannerSettings() (model.MinuteParams, model.StudyWindow) {
	return model.MinuteParams{TotalMinutes: planTotal, MinMinutes: planMin, RoundTo: planRound},
		model.StudyWindow{Start: strings.TrimSpace(planStart), End: strings.TrimSpace(planEnd)}
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

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# classgrid configuration
# Uncomment a value to enable it. CLI flags override config values.

[planner]
# total-minutes = %g      # Study minutes distributed across courses
# min-minutes = %g         # Minimum minutes per course
# round-to = %g             # Round minutes to a multiple of this value
# start = %q           # Study window start (HH:MM)
# end = %q             # Study window end (HH:MM)

[reminder]
# command = %q   # Desktop notification command; title and body are appended
`,
		defaultTotalMinutes,
		defaultMinMinutes,
		defaultRoundTo,
		defaultStart,
		defaultEnd,
		reminder.DefaultCommand,
	)
}

func validateConfig(params model.MinuteParams, window model.StudyWindow) error {
	if params.TotalMinutes < 0 {
		return fmt.Errorf("--total must be >= 0")
	}
	if params.MinMinutes < 0 {
		return fmt.Errorf("--min must be >= 0")
	}
	if params.RoundTo < 0 {
		return fmt.Errorf("--round must be >= 0")
	}
	if _, err := planner.ParseClock(time.Now(), window.Start); err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	if _, err := planner.ParseClock(time.Now(), window.End); err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
