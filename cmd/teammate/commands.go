package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jask/teammate/internal/database"
	"github.com/jask/teammate/internal/router"
	"github.com/jask/teammate/internal/server"
	"github.com/jask/teammate/internal/testdata"
	"github.com/jask/teammate/internal/tui"
)

var (
	demo         bool
	confirmReset bool
)

// demoScript is the walkthrough of one meeting, in order.
var demoScript = []string{
	"Teammate, schedule a meeting at 3 PM",
	"Teammate, take notes",
	"Teammate, present the Q1 slides",
	"Teammate, tell the team we’re starting",
	"Teammate, what’s in row 5 of the Excel file?",
	"Teammate, what do you suggest?",
	"Teammate, ignore this",
	"Random text",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and the reminder dispatcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		srv := server.New(cfg.Server, a.router, a.graph, logger)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
		g.Go(func() error { return a.dispatcher.Run(gctx) })
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("stopped")
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run [command...]",
	Short: "Route a single command, or the scripted walkthrough with --demo",
	Example: `  teammate run "Teammate, schedule a meeting at 3 PM with Bob"
  teammate run --demo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !demo && len(args) == 0 {
			return errors.New("a command is required unless --demo is set")
		}
		ctx := cmd.Context()
		a, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		commands := []string{strings.Join(args, " ")}
		carried := map[string]any{}
		if demo {
			commands = demoScript
			if err := prepareDemo(ctx, a); err != nil {
				return err
			}
		}
		out := cmd.OutOrStdout()
		for _, c := range commands {
			st := router.NewState(c, carried)
			if _, err := a.router.Run(ctx, st); err != nil {
				return err
			}
			printResult(out, c, st.Response)
			carried = st.Context
		}
		return nil
	},
}

// prepareDemo makes sure the sample documents exist and seeds an earlier
// meeting so the suggestion step has discussion to work from.
func prepareDemo(ctx context.Context, a *app) error {
	if _, err := testdata.WriteSamples(cfg.Documents.DataDir); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	_, err := testdata.SeedMeeting(ctx, a.meetings, time.Now().Add(-24*time.Hour))
	return err
}

func printResult(w io.Writer, command, response string) {
	if response == "" {
		response = router.DefaultResponse
	}
	fmt.Fprintf(w, "\nTesting: %s\nResult: %s\n", command, response)
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Type commands interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		// the console owns the terminal; keep log lines out of it
		logger = zap.NewNop()
		a, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		p := tea.NewProgram(tui.New(ctx, a.router, cfg.Router.WakeWord), tea.WithAltScreen(), tea.WithContext(ctx))
		_, err = p.Run()
		return err
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the database, reminder queue and Graph connectivity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		a, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		var failed bool
		report := func(name string, err error, detail string) {
			if err != nil {
				failed = true
				fmt.Fprintf(out, "%-10s FAIL  %v\n", name, err)
				return
			}
			fmt.Fprintf(out, "%-10s ok    %s\n", name, detail)
		}

		report("database", database.Ping(ctx, a.db), cfg.Database.Path)
		report("reminders", a.queue.Ping(ctx), queueKind())
		me, err := a.graph.Me(ctx)
		report("graph", err, me)
		if failed {
			return errors.New("one or more checks failed")
		}
		return nil
	},
}

func queueKind() string {
	if cfg.Reminder.RedisURL != "" {
		return "redis"
	}
	return "sqlite"
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Write sample documents into the data directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := testdata.WriteSamples(cfg.Documents.DataDir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored meetings, minutes, documents, messages and reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmReset {
			return errors.New("refusing to reset without --yes")
		}
		ctx := cmd.Context()
		a, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.maintenance.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "reset complete")
		return nil
	},
}
