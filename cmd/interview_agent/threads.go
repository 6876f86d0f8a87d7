package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/observability"
)

var (
	threadsLimit int
	threadsJSON  bool
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Inspect stored interview threads",
}

var threadsListCmd = &cobra.Command{
	Use:   "list <partition>",
	Short: "List the most recent threads of a partition (an email or anonymous id)",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsList,
}

var threadsDeleteCmd = &cobra.Command{
	Use:   "delete <thread_id>",
	Short: "Delete a stored thread so the next turn starts a new interview",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsDelete,
}

var threadsShowCmd = &cobra.Command{
	Use:   "show <thread_id>",
	Short: "Show the context and scorecard of one thread",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsShow,
}

func init() {
	threadsListCmd.Flags().IntVar(&threadsLimit, "limit", conversation.DefaultListLimit, "Maximum number of threads")
	threadsCmd.PersistentFlags().BoolVar(&threadsJSON, "json", false, "Print raw JSON")
	threadsCmd.AddCommand(threadsListCmd, threadsShowCmd, threadsDeleteCmd)
	rootCmd.AddCommand(threadsCmd)
}

func runThreadsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx := contextOrBackground(cmd)
	be, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer be.close()

	threads, err := be.lister.ListThreads(ctx, args[0], threadsLimit)
	if err != nil {
		return fmt.Errorf("failed to list threads: %w", err)
	}
	if threadsJSON {
		return printJSON(cmd, threads)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintThreads(threads)
	return nil
}

func runThreadsShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx := contextOrBackground(cmd)
	be, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer be.close()

	state, err := be.store.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load thread: %w", err)
	}
	if state == nil {
		return fmt.Errorf("thread %s not found", args[0])
	}
	if threadsJSON {
		return printJSON(cmd, state)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  stage=%s  version=%d  messages=%d\n", state.ThreadID, state.Stage, state.Version, len(state.Messages))
	p := observability.NewPrinter(out)
	p.PrintContext(state)
	p.PrintScorecard(state.Scorecard)
	return nil
}

func runThreadsDelete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx := contextOrBackground(cmd)
	be, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer be.close()
	return deleteThread(ctx, be, cmd.OutOrStdout(), args[0])
}

// deleteThread removes threadID from the backend, reporting whether it existed.
func deleteThread(ctx context.Context, be *backend, out io.Writer, threadID string) error {
	state, err := be.store.Load(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to load thread: %w", err)
	}
	if state == nil {
		return fmt.Errorf("thread %s not found", threadID)
	}
	if err := be.deleter.DeleteThread(ctx, threadID); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %s (stage %s, %d messages)\n", threadID, state.Stage, len(state.Messages))
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
