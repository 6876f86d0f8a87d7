package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/observability"
	"github.com/jonathan/interview-coach/internal/types"
)

// endInterviewMessage is sent as the user turn when /end is typed on its own.
const endInterviewMessage = "I'd like to end the interview now."

var (
	chatThread  string
	chatVerbose bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interview in the terminal",
	Long: `Start or resume an interview thread from the terminal.

Commands:
  /end [message]  request the end of the interview and get the scorecard
  /status         show the interview context gathered so far
  /quit           leave (the thread is kept and can be resumed with --thread)`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatThread, "thread", "", "Thread id to resume (defaults to a new thread)")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "Show stage changes and the interview context")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	threadID := strings.TrimSpace(chatThread)
	if threadID == "" {
		threadID = "thread_" + uuid.NewString()
	}
	session := &chatSession{
		controller: a.controller,
		threadID:   threadID,
		in:         cmd.InOrStdin(),
		out:        cmd.OutOrStdout(),
		verbose:    chatVerbose,
	}
	return session.run(ctx)
}

// turnRunner is the part of the controller the chat loop needs.
type turnRunner interface {
	Invoke(ctx context.Context, req types.TurnRequest) (*types.TurnResponse, error)
	Thread(ctx context.Context, threadID string) (*types.ConversationState, error)
}

// chatSession is one interactive terminal conversation on a single thread.
type chatSession struct {
	controller turnRunner
	threadID   string
	in         io.Reader
	out        io.Writer
	verbose    bool
}

//nolint:errcheck // writing to the terminal; errors are not recoverable
func (s *chatSession) run(ctx context.Context) error {
	coach := color.New(color.FgCyan, color.Bold)
	you := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	fail := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)
	printer := observability.NewPrinter(s.out)

	gray.Fprintf(s.out, "thread %s\n", s.threadID)
	if state, err := s.controller.Thread(ctx, s.threadID); err == nil && state != nil {
		gray.Fprintf(s.out, "resuming at stage %s\n", state.Stage)
		if last := state.LastAssistantMessage(); last != "" && state.Stage != types.StageDone {
			coach.Fprint(s.out, "coach> ")
			fmt.Fprintln(s.out, last)
		}
	} else {
		coach.Fprint(s.out, "coach> ")
		fmt.Fprintln(s.out, "Tell me about the interview you are preparing for: the company, the role, and the kind of interview.")
	}

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		you.Fprint(s.out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		req := types.TurnRequest{ThreadID: s.threadID, Message: line}
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			gray.Fprintf(s.out, "bye, resume with --thread %s\n", s.threadID)
			return nil
		case line == "/status":
			s.printStatus(ctx, printer, warn)
			continue
		case line == "/end" || strings.HasPrefix(line, "/end "):
			req.EndInterviewRequested = true
			req.Message = strings.TrimSpace(strings.TrimPrefix(line, "/end"))
			if req.Message == "" {
				req.Message = endInterviewMessage
			}
		case strings.HasPrefix(line, "/"):
			warn.Fprintf(s.out, "unknown command %s\n", line)
			continue
		}

		before := s.stage(ctx)
		resp, err := s.controller.Invoke(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fail.Fprintf(s.out, "turn failed: %v\n", err)
			gray.Fprintln(s.out, "nothing was saved, send your message again to retry")
			continue
		}

		if s.verbose {
			printer.PrintStageChange(before, resp.Stage)
		}
		if resp.Messages == nil {
			gray.Fprintln(s.out, "this interview is already finished, here is the final result")
		}
		for _, msg := range s.visibleMessages(resp) {
			coach.Fprint(s.out, "coach> ")
			fmt.Fprintln(s.out, msg)
		}
		if resp.EvaluatorScorecard != nil {
			printer.PrintScorecard(resp.EvaluatorScorecard)
		}
		if resp.Stage == types.StageDone {
			gray.Fprintf(s.out, "interview complete, thread %s\n", s.threadID)
			return nil
		}
	}
}

// visibleMessages drops the raw scorecard JSON, which is printed as a box instead.
func (s *chatSession) visibleMessages(resp *types.TurnResponse) []string {
	msgs := resp.Messages
	if msgs == nil && resp.Message != "" {
		msgs = []string{resp.Message}
	}
	if resp.EvaluatorScorecard == nil {
		return msgs
	}
	card := resp.EvaluatorScorecard.String()
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m != card {
			out = append(out, m)
		}
	}
	return out
}

func (s *chatSession) stage(ctx context.Context) types.Stage {
	state, err := s.controller.Thread(ctx, s.threadID)
	if err != nil || state == nil {
		return types.StageIntake
	}
	return state.Stage
}

//nolint:errcheck // writing to the terminal; errors are not recoverable
func (s *chatSession) printStatus(ctx context.Context, printer *observability.Printer, warn *color.Color) {
	state, err := s.controller.Thread(ctx, s.threadID)
	switch {
	case err != nil:
		warn.Fprintf(s.out, "failed to load thread: %v\n", err)
	case state == nil:
		warn.Fprintln(s.out, "no turns yet")
	default:
		fmt.Fprintf(s.out, "stage %s, version %d, partition %s\n",
			state.Stage, state.Version, conversation.PartitionKey(state.ThreadID))
		printer.PrintContext(state)
		printer.PrintScorecard(state.Scorecard)
	}
}
