package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/akarl/annoq/internal/identity"
	"github.com/akarl/annoq/internal/otel"
	"github.com/akarl/annoq/internal/poller"
	"github.com/akarl/annoq/internal/session"
	"github.com/akarl/annoq/pkg/client"
	"github.com/akarl/annoq/pkg/models"
)

// Persister compatibility is what the review loop depends on.
var _ session.Persister = (*client.Client)(nil)

func newReviewCmd() *cobra.Command {
	var (
		server   string
		queueID  string
		apiKey   string
		user     string
		pollSec  float64
		noPoller bool
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a queue interactively: navigate items, draft scores and comments, submit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if queueID == "" {
				return errors.New("--queue is required")
			}
			if user == "" {
				rv, err := identity.Detect("")
				if err != nil {
					return err
				}
				user = rv.Name
			}
			if user == "" {
				return errors.New("no reviewer identity; pass --user, set ANNOQ_USER, or configure git user.name")
			}

			c := client.New(server, apiKey, user)
			q, err := c.GetQueue(cmd.Context(), queueID)
			if err != nil {
				return err
			}
			items, err := c.ListQueueItems(cmd.Context(), queueID, 0)
			if err != nil {
				return err
			}

			var mu sync.Mutex
			s := session.New(c, user)
			s.SetQueue(q)
			s.SetItems(items)

			_ = otel.InitMetricsWithItemCount(cmd.Context(), func() (processed, unprocessed int64) {
				mu.Lock()
				defer mu.Unlock()
				unprocessed = int64(len(s.UnprocessedIDs()))
				return int64(s.ItemCount()) - unprocessed, unprocessed
			})

			if !noPoller {
				p := &poller.Poller{
					Fetch:    c,
					QueueID:  queueID,
					Interval: time.Duration(pollSec * float64(time.Second)),
					Apply: func(items []models.QueueItem) {
						mu.Lock()
						s.SetItems(items)
						mu.Unlock()
					},
				}
				pollCtx, cancel := context.WithCancel(cmd.Context())
				defer cancel()
				go p.Run(pollCtx)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Reviewing %q as %s — %d items, %d unprocessed. Type 'help' for commands.\n",
				q.Name, user, len(items), len(s.UnprocessedIDs()))

			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				mu.Lock()
				prompt := reviewPrompt(s)
				mu.Unlock()
				_, _ = fmt.Fprintf(out, "%s> ", prompt)
				if !in.Scan() {
					if err := in.Err(); err != nil && !errors.Is(err, io.EOF) {
						return err
					}
					return nil
				}
				line := strings.TrimSpace(in.Text())
				if line == "" {
					continue
				}
				fields := strings.Fields(line)
				cmdName, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

				if cmdName == "quit" || cmdName == "exit" {
					return nil
				}
				mu.Lock()
				err := runReviewCommand(cmd.Context(), out, s, cmdName, rest, fields[1:])
				mu.Unlock()
				if err != nil {
					_, _ = fmt.Fprintf(out, "error: %v\n", err)
				}
			}
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:3719", "annoq server base URL")
	cmd.Flags().StringVar(&queueID, "queue", "", "Queue ID to review")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the server")
	cmd.Flags().StringVar(&user, "user", "", "Reviewer name (default: ANNOQ_USER or git config user.name)")
	cmd.Flags().Float64Var(&pollSec, "poll-interval", models.DefaultPollIntervalSec, "Queue refresh interval in seconds")
	cmd.Flags().BoolVar(&noPoller, "no-poll", false, "Disable background queue refresh")

	return cmd
}

func reviewPrompt(s *session.Session) string {
	phase := "initial"
	switch s.Phase() {
	case session.PhaseAnnotating:
		phase = "annotating"
	case session.PhaseCompleted:
		phase = "completed"
	}
	marker := ""
	if s.HasUnsavedChanges() {
		marker = "*"
	}
	return fmt.Sprintf("[%s %d%s]", phase, s.CurrentIndex(), marker)
}

func runReviewCommand(ctx context.Context, out io.Writer, s *session.Session, name, rest string, args []string) error {
	switch name {
	case "help":
		printReviewHelp(out)
	case "show":
		printCurrentItem(out, s)
	case "next":
		s.Next()
		otel.RecordNavigation(ctx, "next")
		printCurrentItem(out, s)
	case "prev", "previous":
		s.Previous()
		otel.RecordNavigation(ctx, "previous")
		printCurrentItem(out, s)
	case "start":
		s.StartAnnotating()
		otel.RecordNavigation(ctx, "start")
		printCurrentItem(out, s)
	case "skip", "advance":
		s.AdvanceToNextUnprocessed()
		otel.RecordNavigation(ctx, "advance")
		printCurrentItem(out, s)
	case "comment":
		if rest == "" {
			return errors.New("usage: comment <text> (empty text clears on submit via 'uncomment')")
		}
		s.SetComment(rest)
	case "uncomment":
		s.SetComment("")
	case "score":
		if len(args) < 2 {
			return errors.New("usage: score <name> <value> [reason]")
		}
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", args[1])
		}
		reason := strings.Join(args[2:], " ")
		s.SetScore(args[0], value, "", reason)
	case "unscore":
		if len(args) != 1 {
			return errors.New("usage: unscore <name>")
		}
		s.RemoveScore(args[0])
	case "status":
		r := s.Validate()
		_, _ = fmt.Fprintf(out, "can_submit=%v unsaved=%v unprocessed=%d cached_drafts=%d\n",
			r.CanSubmit, s.HasUnsavedChanges(), len(s.UnprocessedIDs()), s.CachedDrafts())
		for _, e := range r.Errors {
			_, _ = fmt.Fprintf(out, "  blocked: %s (%s)\n", e.Message, e.Code)
		}
	case "submit":
		r := s.Validate()
		if len(r.Errors) > 0 {
			for _, e := range r.Errors {
				_, _ = fmt.Fprintf(out, "blocked: %s\n", e.Message)
			}
			return nil
		}
		if !r.CanSubmit {
			_, _ = fmt.Fprintln(out, "Nothing to submit.")
			return nil
		}
		queueName, scope := "", ""
		if q := s.Queue(); q != nil {
			queueName, scope = q.Name, q.Scope
		}
		start := time.Now()
		err := s.Submit(ctx)
		otel.RecordSubmission(ctx, queueName, scope, err == nil, time.Since(start))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, "Submitted.")
		if s.Phase() == session.PhaseCompleted {
			_, _ = fmt.Fprintln(out, "Queue complete — every item has your feedback.")
		} else {
			printCurrentItem(out, s)
		}
	default:
		return fmt.Errorf("unknown command %q (try 'help')", name)
	}
	return nil
}

func printReviewHelp(out io.Writer) {
	_, _ = fmt.Fprint(out, `Commands:
  show                     Print the current item and draft
  start                    Jump to the first unprocessed item
  next / prev              Move through the queue
  skip                     Advance to the next unprocessed item (wraps)
  comment <text>           Set the draft comment
  uncomment                Clear the draft comment (deletes on submit)
  score <name> <v> [why]   Set a draft score
  unscore <name>           Remove a draft score
  status                   Show validation state and unsaved changes
  submit                   Persist the draft delta and advance
  quit                     Leave the review session
`)
}

func printCurrentItem(out io.Writer, s *session.Session) {
	it := s.CurrentItem()
	if it == nil {
		_, _ = fmt.Fprintln(out, "No current item.")
		return
	}
	_, _ = fmt.Fprintf(out, "Item %s (#%d)\n", it.ID, s.CurrentIndex())
	if it.ThreadStatus != "" {
		_, _ = fmt.Fprintf(out, "  thread: %s\n", it.ThreadStatus)
	}
	if it.Input != "" {
		_, _ = fmt.Fprintf(out, "  input:  %s\n", it.Input)
	}
	if it.Output != "" {
		_, _ = fmt.Fprintf(out, "  output: %s\n", it.Output)
	}
	d := s.CurrentDraft()
	if d == nil {
		return
	}
	if d.Comment.Text != "" {
		_, _ = fmt.Fprintf(out, "  comment: %s\n", d.Comment.Text)
	}
	for _, e := range d.Scores {
		if e.Reason != "" {
			_, _ = fmt.Fprintf(out, "  score:   %s=%g (%s)\n", e.Name, e.Value, e.Reason)
		} else {
			_, _ = fmt.Fprintf(out, "  score:   %s=%g\n", e.Name, e.Value)
		}
	}
}
