package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akarl/annoq/internal/config"
	"github.com/akarl/annoq/internal/store"
	"github.com/akarl/annoq/pkg/models"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage annotation queues in the local store",
	}
	cmd.AddCommand(newQueueAddCmd())
	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueRemoveCmd())
	cmd.AddCommand(newQueueItemsCmd())
	cmd.AddCommand(newQueueAddItemCmd())
	return cmd
}

func newQueueAddCmd() *cobra.Command {
	var (
		name        string
		scope       string
		project     string
		projectName string
		description string
		scores      []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an annotation queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			id, err := st.CreateQueue(cmd.Context(), models.AnnotationQueue{
				Name:                    name,
				Scope:                   scope,
				ProjectID:               project,
				ProjectName:             projectName,
				Description:             description,
				FeedbackDefinitionNames: scores,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created queue %q (%s)\n", name, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Queue name")
	cmd.Flags().StringVar(&scope, "scope", models.ScopeTrace, "Queue scope: trace or thread")
	cmd.Flags().StringVar(&project, "project-id", "", "Project ID attached to thread score writes")
	cmd.Flags().StringVar(&projectName, "project-name", "", "Project name attached to thread score writes")
	cmd.Flags().StringVar(&description, "description", "", "Queue description")
	cmd.Flags().StringSliceVar(&scores, "scores", nil, "Recognized feedback score names (comma-separated)")
	return cmd
}

func newQueueListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List annotation queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			queues, err := st.ListQueues(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if len(queues) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No queues.")
				return nil
			}
			for _, q := range queues {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "- %s  %s (scope=%s scores=%s)\n",
					q.ID, q.Name, q.Scope, strings.Join(q.FeedbackDefinitionNames, ","))
			}
			return nil
		},
	}
	return cmd
}

func newQueueRemoveCmd() *cobra.Command {
	var (
		id  string
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a queue and its items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			if !yes {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Remove queue %q and all its items? Type the queue ID to confirm:\n", id)
				in := bufio.NewReader(cmd.InOrStdin())
				line, err := in.ReadString('\n')
				if err != nil && !strings.Contains(err.Error(), "EOF") {
					return err
				}
				if strings.TrimSpace(line) != id {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			home := config.MustHomeFrom(cmd.Context())
			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteQueue(cmd.Context(), id); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Removed.")
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Queue ID")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip confirmation prompt")
	return cmd
}

func newQueueItemsCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List a queue's items with their annotations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			items, err := st.ListQueueItems(cmd.Context(), id, 0)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No items.")
				return nil
			}
			for _, it := range items {
				status := ""
				if it.ThreadStatus != "" {
					status = " [" + it.ThreadStatus + "]"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "- %s%s (comments=%d scores=%d)\n",
					it.ID, status, len(it.Comments), len(it.Scores))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Queue ID")
	return cmd
}

func newQueueAddItemCmd() *cobra.Command {
	var (
		id           string
		itemID       string
		input        string
		output       string
		threadStatus string
	)
	cmd := &cobra.Command{
		Use:   "add-item",
		Short: "Append an item to a queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			newID, err := st.AddQueueItem(cmd.Context(), id, models.QueueItem{
				ID:           itemID,
				Input:        input,
				Output:       output,
				ThreadStatus: threadStatus,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added item %s\n", newID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Queue ID")
	cmd.Flags().StringVar(&itemID, "item-id", "", "Item ID (generated when empty)")
	cmd.Flags().StringVar(&input, "input", "", "Item input text")
	cmd.Flags().StringVar(&output, "output", "", "Item output text")
	cmd.Flags().StringVar(&threadStatus, "thread-status", "", "Thread status: active or inactive (thread queues)")
	return cmd
}
