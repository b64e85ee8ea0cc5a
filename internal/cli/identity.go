package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akarl/annoq/internal/config"
	"github.com/akarl/annoq/internal/identity"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage reviewer identity (annotations are attributed by name)",
	}
	cmd.AddCommand(newIdentityDetectCmd())
	cmd.AddCommand(newIdentityShowCmd())
	return cmd
}

func newIdentityDetectCmd() *cobra.Command {
	var repoDir string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect identity from ANNOQ_USER or git config and save to reviewers/",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			rv, err := identity.DetectAndSave(home, repoDir)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Detected: %s <%s> (source %s)\n", rv.Name, rv.Email, rv.Source)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", identity.ReviewerPath(home, rv.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&repoDir, "repo", "", "Git repo path (default: global git config)")
	return cmd
}

func newIdentityShowCmd() *cobra.Command {
	var repoDir string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the identity that would be attached to annotations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rv, err := identity.Detect(repoDir)
			if err != nil {
				return err
			}
			if rv.Name == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No reviewer identity; set ANNOQ_USER or git config user.name.")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (source %s)\n", rv.Name, rv.Email, rv.Source)
			return nil
		},
	}
	cmd.Flags().StringVar(&repoDir, "repo", "", "Git repo path (default: global git config)")
	return cmd
}
