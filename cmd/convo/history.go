package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/convo/internal/history"
	"github.com/flemzord/convo/pkg/app"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04"

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and resume a chat's conversations",
	}
	cmd.AddCommand(historyListCmd(), historyClearCmd(), historyPickCmd())
	return cmd
}

func parseChatID(arg string) (history.ChatID, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q", arg)
	}
	return history.ChatID(id), nil
}

func historyListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list <chatID>",
		Short: "List a chat's most recent conversations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return withComponents(cmd, func(c *app.Components) error {
				entries := c.Sessions.SessionHistory(chatID, limit)
				if len(entries) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No conversations for chat %d.\n", chatID)
					return nil
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CONVERSATION\tPROJECT\tLAST ACTIVITY\tLAST MESSAGE")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						e.ConversationID, e.ProjectName, e.LastActivity.Format(timeLayout), previewOrDash(e))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of conversations to show (default from config)")
	return cmd
}

func historyClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <chatID>",
		Short: "Forget every conversation of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return withComponents(cmd, func(c *app.Components) error {
				c.Store.ClearHistory(chatID)
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared history for chat %d.\n", chatID)
				return nil
			})
		},
	}
}

// errNoHistory is returned by pick when the chat has nothing to resume.
var errNoHistory = errors.New("no conversations to resume")

func historyPickCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "pick <chatID>",
		Short: "Interactively choose a conversation to resume and print its working directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return withComponents(cmd, func(c *app.Components) error {
				entries := c.Sessions.SessionHistory(chatID, limit)
				if len(entries) == 0 {
					return fmt.Errorf("chat %d: %w", chatID, errNoHistory)
				}

				var choice string
				sel := huh.NewSelect[string]().
					Title(fmt.Sprintf("Resume a conversation for chat %d", chatID)).
					Options(pickOptions(entries)...).
					Value(&choice)
				if err := huh.NewForm(huh.NewGroup(sel)).RunWithContext(runContext(cmd)); err != nil {
					return err
				}

				sess, ok := c.Sessions.ResumeSession(chatID, choice)
				if !ok {
					return fmt.Errorf("conversation %s is no longer in the history", choice)
				}
				fmt.Fprintln(cmd.OutOrStdout(), sess.WorkingDirectory)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of conversations to offer")
	return cmd
}

// pickOptions labels each entry with its project, last activity and
// message preview; the option value is the conversation id.
func pickOptions(entries []history.Entry) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(entries))
	for _, e := range entries {
		label := fmt.Sprintf("%s  %s  %s", e.ProjectName, e.LastActivity.Format(timeLayout), previewOrDash(e))
		opts = append(opts, huh.NewOption(label, e.ConversationID))
	}
	return opts
}

func previewOrDash(e history.Entry) string {
	if e.LastMessagePreview == "" {
		return "-"
	}
	return e.LastMessagePreview
}
