package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"rent-reconciliation-service/internal/resolve"

	"github.com/spf13/cobra"
)

var confirmDueDay int

// draftsCmd groups the draft review subcommands
var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Review, confirm or reject contract drafts",
	Long: `Drafts are unconfirmed contract candidates created by the import
command. Confirming a draft creates a rent obligation and destroys the
draft; rejecting it just destroys the draft.`,
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all open drafts",
	RunE:  runDraftsList,
}

var draftsConfirmCmd = &cobra.Command{
	Use:   "confirm <draft-id>",
	Short: "Confirm a draft into a rent obligation",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftsConfirm,
}

var draftsRejectCmd = &cobra.Command{
	Use:   "reject <draft-id>",
	Short: "Reject and delete a draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftsReject,
}

func init() {
	rootCmd.AddCommand(draftsCmd)
	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsConfirmCmd)
	draftsCmd.AddCommand(draftsRejectCmd)

	draftsConfirmCmd.Flags().IntVar(&confirmDueDay, "due-day", 0, "day of month the rent is due (default: 3)")
}

func runDraftsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	store, err := openStore()
	if err != nil {
		return handler.Exit(err)
	}
	defer store.Close()

	drafts, err := store.ListDrafts(ctx)
	if err != nil {
		return handler.Exit(err)
	}
	if len(drafts) == 0 {
		fmt.Println("No open drafts.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "ID\tFILE\tTENANT\tRENT\tUNIT\tRESOLVED")
	for _, draft := range drafts {
		resolved := "no"
		if draft.Resolved() {
			resolved = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			draft.ID,
			draft.FileName,
			orDash(draft.Fields.TenantName),
			draft.Fields.Expected.StringFixed(2),
			orDash(resolve.DraftLabel(draft.Fields)),
			resolved)
	}
	return nil
}

func runDraftsConfirm(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	store, err := openStore()
	if err != nil {
		return handler.Exit(err)
	}
	defer store.Close()

	obligation, err := resolve.NewResolver(store).ConfirmDraft(ctx, args[0], confirmDueDay)
	if err != nil {
		return handler.Exit(err)
	}

	fmt.Printf("Confirmed draft %s.\n", args[0])
	fmt.Printf("Created obligation %s for %s (%s € due on day %d).\n",
		obligation.ID, obligation.TenantName, obligation.Expected.StringFixed(2), obligation.DueDay)
	return nil
}

func runDraftsReject(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	store, err := openStore()
	if err != nil {
		return handler.Exit(err)
	}
	defer store.Close()

	if err := resolve.NewResolver(store).RejectDraft(ctx, args[0]); err != nil {
		return handler.Exit(err)
	}

	fmt.Printf("Rejected draft %s.\n", args[0])
	return nil
}
