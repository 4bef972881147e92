package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/inbox"
	"github.com/vaultx/vaultx-term/model"
	"github.com/vaultx/vaultx-term/optimistic"
)

func newInboxCmd(e *env) *cobra.Command {
	var (
		status   string
		query    string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List intake cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseStatus(status)
			if err != nil {
				return err
			}
			p, err := e.api.ListInbox(cmd.Context(), client.InboxQuery{Page: page, PageSize: pageSize})
			if err != nil {
				return err
			}
			rows := inbox.Filter(p.Rows, st, query)
			return e.write(cmd, rows, func(w io.Writer) { printCases(w, rows, p.Meta) })
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only cases in this status (pending|reviewed|closed)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Match patient name, complaint or diagnosis")
	cmd.Flags().IntVar(&page, "page", 0, "Page number (server default when 0)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Rows per page (server default when 0)")
	return cmd
}

func parseStatus(s string) (client.CaseStatus, error) {
	st := client.CaseStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case "", client.StatusPending, client.StatusReviewed, client.StatusClosed:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q (want pending, reviewed or closed)", s)
}

func printCases(w io.Writer, rows []client.Case, meta client.PageMeta) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No cases.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-24s  %-8s  %-5s  %s\n", "ID", "PATIENT", "STATUS", "FLAGS", "SUBMITTED")
	for _, r := range rows {
		flags := ""
		if r.RedFlagsCount > 0 {
			flags = fmt.Sprintf("%d", r.RedFlagsCount)
		}
		fmt.Fprintf(w, "%-36s  %-24s  %-8s  %-5s  %s\n",
			r.ID, truncate(r.PatientName, 24), inbox.StatusLabel(r.Status), flags, r.SubmittedAt)
	}
	c := inbox.Count(rows)
	fmt.Fprintf(w, "\n%d shown of %d · %d pending · %d reviewed · %d closed\n",
		c.Total, meta.Total, c.Pending, c.Reviewed, c.Closed)
}

func newCaseCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Inspect and update a single case",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <case-id>",
		Short: "Show a case with its clinical summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := e.api.GetCase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return e.write(cmd, d, func(w io.Writer) { fmt.Fprintln(w, model.DetailMarkdown(d)) })
		},
	})
	cmd.AddCommand(newCaseActionCmd(e, inbox.Review, "Mark a pending case reviewed"))
	cmd.AddCommand(newCaseActionCmd(e, inbox.Close, "Close a case"))
	cmd.AddCommand(&cobra.Command{
		Use:   "regenerate <case-id>",
		Short: "Ask the server to regenerate the clinical summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.api.RegenerateSummary(cmd.Context(), args[0]); err != nil {
				return err
			}
			result := map[string]string{"id": args[0], "status": "regenerated"}
			return e.write(cmd, result, func(w io.Writer) { fmt.Fprintln(w, "Summary regenerated.") })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "doc-url <case-id> <document-id>",
		Short: "Print a short-lived download link for a case document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := e.api.DocumentURL(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return e.write(cmd, map[string]string{"url": url}, func(w io.Writer) { fmt.Fprintln(w, url) })
		},
	})
	return cmd
}

// newCaseActionCmd applies a through the optimistic synchronizer, the same
// path the inbox tab uses, on a store holding just the one case.
func newCaseActionCmd(e *env, a inbox.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(a) + " <case-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := e.api.GetCase(ctx, args[0])
			if err != nil {
				return err
			}
			current := client.Case{
				ID:          d.ID,
				SubmittedAt: d.SubmittedAt,
				PatientName: d.Patient.Name,
				Status:      d.Status,
			}
			if !a.Allowed(current.Status) {
				return fmt.Errorf("case is already %s", strings.ToLower(inbox.StatusLabel(current.Status)))
			}

			store := optimistic.NewStore(func(c client.Case) string { return c.ID }, []client.Case{current})
			op := optimistic.Op{Title: "Action failed", Fallback: fmt.Sprintf("Could not mark the case %s.", a.Verb())}
			out, err := optimistic.Apply(ctx, store, current.ID, a.Mutate, a.Request(e.api), op, optimistic.Hooks{})
			if err != nil {
				return err
			}
			e.log.Debug("case mutation settled", zap.String("case_id", current.ID), zap.Stringer("result", out.Result))
			switch out.Result {
			case optimistic.SignedOut:
				return out.Err
			case optimistic.RolledBack:
				return errors.New(out.Message)
			}

			items := store.Items()
			return e.write(cmd, items[0], func(w io.Writer) {
				fmt.Fprintf(w, "Case %s marked %s.\n", items[0].ID, a.Verb())
			})
		},
	}
}

func newDashboardCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the inbox KPIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := e.api.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return e.write(cmd, d, func(w io.Writer) {
				fmt.Fprintf(w, "Total cases:       %d\n", d.KPIs.TotalCases)
				fmt.Fprintf(w, "Pending cases:     %d\n", d.KPIs.PendingCases)
				fmt.Fprintf(w, "Avg resolution:    %.1fh\n", d.KPIs.AvgResolutionTime)
				fmt.Fprintf(w, "Avg patient age:   %.1f\n", d.KPIs.AvgAge)
			})
		},
	}
}
