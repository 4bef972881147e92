package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/notes"
	"github.com/vaultx/vaultx-term/optimistic"
)

func newNotesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Work with the clinical notes board",
	}
	cmd.AddCommand(newNotesColumnsCmd(e))
	cmd.AddCommand(newNotesListCmd(e))
	cmd.AddCommand(newNotesMoveCmd(e))
	cmd.AddCommand(newNotesApproveCmd(e))
	cmd.AddCommand(newNotesRenameCmd(e))
	cmd.AddCommand(newNotesEditCmd(e))
	cmd.AddCommand(newNotesCreateCmd(e))
	cmd.AddCommand(&cobra.Command{
		Use:   "duplicate <card-id>",
		Short: "Copy a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := e.api.DuplicateTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return e.write(cmd, t, func(w io.Writer) { fmt.Fprintf(w, "Created %s (%s).\n", t.ID, t.Title) })
		},
	})
	cmd.AddCommand(newNotesDeleteCmd(e))
	return cmd
}

// loadBoard fetches the columns and the cards matching q together.
func (e *env) loadBoard(ctx context.Context, q client.TemplateQuery) ([]client.Column, []client.Template, error) {
	var (
		cols  []client.Column
		items []client.Template
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cols, err = e.api.ListColumns(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = e.api.ListTemplates(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if len(cols) == 0 {
		cols = notes.DefaultColumns
	}
	return notes.SortColumns(cols), items, nil
}

// resolveColumn accepts a column id or a case-insensitive column name.
func resolveColumn(cols []client.Column, s string) (client.Column, error) {
	for _, c := range cols {
		if c.ID == s || strings.EqualFold(c.Name, s) {
			return c, nil
		}
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.ID
	}
	return client.Column{}, fmt.Errorf("unknown column %q (want one of %s)", s, strings.Join(names, ", "))
}

func parseType(s string) (client.TemplateType, error) {
	t := client.TemplateType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return "", nil
	}
	for _, tt := range client.TemplateTypes {
		if tt == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown card type %q (want soap, snippet, prompt or checklist)", s)
}

func newNotesColumnsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List the board columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := e.api.ListColumns(cmd.Context())
			if err != nil {
				return err
			}
			cols = notes.SortColumns(cols)
			return e.write(cmd, cols, func(w io.Writer) {
				for _, c := range cols {
					fmt.Fprintf(w, "%-12s  %s\n", c.ID, c.Name)
				}
			})
		},
	}
}

func newNotesListCmd(e *env) *cobra.Command {
	var (
		query  string
		typ    string
		tag    string
		column string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards grouped by column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tt, err := parseType(typ)
			if err != nil {
				return err
			}
			f := notes.Filters{Query: query, Type: tt, Tag: strings.TrimPrefix(tag, "#")}
			cols, items, err := e.loadBoard(cmd.Context(), f.ServerQuery())
			if err != nil {
				return err
			}
			if column != "" {
				c, err := resolveColumn(cols, column)
				if err != nil {
					return err
				}
				cols = []client.Column{c}
			}

			buckets := notes.ByColumn(cols, items, f)
			var shown []client.Template
			for _, c := range cols {
				shown = append(shown, buckets[c.ID]...)
			}
			if shown == nil {
				shown = []client.Template{}
			}
			return e.write(cmd, shown, func(w io.Writer) { printBoard(w, cols, buckets, time.Now()) })
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Match card titles")
	cmd.Flags().StringVar(&typ, "type", "", "Only cards of this type (soap|snippet|prompt|checklist)")
	cmd.Flags().StringVar(&tag, "tag", "", "Only cards with this tag")
	cmd.Flags().StringVar(&column, "column", "", "Only this column (id or name)")
	return cmd
}

func printBoard(w io.Writer, cols []client.Column, buckets map[string][]client.Template, now time.Time) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprintln(w)
		}
		cards := buckets[c.ID]
		fmt.Fprintf(w, "%s (%d)\n", c.Name, len(cards))
		if len(cards) == 0 {
			fmt.Fprintln(w, "  —")
			continue
		}
		for _, t := range cards {
			approved := ""
			if t.IsApproved {
				approved = " ✓"
			}
			fmt.Fprintf(w, "  %s  [%s] %s%s\n", t.ID, notes.TypeLabel(t.Type), t.Title, approved)
			if p := notes.PreviewLine(t); p != "" {
				fmt.Fprintf(w, "      %s\n", truncate(p, 72))
			}
			meta := notes.FormatUpdatedAgo(t.UpdatedAt, now)
			if len(t.Tags) > 0 {
				meta = "#" + strings.Join(t.Tags, " #") + " · " + meta
			}
			fmt.Fprintf(w, "      %s\n", meta)
		}
	}
}

// findCard loads the board and returns the card with id.
func (e *env) findCard(ctx context.Context, id string) ([]client.Column, []client.Template, client.Template, error) {
	cols, items, err := e.loadBoard(ctx, client.TemplateQuery{})
	if err != nil {
		return nil, nil, client.Template{}, err
	}
	for _, t := range items {
		if t.ID == id {
			return cols, items, t, nil
		}
	}
	return nil, nil, client.Template{}, fmt.Errorf("card not found: %s", id)
}

// editCard runs one optimistic card edit and prints the confirmed card.
func (e *env) editCard(cmd *cobra.Command, items []client.Template, id string, op optimistic.Op,
	mutate func(client.Template) client.Template,
	request func(context.Context, client.Template) (client.Template, error),
	done string) error {
	store := optimistic.NewStore(func(t client.Template) string { return t.ID }, items)
	out, err := optimistic.Apply(cmd.Context(), store, id, mutate, request, op, optimistic.Hooks{})
	if err != nil {
		return err
	}
	e.log.Debug("card mutation settled", zap.String("template_id", id), zap.Stringer("result", out.Result))
	switch out.Result {
	case optimistic.SignedOut:
		return out.Err
	case optimistic.RolledBack:
		return errors.New(out.Message)
	}
	t, _ := store.Get(id)
	return e.write(cmd, t, func(w io.Writer) { fmt.Fprintln(w, done) })
}

func newNotesMoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "move <card-id> <column>",
		Short: "Move a card to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, items, t, err := e.findCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			to, err := resolveColumn(cols, args[1])
			if err != nil {
				return err
			}
			if to.ID == t.ColumnID {
				return e.write(cmd, t, func(w io.Writer) { fmt.Fprintf(w, "Already in %s.\n", to.Name) })
			}
			return e.editCard(cmd, items, t.ID,
				optimistic.Op{Title: "Move failed", Fallback: "Could not move the card."},
				func(t client.Template) client.Template { t.ColumnID = to.ID; return t },
				func(ctx context.Context, v client.Template) (client.Template, error) {
					return e.api.MoveTemplate(ctx, v.ID, v.ColumnID)
				},
				fmt.Sprintf("Moved %q to %s.", t.Title, to.Name))
		},
	}
}

func newNotesApproveCmd(e *env) *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "approve <card-id>",
		Short: "Approve a card, or revoke approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, items, t, err := e.findCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			want := !revoke
			done := fmt.Sprintf("Approved %q.", t.Title)
			if revoke {
				done = fmt.Sprintf("Revoked approval of %q.", t.Title)
			}
			return e.editCard(cmd, items, t.ID,
				optimistic.Op{Title: "Update failed", Fallback: "Could not change approval."},
				func(t client.Template) client.Template { t.IsApproved = want; return t },
				func(ctx context.Context, v client.Template) (client.Template, error) {
					return e.api.UpdateTemplate(ctx, v.ID, client.TemplatePatch{IsApproved: &v.IsApproved})
				},
				done)
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Revoke approval instead")
	return cmd
}

func newNotesRenameCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <card-id> <title>",
		Short: "Rename a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(args[1])
			if title == "" {
				return errors.New("title must not be empty")
			}
			_, items, t, err := e.findCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return e.editCard(cmd, items, t.ID,
				optimistic.Op{Title: "Rename failed", Fallback: "Could not rename the card."},
				func(t client.Template) client.Template { t.Title = title; return t },
				func(ctx context.Context, v client.Template) (client.Template, error) {
					return e.api.UpdateTemplate(ctx, v.ID, client.TemplatePatch{Title: &v.Title})
				},
				fmt.Sprintf("Renamed to %q.", title))
		},
	}
}

func newNotesEditCmd(e *env) *cobra.Command {
	var (
		tags string
		sets []string
	)
	cmd := &cobra.Command{
		Use:   "edit <card-id>",
		Short: "Change a card's tags or content",
		Long: `--tags replaces the tag list with a comma-separated one; pass "" to clear it.
--set key=value changes one content field and may be repeated. Field keys
depend on the card type: S, O, A, P for SOAP; section and text for snippets;
system and user for prompts; items for checklists, written as
"[x] done item; open item".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setTags := cmd.Flags().Changed("tags")
			if !setTags && len(sets) == 0 {
				return errors.New("nothing to change: pass --tags or --set")
			}
			_, items, t, err := e.findCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			newTags := t.Tags
			if setTags {
				newTags = notes.ParseTags(tags)
			}
			content := t.Content
			for _, s := range sets {
				k, v, ok := strings.Cut(s, "=")
				if !ok {
					return fmt.Errorf("--set %q: want key=value", s)
				}
				content, err = notes.SetField(t.Type, content, strings.TrimSpace(k), strings.TrimSpace(v))
				if err != nil {
					return err
				}
			}

			return e.editCard(cmd, items, t.ID,
				optimistic.Op{Title: "Update failed", Fallback: "Could not update the card."},
				func(t client.Template) client.Template {
					t.Tags = newTags
					t.Content = content
					return t
				},
				func(ctx context.Context, v client.Template) (client.Template, error) {
					var patch client.TemplatePatch
					if setTags {
						patch.Tags = &v.Tags
					}
					if len(sets) > 0 {
						patch.Content = &v.Content
					}
					return e.api.UpdateTemplate(ctx, v.ID, patch)
				},
				fmt.Sprintf("Updated %q.", t.Title))
		},
	}
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags replacing the current ones")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Content field to change, as key=value (repeatable)")
	return cmd
}

func newNotesCreateCmd(e *env) *cobra.Command {
	var (
		typ    string
		title  string
		column string
		tags   []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tt, err := parseType(typ)
			if err != nil {
				return err
			}
			if tt == "" {
				return errors.New("--type is required")
			}
			title = strings.TrimSpace(title)
			if title == "" {
				return errors.New("--title is required")
			}
			content, err := client.EmptyContent(tt)
			if err != nil {
				return err
			}
			col := notes.DefaultColumns[0].ID
			if column != "" {
				cols, err := e.api.ListColumns(cmd.Context())
				if err != nil {
					return err
				}
				if len(cols) == 0 {
					cols = notes.DefaultColumns
				}
				c, err := resolveColumn(cols, column)
				if err != nil {
					return err
				}
				col = c.ID
			}
			if tags == nil {
				tags = []string{}
			}
			t, err := e.api.CreateTemplate(cmd.Context(), client.NewTemplate{
				ColumnID: col, Type: tt, Title: title, Tags: tags, Content: content,
			})
			if err != nil {
				return err
			}
			return e.write(cmd, t, func(w io.Writer) { fmt.Fprintf(w, "Created %s (%s).\n", t.ID, t.Title) })
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Card type (soap|snippet|prompt|checklist)")
	cmd.Flags().StringVar(&title, "title", "", "Card title")
	cmd.Flags().StringVar(&column, "column", "", "Column id or name (default: the first column)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach (repeatable)")
	return cmd
}

func newNotesDeleteCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <card-id>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}
			if err := e.api.DeleteTemplate(cmd.Context(), args[0]); err != nil {
				return err
			}
			result := map[string]string{"id": args[0], "status": "deleted"}
			return e.write(cmd, result, func(w io.Writer) { fmt.Fprintln(w, "Card deleted.") })
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}
