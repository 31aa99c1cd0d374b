package cmds

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/pulse/pkg/api"
)

func newCollectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Manage paper collections",
	}
	cmd.AddCommand(
		newCollectionsListCommand(),
		newCollectionsShowCommand(),
		newCollectionsCreateCommand(),
		newCollectionsAddCommand(),
		newCollectionsRemoveCommand(),
		newCollectionsUpdateCommand(),
		newCollectionsDuplicateCommand(),
		newCollectionsMergeCommand(),
	)
	return cmd
}

func newCollectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			list, err := e.app.Collections.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range list {
				e.printer.Printf("%5d  %-30s %4d papers  %s\n", c.ID, c.Name, c.PaperCount, c.Description)
			}
			return nil
		},
	}
}

func newCollectionsShowCommand() *cobra.Command {
	var page int
	var search string
	var all bool
	cmd := &cobra.Command{
		Use:   "show <collection-id>",
		Short: "List the papers of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			res, err := e.app.Collections.ListPapers(ctx, id, page, search)
			if err != nil {
				return err
			}
			n := 0
			for {
				for _, p := range res.Papers {
					n++
					e.printer.Printf("%s", e.printer.Paper(n, p))
				}
				if !all {
					break
				}
				var ok bool
				res, ok, err = e.app.Collections.NextPage(ctx)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
			}
			_, cur := e.app.Collections.Viewing()
			e.printer.Printf("page %d/%d, %d papers\n", cur.Page, cur.TotalPages, cur.TotalCount)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page to show")
	cmd.Flags().StringVar(&search, "search", "", "Filter papers by keyword")
	cmd.Flags().BoolVar(&all, "all", false, "Follow every page after --page")
	return cmd
}

func newCollectionsCreateCommand() *cobra.Command {
	var in api.CollectionInput
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			in.Name = args[0]
			c, err := e.app.Collections.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			e.printer.Printf("%d\n", c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().StringVar(&in.Color, "color", "#409EFF", "Display color")
	return cmd
}

func newCollectionsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection-id> <paper-id...>",
		Short: "Add papers (database IDs) to a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			out, err := e.app.Collections.AddPapers(cmd.Context(), id, ids)
			if err != nil {
				return err
			}
			return printYAML(cmd, out)
		},
	}
}

func newCollectionsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <collection-id> <paper-id>",
		Short: "Remove a paper (database ID) from a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return e.app.Collections.RemovePaper(cmd.Context(), ids[0], ids[1])
		},
	}
}

func newCollectionsUpdateCommand() *cobra.Command {
	var in api.CollectionInput
	cmd := &cobra.Command{
		Use:   "update <collection-id>",
		Short: "Rename a collection or change its description or color",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if in == (api.CollectionInput{}) {
				return errors.New("nothing to update: set --name, --description or --color")
			}
			c, err := e.app.Collections.Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			e.printer.Printf("%5d  %s\n", c.ID, c.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "New name")
	cmd.Flags().StringVar(&in.Description, "description", "", "New description")
	cmd.Flags().StringVar(&in.Color, "color", "", "New display color")
	return cmd
}

func newCollectionsDuplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <collection-id>",
		Short: "Create an empty copy of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := e.app.Collections.Duplicate(cmd.Context(), id)
			if err != nil {
				return err
			}
			e.printer.Printf("%d\n", c.ID)
			return nil
		},
	}
}

func newCollectionsMergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <from-id> <into-id>",
		Short: "Move every paper of one collection into another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			out, err := e.app.Collections.Merge(cmd.Context(), ids[0], ids[1])
			if err != nil {
				return err
			}
			return printYAML(cmd, out)
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
