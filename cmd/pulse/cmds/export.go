package cmds

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/pulse/pkg/api"
)

func newExportCommand() *cobra.Command {
	var collectionID int64
	var paperIDs []int64
	var format, output string
	var save bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export papers or a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var data []byte
			base := "papers"
			switch {
			case collectionID != 0 && len(paperIDs) > 0:
				return errors.New("use either --collection or --papers")
			case collectionID != 0:
				data, err = e.app.Collections.Export(ctx, collectionID, format)
				base = "collection"
			case len(paperIDs) > 0:
				data, err = e.client.Export.Papers(ctx, paperIDs, format)
			default:
				return errors.New("nothing to export: pass --collection or --papers")
			}
			if err != nil {
				return err
			}
			if save && output == "" {
				output = outputName(base, format)
			}
			return writeOutput(cmd, output, data)
		},
	}
	cmd.Flags().Int64Var(&collectionID, "collection", 0, "Collection to export")
	cmd.Flags().Int64SliceVar(&paperIDs, "papers", nil, "Paper database IDs to export")
	cmd.Flags().StringVar(&format, "format", api.FormatMarkdown, "markdown, bibtex, json or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default stdout)")
	cmd.Flags().BoolVar(&save, "save", false, "Write to papers.<ext> or collection.<ext>")
	return cmd
}
