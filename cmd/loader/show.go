package main

import (
	"errors"
	"fmt"

	"bookloader/internal/catalog"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show author|book <id>",
		Short: "Print a stored author or book as JSON",
		Long: `Show looks up a single record in the catalog. The id may be bare
(OL23919A) or a dump key (/authors/OL23919A, /works/OL45883W).`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"author", "book"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStores(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer st.close()

			svc := catalog.NewService(st.catalog)
			var v any
			switch args[0] {
			case "author":
				v, err = svc.GetAuthor(ctx, args[1])
			case "book":
				v, err = svc.GetBook(ctx, args[1])
			default:
				return fmt.Errorf("unknown record type %q: want author or book", args[0])
			}
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("%s %s not found", args[0], args[1])
			}
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	return cmd
}
