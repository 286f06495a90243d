package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alnah/go-summarizeme/internal/format"
	"github.com/alnah/go-summarizeme/internal/library"
	"github.com/alnah/go-summarizeme/internal/store"
)

// CollectionsCmd creates the collections command with subcommands.
func CollectionsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"ls"},
		Short:   "List and manage collections",
		Long: `List collections with their entity counts.

Subcommands show the entities of one collection, rename a collection,
or delete it together with the entities no other collection holds.`,
		Example: `  summarizeme collections
  summarizeme collections entities Talks --sort date --desc
  summarizeme collections rename Talks "Conference Talks"
  summarizeme collections delete Talks`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionsList(cmd.Context(), env)
		},
	}

	cmd.AddCommand(collectionsEntitiesCmd(env))
	cmd.AddCommand(collectionsRenameCmd(env))
	cmd.AddCommand(collectionsDeleteCmd(env))

	return cmd
}

func collectionsEntitiesCmd(env *Env) *cobra.Command {
	var opts store.ListOptions

	cmd := &cobra.Command{
		Use:     "entities <collection>",
		Aliases: []string{"videos"},
		Short:   "List the entities of a collection",
		Example: `  summarizeme collections entities Talks --search go --limit 10`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Sort {
			case "", "title", "date":
			default:
				return fmt.Errorf("sort %q (expected title or date): %w", opts.Sort, ErrInvalidValue)
			}
			if opts.Limit < 0 || opts.Offset < 0 {
				return fmt.Errorf("limit and offset must be positive: %w", ErrInvalidValue)
			}
			return runCollectionsEntities(cmd.Context(), env, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Only titles containing this text")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Sort by title or date")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "Reverse the sort order")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Maximum number of entities (0 = all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Entities to skip")

	return cmd
}

func collectionsRenameCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old-name> <new-name>",
		Short: "Rename a collection",
		Long: `Rename a collection. Characters other than letters, digits,
spaces, dashes and underscores are removed from the new name.

The external key is kept, so later syncs and ingests of the same source
keep using the new name. Directories on disk are not renamed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionsRename(cmd.Context(), env, args[0], args[1])
		},
	}
}

func collectionsDeleteCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a collection",
		Long: `Delete a collection. Entities that belong to no other collection
are deleted too, with their transcripts and documents.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionsDelete(cmd.Context(), env, args[0])
		},
	}
}

func runCollectionsList(ctx context.Context, env *Env) error {
	return withRuntime(ctx, env, func(rt *runtime) error {
		lib := library.New(rt.store, rt.logger)
		summaries, err := lib.List(ctx)
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Fprintln(env.Stdout, "No collections. Run sync or ingest first.")
		} else {
			rows := make([][]string, 0, len(summaries))
			for _, c := range summaries {
				rows = append(rows, []string{c.Name, c.ExternalKey, strconv.Itoa(c.Entities)})
			}
			fmt.Fprintln(env.Stdout, renderTable(
				[]string{"Name", "Key", "Entities"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
		}

		counts, err := rt.store.Counts(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stderr, "%d entities, %d links, %d documents", counts.Entities, counts.Collections, counts.Documents)
		if info, err := os.Stat(rt.store.Path()); err == nil {
			fmt.Fprintf(env.Stderr, " (%s)", format.Size(info.Size()))
		}
		fmt.Fprintln(env.Stderr)
		return nil
	})
}

func runCollectionsEntities(ctx context.Context, env *Env, name string, opts store.ListOptions) error {
	return withRuntime(ctx, env, func(rt *runtime) error {
		lib := library.New(rt.store, rt.logger)
		entities, err := lib.Entities(ctx, name, opts)
		if err != nil {
			return err
		}
		if len(entities) == 0 {
			fmt.Fprintln(env.Stdout, "No entities match.")
			return nil
		}

		rows := make([][]string, 0, len(entities))
		for _, e := range entities {
			docs, err := rt.store.EntityDocuments(ctx, e.ID)
			if err != nil {
				return err
			}
			rows = append(rows, []string{e.ID, e.Title, e.UploadDate, strconv.Itoa(e.SizePlain), strconv.Itoa(len(docs))})
		}
		fmt.Fprintln(env.Stdout, renderTable(
			[]string{"ID", "Title", "Date", "Size", "Documents"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		))
		return nil
	})
}

func runCollectionsRename(ctx context.Context, env *Env, oldName, newName string) error {
	return withRuntime(ctx, env, func(rt *runtime) error {
		applied, err := library.New(rt.store, rt.logger).Rename(ctx, oldName, newName)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stderr, "Renamed %s to %s\n", oldName, applied)
		return nil
	})
}

func runCollectionsDelete(ctx context.Context, env *Env, name string) error {
	return withRuntime(ctx, env, func(rt *runtime) error {
		res, err := library.New(rt.store, rt.logger).Delete(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stderr, "Deleted %s: %d link(s) removed, %d entities deleted\n", name, res.Links, len(res.Entities))
		return nil
	})
}
