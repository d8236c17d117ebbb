package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"keymatch/core/config"
	"keymatch/core/logger"
	"keymatch/core/match"
	"keymatch/feature/relations"

	"github.com/spf13/cobra"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog [relation]",
	Short: "Show relations as the matcher sees them",
	Long: `Without arguments, lists the served relations and their default keys.
With a relation name, prints its columns, declared types and primary key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logg.Sync()

		matcher, closeDB, err := openMatcher(cmd.Context(), cfg, logg)
		if err != nil {
			return err
		}
		defer closeDB()

		svc := relations.NewService(matcher, relations.DefaultCatalog(), logg)
		if len(args) == 0 {
			infos, err := svc.List()
			if err != nil {
				return err
			}
			return printRelations(os.Stdout, infos)
		}

		rel, err := svc.Describe(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("describe %s failed: %w", args[0], err)
		}
		return printRelation(os.Stdout, rel)
	},
}

func printRelations(w io.Writer, infos []relations.RelationInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTABLE\tITEM\tENTITY\tKEY")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.Name, info.Table, info.ItemType, info.EntityType, describeKey(info))
	}
	return tw.Flush()
}

func describeKey(info relations.RelationInfo) string {
	if len(info.Columns) > 0 {
		return strings.Join(info.Columns, ",")
	}
	parts := make([]string, 0, len(info.KeyMappings))
	for _, m := range info.KeyMappings {
		parts = append(parts, m.ItemField+"="+m.Column)
	}
	return strings.Join(parts, ",")
}

func printRelation(w io.Writer, rel *match.Relation) error {
	if len(rel.Columns) == 0 {
		_, err := fmt.Fprintf(w, "Relation %s not found\n", rel.Name)
		return err
	}

	fmt.Fprintf(w, "Relation:     %s\n", rel.Name)
	fmt.Fprintf(w, "Primary Key:  %s\n\n", strings.Join(rel.PrimaryKey(), ", "))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLABLE\tPK")
	for _, c := range rel.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%v\n", c.Name, c.Type, c.Nullable, c.PrimaryKey)
	}
	return tw.Flush()
}

func init() {
	RootCmd.AddCommand(catalogCmd)
}
