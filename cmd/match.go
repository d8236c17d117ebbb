package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"keymatch/core/config"
	"keymatch/core/logger"
	"keymatch/core/match"
	"keymatch/core/storage"
	"keymatch/feature/relations"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	matchInput           string
	matchObject          string
	matchPrefix          string
	matchOp              string
	matchColumns         []string
	matchKeys            []string
	matchNullMatchesNull bool
	matchOutputObject    string
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match <relation>",
	Short: "Partition a batch of candidates against a relation",
	Long: `Reads candidates (a JSON array) from a local file or from object storage and
prints which of them already exist in the relation.

Examples:
  keymatch match number-candidates --input candidates.json
  keymatch match prices --object incoming/prices.json --columns Date,Name,Value
  keymatch match number-values --prefix incoming/values/ --op not-existing --output-object results/values.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		startTime := time.Now()

		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logg.Sync()

		mappings, err := parseKeyMappings(matchKeys, matchColumns, matchNullMatchesNull)
		if err != nil {
			return err
		}

		var client storage.Client
		if matchObject != "" || matchPrefix != "" || matchOutputObject != "" {
			if client, err = storage.NewClient(cfg.Storage); err != nil {
				return fmt.Errorf("failed to create storage client: %w", err)
			}
		}

		items, err := loadCandidates(ctx, client, cfg.Storage, matchInput, matchObject, matchPrefix)
		if err != nil {
			return err
		}

		matcher, closeDB, err := openMatcher(ctx, cfg, logg)
		if err != nil {
			return err
		}
		defer closeDB()

		svc := relations.NewService(matcher, relations.DefaultCatalog(), logg)
		req := relations.MatchRequest{Items: items}
		if len(mappings) > 0 {
			req.KeyMappings = mappings
		}

		resp, err := svc.Match(ctx, args[0], matchOp, req)
		if err != nil {
			return fmt.Errorf("match %s failed: %w", args[0], err)
		}

		if matchOutputObject != "" {
			if err := storage.WriteJSON(ctx, client, cfg.Storage.Bucket, matchOutputObject, resp); err != nil {
				return fmt.Errorf("failed to upload result: %w", err)
			}
			logg.Info("Result uploaded", zap.String("bucket", cfg.Storage.Bucket), zap.String("object", matchOutputObject))
		} else if err := writeResult(os.Stdout, resp); err != nil {
			return err
		}

		logg.Info("Match finished",
			zap.String("relation", resp.Relation),
			zap.Int("existing", resp.ExistingCount),
			zap.Int("not_existing", resp.NotExistingCount),
			zap.Duration("execution_time", time.Since(startTime)),
		)
		return nil
	},
}

// parseKeyMappings builds the request key from --key item_field=column pairs
// or the --columns shorthand. An empty item field means the item itself.
func parseKeyMappings(keys, columns []string, nullMatchesNull bool) ([]match.KeyMapping, error) {
	if len(keys) > 0 && len(columns) > 0 {
		return nil, errors.New("--key and --columns are mutually exclusive")
	}

	var mappings []match.KeyMapping
	for _, k := range keys {
		field, column, ok := strings.Cut(k, "=")
		if !ok {
			column, field = field, ""
		}
		column = strings.TrimSpace(column)
		if column == "" {
			return nil, fmt.Errorf("invalid --key %q: missing column", k)
		}
		mappings = append(mappings, match.KeyMapping{
			ItemField:       strings.TrimSpace(field),
			Column:          column,
			NullMatchesNull: nullMatchesNull,
		})
	}
	for _, c := range columns {
		mappings = append(mappings, match.KeyMapping{
			ItemField:       c,
			Column:          c,
			NullMatchesNull: nullMatchesNull,
		})
	}
	return mappings, nil
}

// loadCandidates reads the JSON array of candidates from exactly one source.
// Objects under a prefix are concatenated in name order.
func loadCandidates(ctx context.Context, client storage.Client, cfg storage.Config, input, object, prefix string) (json.RawMessage, error) {
	sources := 0
	for _, s := range []string{input, object, prefix} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, errors.New("exactly one of --input, --object or --prefix is required")
	}

	switch {
	case input != "":
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return data, nil
	case object != "":
		return storage.ReadObject(ctx, client, cfg.Bucket, object, cfg.MaxObjectBytes())
	}

	names, err := storage.ListObjectNames(ctx, client, cfg.Bucket, prefix, ".json")
	if err != nil {
		return nil, err
	}
	merged := make([]json.RawMessage, 0)
	for _, name := range names {
		data, err := storage.ReadObject(ctx, client, cfg.Bucket, name, cfg.MaxObjectBytes())
		if err != nil {
			return nil, err
		}
		var batch []json.RawMessage
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("object %s is not a JSON array: %w", name, err)
		}
		merged = append(merged, batch...)
	}
	return json.Marshal(merged)
}

func writeResult(w io.Writer, resp *relations.MatchResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func init() {
	matchCmd.Flags().StringVar(&matchInput, "input", "", "Local JSON file holding the candidates")
	matchCmd.Flags().StringVar(&matchObject, "object", "", "Storage object holding the candidates")
	matchCmd.Flags().StringVar(&matchPrefix, "prefix", "", "Storage prefix whose .json objects hold the candidates")
	matchCmd.Flags().StringVar(&matchOp, "op", relations.OpPartition, "Operation: existing, not-existing or partition")
	matchCmd.Flags().StringSliceVar(&matchColumns, "columns", nil, "Key columns shared by candidate and relation")
	matchCmd.Flags().StringSliceVar(&matchKeys, "key", nil, "Key mapping item_field=column (repeatable; =column keys primitive items)")
	matchCmd.Flags().BoolVar(&matchNullMatchesNull, "null-matches-null", false, "Let absent key values match absent stored values")
	matchCmd.Flags().StringVar(&matchOutputObject, "output-object", "", "Upload the result to this storage object instead of printing it")
	RootCmd.AddCommand(matchCmd)
}
