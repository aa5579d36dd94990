package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fixmate/kbsearch/internal/config"
	"github.com/fixmate/kbsearch/internal/provider/records"
	"github.com/fixmate/kbsearch/internal/retrieve"
)

// seedFile is the YAML shape accepted by the seed command.
type seedFile struct {
	Records []seedRecord `yaml:"records"`
	Links   []seedLink   `yaml:"links"`
}

type seedRecord struct {
	ID           string            `yaml:"id"`
	Collection   string            `yaml:"collection"`
	Properties   map[string]string `yaml:"properties"`
	LastModified time.Time         `yaml:"last_modified"`
}

type seedLink struct {
	From     string `yaml:"from"`
	Relation string `yaml:"relation"`
	To       string `yaml:"to"`
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load records into the knowledge database",
		Long: `Load records and relation links from a YAML file into the
record database.

The file holds a list of records (id, collection, properties,
last_modified) and optional relation links between them:

  records:
    - id: rep-001
      collection: repairs
      properties:
        title: Brake pad replacement
        content: Front brake pads worn below 3mm, replaced both sides.
        category: brake
        status: completed
      last_modified: 2026-05-01T00:00:00Z
  links:
    - from: rep-001
      relation: related
      to: shop-002`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cmd, args[0])
		},
	}
	return cmd
}

func runSeed(ctx context.Context, cmd *cobra.Command, path string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	store, err := records.Open(cfg.Records.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	recs := make([]retrieve.Record, 0, len(seed.Records))
	for _, sr := range seed.Records {
		recs = append(recs, retrieve.Record{
			ID:           sr.ID,
			Collection:   sr.Collection,
			Properties:   sr.Properties,
			LastModified: sr.LastModified,
		})
	}
	if err := store.Upsert(ctx, recs); err != nil {
		return err
	}

	for _, link := range seed.Links {
		if err := store.Relate(ctx, link.From, link.Relation, link.To); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d records and %d links into %s\n",
		len(recs), len(seed.Links), cfg.Records.DBPath)
	return nil
}
