package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/kgpgpt/contrib/chunking/markdown"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/rag/chunking"
	"github.com/sweetpotato0/kgpgpt/rag/indexer"
)

func newIngestCmd(root *rootOptions) *cobra.Command {
	var (
		batchSize   int
		concurrency int
		chunkSize   int
		overlap     int
		sections    bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Chunk, embed and index the .txt, .md and .html files under dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := root.cfg
			var c closers
			defer c.close(context.Background())

			emb, err := newEmbedder(ctx, cfg, &c)
			if err != nil {
				return err
			}
			store, err := newVectorStore(ctx, cfg, &c)
			if err != nil {
				return err
			}
			sliding := chunking.NewSlidingChunker(
				chunking.WithChunkSize(chunkSize),
				chunking.WithOverlap(overlap),
			)
			opts := []indexer.Option{
				indexer.WithBatchSize(batchSize),
				indexer.WithConcurrency(concurrency),
				indexer.WithChunker(sliding),
			}
			if sections {
				md := markdown.New(markdown.WithMaxCharacters(chunkSize), markdown.WithFallbackChunker(sliding))
				for _, format := range []string{"md", "html", "htm"} {
					opts = append(opts, indexer.WithFormatChunker(format, md))
				}
			}
			ix := indexer.New(store, emb, opts...)

			stats, err := ix.IndexDir(ctx, args[0])
			if err != nil {
				return fmt.Errorf("ingest %s: %w", args[0], err)
			}
			logging.WithComponent("ingest").Info("ingestion finished",
				"files", stats.Files, "skipped", stats.Skipped, "chunks", stats.Chunks,
				"collection", cfg.Vector.Collection)
			return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", indexer.DefaultBatchSize, "Chunks per embed and upsert call")
	cmd.Flags().IntVar(&concurrency, "concurrency", indexer.DefaultConcurrency, "Batches in flight")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", chunking.DefaultChunkSize, "Chunk length in characters")
	cmd.Flags().IntVar(&overlap, "overlap", chunking.DefaultOverlap, "Overlap between consecutive chunks")
	cmd.Flags().BoolVar(&sections, "markdown-sections", true, "Chunk .md and .html files by heading before windowing")
	return cmd
}
