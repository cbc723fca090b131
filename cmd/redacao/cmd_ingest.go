package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index a Markdown corpus into the passage store",
	Long: `Chunks every .md and .txt file under dir and writes the chunks, with their
embeddings, into the configured passage store. The file name selects the
category (tema, argumentacao, coesao, intervencao, estrutura, exemplos).

Example:
  redacao ingest ./corpus --config config/config.yml`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Config.Retrieval.Store == config.StoreMemory {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("memory store: the index is discarded when the command exits"))
	}

	stats, err := app.Indexer().IngestDir(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d files, %d chunks\n", titleStyle.Render(" indexed "), stats.Files, stats.Chunks)
	cats := make([]string, 0, len(stats.ByCat))
	for c := range stats.ByCat {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(out, "  %-14s %d\n", c, stats.ByCat[c])
	}
	return nil
}
