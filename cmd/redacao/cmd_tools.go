package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

var (
	structureTheme      string
	repertoireEssayFile string
)

var structureCmd = &cobra.Command{
	Use:   "estrutura",
	Short: "Suggest an essay outline for a theme",
	RunE:  runStructure,
}

var repertoireCmd = &cobra.Command{
	Use:   "repertorio",
	Short: "Review the cultural repertoire used in an essay",
	RunE:  runRepertoire,
}

func init() {
	structureCmd.Flags().StringVarP(&structureTheme, "theme", "t", "", "Essay theme (required)")
	structureCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	structureCmd.MarkFlagRequired("theme")

	repertoireCmd.Flags().StringVarP(&repertoireEssayFile, "essay-file", "f", "", "Essay text file, or - for stdin (required)")
	repertoireCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	repertoireCmd.MarkFlagRequired("essay-file")
}

func runStructure(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	s, err := app.Grading.SuggestStructure(ctx, structureTheme)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, s)
	}
	return renderMarkdown(cmd.OutOrStdout(), structureMarkdown(s))
}

func runRepertoire(cmd *cobra.Command, args []string) error {
	essay, err := readEssay(cmd, repertoireEssayFile)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	a, err := app.Grading.AnalyzeRepertoire(ctx, essay)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, a)
	}
	return renderMarkdown(cmd.OutOrStdout(), repertoireMarkdown(a))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func structureMarkdown(s models.StructureSuggestion) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Estrutura sugerida\n\n**Tema:** %s\n\n", s.Theme)
	fmt.Fprintf(&sb, "## Introdução\n\n%s\n\n", s.Introduction)
	for i, d := range s.Development {
		fmt.Fprintf(&sb, "## Desenvolvimento %d\n\n%s\n\n", i+1, d)
	}
	fmt.Fprintf(&sb, "## Conclusão\n\n%s\n\n", s.Conclusion)
	if len(s.Repertoire) > 0 {
		sb.WriteString("## Repertório\n\n")
		for _, r := range s.Repertoire {
			sb.WriteString("- " + r + "\n")
		}
	}
	return sb.String()
}

func repertoireMarkdown(a models.RepertoireAnalysis) string {
	var sb strings.Builder
	sb.WriteString("# Repertório sociocultural\n\n")
	fmt.Fprintf(&sb, "%s\n\n", a.Assessment)
	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "## %s\n\n", title)
		for _, it := range items {
			sb.WriteString("- " + it + "\n")
		}
		sb.WriteString("\n")
	}
	list("Referências encontradas no texto", a.Detected)
	list("Repertório identificado", a.Identified)
	list("Sugestões", a.Suggestions)
	return sb.String()
}
