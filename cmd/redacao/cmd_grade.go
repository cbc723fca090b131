package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/grading"
)

var (
	gradeTheme     string
	gradeEssayFile string
	jsonOutput     bool
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Score an essay on the five ENEM competencies",
	Long: `Runs the full scoring pipeline on one essay and prints the report.

Example:
  redacao grade --theme "Desafios da mobilidade urbana no Brasil" --essay-file redacao.txt
  cat redacao.txt | redacao grade --theme "..." --essay-file -`,
	RunE: runGrade,
}

func init() {
	gradeCmd.Flags().StringVarP(&gradeTheme, "theme", "t", "", "Essay theme (required)")
	gradeCmd.Flags().StringVarP(&gradeEssayFile, "essay-file", "f", "", "Essay text file, or - for stdin (required)")
	gradeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	gradeCmd.MarkFlagRequired("theme")
	gradeCmd.MarkFlagRequired("essay-file")
}

func runGrade(cmd *cobra.Command, args []string) error {
	essay, err := readEssay(cmd, gradeEssayFile)
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

	report, err := app.Grading.Grade(ctx, gradeTheme, essay)
	if err != nil {
		stage, competency := grading.StageOf(err)
		msg := fmt.Sprintf("grading failed [%s", grading.FailureKindOf(err))
		if stage != "" {
			msg += ", " + string(stage)
		}
		if competency > 0 {
			msg += fmt.Sprintf(", competência %d", competency)
		}
		return fmt.Errorf("%s]: %w", msg, err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintln(out, header(report))
	return renderMarkdown(out, reportMarkdown(report))
}

func readEssay(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read essay: %w", err)
	}
	return string(data), nil
}
