package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// EssayAnalysis is the structural breakdown of an essay used to build evaluator prompts.
type EssayAnalysis struct {
	Stats        models.TextStats
	Introduction string
	Development  string
	Conclusion   string
	Proposal     string
	Repertoire   []string
}

var sentenceEndRe = regexp.MustCompile(`[.!?…]+(\s|$)`)

// Paragraphs returns the non-empty lines of text, trimmed.
func Paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func CountWords(text string) int {
	return len(strings.Fields(text))
}

func CountSentences(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	n := len(sentenceEndRe.FindAllStringIndex(text, -1))
	// trailing fragment without final punctuation
	if !sentenceEndRe.MatchString(text[len(text)-1:]) {
		n++
	}
	return n
}

func Stats(text string) models.TextStats {
	return models.TextStats{
		Words:      CountWords(text),
		Sentences:  CountSentences(text),
		Paragraphs: len(Paragraphs(text)),
	}
}

// Introduction is the first paragraph.
func Introduction(text string) string {
	ps := Paragraphs(text)
	if len(ps) == 0 {
		return ""
	}
	return ps[0]
}

// Development is every paragraph between the introduction and the conclusion.
func Development(text string) string {
	ps := Paragraphs(text)
	if len(ps) <= 2 {
		return ""
	}
	return strings.Join(ps[1:len(ps)-1], "\n")
}

// Conclusion is the last paragraph, when there are at least two.
func Conclusion(text string) string {
	ps := Paragraphs(text)
	if len(ps) < 2 {
		return ""
	}
	return ps[len(ps)-1]
}

var proposalKeywords = []string{
	"portanto", "logo", "assim", "dessa forma", "diante disso", "nesse sentido",
	"por fim", "em síntese", "em suma", "concluindo", "enfim",
}

var proposalRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(proposalKeywords))
	for i, k := range proposalKeywords {
		res[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(k) + `[^.!?]*[.!?]`)
	}
	return res
}()

// InterventionProposal returns the conclusion from the first conclusive connective onward,
// or the whole conclusion when none is found.
func InterventionProposal(conclusion string) string {
	for _, re := range proposalRes {
		if loc := re.FindStringIndex(conclusion); loc != nil {
			return conclusion[loc[0]:]
		}
	}
	return conclusion
}

var repertoireRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)segundo\s+([^,.]+)`),
	regexp.MustCompile(`(?i)de acordo com\s+([^,.]+)`),
	regexp.MustCompile(`(?i)conforme\s+([^,.]+)`),
	regexp.MustCompile(`[0-9]+%`),
	regexp.MustCompile(`(?i)[0-9]+\s*(?:de cada|em cada)\s*[0-9]+`),
	regexp.MustCompile(`"([^"]+)"`),
	regexp.MustCompile(`“([^”]+)”`),
	regexp.MustCompile(`(?i)\blei\s+n?[°º.]?\s*[0-9.]+`),
	regexp.MustCompile(`(?i)constituição|carta magna`),
	regexp.MustCompile(`(?i)\b(?:onu|unesco|unicef|oms|ibge)\b`),
}

// DetectRepertoire returns the sentences that carry a likely sociocultural reference:
// citations, laws, institutions, statistics.
func DetectRepertoire(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, re := range repertoireRes {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			start := strings.LastIndex(text[:loc[0]], ".") + 1
			end := strings.Index(text[loc[1]:], ".")
			if end == -1 {
				end = len(text)
			} else {
				end += loc[1]
			}
			sentence := strings.TrimSpace(text[start:end])
			if sentence != "" && !seen[sentence] {
				seen[sentence] = true
				out = append(out, sentence)
			}
		}
	}
	return out
}

// FitEssay shortens an essay estimated above maxTokens (4 characters per token),
// keeping introduction and conclusion and eliding the middle of the development.
func FitEssay(text string, maxTokens int) string {
	if maxTokens <= 0 || utf8.RuneCountInString(text)/4 <= maxTokens {
		return text
	}
	intro, concl := Introduction(text), Conclusion(text)
	dev := []rune(Development(text))
	avail := maxTokens*4 - utf8.RuneCountInString(intro) - utf8.RuneCountInString(concl)
	if avail < 0 {
		avail = 0
	}
	if len(dev) > avail {
		half := avail / 2
		dev = append(append(dev[:half:half], []rune(" [...] ")...), dev[len(dev)-half:]...)
	}
	parts := []string{intro}
	if len(dev) > 0 {
		parts = append(parts, string(dev))
	}
	if concl != "" {
		parts = append(parts, concl)
	}
	return strings.Join(parts, "\n")
}

// AnalyzeEssay computes every structural feature of the essay.
func AnalyzeEssay(text string) EssayAnalysis {
	concl := Conclusion(text)
	return EssayAnalysis{
		Stats:        Stats(text),
		Introduction: Introduction(text),
		Development:  Development(text),
		Conclusion:   concl,
		Proposal:     InterventionProposal(concl),
		Repertoire:   DetectRepertoire(text),
	}
}
