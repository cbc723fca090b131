package passage

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Default chunking parameters, in runes.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Categories used to filter retrieval per competency.
const (
	CategoryNormaCulta   = "norma_culta"
	CategoryTema         = "tema"
	CategoryArgumentacao = "argumentacao"
	CategoryCoesao       = "coesao"
	CategoryIntervencao  = "intervencao"
	CategoryEstrutura    = "estrutura"
	CategoryExemplos     = "exemplos"
	CategoryGeral        = "geral"
)

var categoryRules = []struct {
	category string
	markers  []string
}{
	{CategoryNormaCulta, []string{"norma", "gramatic"}},
	{CategoryTema, []string{"tema", "compreens"}},
	{CategoryArgumentacao, []string{"argument"}},
	{CategoryCoesao, []string{"coes"}},
	{CategoryIntervencao, []string{"interven", "proposta"}},
	{CategoryEstrutura, []string{"estrutura"}},
	{CategoryExemplos, []string{"exemplo", "introduc", "desenvolv", "conclus"}},
}

// CategoryFromFilename derives the corpus category from a file name.
func CategoryFromFilename(name string) string {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	base = foldAccents(base)
	for _, rule := range categoryRules {
		for _, m := range rule.markers {
			if strings.Contains(base, m) {
				return rule.category
			}
		}
	}
	return CategoryGeral
}

var accentFolds = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func foldAccents(s string) string {
	return accentFolds.Replace(s)
}

// SplitText cuts text into chunks of at most size runes, each overlapping the previous
// by roughly overlap runes. Cuts prefer paragraph breaks, then sentence ends, then spaces.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint searches the second half of runes[start:end] for the best cut.
func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if (runes[i-1] == '.' || runes[i-1] == '!' || runes[i-1] == '?') && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}
