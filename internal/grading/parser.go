package grading

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/llm"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// Accepted keys, Portuguese first.
var (
	pointsKeys      = []string{"pontuacao", "pontuação", "nota", "score", "points"}
	rationaleKeys   = []string{"analise", "análise", "justificativa", "rationale", "analysis"}
	strengthsKeys   = []string{"pontos_fortes", "strengths"}
	weaknessesKeys  = []string{"pontos_fracos", "weaknesses"}
	suggestionsKeys = []string{"sugestoes", "sugestões", "suggestions"}
	verdictKeys     = []string{"adequacao", "adequação", "verdict"}
	recommendKeys   = []string{"recomendacoes", "recomendações", "recommendations"}
)

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")
	leadingNumRe = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)
)

// extractJSON finds the JSON object inside a free-text model answer.
func extractJSON(raw string) (string, bool) {
	cleaned := llm.CleanOutput(raw)
	if strings.HasPrefix(cleaned, "{") && gjson.Valid(cleaned) {
		return cleaned, true
	}
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil && gjson.Valid(m[1]) {
		return m[1], true
	}
	if obj, ok := firstObject(raw); ok && gjson.Valid(obj) {
		return obj, true
	}
	return "", false
}

// firstObject returns the first balanced {...} span, skipping braces inside strings.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func lookup(doc string, keys []string) gjson.Result {
	for _, k := range keys {
		if r := gjson.Get(doc, k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// stringList accepts either an array of strings or a single string.
// Blank and repeated items are dropped.
func stringList(r gjson.Result) []string {
	var items []string
	if r.IsArray() {
		for _, v := range r.Array() {
			items = append(items, v.String())
		}
	} else if r.Exists() && r.Type == gjson.String {
		items = strings.Split(r.String(), "\n")
	}
	out := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, it := range items {
		it = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(it), "-•*"))
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// parsePoints reads numbers, numeric strings and forms such as "160/200" or "160 pontos".
func parsePoints(r gjson.Result) (int, bool) {
	switch r.Type {
	case gjson.Number:
		return roundPoints(r.Num)
	case gjson.String:
		m := leadingNumRe.FindString(r.Str)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
		if err != nil {
			return 0, false
		}
		return roundPoints(f)
	}
	return 0, false
}

// roundPoints saturates at the int32 range so huge values still clamp to the nearest bound.
func roundPoints(f float64) (int, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case f >= math.MaxInt32:
		return math.MaxInt32, true
	case f <= math.MinInt32:
		return math.MinInt32, true
	}
	return int(math.Round(f)), true
}

// ParseCompetency turns a backend answer into a score candidate for competency id.
// The competency id is always the requested one; points are not clamped here.
func ParseCompetency(raw string, id int) (models.CompetencyScore, error) {
	doc, ok := extractJSON(raw)
	if !ok {
		return models.CompetencyScore{}, &ParseError{Reason: "no JSON object found"}
	}
	points, ok := parsePoints(lookup(doc, pointsKeys))
	if !ok {
		return models.CompetencyScore{}, &ParseError{Reason: "missing or non-numeric points"}
	}
	return models.CompetencyScore{
		Competency:  id,
		Points:      points,
		Rationale:   strings.TrimSpace(lookup(doc, rationaleKeys).String()),
		Strengths:   stringList(lookup(doc, strengthsKeys)),
		Weaknesses:  stringList(lookup(doc, weaknessesKeys)),
		Suggestions: stringList(lookup(doc, suggestionsKeys)),
	}, nil
}

// ParseAdherence turns a theme adherence answer into a verdict.
func ParseAdherence(raw string) (models.ThemeAdherence, error) {
	doc, ok := extractJSON(raw)
	if !ok {
		return models.ThemeAdherence{}, &ParseError{Reason: "no JSON object found"}
	}
	verdict := normalizeVerdict(lookup(doc, verdictKeys).String())
	if verdict == "" {
		return models.ThemeAdherence{}, &ParseError{Reason: "missing or unknown adherence verdict"}
	}
	return models.ThemeAdherence{
		Adheres:         verdict == models.VerdictAdequate,
		Verdict:         verdict,
		Rationale:       strings.TrimSpace(lookup(doc, rationaleKeys).String()),
		Recommendations: stringList(lookup(doc, recommendKeys)),
	}, nil
}

func normalizeVerdict(v string) string {
	v = strings.ToLower(v)
	switch {
	case strings.Contains(v, "fuga"):
		return models.VerdictOffTopic
	case strings.Contains(v, "tangenc"):
		return models.VerdictTangential
	case strings.Contains(v, "adequad"):
		return models.VerdictAdequate
	}
	return ""
}
