package grading

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/passage"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// openingRunes is how much of the essay opening is used as a retrieval query.
const openingRunes = 300

// Assembler turns a theme and an essay into a bounded context of reference passages.
type Assembler struct {
	Store      passage.Store
	K          int
	Budget     int // characters
	AllowEmpty bool
	Rubric     Rubric
}

type retrievalQuery struct {
	text       string
	categories []string
}

func (a *Assembler) queries(theme, essay string) []retrievalQuery {
	qs := []retrievalQuery{{text: theme}}
	if opening := truncateRunes(strings.TrimSpace(essay), openingRunes); opening != "" {
		qs = append(qs, retrievalQuery{text: opening})
	}
	for _, c := range a.Rubric.Criteria {
		if c.Query != "" {
			qs = append(qs, retrievalQuery{text: c.Query, categories: []string{c.Category}})
		}
	}
	return qs
}

// Assemble retrieves, merges and budgets the passages of one run.
// The result is never larger than Budget and is empty only when AllowEmpty is set.
func (a *Assembler) Assemble(ctx context.Context, theme, essay string) (models.AssembledContext, error) {
	if strings.TrimSpace(theme) == "" {
		return models.AssembledContext{}, ErrInvalidTheme
	}

	qs := a.queries(theme, essay)
	results := make([][]models.RetrievedPassage, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range qs {
		g.Go(func() error {
			ps, err := a.Store.Search(gctx, q.text, a.K, q.categories...)
			if err != nil {
				if !errors.Is(err, ErrStoreUnavailable) && gctx.Err() == nil {
					err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
				}
				return err
			}
			results[i] = ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.AssembledContext{}, err
	}

	ac := budget(merge(results), a.Budget)
	if ac.Empty() && !a.AllowEmpty {
		return models.AssembledContext{}, ErrEmptyContext
	}
	return ac, nil
}

// merge deduplicates by source, keeping the most relevant copy, and orders by descending relevance.
func merge(results [][]models.RetrievedPassage) []models.RetrievedPassage {
	bySource := map[string]models.RetrievedPassage{}
	for _, ps := range results {
		for _, p := range ps {
			if strings.TrimSpace(p.Text) == "" {
				continue
			}
			p.Relevance = min(max(p.Relevance, 0), 1)
			if prev, ok := bySource[p.Source]; !ok || p.Relevance > prev.Relevance {
				bySource[p.Source] = p
			}
		}
	}
	merged := make([]models.RetrievedPassage, 0, len(bySource))
	for _, p := range bySource {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Relevance != merged[j].Relevance {
			return merged[i].Relevance > merged[j].Relevance
		}
		return merged[i].Source < merged[j].Source
	})
	return merged
}

// budget includes passages greedily until the next one would exceed limit.
// A first passage larger than limit is truncated so the context is not left empty.
func budget(ps []models.RetrievedPassage, limit int) models.AssembledContext {
	ac := models.AssembledContext{Budget: limit, Passages: []models.RetrievedPassage{}}
	for _, p := range ps {
		n := utf8.RuneCountInString(p.Text)
		if ac.Size+n > limit {
			if len(ac.Passages) == 0 && limit > 0 {
				p.Text = truncateRunes(p.Text, limit)
				ac.Passages = append(ac.Passages, p)
				ac.Size = utf8.RuneCountInString(p.Text)
			}
			break
		}
		ac.Passages = append(ac.Passages, p)
		ac.Size += n
	}
	return ac
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
