package scoring

import (
	"strings"

	"github.com/paperradar/paperradar/pkg/paper"
)

// commonTerms are ubiquitous ML vocabulary that carries no novelty signal.
var commonTerms = map[string]bool{
	"neural": true, "network": true, "learning": true, "model": true,
	"training": true, "data": true, "loss": true, "optimization": true,
	"gradient": true, "feature": true, "deep": true, "method": true,
	"approach": true, "propose": true, "results": true, "performance": true,
}

// noveltyScore blends semantic dissimilarity against the indexed recent
// population with keyword dissimilarity. Without a similarity index (or an
// embedding for this paper) it degrades to keyword-only novelty, discounted
// to reflect the weaker signal.
func (c *Calculator) noveltyScore(m paper.Metrics) float64 {
	kw := KeywordNovelty(m.Title, m.Abstract)

	if c.index == nil || len(m.Embedding) == 0 || c.index.Len() <= 1 {
		return clamp01(kw * c.cfg.Novelty.FallbackDiscount)
	}

	neighbors := c.index.Search(m.Embedding, c.cfg.Novelty.Neighbors,
		map[string]bool{m.PaperID: true})
	if len(neighbors) == 0 {
		return clamp01(kw * c.cfg.Novelty.FallbackDiscount)
	}

	var sum float64
	for _, n := range neighbors {
		sum += n.Score
	}
	semantic := clamp01(1 - sum/float64(len(neighbors)))

	sw := c.cfg.Novelty.SemanticWeight
	return clamp01(sw*semantic + (1-sw)*kw)
}

// KeywordNovelty estimates novelty from title/abstract vocabulary: the
// share of terms outside the common ML lexicon, scaled and capped.
func KeywordNovelty(title, abstract string) float64 {
	words := strings.Fields(strings.ToLower(title + " " + abstract))
	if len(words) == 0 {
		return 0
	}

	unique := 0
	for _, w := range words {
		w = strings.Trim(w, ".,;:()[]{}\"'")
		if w != "" && !commonTerms[w] {
			unique++
		}
	}

	ratio := float64(unique) / float64(len(words))
	// Typical abstracts land around 0.5; rescale so distinctive vocabulary
	// saturates the component.
	return clamp01(ratio * ratio * 1.5)
}
