package synchro

import (
	"github.com/questline-app/questline/internal/catalog"
	"github.com/questline-app/questline/internal/domain"
)

// MaxPriorInsights bounds how many insight bullets one prior helper may
// contribute to an outbound prompt.
const MaxPriorInsights = 2

// PriorSection is one relevant prior helper's contribution to an outbound
// prompt.
type PriorSection struct {
	Helper      domain.Helper
	DisplayName string
	Insights    []string
	Summary     string
}

// PriorSections gates the project's stored contexts by the target helper's
// relevance list and returns at most two of the most recent insights per
// prior helper. A helper with an empty relevance list gets nothing.
func PriorSections(cat *catalog.Catalog, target domain.Helper, contexts []*domain.HelperContext) []PriorSection {
	relevance := cat.Relevance(target)
	if len(relevance) == 0 {
		return nil
	}

	byHelper := make(map[domain.Helper]*domain.HelperContext, len(contexts))
	for _, hc := range contexts {
		byHelper[hc.Helper] = hc
	}

	var sections []PriorSection
	for _, prior := range relevance {
		hc, ok := byHelper[prior]
		if !ok {
			continue
		}
		insights := clampInsights(hc.KeyInsights)
		if len(insights) == 0 && hc.ContextSummary == "" {
			continue
		}
		sections = append(sections, PriorSection{
			Helper:      prior,
			DisplayName: prior.DisplayName(),
			Insights:    insights,
			Summary:     hc.ContextSummary,
		})
	}
	return sections
}

// GateSections applies the same relevance gating and insight cap to sections
// that arrive pre-built, such as client-supplied context on a chat request.
// Untrusted input gets no more into a prompt than the stored path would allow.
func GateSections(cat *catalog.Catalog, target domain.Helper, sections []PriorSection) []PriorSection {
	relevance := cat.Relevance(target)
	if len(relevance) == 0 {
		return nil
	}

	byHelper := make(map[domain.Helper]PriorSection, len(sections))
	for _, s := range sections {
		byHelper[s.Helper] = s
	}

	var gated []PriorSection
	for _, prior := range relevance {
		s, ok := byHelper[prior]
		if !ok {
			continue
		}
		s.Insights = clampInsights(s.Insights)
		if len(s.Insights) == 0 && s.Summary == "" {
			continue
		}
		s.DisplayName = prior.DisplayName()
		gated = append(gated, s)
	}
	return gated
}

// clampInsights keeps the newest MaxPriorInsights entries. Insertion order
// defines recency.
func clampInsights(insights []string) []string {
	if len(insights) > MaxPriorInsights {
		return insights[len(insights)-MaxPriorInsights:]
	}
	return insights
}
