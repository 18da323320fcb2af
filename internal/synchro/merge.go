// Package synchro extracts structured insights from helper conversations and
// merges them into the shared knowledge base read by every other helper.
package synchro

import (
	"github.com/questline-app/questline/internal/domain"
)

// Merge applies an extraction delta to an existing context snapshot and
// returns the merged result. existing may be nil for a first extraction.
// The merge never mutates its inputs.
//
// Order matters: superseded entries are removed before new ones are
// appended, so a delta can replace a stale fact in a single pass.
func Merge(existing *domain.HelperContext, delta *domain.ContextDelta) *domain.HelperContext {
	merged := &domain.HelperContext{}
	if existing != nil {
		*merged = *existing
	}

	merged.KeyInsights = mergeList(merged.KeyInsights, delta.KeyInsights, delta.SupersededInsights)
	merged.DecisionsMade = mergeList(merged.DecisionsMade, delta.DecisionsMade, delta.SupersededDecisions)
	merged.ArtifactsCreated = mergeList(merged.ArtifactsCreated, delta.ArtifactsCreated, nil)

	merged.Data = mergeData(merged.Data, delta.Data)

	if delta.ContextSummary != "" {
		merged.ContextSummary = delta.ContextSummary
	}

	return merged
}

// mergeList removes superseded entries, appends new ones with exact-match
// deduplication, and keeps only the last domain.ListCap entries. Insertion
// order defines recency.
func mergeList(existing, additions, superseded []string) []string {
	drop := make(map[string]struct{}, len(superseded))
	for _, s := range superseded {
		drop[s] = struct{}{}
	}

	out := make([]string, 0, len(existing)+len(additions))
	seen := make(map[string]struct{}, len(existing)+len(additions))
	for _, e := range existing {
		if _, gone := drop[e]; gone {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	for _, a := range additions {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}

	if len(out) > domain.ListCap {
		out = out[len(out)-domain.ListCap:]
	}
	return out
}

// mergeData shallow-merges the per-helper payload union: within each
// populated member, non-zero new fields overwrite, everything else keeps
// its prior value.
func mergeData(existing, delta domain.HelperData) domain.HelperData {
	out := existing
	if delta.Muse != nil {
		out.Muse = mergeMuse(existing.Muse, delta.Muse)
	}
	if delta.Architect != nil {
		out.Architect = mergeArchitect(existing.Architect, delta.Architect)
	}
	if delta.Forge != nil {
		out.Forge = mergeForge(existing.Forge, delta.Forge)
	}
	if delta.Herald != nil {
		out.Herald = mergeHerald(existing.Herald, delta.Herald)
	}
	if delta.Steward != nil {
		out.Steward = mergeSteward(existing.Steward, delta.Steward)
	}
	if delta.Sage != nil {
		out.Sage = mergeSage(existing.Sage, delta.Sage)
	}
	return out
}

func mergeMuse(old, new *domain.MuseData) *domain.MuseData {
	out := domain.MuseData{}
	if old != nil {
		out = *old
	}
	if new.ProblemStatement != "" {
		out.ProblemStatement = new.ProblemStatement
	}
	if new.TargetAudience != "" {
		out.TargetAudience = new.TargetAudience
	}
	if new.ValueProposition != "" {
		out.ValueProposition = new.ValueProposition
	}
	return &out
}

func mergeArchitect(old, new *domain.ArchitectData) *domain.ArchitectData {
	out := domain.ArchitectData{}
	if old != nil {
		out = *old
	}
	if len(new.TechStack) > 0 {
		out.TechStack = new.TechStack
	}
	if new.Architecture != "" {
		out.Architecture = new.Architecture
	}
	if len(new.Integrations) > 0 {
		out.Integrations = new.Integrations
	}
	return &out
}

func mergeForge(old, new *domain.ForgeData) *domain.ForgeData {
	out := domain.ForgeData{}
	if old != nil {
		out = *old
	}
	if len(new.MVPFeatures) > 0 {
		out.MVPFeatures = new.MVPFeatures
	}
	if new.Roadmap != "" {
		out.Roadmap = new.Roadmap
	}
	return &out
}

func mergeHerald(old, new *domain.HeraldData) *domain.HeraldData {
	out := domain.HeraldData{}
	if old != nil {
		out = *old
	}
	if len(new.LaunchChannels) > 0 {
		out.LaunchChannels = new.LaunchChannels
	}
	if new.Positioning != "" {
		out.Positioning = new.Positioning
	}
	return &out
}

func mergeSteward(old, new *domain.StewardData) *domain.StewardData {
	out := domain.StewardData{}
	if old != nil {
		out = *old
	}
	if new.RevenueModel != "" {
		out.RevenueModel = new.RevenueModel
	}
	if new.LegalSetup != "" {
		out.LegalSetup = new.LegalSetup
	}
	if new.Budget != "" {
		out.Budget = new.Budget
	}
	return &out
}

func mergeSage(old, new *domain.SageData) *domain.SageData {
	out := domain.SageData{}
	if old != nil {
		out = *old
	}
	if len(new.GrowthLevers) > 0 {
		out.GrowthLevers = new.GrowthLevers
	}
	if new.NorthStarMetric != "" {
		out.NorthStarMetric = new.NorthStarMetric
	}
	return &out
}
