package domain

import "time"

// ListCap bounds the insight, decision, and artifact lists on a helper context.
const ListCap = 10

// HelperContext is the shared knowledge-base row for one (user, project, helper).
type HelperContext struct {
	UserID           string     `json:"user_id"`
	ProjectID        string     `json:"project_id"`
	Helper           Helper     `json:"helper"`
	KeyInsights      []string   `json:"key_insights"`
	DecisionsMade    []string   `json:"decisions_made"`
	ArtifactsCreated []string   `json:"artifacts_created"`
	ContextSummary   string     `json:"context_summary"`
	Data             HelperData `json:"data"`

	// Version increments on every write and backs the conditional update
	// that serializes concurrent merges for the same key.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContextDelta is the output of one extraction pass over a transcript.
// A zero-value delta merges as a no-op.
type ContextDelta struct {
	KeyInsights         []string   `json:"key_insights"`
	DecisionsMade       []string   `json:"decisions_made"`
	ArtifactsCreated    []string   `json:"artifacts_created"`
	ContextSummary      string     `json:"context_summary"`
	Data                HelperData `json:"data"`
	SupersededInsights  []string   `json:"superseded_insights"`
	SupersededDecisions []string   `json:"superseded_decisions"`
}

// HelperData is a closed union of per-helper structured payloads. Exactly
// the field matching the owning context's helper is populated; the others
// stay nil.
type HelperData struct {
	Muse      *MuseData      `json:"muse,omitempty"`
	Architect *ArchitectData `json:"architect,omitempty"`
	Forge     *ForgeData     `json:"forge,omitempty"`
	Herald    *HeraldData    `json:"herald,omitempty"`
	Steward   *StewardData   `json:"steward,omitempty"`
	Sage      *SageData      `json:"sage,omitempty"`
}

// MuseData captures ideation outcomes.
type MuseData struct {
	ProblemStatement string `json:"problem_statement,omitempty"`
	TargetAudience   string `json:"target_audience,omitempty"`
	ValueProposition string `json:"value_proposition,omitempty"`
}

// ArchitectData captures the chosen technical foundation.
type ArchitectData struct {
	TechStack    []string `json:"tech_stack,omitempty"`
	Architecture string   `json:"architecture,omitempty"`
	Integrations []string `json:"integrations,omitempty"`
}

// ForgeData captures product build scope.
type ForgeData struct {
	MVPFeatures []string `json:"mvp_features,omitempty"`
	Roadmap     string   `json:"roadmap,omitempty"`
}

// HeraldData captures the launch plan.
type HeraldData struct {
	LaunchChannels []string `json:"launch_channels,omitempty"`
	Positioning    string   `json:"positioning,omitempty"`
}

// StewardData captures operational decisions.
type StewardData struct {
	RevenueModel string `json:"revenue_model,omitempty"`
	LegalSetup   string `json:"legal_setup,omitempty"`
	Budget       string `json:"budget,omitempty"`
}

// SageData captures growth strategy.
type SageData struct {
	GrowthLevers    []string `json:"growth_levers,omitempty"`
	NorthStarMetric string   `json:"north_star_metric,omitempty"`
}

// Field returns a pointer to the union member owned by helper h. The mapping
// is total over the helper set, so an unknown key can never reach storage.
func (d *HelperData) Field(h Helper) any {
	switch h {
	case HelperMuse:
		return d.Muse
	case HelperArchitect:
		return d.Architect
	case HelperForge:
		return d.Forge
	case HelperHerald:
		return d.Herald
	case HelperSteward:
		return d.Steward
	case HelperSage:
		return d.Sage
	}
	return nil
}
