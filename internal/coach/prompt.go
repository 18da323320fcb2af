package coach

import (
	"fmt"
	"strings"

	"github.com/questline-app/questline/internal/catalog"
	"github.com/questline-app/questline/internal/synchro"
)

// BuildOpeningPrompt synthesizes the structured prompt that opens a journey
// step. It lists the step's tasks required-first, names the first task,
// surfaces at most two insight bullets per relevant prior helper, and ends
// with exactly one clarifying question from the helper's template. The
// 175-word limit is guidance passed to the model, not an enforced cap.
func BuildOpeningPrompt(step *catalog.Step, info catalog.HelperInfo, projectName string, prior []synchro.PriorSection) string {
	tasks := sortTasksRequiredFirst(step.Tasks)

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, opening the %q step of the journey for the project %q.\n",
		info.DisplayName, step.ID, projectName)
	fmt.Fprintf(&b, "%s\n\n", step.Seed)

	b.WriteString("Tasks for this step:\n")
	for i, t := range tasks {
		marker := "optional"
		if t.Required {
			marker = "required"
		}
		fmt.Fprintf(&b, "%d. %s (%s) — %s\n", i+1, catalog.TaskTitle(t.ID), marker, catalog.TaskGoal(t.ID))
	}
	fmt.Fprintf(&b, "\nWelcome the founder, then focus on the first task: %q.\n", catalog.TaskTitle(tasks[0].ID))

	if len(prior) > 0 {
		b.WriteString("\nWhat earlier helpers learned:\n")
		for _, section := range prior {
			for _, insight := range capInsights(section.Insights) {
				fmt.Fprintf(&b, "- %s: %s\n", section.DisplayName, insight)
			}
		}
	}

	fmt.Fprintf(&b, "\nAsk exactly one clarifying question: %q\n", info.Question)
	b.WriteString("Keep your reply under 175 words.\n")
	return b.String()
}

// BuildContinuationSystem assembles the system instructions for a
// continuation turn: the helper persona plus the gated prior-helper context.
func BuildContinuationSystem(info catalog.HelperInfo, projectName string, prior []synchro.PriorSection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a coaching helper guiding the project %q.\n", info.DisplayName, projectName)
	b.WriteString("Stay in role, be concrete, and keep the founder moving through the current step's tasks.\n")

	for _, section := range prior {
		fmt.Fprintf(&b, "\nContext from %s:\n", section.DisplayName)
		if section.Summary != "" {
			fmt.Fprintf(&b, "%s\n", section.Summary)
		}
		for _, insight := range capInsights(section.Insights) {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
	}
	return b.String()
}

// capInsights enforces the per-helper bullet cap at the point of emission,
// so a caller handing in an ungated section cannot inflate the prompt.
func capInsights(insights []string) []string {
	if len(insights) > synchro.MaxPriorInsights {
		return insights[len(insights)-synchro.MaxPriorInsights:]
	}
	return insights
}

// sortTasksRequiredFirst partitions tasks with required ones first while
// preserving relative order within each group.
func sortTasksRequiredFirst(tasks []catalog.Task) []catalog.Task {
	out := make([]catalog.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Required {
			out = append(out, t)
		}
	}
	for _, t := range tasks {
		if !t.Required {
			out = append(out, t)
		}
	}
	return out
}
