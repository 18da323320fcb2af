package catalog

// defaultTaskGoal is returned for task ids without a curated goal.
const defaultTaskGoal = "Complete this task to progress"

// taskGoals maps task ids to the goal line shown alongside the task.
var taskGoals = map[string]string{
	"define-problem":        "Write a one-sentence problem statement for your idea",
	"identify-audience":     "Describe who has this problem and how often they hit it",
	"sketch-value-prop":     "Explain why your solution beats the current workaround",
	"name-your-project":     "Give the project a working name you can say out loud",
	"pick-tech-stack":       "Choose the languages, frameworks, and hosting you will build on",
	"map-architecture":      "Draw the main components and how data flows between them",
	"list-integrations":     "List the external services the product depends on",
	"define-mvp-scope":      "Pick the smallest feature set that proves the idea",
	"build-first-feature":   "Ship one end-to-end feature a user can touch",
	"set-up-feedback-loop":  "Decide how early users will report what is broken",
	"draft-positioning":     "Write the one-liner you would put at the top of a landing page",
	"choose-launch-channels": "Pick two or three places where your audience already gathers",
	"plan-launch-week":      "Lay out what happens each day of launch week",
	"pick-revenue-model":    "Decide how the product earns money",
	"set-monthly-budget":    "Write down what you can spend per month and on what",
	"handle-legal-basics":   "Sort out the entity, terms, and privacy basics",
	"define-north-star":     "Choose the single metric that tells you the product is working",
	"map-growth-levers":     "List the loops or channels that could compound growth",
	"review-the-journey":    "Look back across every level and write down what you learned",
}

// TaskGoal resolves the goal description for a task id.
func TaskGoal(id string) string {
	if g, ok := taskGoals[id]; ok {
		return g
	}
	return defaultTaskGoal
}
