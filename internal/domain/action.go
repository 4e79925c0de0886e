package domain

import "fmt"

// Action is the closed set of request verbs the service understands.
// Wire strings are parsed exactly once, at the router boundary, so an
// unknown verb is a parse-time failure rather than a dispatch fallthrough.
type Action uint8

const (
	ActionUnknown Action = iota
	ActionFullExport
	ActionBudgetSummary
	ActionListFiles
)

// ParseAction maps a wire verb onto an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "get_full_clean":
		return ActionFullExport, nil
	case "get_budget_report":
		return ActionBudgetSummary, nil
	case "list_files":
		return ActionListFiles, nil
	default:
		return ActionUnknown, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

func (a Action) String() string {
	switch a {
	case ActionFullExport:
		return "get_full_clean"
	case ActionBudgetSummary:
		return "get_budget_report"
	case ActionListFiles:
		return "list_files"
	default:
		return "unknown"
	}
}
