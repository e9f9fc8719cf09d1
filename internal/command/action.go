// File: internal/command/action.go
package command

// ActionType enumerates the closed set of operations the oracle may request.
type ActionType string

const (
	// ActionClick clicks the element identified by the Selector field.
	ActionClick ActionType = "click"
	// ActionTypeText sends the Text field to whatever element holds focus.
	ActionTypeText ActionType = "type"
	// ActionWait pauses the loop for Seconds.
	ActionWait ActionType = "wait"
	// ActionDone signals that the target state has been reached.
	ActionDone ActionType = "done"
	// ActionUnrecognized marks a reply matching none of the known grammars.
	// It is a defined no-op outcome, not an error.
	ActionUnrecognized ActionType = "unrecognized"
)

// SelectorKind distinguishes the two selector languages the oracle emits.
type SelectorKind string

const (
	SelectorCSS   SelectorKind = "css"
	SelectorXPath SelectorKind = "xpath"
)

// Action is the single decoded instruction derived from one oracle reply.
// Exactly one Action is produced per guidance call; actions are never
// replayed across iterations.
type Action struct {
	Type         ActionType
	Selector     string
	SelectorKind SelectorKind
	Text         string
	Seconds      float64
}

// KindOfSelector classifies a selector as XPath or CSS. XPath iff the
// selector contains "//". This heuristic can misclassify CSS selectors whose
// attribute values contain "//"; the behavior is intentional because the
// oracle's selector style depends on it, so do not "fix" it here.
func KindOfSelector(selector string) SelectorKind {
	if containsXPathMarker(selector) {
		return SelectorXPath
	}
	return SelectorCSS
}
