package dispatch

import "fmt"

// Rule is the name of a scheduled rule, which is also the name of the
// routine it triggers.
type Rule string

// Known rules.
const (
	RuleImportGOES      Rule = "import_GOES_data_to_timestream"
	RuleGOESAnnotations Rule = "create_GOES_data_annotations"
	RuleImportREACH     Rule = "import_UDL_REACH_to_timestream"
	RuleImportOrbit     Rule = "import_orbit_to_timestream"
	RuleCodeReport      Rule = "create_code_line_count_report"
)

var knownRules = []Rule{
	RuleImportGOES,
	RuleGOESAnnotations,
	RuleImportREACH,
	RuleImportOrbit,
	RuleCodeReport,
}

// Rules returns the known rules in a stable order.
func Rules() []Rule {
	return append([]Rule(nil), knownRules...)
}

// ParseRule resolves a rule name. Matching is exact and case-sensitive.
func ParseRule(name string) (Rule, error) {
	for _, r := range knownRules {
		if string(r) == name {
			return r, nil
		}
	}
	return "", &UnknownFunctionError{Name: name}
}

// UnknownFunctionError reports a rule name outside the known set.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("Function '%s' is not recognized.", e.Name)
}
