package validate

import "github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeMissingRequired  = "missing_required_field"
	codeDefaultApplied   = "default_applied"
	codeArrayReset       = "array_reset"
	codeArrayItemDropped = "array_item_dropped"
	codeDateRepaired     = "date_repaired"
	codeEnumReset        = "enum_reset"
	codeEnumInvalid      = "enum_value_invalid"
	codeValueCoerced     = "value_coerced"
	codeTypeMismatch     = "type_mismatch"
	codeOrphanedID       = "orphaned_id"
	codeOrphanedName     = "orphaned_name"
	codeReferenceDrift   = "reference_drift"
	codeDuplicateName    = "duplicate_name"
	codeDuplicateID      = "duplicate_id"
)

// Issue is one finding about one record. Errors make a record invalid;
// warnings describe repairs applied in place.
type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Kind     model.Kind
	Record   string
	Field    string
}

type Report struct {
	Issues []Issue
}

func (r *Report) Errors() []Issue {
	return filterSeverity(r.Issues, SeverityError)
}

func (r *Report) Warnings() []Issue {
	return filterSeverity(r.Issues, SeverityWarn)
}

func filterSeverity(issues []Issue, severity Severity) []Issue {
	out := make([]Issue, 0)
	for _, issue := range issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}
