package validate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/config"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006",
}

// Validator normalizes records against a schema. It never fails: missing
// required fields are reported as errors, everything else is repaired in
// place and reported as a warning.
type Validator struct {
	schema *config.Schema
	now    func() time.Time
	newID  func() string
}

type Option func(*Validator)

func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(v *Validator) { v.newID = newID }
}

func New(schema *config.Schema, opts ...Option) *Validator {
	if schema == nil {
		schema = config.DefaultSchema()
	}
	v := &Validator{
		schema: schema,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type RecordResult struct {
	Record model.Record
	Errors []Issue
	Fixes  []Issue
}

func (r RecordResult) Valid() bool {
	return len(r.Errors) == 0
}

func (v *Validator) ValidateRecord(kind model.Kind, record model.Record) RecordResult {
	return v.validateRecord(kind, record, recordLabel(record, -1))
}

func (v *Validator) validateRecord(kind model.Kind, record model.Record, label string) RecordResult {
	out := record.Clone()
	if out == nil {
		out = model.Record{}
	}
	result := RecordResult{Record: out, Errors: []Issue{}, Fixes: []Issue{}}

	rt, ok := v.schema.RecordType(kind)
	if !ok {
		return result
	}

	issue := func(severity Severity, code string, field, format string, args ...any) Issue {
		return Issue{
			Severity: severity,
			Code:     code,
			Message:  fmt.Sprintf(format, args...),
			Kind:     kind,
			Record:   label,
			Field:    field,
		}
	}

	for _, f := range rt.Fields {
		value, hasKey := out[f.Name]
		present := hasKey && value != nil

		if f.Required && !present {
			result.Errors = append(result.Errors, issue(SeverityError, codeMissingRequired, f.Name, "missing required field: %s", f.Name))
			continue
		}

		if !present {
			if f.OmitWhen != "" && out[f.OmitWhen] != nil {
				continue
			}
			out[f.Name] = v.defaultValue(f)
			if f.Type == config.FieldArray && hasKey {
				result.Fixes = append(result.Fixes, issue(SeverityWarn, codeArrayReset, f.Name, "null array reset: %s", f.Name))
			} else {
				result.Fixes = append(result.Fixes, issue(SeverityWarn, codeDefaultApplied, f.Name, "default applied: %s", f.Name))
			}
			continue
		}

		switch f.Type {
		case config.FieldArray:
			items, ok := value.([]any)
			if !ok {
				out[f.Name] = []any{}
				result.Fixes = append(result.Fixes, issue(SeverityWarn, codeArrayReset, f.Name, "non-array value reset: %s", f.Name))
				continue
			}
			if f.Items == config.FieldString {
				cleaned, dropped := stringItems(items)
				if dropped > 0 {
					out[f.Name] = cleaned
					result.Fixes = append(result.Fixes, issue(SeverityWarn, codeArrayItemDropped, f.Name, "%d non-string items dropped from %s", dropped, f.Name))
				} else if coerced(items, cleaned) {
					out[f.Name] = cleaned
					result.Fixes = append(result.Fixes, issue(SeverityWarn, codeValueCoerced, f.Name, "array items coerced to strings: %s", f.Name))
				}
			}

		case config.FieldDate:
			normalized, fix := v.normalizeDate(value)
			out[f.Name] = normalized
			switch fix {
			case dateRepaired:
				result.Fixes = append(result.Fixes, issue(SeverityWarn, codeDateRepaired, f.Name, "unparseable date replaced with current time: %s", f.Name))
			case dateCoerced:
				result.Fixes = append(result.Fixes, issue(SeverityWarn, codeValueCoerced, f.Name, "numeric timestamp converted: %s", f.Name))
			}

		case config.FieldEnum:
			s, ok := value.(string)
			if ok && containsString(f.Values, s) {
				continue
			}
			if def, hasDefault := f.Default.(string); hasDefault {
				out[f.Name] = def
				result.Fixes = append(result.Fixes, issue(SeverityWarn, codeEnumReset, f.Name, "invalid value for %s reset to %s", f.Name, def))
				continue
			}
			result.Fixes = append(result.Fixes, issue(SeverityWarn, codeEnumInvalid, f.Name, "invalid value for %s: %v", f.Name, value))

		case config.FieldString:
			if _, ok := value.(string); ok {
				continue
			}
			if s, ok := scalarString(value); ok {
				out[f.Name] = s
				result.Fixes = append(result.Fixes, issue(SeverityWarn, codeValueCoerced, f.Name, "value coerced to string: %s", f.Name))
				continue
			}
			v.typeMismatch(&result, f, out, issue(SeverityError, codeTypeMismatch, f.Name, "expected string for %s", f.Name))

		case config.FieldNumber:
			if _, ok := value.(float64); !ok {
				v.typeMismatch(&result, f, out, issue(SeverityError, codeTypeMismatch, f.Name, "expected number for %s", f.Name))
			}

		case config.FieldBool:
			if _, ok := value.(bool); !ok {
				v.typeMismatch(&result, f, out, issue(SeverityError, codeTypeMismatch, f.Name, "expected bool for %s", f.Name))
			}

		case config.FieldObject:
			if _, ok := value.(map[string]any); !ok {
				v.typeMismatch(&result, f, out, issue(SeverityError, codeTypeMismatch, f.Name, "expected object for %s", f.Name))
			}
		}
	}

	return result
}

// typeMismatch resets an optional field to its default. A required field with
// the wrong shape is an error.
func (v *Validator) typeMismatch(result *RecordResult, f config.Field, out model.Record, mismatch Issue) {
	if f.Required {
		result.Errors = append(result.Errors, mismatch)
		return
	}
	out[f.Name] = v.defaultValue(f)
	mismatch.Severity = SeverityWarn
	mismatch.Message += ", default applied"
	result.Fixes = append(result.Fixes, mismatch)
}

func (v *Validator) defaultValue(f config.Field) any {
	switch f.Generator {
	case config.GeneratorNow:
		return v.now().UTC().Format(time.RFC3339Nano)
	case config.GeneratorUUID:
		return v.newID()
	}
	if f.Default != nil {
		return copyValue(f.Default)
	}
	switch f.Type {
	case config.FieldArray:
		return []any{}
	case config.FieldObject:
		return map[string]any{}
	case config.FieldNumber:
		return float64(0)
	case config.FieldBool:
		return false
	case config.FieldDate:
		return v.now().UTC().Format(time.RFC3339Nano)
	case config.FieldEnum:
		return f.Values[0]
	default:
		return ""
	}
}

type dateFix int

const (
	dateUnchanged dateFix = iota
	dateCoerced
	dateRepaired
)

func (v *Validator) normalizeDate(value any) (string, dateFix) {
	switch val := value.(type) {
	case string:
		if t, ok := parseDate(val); ok {
			return t.UTC().Format(time.RFC3339Nano), dateUnchanged
		}
	case float64:
		return time.UnixMilli(int64(val)).UTC().Format(time.RFC3339Nano), dateCoerced
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), dateUnchanged
	}
	return v.now().UTC().Format(time.RFC3339Nano), dateRepaired
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringItems(items []any) ([]any, int) {
	cleaned := make([]any, 0, len(items))
	dropped := 0
	for _, item := range items {
		if s, ok := scalarString(item); ok {
			cleaned = append(cleaned, s)
			continue
		}
		dropped++
	}
	return cleaned, dropped
}

func coerced(before, after []any) bool {
	for i := range before {
		if _, ok := before[i].(string); !ok {
			return true
		}
		if before[i] != after[i] {
			return true
		}
	}
	return false
}

func scalarString(value any) (string, bool) {
	switch val := value.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

func copyValue(value any) any {
	return model.Record{"v": value}.Clone()["v"]
}

func recordLabel(record model.Record, index int) string {
	if key := record.Key(); key != "" {
		return key
	}
	if name := record.String("name"); name != "" {
		return name
	}
	if index >= 0 {
		return "#" + strconv.Itoa(index)
	}
	return ""
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
