package model

import "strings"

// Kind names one of the record collections held by a Document.
type Kind string

const (
	KindCampaign Kind = "campaign"
	KindEntity   Kind = "entity"
	KindThought  Kind = "thought"
)

// Kinds lists record kinds in the order they are validated.
var Kinds = []Kind{KindCampaign, KindEntity, KindThought}

func (k Kind) IsValid() bool {
	switch k {
	case KindCampaign, KindEntity, KindThought:
		return true
	default:
		return false
	}
}

func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.IsValid()
}

// Record is a loosely typed record as persisted. Migrations and the schema
// validator work on records so that malformed data survives until it can be
// repaired or reported.
type Record map[string]any

func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Key returns the identifier used to address the record: the local id when
// present, otherwise the remote id.
func (r Record) Key() string {
	if id := r.String("localId"); id != "" {
		return id
	}
	return r.String("_id")
}

func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Record:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string{}, val...)
	default:
		return val
	}
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
