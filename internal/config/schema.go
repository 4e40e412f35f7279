package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

// Field types understood by the record validator.
const (
	FieldString = "string"
	FieldEnum   = "enum"
	FieldArray  = "array"
	FieldDate   = "date"
	FieldObject = "object"
	FieldNumber = "number"
	FieldBool   = "bool"
)

// Default generators, invoked once per record.
const (
	GeneratorNow  = "now"
	GeneratorUUID = "uuid"
)

//go:embed default_schema.yaml
var defaultSchema []byte

// Schema declares, per record kind, which fields are required and how absent
// optional fields are filled.
type Schema struct {
	Version     int          `yaml:"version"`
	RecordTypes []RecordType `yaml:"record_types"`

	recordIndex map[model.Kind]*RecordType
}

type RecordType struct {
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

type Field struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Items     string   `yaml:"items"`
	Values    []string `yaml:"values"`
	Default   any      `yaml:"default"`
	Generator string   `yaml:"generator"`
	Required  bool     `yaml:"required"`
	// OmitWhen names a sibling field; when it is present the default is not
	// applied. Used for local ids, which remote records do not need.
	OmitWhen string `yaml:"omit_when"`
}

// DefaultSchema returns the built-in record schema.
func DefaultSchema() *Schema {
	schema, err := ParseSchema(defaultSchema)
	if err != nil {
		panic(fmt.Sprintf("built-in schema is invalid: %v", err))
	}
	return schema
}

func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	schema, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return schema, nil
}

func ParseSchema(data []byte) (*Schema, error) {
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	if err := validateSchema(&schema); err != nil {
		return nil, err
	}

	schema.recordIndex = make(map[model.Kind]*RecordType)
	for i := range schema.RecordTypes {
		rt := &schema.RecordTypes[i]
		kind, _ := model.ParseKind(rt.Name)
		schema.recordIndex[kind] = rt
	}
	return &schema, nil
}

func validateSchema(s *Schema) error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported version: %d", s.Version)
	}
	if len(s.RecordTypes) == 0 {
		return fmt.Errorf("at least one record type is required")
	}

	seen := make(map[model.Kind]struct{})
	for i, rt := range s.RecordTypes {
		if strings.TrimSpace(rt.Name) == "" {
			return fmt.Errorf("record type %d name is required", i)
		}
		kind, ok := model.ParseKind(rt.Name)
		if !ok {
			return fmt.Errorf("unknown record type: %s", rt.Name)
		}
		if _, exists := seen[kind]; exists {
			return fmt.Errorf("duplicate record type: %s", rt.Name)
		}
		seen[kind] = struct{}{}

		fieldNames := make(map[string]struct{})
		for _, field := range rt.Fields {
			if strings.TrimSpace(field.Name) == "" {
				return fmt.Errorf("record type %s has field with empty name", rt.Name)
			}
			if _, exists := fieldNames[field.Name]; exists {
				return fmt.Errorf("record type %s has duplicate field: %s", rt.Name, field.Name)
			}
			fieldNames[field.Name] = struct{}{}
			if err := validateField(rt.Name, field); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateField(recordType string, f Field) error {
	switch f.Type {
	case FieldString, FieldArray, FieldDate, FieldObject, FieldNumber, FieldBool:
	case FieldEnum:
		if len(f.Values) == 0 {
			return fmt.Errorf("record type %s field %s enum has no values", recordType, f.Name)
		}
		if def, ok := f.Default.(string); ok && !containsString(f.Values, def) {
			return fmt.Errorf("record type %s field %s default %q is not an enum value", recordType, f.Name, def)
		}
	default:
		return fmt.Errorf("record type %s field %s has unknown type: %s", recordType, f.Name, f.Type)
	}

	switch f.Generator {
	case "", GeneratorNow, GeneratorUUID:
	default:
		return fmt.Errorf("record type %s field %s has unknown generator: %s", recordType, f.Name, f.Generator)
	}
	if f.Required && (f.Default != nil || f.Generator != "") {
		return fmt.Errorf("record type %s field %s is required and cannot have a default", recordType, f.Name)
	}
	if f.Items != "" && f.Type != FieldArray {
		return fmt.Errorf("record type %s field %s declares items but is not an array", recordType, f.Name)
	}
	return nil
}

func (s *Schema) RecordType(kind model.Kind) (*RecordType, bool) {
	if s == nil {
		return nil, false
	}
	rt, ok := s.recordIndex[kind]
	return rt, ok
}

// RequiredFields lists the required field names for kind.
func (s *Schema) RequiredFields(kind model.Kind) []string {
	rt, ok := s.RecordType(kind)
	if !ok {
		return nil
	}
	var names []string
	for _, f := range rt.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}
