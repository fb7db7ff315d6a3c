package validate

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/inkhub/inkhub/internal/pkg/xtime"
)

// FieldType is the schema type of a document field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldCheckbox FieldType = "checkbox"
	FieldDate     FieldType = "date"
	FieldDateTime FieldType = "datetime"
	FieldURL      FieldType = "url"
	FieldRelation FieldType = "relation"
	FieldArray    FieldType = "array"
)

// Field is one field definition from the collection schema. Name may be a
// dot-path into nested payload data.
type Field struct {
	Name     string    `yaml:"name"     json:"name"`
	Type     FieldType `yaml:"type"     json:"type"`
	Required bool      `yaml:"required" json:"required"`

	// DisplayFormat is the configured display layout for date/datetime
	// fields; rules evaluate against this view. Defaults to the canonical
	// storage layout.
	DisplayFormat string `yaml:"display_format" json:"display_format"`

	// Rules are the user-supplied validation rules. For URL fields their
	// presence fully overrides the default URI rule.
	Rules []Rule `yaml:"-" json:"-"`
}

func (f Field) storageLayout() string {
	if f.Type == FieldDateTime {
		return xtime.DateTimeLayout
	}

	return xtime.DateLayout
}

func (f Field) displayLayout() string {
	if f.DisplayFormat != "" {
		return f.DisplayFormat
	}

	return f.storageLayout()
}

// FieldError is the per-field error set of a validation run.
type FieldError struct {
	Field  string   `json:"field"`
	Errors []string `json:"errors"`
}

// Result is the outcome of document validation. NormalizedData is always
// populated regardless of validity: validation never blocks a draft save,
// only a publish.
type Result struct {
	IsValid        bool           `json:"isValid"`
	Errors         []FieldError   `json:"errors,omitempty"`
	Warnings       []FieldError   `json:"warnings,omitempty"`
	NormalizedData map[string]any `json:"-"`
}

// Document validates data against the field definitions. Temporal fields are
// normalized into the canonical storage layout (returned) and the field's
// display layout (rule evaluation); normalization is idempotent. Date and
// datetime fields unconditionally get a strict format rule; URL fields get a
// URI rule only when no user rule exists.
func Document(fields []Field, data map[string]any) Result {
	storage, display := normalize(fields, data)

	result := Result{IsValid: true, NormalizedData: storage}

	for _, field := range fields {
		rules := effectiveRules(field)

		value := lookup(display, field.Name)

		var errs, warns []string

		for _, rule := range rules {
			for _, marker := range rule.Evaluate(value, display) {
				switch marker.Severity {
				case SeverityError:
					errs = append(errs, marker.Message)
				case SeverityWarning:
					warns = append(warns, marker.Message)
				}
			}
		}

		if len(errs) > 0 {
			result.IsValid = false
			result.Errors = append(result.Errors, FieldError{Field: field.Name, Errors: errs})
		}

		if len(warns) > 0 {
			result.Warnings = append(result.Warnings, FieldError{Field: field.Name, Errors: warns})
		}
	}

	return result
}

// effectiveRules combines user rules with the auto-injected defaults.
func effectiveRules(field Field) []Rule {
	rules := make([]Rule, 0, len(field.Rules)+2)

	if field.Required {
		rules = append(rules, NewRule().Required())
	}

	switch field.Type {
	case FieldDate, FieldDateTime:
		// The format rule applies in addition to any user rule.
		rules = append(rules, NewRule().DateFormat(field.displayLayout()))
		rules = append(rules, field.Rules...)
	case FieldURL:
		if len(field.Rules) == 0 {
			rules = append(rules, NewRule().URI())
		} else {
			rules = append(rules, field.Rules...)
		}
	default:
		rules = append(rules, field.Rules...)
	}

	return rules
}

// normalize produces the two parallel views of the document: storage-format
// (canonical layouts, persisted) and display-format (rule evaluation).
func normalize(fields []Field, data map[string]any) (storage, display map[string]any) {
	raw, err := json.Marshal(data)
	if err != nil {
		return data, data
	}

	storageRaw := raw
	displayRaw := raw

	for _, field := range fields {
		if field.Type != FieldDate && field.Type != FieldDateTime {
			continue
		}

		res := gjson.GetBytes(raw, field.Name)
		if res.Type != gjson.String {
			continue
		}

		value := res.String()
		storageValue, displayValue := normalizeTemporal(field, value)

		storageRaw, _ = sjson.SetBytes(storageRaw, field.Name, storageValue)
		displayRaw, _ = sjson.SetBytes(displayRaw, field.Name, displayValue)
	}

	storage = decode(storageRaw, data)
	display = decode(displayRaw, data)

	return storage, display
}

// normalizeTemporal maps one temporal value into its storage and display
// forms. A value already in storage form stays put (idempotent); a value in
// display form converts; anything else passes through for the format rule to
// reject.
func normalizeTemporal(field Field, value string) (storageValue, displayValue string) {
	storageLayout := field.storageLayout()
	displayLayout := field.displayLayout()

	if _, ok := xtime.ParseStrict(storageLayout, value); ok {
		display, _ := xtime.Reformat(storageLayout, displayLayout, value)
		return value, display
	}

	if storage, ok := xtime.Reformat(displayLayout, storageLayout, value); ok {
		return storage, value
	}

	return value, value
}

func decode(raw []byte, fallback map[string]any) map[string]any {
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return fallback
	}

	return out
}

// lookup reads a possibly nested field value from the document.
func lookup(data map[string]any, name string) any {
	if v, ok := data[name]; ok {
		return v
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	res := gjson.GetBytes(raw, name)
	if !res.Exists() {
		return nil
	}

	return res.Value()
}
