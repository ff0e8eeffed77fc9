package schema

import "sort"

// Schema maps prop names to their expected types.
// Example: {"label": Required(String()), "start": Int(), "tags": Slice(String())}
type Schema map[string]Type

// Validate checks props against the schema and reports every failure, in
// prop name order. Props the schema does not name are not checked.
func Validate(schema Schema, props map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		t := schema[name]
		value, exists := props[name]
		if !exists || value == nil {
			if IsRequired(t) {
				errs = append(errs, &ValidationError{Key: name, Reason: "required"})
			}
			continue
		}
		if err := t.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: name, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
