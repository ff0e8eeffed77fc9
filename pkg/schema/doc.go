// Package schema declares the props a registered component accepts.
//
// Schemas map prop names to types. The built-in types are string, int, float
// and bool, plus slices and custom validators. Props are optional unless
// wrapped with Required; props the schema does not name pass through.
//
//	counter := schema.Schema{
//	    "label": schema.Required(schema.String()),
//	    "start": schema.Int(),
//	    "tags":  schema.Slice(schema.String()),
//	}
//
//	if err := schema.Validate(counter, props); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        // ...
//	    }
//	}
//
// Schemas can also be parsed from type strings, which is how they travel in
// JSON. A trailing "!" marks a required prop:
//
//	s, err := schema.ParseTypeMap(map[string]string{"label": "string!", "tags": "[string]"})
//
// Registering a schema with registry.Registry.RegisterSchema makes
// dsl.Decode reject documents whose component props do not conform.
package schema
