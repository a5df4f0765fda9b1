/*
Package template provides variable expansion for override texts.

The compiler carries a set of built-in message templates (validation retry
prompts, unknown-node warnings, multi-select labels). Callers may override
any of them per compilation; both built-ins and overrides may reference
variables with ${var} or $var patterns, which this package expands.

# Basic Usage

	result := template.Expand("Enter at least ${min} characters", map[string]any{"min": 3})
	// result: "Enter at least 3 characters"

# Missing Variables

By default, missing variables are kept as-is:

	result := template.Expand("Hello ${missing}", nil)
	// result: "Hello ${missing}"

Configure behavior with options:

	exp := template.NewExpander(template.WithMissingAction(template.MissingError))
	_, err := exp.Expand("Hello ${missing}", nil)
	// err: "undefined variable: missing"
*/
package template
