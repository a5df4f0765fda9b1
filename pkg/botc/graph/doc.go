/*
Package graph defines the normalized flow-graph model the compiler consumes.

A bot flow is authored visually as typed nodes connected by directed edges.
Each node carries a configuration bag whose shape depends on the node type:
display text, keyboards, input-collection settings, conditional messages,
auto-transitions, and media flags.

# Document Shape

Documents arrive as JSON (or YAML) with two top-level lists:

	{
	  "nodes": [
	    {"id": "n1", "type": "start", "data": {"text": "Hello", ...}},
	    {"id": "n2", "type": "message", "data": {...}}
	  ],
	  "connections": [
	    {"source": "n1", "target": "n2"}
	  ]
	}

Decode with FromJSON, FromYAML, or FromFile. Decoding is tolerant: unknown
fields are ignored, mistyped fields fall back to zero values, and dangling
references are preserved as-is (the generator compiles defensive fallbacks
around them rather than rejecting the document).

# Ordering

Node order in the document is semantic. Emission happens in source order, and
order-sensitive dispatch chains in the generated program resolve ties to the
first node by position. Normalization never reorders nodes.
*/
package graph
