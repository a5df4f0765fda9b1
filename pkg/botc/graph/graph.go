package graph

// Document is a whole authored flow graph, supplied complete for each
// compilation. It is never mutated incrementally; a fresh Document is decoded
// per compile.
type Document struct {
	Nodes       []Node
	Connections []Connection
}

// Empty reports whether the document has no nodes. An empty document is a
// valid, supported state and still compiles to a minimal runnable program.
func (d *Document) Empty() bool {
	return d == nil || len(d.Nodes) == 0
}

// NodeByID returns the first node with the given id, or false when the id is
// unknown. First-by-position lookup keeps order-sensitive dispatch stable
// even if a document carries duplicate ids.
func (d *Document) NodeByID(id string) (Node, bool) {
	if d == nil {
		return Node{}, false
	}
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// KnownIDs returns the set of node ids in the document.
func (d *Document) KnownIDs() map[string]bool {
	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = true
	}
	return ids
}

// Successors returns the connection targets of the given node, in document
// order.
func (d *Document) Successors(id string) []string {
	var out []string
	for _, c := range d.Connections {
		if c.Source == id {
			out = append(out, c.Target)
		}
	}
	return out
}

// HasInlineButtons reports whether any node or conditional message renders an
// inline keyboard. This is a structural query, not a flag: the callback audit
// middleware and the edit-or-send helper are emitted iff it holds.
func (d *Document) HasInlineButtons() bool {
	for _, n := range d.Nodes {
		if n.Data.HasInlineButtons() {
			return true
		}
		for _, cm := range n.Data.ConditionalMessages {
			if cm.KeyboardType == KeyboardInline && len(cm.Buttons) > 0 {
				return true
			}
		}
	}
	return false
}

// HasReplyButtons reports whether any node renders a reply keyboard.
func (d *Document) HasReplyButtons() bool {
	for _, n := range d.Nodes {
		if len(n.Data.Buttons) > 0 && n.Data.KeyboardType == KeyboardReply {
			return true
		}
	}
	return false
}

// HasAutoTransitions reports whether any node declares a timed auto
// transition.
func (d *Document) HasAutoTransitions() bool {
	for _, n := range d.Nodes {
		if n.Data.EnableAutoTransition && n.Data.AutoTransitionTo != "" {
			return true
		}
	}
	return false
}

// HasMultiSelect reports whether any node accumulates a multi-select set.
func (d *Document) HasMultiSelect() bool {
	for _, n := range d.Nodes {
		if n.Data.AllowMultipleSelection {
			return true
		}
	}
	return false
}

// HasTextInput reports whether any node or conditional message establishes a
// free-text input wait.
func (d *Document) HasTextInput() bool {
	for _, n := range d.Nodes {
		if n.Data.CollectUserInput {
			return true
		}
		for _, cm := range n.Data.ConditionalMessages {
			if cm.WaitForInput {
				return true
			}
		}
	}
	return false
}

// HasAdminActions reports whether any moderation action node is present.
func (d *Document) HasAdminActions() bool {
	for _, n := range d.Nodes {
		if n.Type.IsAdminAction() {
			return true
		}
	}
	return false
}

// MediaWaitKinds returns which media capture kinds appear anywhere in the
// document, keyed photo/video/audio/document.
func (d *Document) MediaWaitKinds() map[string]bool {
	kinds := make(map[string]bool, 4)
	for _, n := range d.Nodes {
		if n.Data.EnablePhotoInput {
			kinds["photo"] = true
		}
		if n.Data.EnableVideoInput {
			kinds["video"] = true
		}
		if n.Data.EnableAudioInput {
			kinds["audio"] = true
		}
		if n.Data.EnableDocumentInput {
			kinds["document"] = true
		}
	}
	return kinds
}
