package gen

import (
	"fmt"

	"github.com/botforge/botc/pkg/botc/graph"
)

// Group carries metadata about a chat group the bot is attached to.
type Group struct {
	ID    int64
	Title string
}

// BuildParams is the raw input to a compilation: the authored document plus
// the project-level settings that surround it.
type BuildParams struct {
	Document            *graph.Document
	BotName             string
	Groups              []Group
	UserDatabaseEnabled bool
	// ProjectID is nil for unsaved projects.
	ProjectID     *int
	EnableLogging bool
	// AdminIDs is the allow-list for moderation action nodes.
	AdminIDs []int64
	// TextOverrides replaces built-in message templates by name; see the
	// Text* constants for the recognized names.
	TextOverrides map[string]string
}

// VarPrompt pairs a collected variable name with the question text that
// solicited it. The generated program renders these as "Q: / A:" summaries.
type VarPrompt struct {
	Variable string
	Prompt   string
}

// Context is the immutable snapshot every emitter receives. It is built once
// per compilation, never mutated, and discarded afterwards. All structural
// predicates are precomputed so that independent emitters querying the same
// predicate always agree.
type Context struct {
	doc     *graph.Document
	botName string
	groups  []Group

	userDatabaseEnabled bool
	projectID           *int
	enableLogging       bool
	adminIDs            []int64

	knownIDs map[string]bool
	// pyNames maps node id to a unique Python identifier fragment,
	// assigned in document order.
	pyNames map[string]string

	// prompts is the variable-to-question map in first-seen document order.
	prompts []VarPrompt

	hasInlineButtons   bool
	hasReplyButtons    bool
	hasAutoTransitions bool
	hasMultiSelect     bool
	hasTextInput       bool
	hasAdminActions    bool
	mediaKinds         map[string]bool

	texts textSet
}

// BuildContext derives a Context from the raw parameters. It never fails: a
// nil or empty document yields a valid context that compiles to a minimal
// runnable program.
func BuildContext(p BuildParams) *Context {
	doc := p.Document
	if doc == nil {
		doc = &graph.Document{}
	}

	ctx := &Context{
		doc:                 doc,
		botName:             p.BotName,
		groups:              p.Groups,
		userDatabaseEnabled: p.UserDatabaseEnabled,
		projectID:           p.ProjectID,
		enableLogging:       p.EnableLogging,
		adminIDs:            p.AdminIDs,
		knownIDs:            doc.KnownIDs(),
		pyNames:             make(map[string]string, len(doc.Nodes)),
		hasInlineButtons:    doc.HasInlineButtons(),
		hasReplyButtons:     doc.HasReplyButtons(),
		hasAutoTransitions:  doc.HasAutoTransitions(),
		hasMultiSelect:      doc.HasMultiSelect(),
		hasTextInput:        doc.HasTextInput(),
		hasAdminActions:     doc.HasAdminActions(),
		mediaKinds:          doc.MediaWaitKinds(),
		texts:               textSet{overrides: p.TextOverrides},
	}

	// Assign Python identifier fragments in document order, suffixing on
	// collision so ids like "a-b" and "a_b" stay distinct. The suffix is
	// re-checked against already-assigned names: a literal id like "x_b_2"
	// may occupy the first candidate.
	taken := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if _, dup := ctx.pyNames[n.ID]; dup {
			continue
		}
		name := sanitizePyName(n.ID)
		if taken[name] {
			for j := 2; ; j++ {
				candidate := fmt.Sprintf("%s_%d", name, j)
				if !taken[candidate] {
					name = candidate
					break
				}
			}
		}
		taken[name] = true
		ctx.pyNames[n.ID] = name
	}

	ctx.prompts = collectPrompts(doc)
	return ctx
}

// collectPrompts scans every input-producing field of every node and records
// the question text that solicits each variable, first definition wins.
func collectPrompts(doc *graph.Document) []VarPrompt {
	var prompts []VarPrompt
	seen := make(map[string]bool)
	add := func(variable, prompt string) {
		if variable == "" || seen[variable] {
			return
		}
		seen[variable] = true
		prompts = append(prompts, VarPrompt{Variable: variable, Prompt: prompt})
	}

	for _, n := range doc.Nodes {
		d := n.Data
		if d.CollectUserInput {
			add(d.InputVariable, d.Text)
		}
		if d.AllowMultipleSelection {
			add(d.MultiSelectVariable, d.Text)
		}
		if d.EnablePhotoInput {
			add(d.PhotoInputVariable, d.Text)
		}
		if d.EnableVideoInput {
			add(d.VideoInputVariable, d.Text)
		}
		if d.EnableAudioInput {
			add(d.AudioInputVariable, d.Text)
		}
		if d.EnableDocumentInput {
			add(d.DocumentInputVariable, d.Text)
		}
		for _, cm := range d.ConditionalMessages {
			if cm.WaitForInput {
				add(cm.InputVariable, cm.Text)
			}
		}
	}
	return prompts
}

// Nodes returns the document nodes in source order.
func (c *Context) Nodes() []graph.Node { return c.doc.Nodes }

// Connections returns the document edges in source order.
func (c *Context) Connections() []graph.Connection { return c.doc.Connections }

// Empty reports whether the compilation has no nodes.
func (c *Context) Empty() bool { return c.doc.Empty() }

// BotName returns the display name of the bot.
func (c *Context) BotName() string { return c.botName }

// Groups returns the attached group metadata.
func (c *Context) Groups() []Group { return c.groups }

// UserDatabaseEnabled reports whether persistence constructs are emitted.
func (c *Context) UserDatabaseEnabled() bool { return c.userDatabaseEnabled }

// ProjectID returns the project identifier, or nil for unsaved projects.
func (c *Context) ProjectID() *int { return c.projectID }

// LoggingEnabled reports whether verbose logging is configured in the
// generated program.
func (c *Context) LoggingEnabled() bool { return c.enableLogging }

// AdminIDs returns the moderation allow-list.
func (c *Context) AdminIDs() []int64 { return c.adminIDs }

// KnownNode reports whether id refers to a node in the document.
func (c *Context) KnownNode(id string) bool { return c.knownIDs[id] }

// PyName returns the Python identifier fragment assigned to a node id.
func (c *Context) PyName(id string) string { return c.pyNames[id] }

// Prompts returns the variable-to-question pairs in document order.
func (c *Context) Prompts() []VarPrompt { return c.prompts }

// HasInlineButtons reports whether the graph renders any inline keyboard.
// Gates the callback audit middleware and the edit-or-send helper.
func (c *Context) HasInlineButtons() bool { return c.hasInlineButtons }

// HasReplyButtons reports whether the graph renders any reply keyboard.
func (c *Context) HasReplyButtons() bool { return c.hasReplyButtons }

// HasAutoTransitions reports whether any node declares a timed transition.
func (c *Context) HasAutoTransitions() bool { return c.hasAutoTransitions }

// HasMultiSelect reports whether any node accumulates a multi-select set.
func (c *Context) HasMultiSelect() bool { return c.hasMultiSelect }

// HasTextInput reports whether any node establishes a free-text wait.
func (c *Context) HasTextInput() bool { return c.hasTextInput }

// HasAdminActions reports whether any moderation action node is present.
func (c *Context) HasAdminActions() bool { return c.hasAdminActions }

// MediaKinds reports which media capture kinds appear in the graph.
func (c *Context) MediaKinds() map[string]bool { return c.mediaKinds }

// NeedsEditOrSend reports whether the edit-or-send helper is emitted:
// callback-driven transitions (inline buttons) or timed transitions both
// need the fallback.
func (c *Context) NeedsEditOrSend() bool {
	return c.hasInlineButtons || c.hasAutoTransitions
}

// Text resolves a built-in message template against the compilation's
// overrides and expands its placeholders.
func (c *Context) Text(name string, vars map[string]any) string {
	return c.texts.get(name, vars)
}

// NodeByID looks up a node by id.
func (c *Context) NodeByID(id string) (graph.Node, bool) { return c.doc.NodeByID(id) }

// Successors returns the edge targets of a node in document order.
func (c *Context) Successors(id string) []string { return c.doc.Successors(id) }
