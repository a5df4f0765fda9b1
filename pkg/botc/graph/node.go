package graph

import "strings"

// NodeType identifies the kind of conversational step a node represents.
type NodeType string

// Node types form a closed enumeration. Unknown types decode as-is and are
// skipped by the generator with a warning.
const (
	TypeStart     NodeType = "start"
	TypeCommand   NodeType = "command"
	TypeMessage   NodeType = "message"
	TypeInput     NodeType = "input"
	TypeSticker   NodeType = "sticker"
	TypeVoice     NodeType = "voice"
	TypeAnimation NodeType = "animation"
	TypeLocation  NodeType = "location"
	TypeContact   NodeType = "contact"
	TypeBan       NodeType = "ban"
	TypeMute      NodeType = "mute"
	TypeKick      NodeType = "kick"
	TypeSynonym   NodeType = "synonym"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case TypeStart, TypeCommand, TypeMessage, TypeInput,
		TypeSticker, TypeVoice, TypeAnimation, TypeLocation, TypeContact,
		TypeBan, TypeMute, TypeKick, TypeSynonym:
		return true
	}
	return false
}

// IsMediaContent reports whether t matches one of the SDK's native content
// filters (sticker, voice, animation, location, contact).
func (t NodeType) IsMediaContent() bool {
	switch t {
	case TypeSticker, TypeVoice, TypeAnimation, TypeLocation, TypeContact:
		return true
	}
	return false
}

// IsAdminAction reports whether t is a moderation action node.
func (t NodeType) IsAdminAction() bool {
	switch t {
	case TypeBan, TypeMute, TypeKick:
		return true
	}
	return false
}

// KeyboardType selects how a node's buttons are rendered.
type KeyboardType string

const (
	KeyboardNone   KeyboardType = "none"
	KeyboardInline KeyboardType = "inline"
	KeyboardReply  KeyboardType = "reply"
)

// ButtonAction determines what pressing a button does.
type ButtonAction string

const (
	ActionGoto     ButtonAction = "goto"
	ActionURL      ButtonAction = "url"
	ActionCommand  ButtonAction = "command"
	ActionContact  ButtonAction = "contact"
	ActionLocation ButtonAction = "location"
)

// LogicOperator combines the trigger variables of a conditional message.
type LogicOperator string

const (
	LogicAnd LogicOperator = "and"
	LogicOr  LogicOperator = "or"
)

// InputKind selects the validation applied to a collected text value.
type InputKind string

const (
	InputText   InputKind = "text"
	InputEmail  InputKind = "email"
	InputPhone  InputKind = "phone"
	InputNumber InputKind = "number"
)

// Button is a single keyboard button attached to a node or a conditional
// message.
type Button struct {
	ID   string       `json:"id"`
	Text string       `json:"text"`
	// Action defaults to goto when empty.
	Action ButtonAction `json:"action"`
	// Target holds a node id (goto), a command name (command), or a URL
	// (url), depending on Action.
	Target string `json:"target"`
	// SkipDataCollection bypasses persistence and any active input wait
	// when the button is pressed or its label is typed.
	SkipDataCollection bool `json:"skipDataCollection"`
	RequestContact     bool `json:"requestContact"`
	RequestLocation    bool `json:"requestLocation"`
}

// EffectiveAction returns the button action, defaulting to goto.
func (b Button) EffectiveAction() ButtonAction {
	if b.Action == "" {
		return ActionGoto
	}
	return b.Action
}

// ConditionalMessage is an alternative response branch evaluated against the
// variables already collected from the user. Branches are evaluated highest
// priority first; ties resolve to document order.
type ConditionalMessage struct {
	ID       string        `json:"id"`
	Priority int           `json:"priority"`
	// Variables are the trigger variable names; the branch matches when
	// they are present for the user, combined with Operator.
	Variables []string      `json:"variables"`
	Operator  LogicOperator `json:"operator"`
	Text      string        `json:"text"`

	KeyboardType KeyboardType `json:"keyboardType"`
	Buttons      []Button     `json:"buttons"`

	// WaitForInput establishes the branch's own input wait, independent of
	// the node-level wait and checked before it.
	WaitForInput  bool   `json:"waitForInput"`
	InputVariable string `json:"inputVariable"`
	NextNodeID    string `json:"nextNodeId"`
}

// NodeData is the typed configuration bag of a node. Which fields are
// meaningful depends on the node type; decoding fills every field it can and
// zeroes the rest.
type NodeData struct {
	Text        string `json:"text"`
	Command     string `json:"command"`
	Description string `json:"description"`
	ShowInMenu  bool   `json:"showInMenu"`

	KeyboardType         KeyboardType `json:"keyboardType"`
	Buttons              []Button     `json:"buttons"`
	OneTimeKeyboard      bool         `json:"oneTimeKeyboard"`
	ResizeKeyboard       bool         `json:"resizeKeyboard"`

	CollectUserInput  bool      `json:"collectUserInput"`
	InputVariable     string    `json:"inputVariable"`
	InputTargetNodeID string    `json:"inputTargetNodeId"`
	InputType         InputKind `json:"inputType"`
	MinLength         int       `json:"minLength"`
	MaxLength         int       `json:"maxLength"`
	RetryMessage      string    `json:"retryMessage"`

	AllowMultipleSelection bool   `json:"allowMultipleSelection"`
	MultiSelectVariable    string `json:"multiSelectVariable"`

	EnableConditionalMessages bool                 `json:"enableConditionalMessages"`
	ConditionalMessages       []ConditionalMessage `json:"conditionalMessages"`

	EnableAutoTransition bool    `json:"enableAutoTransition"`
	AutoTransitionTo     string  `json:"autoTransitionTo"`
	AutoTransitionDelay  float64 `json:"autoTransitionDelay"`

	EnablePhotoInput      bool   `json:"enablePhotoInput"`
	PhotoInputVariable    string `json:"photoInputVariable"`
	EnableVideoInput      bool   `json:"enableVideoInput"`
	VideoInputVariable    string `json:"videoInputVariable"`
	EnableAudioInput      bool   `json:"enableAudioInput"`
	AudioInputVariable    string `json:"audioInputVariable"`
	EnableDocumentInput   bool   `json:"enableDocumentInput"`
	DocumentInputVariable string `json:"documentInputVariable"`

	Synonyms []string `json:"synonyms"`
}

// HasButtons reports whether the node renders any keyboard.
func (d NodeData) HasButtons() bool {
	return len(d.Buttons) > 0 && d.KeyboardType != KeyboardNone && d.KeyboardType != ""
}

// HasInlineButtons reports whether the node renders an inline keyboard.
func (d NodeData) HasInlineButtons() bool {
	return len(d.Buttons) > 0 && d.KeyboardType == KeyboardInline
}

// HasMediaInput reports whether any media capture flag is set.
func (d NodeData) HasMediaInput() bool {
	return d.EnablePhotoInput || d.EnableVideoInput || d.EnableAudioInput || d.EnableDocumentInput
}

// EffectiveInputType returns the input validation kind, defaulting to text.
func (d NodeData) EffectiveInputType() InputKind {
	if d.InputType == "" {
		return InputText
	}
	return d.InputType
}

// SkipButtons returns the buttons flagged to bypass data collection.
func (d NodeData) SkipButtons() []Button {
	var skips []Button
	for _, b := range d.Buttons {
		if b.SkipDataCollection {
			skips = append(skips, b)
		}
	}
	return skips
}

// Node is a vertex of the flow graph.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Data NodeData `json:"data"`
}

// CommandName returns the command that triggers this node, without the
// leading slash. Start nodes always answer /start.
func (n Node) CommandName() string {
	if n.Type == TypeStart {
		return "start"
	}
	cmd := strings.TrimPrefix(strings.TrimSpace(n.Data.Command), "/")
	if cmd == "" && n.Type.IsAdminAction() {
		return string(n.Type)
	}
	return cmd
}

// Connection is a directed edge between two node ids. Cycles are allowed;
// they surface as runtime loops in the generated program, never as compiler
// recursion.
type Connection struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
