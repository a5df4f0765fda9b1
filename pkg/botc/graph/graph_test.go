package graph_test

import (
	"testing"

	"github.com/botforge/botc/pkg/botc/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Empty(t *testing.T) {
	var nilDoc *graph.Document
	assert.True(t, nilDoc.Empty())
	assert.True(t, (&graph.Document{}).Empty())
	assert.False(t, (&graph.Document{Nodes: []graph.Node{{ID: "a"}}}).Empty())
}

func TestDocument_NodeByID_FirstByPosition(t *testing.T) {
	doc := &graph.Document{Nodes: []graph.Node{
		{ID: "dup", Data: graph.NodeData{Text: "first"}},
		{ID: "dup", Data: graph.NodeData{Text: "second"}},
	}}

	n, ok := doc.NodeByID("dup")
	require.True(t, ok)
	assert.Equal(t, "first", n.Data.Text)

	_, ok = doc.NodeByID("missing")
	assert.False(t, ok)
}

func TestDocument_Successors(t *testing.T) {
	doc := &graph.Document{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Connections: []graph.Connection{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
			{Source: "b", Target: "a"}, // cycle, allowed
		},
	}

	assert.Equal(t, []string{"b", "c"}, doc.Successors("a"))
	assert.Equal(t, []string{"a"}, doc.Successors("b"))
	assert.Nil(t, doc.Successors("c"))
}

func TestDocument_StructuralPredicates(t *testing.T) {
	tests := []struct {
		name  string
		doc   *graph.Document
		check func(t *testing.T, d *graph.Document)
	}{
		{
			name: "inline buttons on node",
			doc: &graph.Document{Nodes: []graph.Node{{
				ID:   "n1",
				Type: graph.TypeMessage,
				Data: graph.NodeData{
					KeyboardType: graph.KeyboardInline,
					Buttons:      []graph.Button{{Text: "Go"}},
				},
			}}},
			check: func(t *testing.T, d *graph.Document) {
				assert.True(t, d.HasInlineButtons())
				assert.False(t, d.HasReplyButtons())
			},
		},
		{
			name: "inline buttons only inside conditional message",
			doc: &graph.Document{Nodes: []graph.Node{{
				ID:   "n1",
				Type: graph.TypeMessage,
				Data: graph.NodeData{
					ConditionalMessages: []graph.ConditionalMessage{{
						KeyboardType: graph.KeyboardInline,
						Buttons:      []graph.Button{{Text: "Go"}},
					}},
				},
			}}},
			check: func(t *testing.T, d *graph.Document) {
				assert.True(t, d.HasInlineButtons())
			},
		},
		{
			name: "text input via conditional wait",
			doc: &graph.Document{Nodes: []graph.Node{{
				ID:   "n1",
				Type: graph.TypeMessage,
				Data: graph.NodeData{
					ConditionalMessages: []graph.ConditionalMessage{{WaitForInput: true}},
				},
			}}},
			check: func(t *testing.T, d *graph.Document) {
				assert.True(t, d.HasTextInput())
			},
		},
		{
			name: "auto transition needs a target",
			doc: &graph.Document{Nodes: []graph.Node{{
				ID:   "n1",
				Type: graph.TypeMessage,
				Data: graph.NodeData{EnableAutoTransition: true},
			}}},
			check: func(t *testing.T, d *graph.Document) {
				assert.False(t, d.HasAutoTransitions())
			},
		},
		{
			name: "admin and multiselect",
			doc: &graph.Document{Nodes: []graph.Node{
				{ID: "n1", Type: graph.TypeBan},
				{ID: "n2", Type: graph.TypeMessage, Data: graph.NodeData{AllowMultipleSelection: true}},
			}},
			check: func(t *testing.T, d *graph.Document) {
				assert.True(t, d.HasAdminActions())
				assert.True(t, d.HasMultiSelect())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.doc)
		})
	}
}

func TestDocument_MediaWaitKinds(t *testing.T) {
	doc := &graph.Document{Nodes: []graph.Node{
		{ID: "n1", Type: graph.TypeInput, Data: graph.NodeData{EnablePhotoInput: true}},
		{ID: "n2", Type: graph.TypeInput, Data: graph.NodeData{EnableDocumentInput: true}},
	}}

	kinds := doc.MediaWaitKinds()
	assert.True(t, kinds["photo"])
	assert.True(t, kinds["document"])
	assert.False(t, kinds["video"])
	assert.False(t, kinds["audio"])
}

func TestNodeType(t *testing.T) {
	assert.True(t, graph.TypeStart.Valid())
	assert.True(t, graph.TypeSticker.IsMediaContent())
	assert.True(t, graph.TypeMute.IsAdminAction())
	assert.False(t, graph.NodeType("widget").Valid())
}

func TestNode_CommandName(t *testing.T) {
	tests := []struct {
		name string
		node graph.Node
		want string
	}{
		{"start is always /start", graph.Node{ID: "s", Type: graph.TypeStart, Data: graph.NodeData{Command: "/custom"}}, "start"},
		{"command strips slash", graph.Node{ID: "c", Type: graph.TypeCommand, Data: graph.NodeData{Command: "/help"}}, "help"},
		{"command without slash", graph.Node{ID: "c", Type: graph.TypeCommand, Data: graph.NodeData{Command: "about"}}, "about"},
		{"admin defaults to type", graph.Node{ID: "b", Type: graph.TypeBan}, "ban"},
		{"admin custom command", graph.Node{ID: "b", Type: graph.TypeKick, Data: graph.NodeData{Command: "/boot"}}, "boot"},
		{"message has none", graph.Node{ID: "m", Type: graph.TypeMessage}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.CommandName())
		})
	}
}

func TestButton_EffectiveAction(t *testing.T) {
	assert.Equal(t, graph.ActionGoto, graph.Button{}.EffectiveAction())
	assert.Equal(t, graph.ActionURL, graph.Button{Action: graph.ActionURL}.EffectiveAction())
	assert.Equal(t, graph.ActionContact, graph.Button{Action: graph.ActionContact}.EffectiveAction())
}

func TestNodeData_SkipButtons(t *testing.T) {
	d := graph.NodeData{Buttons: []graph.Button{
		{Text: "Answer"},
		{Text: "Skip", SkipDataCollection: true, Target: "next"},
	}}

	skips := d.SkipButtons()
	require.Len(t, skips, 1)
	assert.Equal(t, "Skip", skips[0].Text)
}
