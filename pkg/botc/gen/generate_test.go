package gen_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/botforge/botc/pkg/botc/gen"
	"github.com/botforge/botc/pkg/botc/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// surveyDoc is a graph exercising most node features: a start node, a
// command, an input chain, inline and reply keyboards, and a dangling edge.
func surveyDoc() *graph.Document {
	return &graph.Document{
		Nodes: []graph.Node{
			{ID: "start-1", Type: graph.TypeStart, Data: graph.NodeData{Text: "Welcome!"}},
			{ID: "ask-name", Type: graph.TypeInput, Data: graph.NodeData{
				Text:             "What is your name?",
				CollectUserInput: true,
				InputVariable:    "name",
				MinLength:        2,
			}},
			{ID: "ask-email", Type: graph.TypeInput, Data: graph.NodeData{
				Text:             "Your email?",
				CollectUserInput: true,
				InputVariable:    "email",
				InputType:        graph.InputEmail,
			}},
			{ID: "menu", Type: graph.TypeMessage, Data: graph.NodeData{
				Text:         "Pick one",
				KeyboardType: graph.KeyboardInline,
				Buttons: []graph.Button{
					{Text: "Again", Action: graph.ActionGoto, Target: "ask-name"},
					{Text: "Site", Action: graph.ActionURL, Target: "https://example.com"},
				},
			}},
			{ID: "cmd-help", Type: graph.TypeCommand, Data: graph.NodeData{
				Command: "/help", Text: "Help text", ShowInMenu: true, Description: "Show help",
			}},
		},
		Connections: []graph.Connection{
			{Source: "start-1", Target: "ask-name"},
			{Source: "ask-name", Target: "ask-email"},
			{Source: "ask-email", Target: "menu"},
			{Source: "menu", Target: "ghost-node"},
		},
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	params := gen.BuildParams{
		Document: surveyDoc(),
		BotName:  "survey",
		AdminIDs: []int64{30, 10, 20},
	}

	first := gen.Generate(context.Background(), params)
	require.True(t, first.OK, "errors: %v", first.Errors)

	for i := 0; i < 3; i++ {
		again := gen.Generate(context.Background(), params)
		require.True(t, again.OK)
		assert.Equal(t, first.Code, again.Code, "run %d diverged", i)
	}

	// Generation ids are per-run, the artifact is not.
	second := gen.Generate(context.Background(), params)
	assert.NotEqual(t, first.Meta.GenerationID, second.Meta.GenerationID)
}

func TestGenerate_SentinelsForEveryNode(t *testing.T) {
	doc := surveyDoc()
	// An unknown node type still gets its sentinel pair.
	doc.Nodes = append(doc.Nodes, graph.Node{ID: "weird", Type: graph.NodeType("widget")})

	res := gen.Generate(context.Background(), gen.BuildParams{Document: doc})
	require.True(t, res.OK)

	for _, n := range doc.Nodes {
		start := fmt.Sprintf("# @@NODE_START:%s@@", n.ID)
		end := fmt.Sprintf("# @@NODE_END:%s@@", n.ID)
		assert.Equal(t, 1, strings.Count(res.Code, start), "start sentinel for %s", n.ID)
		assert.Equal(t, 1, strings.Count(res.Code, end), "end sentinel for %s", n.ID)
		assert.Less(t, strings.Index(res.Code, start), strings.Index(res.Code, end))
	}

	// The unknown type is compiled around with a warning, not an error.
	assert.Empty(t, res.Errors)
	found := false
	for _, w := range res.Warnings {
		if w.NodeID == "weird" {
			found = true
		}
	}
	assert.True(t, found, "expected a warning for the unknown node type")
}

func TestGenerate_EmptyDocument(t *testing.T) {
	res := gen.Generate(context.Background(), gen.BuildParams{})
	require.True(t, res.OK)

	// Still a runnable program.
	assert.Contains(t, res.Code, "bot = Bot(token=API_TOKEN)")
	assert.Contains(t, res.Code, "executor.start_polling(")
	assert.Contains(t, res.Code, "MessageLoggingMiddleware")
	assert.NotContains(t, res.Code, "navigate_to_node")
	assert.Equal(t, 0, res.Meta.Nodes)
	assert.Greater(t, res.Meta.Lines, 0)
}

func TestGenerate_PersistenceGating(t *testing.T) {
	params := gen.BuildParams{Document: surveyDoc()}

	t.Run("disabled", func(t *testing.T) {
		res := gen.Generate(context.Background(), params)
		require.True(t, res.OK)

		assert.NotContains(t, res.Code, "asyncpg")
		assert.NotContains(t, res.Code, "init_database")
		assert.NotContains(t, res.Code, "save_user_to_db")
		assert.NotContains(t, res.Code, "send_audited")
		assert.NotContains(t, res.Code, "log_message_to_api")
		assert.NotContains(t, res.Code, "import json")
	})

	t.Run("enabled", func(t *testing.T) {
		p := params
		p.UserDatabaseEnabled = true
		res := gen.Generate(context.Background(), p)
		require.True(t, res.OK)

		assert.Contains(t, res.Code, "import asyncpg")
		assert.Contains(t, res.Code, "await init_database()")
		assert.Contains(t, res.Code, "save_user_to_db")
		assert.Contains(t, res.Code, "CREATE TABLE IF NOT EXISTS bot_users")
		assert.Contains(t, res.Code, "send_audited")
		// Start handler rehydrates stored variables.
		assert.Contains(t, res.Code, "stored = await get_user_from_db(message.from_user.id)")
		// Shutdown closes the pool before the bot session.
		assert.Less(t, strings.Index(res.Code, "await db_pool.close()"),
			strings.Index(res.Code, "await bot.session.close()"))
	})
}

func TestGenerate_CallbackMiddlewareGating(t *testing.T) {
	noButtons := &graph.Document{Nodes: []graph.Node{
		{ID: "start-1", Type: graph.TypeStart, Data: graph.NodeData{Text: "Hi"}},
	}}
	res := gen.Generate(context.Background(), gen.BuildParams{Document: noButtons})
	require.True(t, res.OK)
	assert.NotContains(t, res.Code, "CallbackLoggingMiddleware")
	assert.Contains(t, res.Code, "MessageLoggingMiddleware")

	res = gen.Generate(context.Background(), gen.BuildParams{Document: surveyDoc()})
	require.True(t, res.OK)
	assert.Contains(t, res.Code, "CallbackLoggingMiddleware")
	assert.Contains(t, res.Code, "dp.middleware.setup(CallbackLoggingMiddleware())")
}

func TestGenerate_DanglingReferences(t *testing.T) {
	doc := &graph.Document{
		Nodes: []graph.Node{
			{ID: "start-1", Type: graph.TypeStart, Data: graph.NodeData{Text: "Hi"}},
			{ID: "ask", Type: graph.TypeInput, Data: graph.NodeData{
				Text:              "Name?",
				CollectUserInput:  true,
				InputVariable:     "name",
				InputTargetNodeID: "deleted-node",
			}},
		},
		Connections: []graph.Connection{{Source: "start-1", Target: "ask"}},
	}

	res := gen.Generate(context.Background(), gen.BuildParams{Document: doc})
	require.True(t, res.OK, "dangling references must not fail compilation")

	var warned bool
	for _, w := range res.Warnings {
		if w.NodeID == "ask" && strings.Contains(w.Message, "deleted-node") {
			warned = true
		}
	}
	assert.True(t, warned, "expected dangling target warning, got %v", res.Warnings)

	// The reference is still emitted; the navigator absorbs it at runtime.
	assert.Contains(t, res.Code, "'next_node_id': 'deleted-node',")
	assert.Contains(t, res.Code, "logger.warning('navigation to unknown node: %s', current)")
}

func TestGenerate_AdminAllowListSorted(t *testing.T) {
	doc := &graph.Document{Nodes: []graph.Node{
		{ID: "start-1", Type: graph.TypeStart, Data: graph.NodeData{Text: "Hi"}},
		{ID: "ban-1", Type: graph.TypeBan},
	}}

	res := gen.Generate(context.Background(), gen.BuildParams{
		Document: doc,
		AdminIDs: []int64{300, 100, 200},
	})
	require.True(t, res.OK)

	assert.Contains(t, res.Code, "ADMIN_IDS = [100, 200, 300]")
	assert.Contains(t, res.Code, "def _is_admin(user_id):")
	assert.Contains(t, res.Code, "await bot.ban_chat_member(message.chat.id, target_id)")

	// Admin nodes never enter the command replay dispatcher.
	assert.NotContains(t, res.Code, "if command == 'ban':")
}

func TestGenerate_MenuCommands(t *testing.T) {
	res := gen.Generate(context.Background(), gen.BuildParams{Document: surveyDoc()})
	require.True(t, res.OK)

	assert.Contains(t, res.Code, "await bot.set_my_commands([")
	assert.Contains(t, res.Code, "types.BotCommand(command='help', description='Show help'),")
	// start-1 has no ShowInMenu flag, so /start is not listed.
	assert.NotContains(t, res.Code, "command='start'")
}

func TestGenerate_Meta(t *testing.T) {
	res := gen.Generate(context.Background(), gen.BuildParams{Document: surveyDoc(), BotName: "survey"})
	require.True(t, res.OK)

	assert.NotEmpty(t, res.Meta.GenerationID)
	assert.Equal(t, 5, res.Meta.Nodes)
	assert.Equal(t, strings.Count(res.Code, "\n"), res.Meta.Lines)
	assert.Greater(t, res.Meta.Handlers, 0)
	assert.Equal(t, res.Meta.Handlers, strings.Count(res.Code, "@dp."))
}

func TestGenerate_LoggingFlag(t *testing.T) {
	res := gen.Generate(context.Background(), gen.BuildParams{Document: surveyDoc(), EnableLogging: true})
	require.True(t, res.OK)
	assert.Contains(t, res.Code, "level=logging.INFO,")

	res = gen.Generate(context.Background(), gen.BuildParams{Document: surveyDoc()})
	require.True(t, res.OK)
	assert.Contains(t, res.Code, "logging.basicConfig(level=logging.WARNING)")
}

func TestGenerate_TextOverrides(t *testing.T) {
	doc := &graph.Document{Nodes: []graph.Node{
		{ID: "ask", Type: graph.TypeInput, Data: graph.NodeData{
			Text:             "Name?",
			CollectUserInput: true,
			InputVariable:    "name",
			MinLength:        3,
		}},
	}}

	res := gen.Generate(context.Background(), gen.BuildParams{
		Document: doc,
		TextOverrides: map[string]string{
			gen.TextRetryTooShort: "Need at least ${min} chars, try again.",
		},
	})
	require.True(t, res.OK)
	assert.Contains(t, res.Code, "'retry_short': 'Need at least 3 chars, try again.',")
}

func TestGenerate_ProjectAndGroups(t *testing.T) {
	pid := 42
	res := gen.Generate(context.Background(), gen.BuildParams{
		Document:  surveyDoc(),
		ProjectID: &pid,
		Groups:    []gen.Group{{ID: -100123, Title: "Main chat"}},
	})
	require.True(t, res.OK)

	assert.Contains(t, res.Code, "PROJECT_ID = 42")
	assert.Contains(t, res.Code, "GROUPS = {-100123: 'Main chat'}")

	res = gen.Generate(context.Background(), gen.BuildParams{Document: surveyDoc()})
	require.True(t, res.OK)
	assert.Contains(t, res.Code, "PROJECT_ID = None")
	assert.NotContains(t, res.Code, "GROUPS =")
}
