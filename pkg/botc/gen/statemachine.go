package gen

import "github.com/botforge/botc/pkg/botc/graph"

// emitStateMachine writes the single universal text handler that multiplexes
// every node's input wait behind the SDK's one generic text filter, plus the
// media capture handlers for photo/video/audio/document waits.
//
// The decision order inside the text handler is fixed; each branch either
// clears a wait and navigates, or retries without clearing. Clearing a wait
// is the only way an interaction leaves the machine:
//
//  1. one-time reply keyboard bookkeeping
//  2. condition-scoped wait (checked before the node-level wait)
//  3. reply-keyboard option matching
//  4. skip labels typed during a media wait
//  5. the generic input wait (validation, persistence, chained navigation)
//  6. the legacy bare-node-id wait format
func emitStateMachine(ctx *Context, w *writer) error {
	if w == nil {
		return &UnknownError{Component: "statemachine", Err: ErrNilWriter}
	}
	if !stateMachineNeeded(ctx) {
		return nil
	}

	emitValidationPatterns(ctx, w)
	emitTextHandler(ctx, w)
	emitMediaHandlers(ctx, w)
	return nil
}

// stateMachineNeeded reports whether anything in the graph can establish a
// wait or show a reply keyboard that the universal handler must service.
func stateMachineNeeded(ctx *Context) bool {
	return ctx.HasTextInput() || len(ctx.MediaKinds()) > 0 || ctx.HasReplyButtons()
}

// inputKindsUsed reports which validation kinds appear on input-collecting
// nodes.
func inputKindsUsed(ctx *Context) map[graph.InputKind]bool {
	kinds := make(map[graph.InputKind]bool)
	for _, n := range ctx.Nodes() {
		if n.Data.CollectUserInput {
			kinds[n.Data.EffectiveInputType()] = true
		}
	}
	return kinds
}

// hasConditionalInput reports whether any conditional message declares its
// own input wait.
func hasConditionalInput(ctx *Context) bool {
	for _, n := range ctx.Nodes() {
		for _, cm := range n.Data.ConditionalMessages {
			if cm.WaitForInput {
				return true
			}
		}
	}
	return false
}

// hasButtonPrompt reports whether any node pairs a reply keyboard with input
// collection, which routes free text through the option matcher.
func hasButtonPrompt(ctx *Context) bool {
	for _, n := range ctx.Nodes() {
		if n.Data.CollectUserInput && n.Data.KeyboardType == graph.KeyboardReply && len(n.Data.Buttons) > 0 {
			return true
		}
	}
	return false
}

// hasPlainInput reports whether any node establishes a generic (non
// option-matched) wait: free text or media.
func hasPlainInput(ctx *Context) bool {
	for _, n := range ctx.Nodes() {
		if n.Data.HasMediaInput() {
			return true
		}
		if n.Data.CollectUserInput && !(n.Data.KeyboardType == graph.KeyboardReply && len(n.Data.Buttons) > 0) {
			return true
		}
	}
	return false
}

// emitValidationPatterns writes the compiled regexes used by format checks,
// one per validation kind actually present in the graph.
func emitValidationPatterns(ctx *Context, w *writer) {
	kinds := inputKindsUsed(ctx)
	if !kinds[graph.InputEmail] && !kinds[graph.InputPhone] {
		return
	}
	w.B()
	if kinds[graph.InputEmail] {
		w.P(`EMAIL_RE = re.compile(r'^[^@\s]+@[^@\s]+\.[^@\s]+$')`)
	}
	if kinds[graph.InputPhone] {
		w.P(`PHONE_RE = re.compile(r'^\+?[0-9()\-\s]{5,20}$')`)
	}
	w.B()
}

// emitTextHandler writes the universal text handler.
func emitTextHandler(ctx *Context, w *writer) {
	kinds := inputKindsUsed(ctx)
	db := ctx.UserDatabaseEnabled()

	w.B()
	w.D("@dp.message_handler(content_types=types.ContentTypes.TEXT)")
	w.P("async def handle_text_input(message: types.Message):")
	w.In()
	w.P("user_id = message.from_user.id")
	w.P("chat_id = message.chat.id")
	w.P("data = get_user_data(user_id)")
	w.P("text = message.text or ''")
	w.B()

	// 1. A one-time reply keyboard is spent by any message.
	w.P("data.pop('reply_keyboard_once', None)")
	w.B()

	// 2. A condition-scoped wait always wins over the node-level wait.
	if hasConditionalInput(ctx) {
		w.P("cond = data.get('waiting_for_conditional_input')")
		w.P("if cond is not None:")
		w.In()
		w.P("for skip in cond.get('skip_buttons', []):")
		w.In()
		w.P("if text == skip['text']:")
		w.In()
		w.P("data.pop('waiting_for_conditional_input', None)")
		w.P("await navigate_to_node(skip['target'], chat_id, user_id, force_new=True)")
		w.P("return")
		w.Out()
		w.Out()
		w.P("variable = cond.get('variable') or 'conditional_response_%s' % cond.get('condition_id', '')")
		w.P("data['variables'][variable] = text")
		w.P("data.pop('waiting_for_conditional_input', None)")
		if db {
			w.P("await save_user_to_db(user_id, data['variables'])")
		}
		w.P("if cond.get('next_node_id'):")
		w.In()
		w.P("await navigate_to_node(cond['next_node_id'], chat_id, user_id, force_new=True)")
		w.Out()
		w.P("return")
		w.Out()
		w.B()
	}

	// 3. Reply-keyboard choices are matched against the fixed option list;
	// a mismatch re-prompts and keeps the wait pending.
	if hasButtonPrompt(ctx) {
		w.P("cfg = data.get('button_response_config')")
		w.P("if cfg is not None:")
		w.In()
		w.P("option = None")
		w.P("for opt in cfg.get('options', []):")
		w.In()
		w.P("if text == opt['text']:")
		w.In()
		w.P("option = opt")
		w.P("break")
		w.Out()
		w.Out()
		w.P("if option is None:")
		w.In()
		w.Pf("await %s", replyCall(ctx, "message", "cfg.get('retry', '')", ""))
		w.P("return")
		w.Out()
		w.P("data['variables'][cfg['variable']] = {")
		w.In()
		w.P("'text': option['text'],")
		w.P("'action': option['action'],")
		w.P("'target': option['target'],")
		w.Out()
		w.P("}")
		w.P("data.pop('button_response_config', None)")
		if db {
			w.P("await save_user_to_db(user_id, data['variables'])")
		}
		w.P("if option['action'] == 'url':")
		w.In()
		w.Pf("await %s", replyCall(ctx, "message", "option['target']", ""))
		w.Out()
		if hasCommandNodes(ctx) {
			w.P("elif option['action'] == 'command':")
			w.In()
			w.P("await run_command(option['target'], chat_id, user_id)")
			w.Out()
		}
		w.P("elif option['target']:")
		w.In()
		w.P("await navigate_to_node(option['target'], chat_id, user_id, force_new=True)")
		w.Out()
		w.P("return")
		w.Out()
		w.B()
	}

	if hasPlainInput(ctx) {
		w.P("wait = data.get('waiting_for_input')")

		// 4 & 5 media prologue: a typed skip label releases a stalled
		// media wait; any other text is left for the media handlers.
		if len(ctx.MediaKinds()) > 0 {
			w.P("if wait is not None and wait.get('kind') == 'media':")
			w.In()
			w.P("for skip in wait.get('skip_buttons', []):")
			w.In()
			w.P("if text == skip['text']:")
			w.In()
			w.P("data.pop('waiting_for_input', None)")
			w.P("await navigate_to_node(skip['target'], chat_id, user_id, force_new=True)")
			w.P("return")
			w.Out()
			w.Out()
			w.P("return")
			w.Out()
		}

		// 5. The generic text wait: skip buttons, validation, persistence,
		// then chained navigation (the chain loop lives in the navigator).
		w.P("if wait is not None:")
		w.In()
		w.P("for skip in wait.get('skip_buttons', []):")
		w.In()
		w.P("if text == skip['text']:")
		w.In()
		w.P("data.pop('waiting_for_input', None)")
		w.P("await navigate_to_node(skip['target'], chat_id, user_id, force_new=True)")
		w.P("return")
		w.Out()
		w.Out()
		w.P("value = text.strip()")
		w.P("min_len = wait.get('min_length') or 0")
		w.P("max_len = wait.get('max_length') or 0")
		w.P("if min_len and len(value) < min_len:")
		w.In()
		w.Pf("await %s", replyCall(ctx, "message", "wait.get('retry_short', '')", ""))
		w.P("return")
		w.Out()
		w.P("if max_len and len(value) > max_len:")
		w.In()
		w.Pf("await %s", replyCall(ctx, "message", "wait.get('retry_long', '')", ""))
		w.P("return")
		w.Out()
		if kinds[graph.InputEmail] {
			w.P("if wait.get('input_type') == 'email' and not EMAIL_RE.match(value):")
			w.In()
			w.Pf("await %s", replyCall(ctx, "message", "wait.get('retry_format', '')", ""))
			w.P("return")
			w.Out()
		}
		if kinds[graph.InputPhone] {
			w.P("if wait.get('input_type') == 'phone' and not PHONE_RE.match(value):")
			w.In()
			w.Pf("await %s", replyCall(ctx, "message", "wait.get('retry_format', '')", ""))
			w.P("return")
			w.Out()
		}
		if kinds[graph.InputNumber] {
			w.P("if wait.get('input_type') == 'number':")
			w.In()
			w.P("try:")
			w.In()
			w.P("float(value.replace(',', '.'))")
			w.Out()
			w.P("except ValueError:")
			w.In()
			w.Pf("await %s", replyCall(ctx, "message", "wait.get('retry_format', '')", ""))
			w.P("return")
			w.Out()
			w.Out()
		}
		w.P("data['variables'][wait['variable']] = value")
		w.P("data.pop('waiting_for_input', None)")
		if db {
			w.P("await save_user_to_db(user_id, data['variables'])")
		}
		w.P("if wait.get('next_node_id'):")
		w.In()
		w.P("await navigate_to_node(wait['next_node_id'], chat_id, user_id, force_new=True)")
		w.Out()
		w.P("return")
		w.Out()
		w.B()

		// 6. Legacy bare-node-id wait format from older saved graphs.
		w.P("legacy = data.get('waiting_for')")
		w.P("if legacy:")
		w.In()
		w.P("data.pop('waiting_for', None)")
		w.P("data['variables']['response_%s' % legacy] = text")
		if db {
			w.P("await save_user_to_db(user_id, data['variables'])")
		}
		w.P("await navigate_to_node(legacy, chat_id, user_id, force_new=True)")
		w.P("return")
		w.Out()
	}
	w.Out()
	w.B()
}

// mediaFileExprs maps wait kinds to the expression extracting the captured
// file id, in fixed emission order.
var mediaFileOrder = []struct {
	kind   string
	filter string
	expr   string
}{
	{"photo", "PHOTO", "message.photo[-1].file_id"},
	{"video", "VIDEO", "message.video.file_id"},
	{"audio", "AUDIO", "message.audio.file_id"},
	{"document", "DOCUMENT", "message.document.file_id"},
}

// emitMediaHandlers writes one capture handler per media kind present in the
// graph. Each handler ignores messages unless a media wait accepting its
// kind is active, so text and media handling never overlap.
func emitMediaHandlers(ctx *Context, w *writer) {
	present := ctx.MediaKinds()
	for _, m := range mediaFileOrder {
		if !present[m.kind] {
			continue
		}
		w.B()
		w.Df("@dp.message_handler(content_types=types.ContentTypes.%s)", m.filter)
		w.Pf("async def handle_%s_input(message: types.Message):", m.kind)
		w.In()
		w.P("user_id = message.from_user.id")
		w.P("chat_id = message.chat.id")
		w.P("data = get_user_data(user_id)")
		w.P("wait = data.get('waiting_for_input')")
		w.Pf("if not wait or wait.get('kind') != 'media' or '%s' not in wait.get('accepts', {}):", m.kind)
		w.In()
		w.P("return")
		w.Out()
		w.Pf("data['variables'][wait['accepts']['%s']] = %s", m.kind, m.expr)
		w.P("data.pop('waiting_for_input', None)")
		if ctx.UserDatabaseEnabled() {
			w.P("await save_user_to_db(user_id, data['variables'])")
		}
		w.P("if wait.get('next_node_id'):")
		w.In()
		w.P("await navigate_to_node(wait['next_node_id'], chat_id, user_id, force_new=True)")
		w.Out()
		w.Out()
		w.B()
	}
}
