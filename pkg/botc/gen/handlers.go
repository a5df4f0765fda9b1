package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/botforge/botc/pkg/botc/graph"
)

// emitHandlers writes, for every node in source order, the node's sentinel
// block: its render function plus whatever trigger handlers its type calls
// for. After the node blocks come the shared dispatchers: navigate_to_node,
// run_command, and the global callback handler.
//
// Source order is load-bearing. Two compilations of the same graph must be
// byte-identical, and the if/elif dispatch chains are first-match-wins, so
// ties between structurally similar nodes resolve to the first node by
// position.
func emitHandlers(ctx *Context, w *writer) error {
	if w == nil {
		return &UnknownError{Component: "handlers", Err: ErrNilWriter}
	}
	if ctx.Empty() {
		return nil
	}

	if ctx.HasAdminActions() {
		w.B()
		w.P("def _is_admin(user_id):")
		w.In()
		w.P("return user_id in ADMIN_IDS")
		w.Out()
		w.B()
	}
	if ctx.HasMultiSelect() {
		emitMultiSelectTable(ctx, w)
	}

	for _, n := range ctx.Nodes() {
		emitNodeBlock(ctx, w, n)
	}

	emitNavigator(ctx, w)
	if hasCommandNodes(ctx) {
		emitCommandDispatch(ctx, w)
	}
	if ctx.HasInlineButtons() || ctx.HasMultiSelect() {
		emitCallbackHandler(ctx, w)
	}
	return nil
}

// hasCommandNodes reports whether any node answers a slash command.
func hasCommandNodes(ctx *Context) bool {
	for _, n := range ctx.Nodes() {
		if commandFor(n) != "" {
			return true
		}
	}
	return false
}

// commandFor returns the slash command a node answers, or empty.
func commandFor(n graph.Node) string {
	switch {
	case n.Type == graph.TypeStart, n.Type == graph.TypeCommand, n.Type.IsAdminAction():
		return n.CommandName()
	}
	return ""
}

// emitMultiSelectTable writes the per-node multi-select configuration and the
// shared keyboard builder. Option order mirrors button order in the document.
func emitMultiSelectTable(ctx *Context, w *writer) {
	w.B()
	w.P("MULTISELECT_NODES = {")
	w.In()
	for _, n := range ctx.Nodes() {
		if !n.Data.AllowMultipleSelection {
			continue
		}
		variable := n.Data.MultiSelectVariable
		if variable == "" {
			variable = "multi_select_" + ctx.PyName(n.ID)
		}
		var options []string
		for _, b := range n.Data.Buttons {
			options = append(options, b.Text)
		}
		next := inputTargetFor(ctx, w, n)
		w.Pf("%s: {", pyStr(ctx.PyName(n.ID)))
		w.In()
		w.Pf("'node_id': %s,", pyStr(n.ID))
		w.Pf("'variable': %s,", pyStr(variable))
		w.Pf("'options': %s,", pyStrList(options))
		w.Pf("'next': %s,", pyStr(next))
		w.Out()
		w.P("},")
	}
	w.Out()
	w.P("}")
	w.B()
	w.B()
	w.P("def build_multiselect_kb(node_key, selected):")
	w.In()
	w.P("cfg = MULTISELECT_NODES[node_key]")
	w.P("kb = types.InlineKeyboardMarkup()")
	w.P("for i, option in enumerate(cfg['options']):")
	w.In()
	w.P("mark = '\\u2705 ' if option in selected else ''")
	w.P("kb.add(types.InlineKeyboardButton(mark + option, callback_data='msel:%s:%d' % (node_key, i)))")
	w.Out()
	w.Pf("kb.add(types.InlineKeyboardButton(%s, callback_data='msdone:%%s' %% node_key))", pyStr(ctx.Text(TextDoneButton, nil)))
	w.P("return kb")
	w.Out()
	w.B()
}

// inputTargetFor resolves where a captured input continues: the configured
// target node, falling back to the node's first outgoing edge. A dangling
// reference is downgraded to a warning; the runtime dispatcher's unknown-node
// branch absorbs it.
func inputTargetFor(ctx *Context, w *writer, n graph.Node) string {
	target := n.Data.InputTargetNodeID
	if target == "" {
		if succ := ctx.Successors(n.ID); len(succ) > 0 {
			target = succ[0]
		}
	}
	if target != "" && !ctx.KnownNode(target) {
		w.Warnf(n.ID, "input target %q does not exist", target)
	}
	return target
}

// emitNodeBlock writes one node's sentinel-bracketed block.
func emitNodeBlock(ctx *Context, w *writer, n graph.Node) {
	w.B()
	w.NodeStart(n.ID)
	if !n.Type.Valid() {
		w.Warnf(n.ID, "unknown node type %q, skipped", n.Type)
		w.Pf("# node %s has unknown type %s", n.ID, n.Type)
		w.NodeEnd(n.ID)
		return
	}

	emitRenderFunc(ctx, w, n)

	switch {
	case n.Type == graph.TypeStart || n.Type == graph.TypeCommand:
		emitCommandHandler(ctx, w, n)
	case n.Type.IsAdminAction():
		emitAdminHandler(ctx, w, n)
	case n.Type.IsMediaContent():
		emitContentHandler(ctx, w, n)
	case n.Type == graph.TypeSynonym:
		emitSynonymHandlers(ctx, w, n)
	}
	w.NodeEnd(n.ID)
}

// emitRenderFunc writes the node's render function. Rendering presents the
// node to the user (conditional branch or default text plus keyboard),
// establishes whatever wait the node declares, and returns the id of the
// node to auto-continue to, or None when control goes back to the user.
func emitRenderFunc(ctx *Context, w *writer, n graph.Node) {
	py := ctx.PyName(n.ID)
	w.Pf("async def render_node_%s(chat_id, user_id, source_message=None, force_new=False):", py)
	w.In()
	w.P("data = get_user_data(user_id)")

	if n.Data.EnableConditionalMessages && len(n.Data.ConditionalMessages) > 0 {
		emitConditionalBranches(ctx, w, n)
	}

	if n.Data.AllowMultipleSelection {
		emitMultiSelectRender(ctx, w, n)
		w.Out()
		w.B()
		return
	}

	hasKB := emitKeyboard(ctx, w, n.ID, n.Data.KeyboardType, n.Data.Buttons, n.Data)
	emitNodeText(ctx, w, n, hasKB)
	emitWaitSetup(ctx, w, n)
	emitContinuation(ctx, w, n)
	w.Out()
	w.B()
}

// emitConditionalBranches writes the branch chain, highest priority first,
// ties broken by document order. The first branch whose trigger holds wins;
// if none match, the node's default behavior follows.
func emitConditionalBranches(ctx *Context, w *writer, n graph.Node) {
	branches := make([]graph.ConditionalMessage, len(n.Data.ConditionalMessages))
	copy(branches, n.Data.ConditionalMessages)
	sort.SliceStable(branches, func(i, j int) bool {
		return branches[i].Priority > branches[j].Priority
	})

	w.P("variables = data['variables']")
	for i, cm := range branches {
		cond := conditionExpr(cm)
		if cond == "" {
			w.Warnf(n.ID, "conditional message %d has no trigger variables", i)
			cond = "False"
		}
		kw := "if"
		if i > 0 {
			kw = "elif"
		}
		w.Pf("%s %s:", kw, cond)
		w.In()
		emitConditionalBranchBody(ctx, w, n, cm, i)
		w.P("return None")
		w.Out()
	}
}

// conditionExpr renders a branch trigger as a Python expression over the
// user's collected variables.
func conditionExpr(cm graph.ConditionalMessage) string {
	if len(cm.Variables) == 0 {
		return ""
	}
	op := " and "
	if cm.Operator == graph.LogicOr {
		op = " or "
	}
	parts := make([]string, len(cm.Variables))
	for i, v := range cm.Variables {
		parts[i] = fmt.Sprintf("variables.get(%s)", pyStr(v))
	}
	return strings.Join(parts, op)
}

// emitConditionalBranchBody writes one taken branch: its text and keyboard,
// and its independent input wait if declared.
func emitConditionalBranchBody(ctx *Context, w *writer, n graph.Node, cm graph.ConditionalMessage, idx int) {
	hasKB := emitKeyboard(ctx, w, n.ID, cm.KeyboardType, cm.Buttons, graph.NodeData{})
	kbArg := "None"
	if hasKB {
		kbArg = "kb"
	}
	if ctx.NeedsEditOrSend() {
		w.Pf("await safe_edit_or_send(chat_id, %s, reply_markup=%s, source_message=source_message, force_new=force_new)", pyStr(cm.Text), kbArg)
	} else {
		w.Pf("await %s", sendCall(ctx, "chat_id", pyStr(cm.Text), kbArg))
	}

	if cm.WaitForInput {
		condID := cm.ID
		if condID == "" {
			condID = fmt.Sprintf("%s_c%d", ctx.PyName(n.ID), idx)
		}
		next := cm.NextNodeID
		if next != "" && !ctx.KnownNode(next) {
			w.Warnf(n.ID, "conditional message %q targets unknown node %q", condID, next)
		}
		emitWaitClear(w)
		w.P("data['waiting_for_conditional_input'] = {")
		w.In()
		w.Pf("'condition_id': %s,", pyStr(condID))
		w.Pf("'variable': %s,", pyStr(cm.InputVariable))
		w.Pf("'node_id': %s,", pyStr(n.ID))
		w.Pf("'next_node_id': %s,", pyStr(next))
		w.Pf("'skip_buttons': %s,", skipButtonsLiteral(ctx, w, n.ID, cm.Buttons))
		w.Out()
		w.P("}")
	}
}

// emitMultiSelectRender writes the default behavior of a multi-select node:
// initialize the accumulator on first entry and show the option keyboard.
func emitMultiSelectRender(ctx *Context, w *writer, n graph.Node) {
	py := ctx.PyName(n.ID)
	w.Pf("if 'multi_select_%s' not in data:", py)
	w.In()
	w.Pf("data['multi_select_%s'] = []", py)
	w.Out()
	w.Pf("kb = build_multiselect_kb(%s, data['multi_select_%s'])", pyStr(py), py)
	if ctx.NeedsEditOrSend() {
		w.Pf("await safe_edit_or_send(chat_id, %s, reply_markup=kb, source_message=source_message, force_new=force_new)", pyStr(n.Data.Text))
	} else {
		w.Pf("await %s", sendCall(ctx, "chat_id", pyStr(n.Data.Text), "kb"))
	}
	w.P("return None")
}

// emitKeyboard writes the keyboard construction for a button set, returning
// whether a kb variable was emitted.
func emitKeyboard(ctx *Context, w *writer, nodeID string, kbType graph.KeyboardType, buttons []graph.Button, d graph.NodeData) bool {
	if len(buttons) == 0 || kbType == graph.KeyboardNone || kbType == "" {
		return false
	}
	switch kbType {
	case graph.KeyboardInline:
		w.P("kb = types.InlineKeyboardMarkup()")
		for _, b := range buttons {
			emitInlineButton(ctx, w, nodeID, b)
		}
	case graph.KeyboardReply:
		args := "resize_keyboard=True"
		if !d.ResizeKeyboard {
			args = "resize_keyboard=False"
		}
		if d.OneTimeKeyboard {
			args += ", one_time_keyboard=True"
		}
		w.Pf("kb = types.ReplyKeyboardMarkup(%s)", args)
		for _, b := range buttons {
			switch {
			case b.RequestContact || b.EffectiveAction() == graph.ActionContact:
				w.Pf("kb.add(types.KeyboardButton(%s, request_contact=True))", pyStr(b.Text))
			case b.RequestLocation || b.EffectiveAction() == graph.ActionLocation:
				w.Pf("kb.add(types.KeyboardButton(%s, request_location=True))", pyStr(b.Text))
			default:
				w.Pf("kb.add(types.KeyboardButton(%s))", pyStr(b.Text))
			}
		}
	default:
		w.Warnf(nodeID, "unknown keyboard type %q, no keyboard emitted", kbType)
		return false
	}
	return true
}

// emitInlineButton writes one inline button with its callback payload.
func emitInlineButton(ctx *Context, w *writer, nodeID string, b graph.Button) {
	switch b.EffectiveAction() {
	case graph.ActionURL:
		w.Pf("kb.add(types.InlineKeyboardButton(%s, url=%s))", pyStr(b.Text), pyStr(b.Target))
	case graph.ActionCommand:
		w.Pf("kb.add(types.InlineKeyboardButton(%s, callback_data='cmd:%s'))", pyStr(b.Text), strings.TrimPrefix(b.Target, "/"))
	default:
		prefix := "goto"
		if b.SkipDataCollection {
			prefix = "skip"
		}
		if b.Target != "" && !ctx.KnownNode(b.Target) {
			w.Warnf(nodeID, "button %q targets unknown node %q", b.Text, b.Target)
		}
		w.Pf("kb.add(types.InlineKeyboardButton(%s, callback_data='%s:%s'))", pyStr(b.Text), prefix, b.Target)
	}
}

// emitNodeText writes the node's default message send.
func emitNodeText(ctx *Context, w *writer, n graph.Node, hasKB bool) {
	kbArg := "None"
	if hasKB {
		kbArg = "kb"
	}
	if ctx.NeedsEditOrSend() {
		w.Pf("await safe_edit_or_send(chat_id, %s, reply_markup=%s, source_message=source_message, force_new=force_new)", pyStr(n.Data.Text), kbArg)
	} else {
		w.Pf("await %s", sendCall(ctx, "chat_id", pyStr(n.Data.Text), kbArg))
	}
	if hasKB && n.Data.KeyboardType == graph.KeyboardReply && n.Data.OneTimeKeyboard {
		w.P("data['reply_keyboard_once'] = True")
	}
}

// skipButtonsLiteral renders the skip-button list baked into a wait record.
func skipButtonsLiteral(ctx *Context, w *writer, nodeID string, buttons []graph.Button) string {
	var parts []string
	for _, b := range buttons {
		if !b.SkipDataCollection {
			continue
		}
		if b.Target != "" && !ctx.KnownNode(b.Target) {
			w.Warnf(nodeID, "skip button %q targets unknown node %q", b.Text, b.Target)
		}
		parts = append(parts, fmt.Sprintf("{'text': %s, 'target': %s}", pyStr(b.Text), pyStr(b.Target)))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// emitWaitClear drops every wait record, including the legacy key. Emitted
// before any new wait is installed: exactly one wait is active per user at a
// time, and the text handler's fixed decision order would otherwise let a
// stale record from an earlier node shadow the new one forever.
func emitWaitClear(w *writer) {
	w.P("data.pop('waiting_for_input', None)")
	w.P("data.pop('waiting_for_conditional_input', None)")
	w.P("data.pop('button_response_config', None)")
	w.P("data.pop('waiting_for', None)")
}

// emitWaitSetup writes the wait record a node establishes after rendering.
// Establishing a wait always fully overwrites any previous one: exactly one
// wait is active per user at a time.
func emitWaitSetup(ctx *Context, w *writer, n graph.Node) {
	d := n.Data
	if !d.HasMediaInput() && !d.CollectUserInput {
		return
	}
	next := inputTargetFor(ctx, w, n)
	emitWaitClear(w)

	if d.HasMediaInput() {
		w.P("data['waiting_for_input'] = {")
		w.In()
		w.P("'kind': 'media',")
		w.Pf("'accepts': {%s},", mediaAcceptsLiteral(n))
		w.Pf("'node_id': %s,", pyStr(n.ID))
		w.Pf("'next_node_id': %s,", pyStr(next))
		w.Pf("'skip_buttons': %s,", skipButtonsLiteral(ctx, w, n.ID, d.Buttons))
		w.Out()
		w.P("}")
		return
	}

	variable := d.InputVariable
	if variable == "" {
		variable = "input_" + ctx.PyName(n.ID)
		w.Warnf(n.ID, "collectUserInput without inputVariable, using %q", variable)
	}

	// A reply keyboard shown together with input collection means the free
	// text answer is matched against the fixed option list.
	if d.KeyboardType == graph.KeyboardReply && len(d.Buttons) > 0 {
		var optionTexts []string
		for _, b := range d.Buttons {
			optionTexts = append(optionTexts, b.Text)
		}
		retry := d.RetryMessage
		if retry == "" {
			retry = ctx.Text(TextChooseOption, map[string]any{"options": strings.Join(optionTexts, ", ")})
		}
		w.P("data['button_response_config'] = {")
		w.In()
		w.Pf("'node_id': %s,", pyStr(n.ID))
		w.Pf("'variable': %s,", pyStr(variable))
		w.P("'options': [")
		w.In()
		for _, b := range d.Buttons {
			if b.Target != "" && b.EffectiveAction() == graph.ActionGoto && !ctx.KnownNode(b.Target) {
				w.Warnf(n.ID, "button %q targets unknown node %q", b.Text, b.Target)
			}
			w.Pf("{'text': %s, 'action': %s, 'target': %s},",
				pyStr(b.Text), pyStr(string(b.EffectiveAction())), pyStr(strings.TrimPrefix(b.Target, "/")))
		}
		w.Out()
		w.P("],")
		w.Pf("'retry': %s,", pyStr(retry))
		w.Out()
		w.P("}")
		return
	}

	retryShort := d.RetryMessage
	if retryShort == "" {
		retryShort = ctx.Text(TextRetryTooShort, map[string]any{"min": d.MinLength})
	}
	retryLong := d.RetryMessage
	if retryLong == "" {
		retryLong = ctx.Text(TextRetryTooLong, map[string]any{"max": d.MaxLength})
	}
	retryFormat := d.RetryMessage
	if retryFormat == "" {
		switch d.EffectiveInputType() {
		case graph.InputEmail:
			retryFormat = ctx.Text(TextRetryEmail, nil)
		case graph.InputPhone:
			retryFormat = ctx.Text(TextRetryPhone, nil)
		case graph.InputNumber:
			retryFormat = ctx.Text(TextRetryNumber, nil)
		}
	}

	w.P("data['waiting_for_input'] = {")
	w.In()
	w.P("'kind': 'text',")
	w.Pf("'variable': %s,", pyStr(variable))
	w.Pf("'node_id': %s,", pyStr(n.ID))
	w.Pf("'next_node_id': %s,", pyStr(next))
	w.Pf("'input_type': %s,", pyStr(string(d.EffectiveInputType())))
	w.Pf("'min_length': %d,", d.MinLength)
	w.Pf("'max_length': %d,", d.MaxLength)
	w.Pf("'retry_short': %s,", pyStr(retryShort))
	w.Pf("'retry_long': %s,", pyStr(retryLong))
	w.Pf("'retry_format': %s,", pyStr(retryFormat))
	w.Pf("'skip_buttons': %s,", skipButtonsLiteral(ctx, w, n.ID, d.Buttons))
	w.Out()
	w.P("}")
}

// mediaAcceptsLiteral renders the media-kind to variable mapping of a node.
func mediaAcceptsLiteral(n graph.Node) string {
	d := n.Data
	var parts []string
	add := func(kind, variable string) {
		if variable == "" {
			variable = kind + "_" + n.ID
		}
		parts = append(parts, fmt.Sprintf("'%s': %s", kind, pyStr(variable)))
	}
	if d.EnablePhotoInput {
		add("photo", d.PhotoInputVariable)
	}
	if d.EnableVideoInput {
		add("video", d.VideoInputVariable)
	}
	if d.EnableAudioInput {
		add("audio", d.AudioInputVariable)
	}
	if d.EnableDocumentInput {
		add("document", d.DocumentInputVariable)
	}
	return strings.Join(parts, ", ")
}

// emitContinuation decides what the render function returns: an auto
// transition target, a passive fall-through to the node's single successor,
// or None when the node is interactive.
func emitContinuation(ctx *Context, w *writer, n graph.Node) {
	d := n.Data
	if d.EnableAutoTransition && d.AutoTransitionTo != "" {
		if !ctx.KnownNode(d.AutoTransitionTo) {
			w.Warnf(n.ID, "auto transition targets unknown node %q", d.AutoTransitionTo)
		}
		if d.AutoTransitionDelay > 0 {
			w.Pf("await asyncio.sleep(%g)", d.AutoTransitionDelay)
		}
		w.Pf("return %s", pyStr(d.AutoTransitionTo))
		return
	}
	// Passive display nodes chain on to their single successor; anything
	// interactive hands control back to the user.
	if !d.HasButtons() && !d.CollectUserInput && !d.HasMediaInput() && !d.AllowMultipleSelection {
		if succ := ctx.Successors(n.ID); len(succ) > 0 {
			w.Pf("return %s", pyStr(succ[0]))
			return
		}
	}
	w.P("return None")
}

// emitCommandHandler writes the slash-command trigger for start/command
// nodes. Start handlers additionally rehydrate stored variables when
// persistence is enabled.
func emitCommandHandler(ctx *Context, w *writer, n graph.Node) {
	cmd := commandFor(n)
	if cmd == "" {
		w.Warnf(n.ID, "command node has no command name, trigger skipped")
		return
	}
	py := ctx.PyName(n.ID)
	w.B()
	w.Df("@dp.message_handler(commands=[%s])", pyStr(cmd))
	w.Pf("async def handler_%s(message: types.Message):", py)
	w.In()
	if n.Type == graph.TypeStart && ctx.UserDatabaseEnabled() {
		w.P("data = get_user_data(message.from_user.id)")
		w.P("stored = await get_user_from_db(message.from_user.id)")
		w.P("if stored:")
		w.In()
		w.P("data['variables'].update(stored)")
		w.Out()
	}
	w.Pf("await navigate_to_node(%s, message.chat.id, message.from_user.id, force_new=True)", pyStr(n.ID))
	w.Out()
	w.B()
}

// emitAdminHandler writes a moderation command handler gated by the shared
// admin allow-list check.
func emitAdminHandler(ctx *Context, w *writer, n graph.Node) {
	cmd := commandFor(n)
	py := ctx.PyName(n.ID)
	action := string(n.Type)
	w.B()
	w.Df("@dp.message_handler(commands=[%s])", pyStr(cmd))
	w.Pf("async def handler_%s(message: types.Message):", py)
	w.In()
	w.P("if not _is_admin(message.from_user.id):")
	w.In()
	w.Pf("await %s", replyCall(ctx, "message", pyStr(ctx.Text(TextAdminOnly, nil)), ""))
	w.P("return")
	w.Out()
	w.P("if message.reply_to_message is None:")
	w.In()
	w.Pf("await %s", replyCall(ctx, "message", pyStr(ctx.Text(TextAdminReplyUsage, map[string]any{"action": action})), ""))
	w.P("return")
	w.Out()
	w.P("target_id = message.reply_to_message.from_user.id")
	w.P("try:")
	w.In()
	switch n.Type {
	case graph.TypeBan:
		w.P("await bot.ban_chat_member(message.chat.id, target_id)")
	case graph.TypeMute:
		w.P("await bot.restrict_chat_member(message.chat.id, target_id, permissions=types.ChatPermissions())")
	case graph.TypeKick:
		w.P("await bot.ban_chat_member(message.chat.id, target_id)")
		w.P("await bot.unban_chat_member(message.chat.id, target_id)")
	}
	w.Out()
	w.P("except Exception as exc:")
	w.In()
	w.P("logger.error('failed to %s user %s: %s', '" + action + "', target_id, exc)")
	w.P("return")
	w.Out()
	if n.Data.Text != "" {
		w.Pf("await %s", replyCall(ctx, "message", pyStr(n.Data.Text), ""))
	} else {
		w.Pf("await %s", replyCall(ctx, "message", pyStr(ctx.Text(TextActionDone, map[string]any{"action": action})), ""))
	}
	w.Out()
	w.B()
}

// emitContentHandler writes the native content-filter trigger for media
// subtype nodes (sticker, voice, animation, location, contact).
func emitContentHandler(ctx *Context, w *writer, n graph.Node) {
	filter := strings.ToUpper(string(n.Type))
	py := ctx.PyName(n.ID)
	w.B()
	w.Df("@dp.message_handler(content_types=types.ContentTypes.%s)", filter)
	w.Pf("async def handler_%s(message: types.Message):", py)
	w.In()
	w.Pf("await navigate_to_node(%s, message.chat.id, message.from_user.id, force_new=True)", pyStr(n.ID))
	w.Out()
	w.B()
}

// emitSynonymHandlers writes one case-insensitive text-match handler per
// declared synonym, all routing to the same node.
func emitSynonymHandlers(ctx *Context, w *writer, n graph.Node) {
	if len(n.Data.Synonyms) == 0 {
		w.Warnf(n.ID, "synonym node declares no synonyms")
		return
	}
	py := ctx.PyName(n.ID)
	for i, syn := range n.Data.Synonyms {
		lowered := strings.ToLower(strings.TrimSpace(syn))
		w.B()
		w.Df("@dp.message_handler(lambda m: (m.text or '').strip().lower() == %s)", pyStr(lowered))
		w.Pf("async def handler_%s_syn%d(message: types.Message):", py, i)
		w.In()
		w.Pf("await navigate_to_node(%s, message.chat.id, message.from_user.id, force_new=True)", pyStr(n.ID))
		w.Out()
		w.B()
	}
}

// emitNavigator writes the shared navigation dispatcher. Transition chains
// are followed iteratively with a hop bound, so authored cycles surface as
// runtime loops and can never grow the call stack.
func emitNavigator(ctx *Context, w *writer) {
	w.B()
	w.P("async def navigate_to_node(node_id, chat_id, user_id, source_message=None, force_new=False):")
	w.In()
	w.P("current = node_id")
	w.P("hops = 0")
	w.P("while current and hops < 25:")
	w.In()
	w.P("hops += 1")
	w.P("next_id = None")
	first := true
	for _, n := range ctx.Nodes() {
		if !n.Type.Valid() {
			continue
		}
		kw := "elif"
		if first {
			kw = "if"
			first = false
		}
		w.Pf("%s current == %s:", kw, pyStr(n.ID))
		w.In()
		w.Pf("next_id = await render_node_%s(chat_id, user_id, source_message, force_new)", ctx.PyName(n.ID))
		w.Out()
	}
	if first {
		w.P("logger.warning('navigation to unknown node: %s', current)")
		w.P("return")
	} else {
		w.P("else:")
		w.In()
		w.P("logger.warning('navigation to unknown node: %s', current)")
		w.P("return")
		w.Out()
	}
	w.P("source_message = None")
	w.P("force_new = True")
	w.P("current = next_id")
	w.Out()
	w.Out()
	w.B()
}

// emitCommandDispatch writes the shared command replay dispatcher used by
// command-action buttons.
func emitCommandDispatch(ctx *Context, w *writer) {
	w.B()
	w.P("async def run_command(command, chat_id, user_id):")
	w.In()
	first := true
	for _, n := range ctx.Nodes() {
		cmd := commandFor(n)
		if cmd == "" || n.Type.IsAdminAction() {
			continue
		}
		kw := "elif"
		if first {
			kw = "if"
			first = false
		}
		w.Pf("%s command == %s:", kw, pyStr(cmd))
		w.In()
		w.Pf("await navigate_to_node(%s, chat_id, user_id, force_new=True)", pyStr(n.ID))
		w.Out()
	}
	if first {
		w.P("logger.warning('unknown command: %s', command)")
	} else {
		w.P("else:")
		w.In()
		w.P("logger.warning('unknown command: %s', command)")
		w.Out()
	}
	w.Out()
	w.B()
}

// emitCallbackHandler writes the single global callback-query handler that
// dispatches button presses: multi-select toggling and completion, skip
// buttons, goto navigation, and command replay.
func emitCallbackHandler(ctx *Context, w *writer) {
	w.B()
	w.D("@dp.callback_query_handler(lambda c: True)")
	w.P("async def handle_callback(callback_query: types.CallbackQuery):")
	w.In()
	w.P("user_id = callback_query.from_user.id")
	w.P("chat_id = callback_query.message.chat.id")
	w.P("data = get_user_data(user_id)")
	w.P("payload = callback_query.data or ''")
	w.Pf("await %s", callbackAnswerCall(ctx, "callback_query"))

	if ctx.HasMultiSelect() {
		w.P("if payload.startswith('msel:'):")
		w.In()
		w.P("_, node_key, idx_str = payload.split(':', 2)")
		w.P("cfg = MULTISELECT_NODES.get(node_key)")
		w.P("if cfg is not None:")
		w.In()
		w.P("selected = data.setdefault('multi_select_%s' % node_key, [])")
		w.P("try:")
		w.In()
		w.P("option = cfg['options'][int(idx_str)]")
		w.Out()
		w.P("except (ValueError, IndexError):")
		w.In()
		w.P("return")
		w.Out()
		w.P("if option in selected:")
		w.In()
		w.P("selected.remove(option)")
		w.Out()
		w.P("else:")
		w.In()
		w.P("selected.append(option)")
		w.Out()
		w.P("try:")
		w.In()
		w.P("await callback_query.message.edit_reply_markup(build_multiselect_kb(node_key, selected))")
		w.Out()
		w.P("except Exception:")
		w.In()
		w.P("pass")
		w.Out()
		w.Out()
		w.P("return")
		w.Out()
		w.P("if payload.startswith('msdone:'):")
		w.In()
		w.P("node_key = payload[len('msdone:'):]")
		w.P("cfg = MULTISELECT_NODES.get(node_key)")
		// The accumulator check makes a second press of the still-visible
		// Done button a no-op instead of overwriting the stored selection
		// with an empty list.
		w.P("if cfg is not None and 'multi_select_%s' % node_key in data:")
		w.In()
		w.P("selected = data.pop('multi_select_%s' % node_key)")
		w.P("data['variables'][cfg['variable']] = list(selected)")
		if ctx.UserDatabaseEnabled() {
			w.P("await save_user_to_db(user_id, data['variables'])")
		}
		w.P("if cfg['next']:")
		w.In()
		w.P("await navigate_to_node(cfg['next'], chat_id, user_id, source_message=callback_query.message)")
		w.Out()
		w.Out()
		w.P("return")
		w.Out()
	}

	w.P("if payload.startswith('skip:'):")
	w.In()
	w.P("target = payload[len('skip:'):]")
	w.P("data.pop('waiting_for_input', None)")
	w.P("data.pop('waiting_for_conditional_input', None)")
	w.P("data.pop('button_response_config', None)")
	w.P("await navigate_to_node(target, chat_id, user_id, source_message=callback_query.message)")
	w.P("return")
	w.Out()
	w.P("if payload.startswith('goto:'):")
	w.In()
	w.P("target = payload[len('goto:'):]")
	w.P("await navigate_to_node(target, chat_id, user_id, source_message=callback_query.message)")
	w.P("return")
	w.Out()
	if hasCommandNodes(ctx) {
		w.P("if payload.startswith('cmd:'):")
		w.In()
		w.P("await run_command(payload[len('cmd:'):], chat_id, user_id)")
		w.P("return")
		w.Out()
	}
	w.P("logger.warning('unhandled callback payload: %s', payload)")
	w.Out()
	w.B()
}
