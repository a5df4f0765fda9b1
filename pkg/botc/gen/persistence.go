package gen

import "fmt"

// emitUtilities writes the optional helper layer: database pool and user
// persistence, the message-audit client, the logging middlewares, the
// edit-or-send fallback, and the audited send wrappers. Every emission here
// is gated by an explicit predicate over the context (a flag or a structural
// graph query), so independent emitters querying the same predicate agree.
func emitUtilities(ctx *Context, w *writer) error {
	if w == nil {
		return &UnknownError{Component: "utilities", Err: ErrNilWriter}
	}

	if ctx.UserDatabaseEnabled() {
		emitDatabase(ctx, w)
		emitAuditClient(ctx, w)
	}
	emitMiddlewares(ctx, w)
	if ctx.NeedsEditOrSend() {
		emitEditOrSend(ctx, w)
	}
	if ctx.UserDatabaseEnabled() {
		emitSendWrappers(ctx, w)
	}
	return nil
}

// emitDatabase writes the pool initializer and the typed get/save routines.
func emitDatabase(ctx *Context, w *writer) {
	w.B()
	w.P("db_pool = None")
	w.B()
	w.B()
	w.P("async def init_database():")
	w.In()
	w.P("global db_pool")
	w.P("dsn = os.environ.get('DATABASE_URL', '')")
	w.P("if not dsn:")
	w.In()
	w.P("logger.warning('DATABASE_URL is not set, user persistence is disabled')")
	w.P("return")
	w.Out()
	w.P("db_pool = await asyncpg.create_pool(dsn, min_size=1, max_size=5)")
	w.P("async with db_pool.acquire() as conn:")
	w.In()
	w.P("await conn.execute('''")
	w.In()
	w.P("CREATE TABLE IF NOT EXISTS bot_users (")
	w.In()
	w.P("user_id BIGINT NOT NULL,")
	w.P("project_id INTEGER,")
	w.P("variables JSONB NOT NULL DEFAULT '{}',")
	w.P("updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),")
	w.P("PRIMARY KEY (user_id, project_id)")
	w.Out()
	w.P(")")
	w.Out()
	w.P("''')")
	w.Out()
	w.Out()
	w.B()
	w.B()
	w.P("async def save_user_to_db(user_id, variables):")
	w.In()
	w.P("if db_pool is None:")
	w.In()
	w.P("return")
	w.Out()
	w.P("try:")
	w.In()
	w.P("async with db_pool.acquire() as conn:")
	w.In()
	w.P("await conn.execute(")
	w.In()
	w.P("'INSERT INTO bot_users (user_id, project_id, variables, updated_at) '")
	w.P("'VALUES ($1, $2, $3::jsonb, now()) '")
	w.P("'ON CONFLICT (user_id, project_id) DO UPDATE '")
	w.P("'SET variables = $3::jsonb, updated_at = now()',")
	w.P("user_id, PROJECT_ID, json.dumps(variables, ensure_ascii=False),")
	w.Out()
	w.P(")")
	w.Out()
	w.Out()
	w.P("except Exception as exc:")
	w.In()
	w.P("logger.error('failed to save user %s: %s', user_id, exc)")
	w.Out()
	w.Out()
	w.B()
	w.B()
	w.P("async def get_user_from_db(user_id):")
	w.In()
	w.P("if db_pool is None:")
	w.In()
	w.P("return None")
	w.Out()
	w.P("try:")
	w.In()
	w.P("async with db_pool.acquire() as conn:")
	w.In()
	w.P("row = await conn.fetchrow(")
	w.In()
	w.P("'SELECT variables FROM bot_users WHERE user_id = $1 AND project_id = $2',")
	w.P("user_id, PROJECT_ID,")
	w.Out()
	w.P(")")
	w.Out()
	w.P("return json.loads(row['variables']) if row else None")
	w.Out()
	w.P("except Exception as exc:")
	w.In()
	w.P("logger.error('failed to load user %s: %s', user_id, exc)")
	w.P("return None")
	w.Out()
	w.Out()
	w.B()

	if len(ctx.Prompts()) > 0 {
		w.B()
		w.P("def format_qa_summary(variables):")
		w.In()
		w.P("lines = []")
		w.P("for key, value in variables.items():")
		w.In()
		w.P("question = INPUT_PROMPTS.get(key)")
		w.P("if question:")
		w.In()
		w.P("lines.append('Q: %s' % question)")
		w.P("lines.append('A: %s' % value)")
		w.Out()
		w.Out()
		w.P("return '\\n'.join(lines)")
		w.Out()
		w.B()
	}
}

// emitAuditClient writes the client that posts every inbound/outbound
// message to the persistence API. TLS validation is relaxed only for
// loopback targets; every call is bounded by a timeout.
func emitAuditClient(_ *Context, w *writer) {
	w.B()
	w.P("def _api_is_local(url):")
	w.In()
	w.P("host = urlparse(url).hostname or ''")
	w.P("return host in ('localhost', '127.0.0.1', '::1')")
	w.Out()
	w.B()
	w.B()
	w.P("async def log_message_to_api(user_id, text, direction):")
	w.In()
	w.P("if not API_BASE_URL or PROJECT_ID is None:")
	w.In()
	w.P("return")
	w.Out()
	w.P("payload = {")
	w.In()
	w.P("'userId': user_id,")
	w.P("'text': text,")
	w.P("'direction': direction,")
	w.Out()
	w.P("}")
	w.P("ssl_arg = False if _api_is_local(API_BASE_URL) else None")
	w.P("try:")
	w.In()
	w.P("timeout = aiohttp.ClientTimeout(total=5)")
	w.P("async with aiohttp.ClientSession(timeout=timeout) as session:")
	w.In()
	w.P("await session.post(")
	w.In()
	w.P("'%s/api/projects/%s/messages' % (API_BASE_URL, PROJECT_ID),")
	w.P("json=payload,")
	w.P("ssl=ssl_arg,")
	w.Out()
	w.P(")")
	w.Out()
	w.Out()
	w.P("except Exception as exc:")
	w.In()
	w.P("logger.debug('message audit failed: %s', exc)")
	w.Out()
	w.Out()
	w.B()
}

// emitMiddlewares writes the logging middlewares. The message middleware is
// always present; the callback middleware exists iff the graph renders at
// least one inline keyboard, independent of the database flag. Audit calls
// inside either middleware exist iff persistence is enabled.
func emitMiddlewares(ctx *Context, w *writer) {
	w.B()
	w.P("class MessageLoggingMiddleware(BaseMiddleware):")
	w.In()
	w.P("async def on_pre_process_message(self, message, data):")
	w.In()
	w.P("logger.info('message from %s: %s', message.from_user.id, message.text or '')")
	if ctx.UserDatabaseEnabled() {
		w.P("await log_message_to_api(message.from_user.id, message.text or '', 'in')")
	}
	w.Out()
	w.Out()
	w.B()

	if ctx.HasInlineButtons() {
		w.B()
		w.P("class CallbackLoggingMiddleware(BaseMiddleware):")
		w.In()
		w.P("async def on_pre_process_callback_query(self, callback_query, data):")
		w.In()
		w.P("logger.info('callback from %s: %s', callback_query.from_user.id, callback_query.data or '')")
		if ctx.UserDatabaseEnabled() {
			w.P("await log_message_to_api(callback_query.from_user.id, callback_query.data or '', 'in')")
		}
		w.Out()
		w.Out()
		w.B()
	}
}

// emitEditOrSend writes the helper every callback-driven or timed transition
// goes through: edit the triggering message in place, and on any failure (or
// when the transition is automatic) send a new message instead.
func emitEditOrSend(ctx *Context, w *writer) {
	w.B()
	w.P("async def safe_edit_or_send(chat_id, text, reply_markup=None, source_message=None, force_new=False):")
	w.In()
	w.P("if source_message is not None and not force_new:")
	w.In()
	w.P("try:")
	w.In()
	w.P("await source_message.edit_text(text, reply_markup=reply_markup)")
	w.P("return")
	w.Out()
	w.P("except Exception:")
	w.In()
	w.P("pass")
	w.Out()
	w.Out()
	w.Pf("await %s", sendCall(ctx, "chat_id", "text", "reply_markup"))
	w.Out()
	w.B()
}

// emitSendWrappers writes the explicit wrappers around the three outbound
// send primitives so outbound messages are audited transparently.
func emitSendWrappers(_ *Context, w *writer) {
	w.B()
	w.P("async def send_audited(chat_id, text, reply_markup=None):")
	w.In()
	w.P("await log_message_to_api(chat_id, text, 'out')")
	w.P("return await bot.send_message(chat_id, text, reply_markup=reply_markup)")
	w.Out()
	w.B()
	w.B()
	w.P("async def reply_audited(message, text, reply_markup=None):")
	w.In()
	w.P("await log_message_to_api(message.chat.id, text, 'out')")
	w.P("return await message.answer(text, reply_markup=reply_markup)")
	w.Out()
	w.B()
	w.B()
	w.P("async def answer_callback_audited(callback_query, text=None):")
	w.In()
	w.P("if text:")
	w.In()
	w.P("await log_message_to_api(callback_query.from_user.id, text, 'out')")
	w.Out()
	w.P("return await callback_query.answer(text)")
	w.Out()
	w.B()
}

// sendCall renders a direct outbound send, audited when persistence is on.
func sendCall(ctx *Context, chatID, text, markup string) string {
	if ctx.UserDatabaseEnabled() {
		return fmt.Sprintf("send_audited(%s, %s, reply_markup=%s)", chatID, text, markup)
	}
	return fmt.Sprintf("bot.send_message(%s, %s, reply_markup=%s)", chatID, text, markup)
}

// replyCall renders a reply to an inbound message, audited when persistence
// is on.
func replyCall(ctx *Context, msg, text, markup string) string {
	if ctx.UserDatabaseEnabled() {
		if markup == "" {
			return fmt.Sprintf("reply_audited(%s, %s)", msg, text)
		}
		return fmt.Sprintf("reply_audited(%s, %s, reply_markup=%s)", msg, text, markup)
	}
	if markup == "" {
		return fmt.Sprintf("%s.answer(%s)", msg, text)
	}
	return fmt.Sprintf("%s.answer(%s, reply_markup=%s)", msg, text, markup)
}

// callbackAnswerCall renders a callback acknowledgement, audited when
// persistence is on.
func callbackAnswerCall(ctx *Context, cq string) string {
	if ctx.UserDatabaseEnabled() {
		return fmt.Sprintf("answer_callback_audited(%s)", cq)
	}
	return fmt.Sprintf("%s.answer()", cq)
}
