package gen

// emitMainLoop writes the program tail: startup and shutdown hooks,
// middleware registration, signal handling, and the polling entrypoint.
// Shutdown order matters: the database pool closes before the bot session
// so in-flight saves finish against a live pool.
func emitMainLoop(ctx *Context, w *writer) error {
	if w == nil {
		return &UnknownError{Component: "mainloop", Err: ErrNilWriter}
	}

	w.B()
	w.P("async def on_startup(dp):")
	w.In()
	if ctx.UserDatabaseEnabled() {
		w.P("await init_database()")
	}
	emitMenuCommands(ctx, w)
	w.P("logger.info('bot started')")
	w.Out()
	w.B()
	w.B()

	w.P("async def on_shutdown(dp):")
	w.In()
	if ctx.UserDatabaseEnabled() {
		w.P("if db_pool is not None:")
		w.In()
		w.P("await db_pool.close()")
		w.Out()
	}
	w.P("await bot.session.close()")
	w.P("logger.info('bot stopped')")
	w.Out()
	w.B()
	w.B()

	w.P("def _handle_signal(signum, frame):")
	w.In()
	w.P("logger.info('received signal %s, shutting down', signum)")
	w.P("sys.exit(0)")
	w.Out()
	w.B()
	w.B()

	w.P("if __name__ == '__main__':")
	w.In()
	w.P("signal.signal(signal.SIGINT, _handle_signal)")
	w.P("signal.signal(signal.SIGTERM, _handle_signal)")
	w.P("dp.middleware.setup(MessageLoggingMiddleware())")
	if ctx.HasInlineButtons() {
		w.P("dp.middleware.setup(CallbackLoggingMiddleware())")
	}
	w.P("executor.start_polling(")
	w.In()
	w.P("dp,")
	w.P("skip_updates=True,")
	w.P("on_startup=on_startup,")
	w.P("on_shutdown=on_shutdown,")
	w.Out()
	w.P(")")
	w.Out()
	w.B()
	return nil
}

// emitMenuCommands registers the bot's command menu from nodes flagged for
// menu display, in document order, first occurrence winning per command.
func emitMenuCommands(ctx *Context, w *writer) {
	type entry struct {
		command     string
		description string
	}
	var entries []entry
	seen := make(map[string]bool)
	add := func(cmd, desc string) {
		if cmd == "" || seen[cmd] {
			return
		}
		seen[cmd] = true
		if desc == "" {
			desc = cmd
		}
		entries = append(entries, entry{command: cmd, description: desc})
	}
	for _, n := range ctx.Nodes() {
		if n.Type.Valid() && n.Data.ShowInMenu && !n.Type.IsAdminAction() {
			add(n.CommandName(), n.Data.Description)
		}
	}
	if len(entries) == 0 {
		return
	}

	w.P("await bot.set_my_commands([")
	w.In()
	for _, e := range entries {
		w.Pf("types.BotCommand(command=%s, description=%s),", pyStr(e.command), pyStr(e.description))
	}
	w.Out()
	w.P("])")
}
