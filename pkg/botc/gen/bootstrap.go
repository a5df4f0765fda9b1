package gen

import (
	"fmt"
	"sort"
	"strings"
)

// emitBootstrap writes the program header: encoding setup, imports, the
// bot/dispatcher construction, logging configuration, and the in-process
// per-user state store. Conditional imports are gated on context predicates
// only, never on emission order.
func emitBootstrap(ctx *Context, w *writer) error {
	if w == nil {
		return &ImportError{Component: "bootstrap", Message: ErrNilWriter.Error()}
	}

	w.P("# -*- coding: utf-8 -*-")
	name := ctx.BotName()
	if name == "" {
		name = "bot"
	}
	w.Pf("# %s - generated by botc. Do not edit by hand.", name)
	w.B()

	w.P("import asyncio")
	if ctx.UserDatabaseEnabled() {
		w.P("import json")
	}
	w.P("import logging")
	w.P("import os")
	if ctx.HasTextInput() {
		w.P("import re")
	}
	w.P("import signal")
	w.P("import sys")
	w.B()

	w.P("from aiogram import Bot, Dispatcher, types")
	w.P("from aiogram.contrib.fsm_storage.memory import MemoryStorage")
	w.P("from aiogram.dispatcher.middlewares import BaseMiddleware")
	w.P("from aiogram.utils import executor")
	if ctx.UserDatabaseEnabled() {
		w.B()
		w.P("import aiohttp")
		w.P("import asyncpg")
		w.P("from urllib.parse import urlparse")
	}
	w.B()

	w.P("API_TOKEN = os.environ.get('BOT_TOKEN', '')")
	if ctx.UserDatabaseEnabled() {
		w.P("API_BASE_URL = os.environ.get('BOT_API_URL', 'http://localhost:3001')")
	}
	if pid := ctx.ProjectID(); pid != nil {
		w.Pf("PROJECT_ID = %d", *pid)
	} else {
		w.P("PROJECT_ID = None")
	}
	if ctx.HasAdminActions() {
		w.Pf("ADMIN_IDS = %s", pyInt64List(ctx.AdminIDs()))
	}
	if groups := ctx.Groups(); len(groups) > 0 {
		parts := make([]string, len(groups))
		for i, g := range groups {
			parts[i] = fmt.Sprintf("%d: %s", g.ID, pyStr(g.Title))
		}
		w.Pf("GROUPS = {%s}", strings.Join(parts, ", "))
	}
	w.B()

	if ctx.LoggingEnabled() {
		w.P("logging.basicConfig(")
		w.In()
		w.P("level=logging.INFO,")
		w.P("format='%(asctime)s %(levelname)s %(name)s %(message)s',")
		w.Out()
		w.P(")")
	} else {
		w.P("logging.basicConfig(level=logging.WARNING)")
	}
	w.P("logger = logging.getLogger('bot')")
	w.B()

	w.P("bot = Bot(token=API_TOKEN)")
	w.P("dp = Dispatcher(bot, storage=MemoryStorage())")
	w.B()

	// The running process exclusively owns this store: created on first
	// interaction, never expired in-process.
	w.P("user_data = {}")
	w.B()
	w.B()
	w.P("def get_user_data(user_id):")
	w.In()
	w.P("if user_id not in user_data:")
	w.In()
	w.P("user_data[user_id] = {'variables': {}}")
	w.Out()
	w.P("return user_data[user_id]")
	w.Out()
	w.B()

	if prompts := ctx.Prompts(); len(prompts) > 0 {
		w.B()
		w.P("# Question text that solicited each collected variable, for Q/A summaries.")
		w.P("INPUT_PROMPTS = {")
		w.In()
		for _, p := range prompts {
			w.Pf("%s: %s,", pyStr(p.Variable), pyStr(p.Prompt))
		}
		w.Out()
		w.P("}")
		w.B()
	}
	return nil
}

// pyInt64List renders a Python list literal of integers in ascending order,
// so the allow-list is stable regardless of input order.
func pyInt64List(ids []int64) string {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
