package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_IndentAndCounts(t *testing.T) {
	w := &writer{}
	w.P("def f():")
	w.In()
	w.Pf("return %d", 1)
	w.Out()
	w.B()
	w.D("@dp.message_handler()")

	assert.Equal(t, "def f():\n    return 1\n\n@dp.message_handler()\n", w.String())
	assert.Equal(t, 4, w.Lines())
	assert.Equal(t, 1, w.Handlers())
}

func TestWriter_VerbatimKeepsPercent(t *testing.T) {
	w := &writer{}
	// Verbatim lines pass through untouched, so Python %-formatting survives.
	w.P("logger.info('got %s', value)")
	w.D("@dp.callback_query_handler(lambda c: True)")
	assert.Equal(t, "logger.info('got %s', value)\n@dp.callback_query_handler(lambda c: True)\n", w.String())
	assert.Equal(t, 1, w.Handlers())
}

func TestWriter_FormattedDecorator(t *testing.T) {
	w := &writer{}
	w.Df("@dp.message_handler(commands=[%s])", pyStr("start"))
	assert.Equal(t, "@dp.message_handler(commands=['start'])\n", w.String())
	assert.Equal(t, 1, w.Handlers())
}

func TestWriter_OutAtZero(t *testing.T) {
	w := &writer{}
	w.Out()
	w.P("x = 1")
	assert.Equal(t, "x = 1\n", w.String())
}

func TestPyStr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"it's", `'it\'s'`},
		{"a\nb", `'a\nb'`},
		{`back\slash`, `'back\\slash'`},
		{"tab\there", `'tab\there'`},
		{"", "''"},
		{"привет", "'привет'"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pyStr(tt.in), "input %q", tt.in)
	}
}

func TestPyBoolAndList(t *testing.T) {
	assert.Equal(t, "True", pyBool(true))
	assert.Equal(t, "False", pyBool(false))
	assert.Equal(t, "['a', 'b']", pyStrList([]string{"a", "b"}))
	assert.Equal(t, "[]", pyStrList(nil))
}

func TestSanitizePyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"node-1", "node_1"},
		{"9lives", "n9lives"},
		{"ok_name", "ok_name"},
		{"weird id!", "weird_id_"},
		{"", "node"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizePyName(tt.in), "input %q", tt.in)
	}
}
