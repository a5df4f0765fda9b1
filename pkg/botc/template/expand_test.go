package template_test

import (
	"testing"

	"github.com/botforge/botc/pkg/botc/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpander_Expand(t *testing.T) {
	tests := []struct {
		name string
		in   string
		vars map[string]any
		want string
	}{
		{
			name: "brace style",
			in:   "Please enter at least ${min} characters.",
			vars: map[string]any{"min": 2},
			want: "Please enter at least 2 characters.",
		},
		{
			name: "dollar style",
			in:   "Hello $name!",
			vars: map[string]any{"name": "Alice"},
			want: "Hello Alice!",
		},
		{
			name: "both styles mixed",
			in:   "${greeting} $name",
			vars: map[string]any{"greeting": "Hi", "name": "Bob"},
			want: "Hi Bob",
		},
		{
			name: "dollar does not match inside longer names",
			in:   "limit is $min of $minLength",
			vars: map[string]any{"min": 1, "minLength": 10},
			want: "limit is 1 of 10",
		},
		{
			name: "missing keeps placeholder by default",
			in:   "value: ${missing}",
			vars: nil,
			want: "value: ${missing}",
		},
		{
			name: "empty string",
			in:   "",
			vars: map[string]any{"x": 1},
			want: "",
		},
		{
			name: "non-string values",
			in:   "delay ${d}s enabled ${ok}",
			vars: map[string]any{"d": 1.5, "ok": true},
			want: "delay 1.5s enabled true",
		},
	}

	e := template.NewExpander()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Expand(tt.in, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpander_MissingActions(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		e := template.NewExpander(template.WithMissingAction(template.MissingEmpty))
		got, err := e.Expand("a ${gone} b", nil)
		require.NoError(t, err)
		assert.Equal(t, "a  b", got)
	})

	t.Run("error", func(t *testing.T) {
		e := template.NewExpander(template.WithMissingAction(template.MissingError))
		_, err := e.Expand("a ${gone} and $also", nil)
		require.Error(t, err)

		var uve *template.UndefinedVariableError
		require.ErrorAs(t, err, &uve)
		assert.Contains(t, uve.Names, "gone")
		assert.Contains(t, uve.Names, "also")
	})
}

func TestExpander_StyleToggles(t *testing.T) {
	t.Run("braces only", func(t *testing.T) {
		e := template.NewExpander(template.WithDollarStyle(false))
		got, err := e.Expand("${a} $a", map[string]any{"a": "x"})
		require.NoError(t, err)
		assert.Equal(t, "x $a", got)
	})

	t.Run("dollars only", func(t *testing.T) {
		e := template.NewExpander(template.WithBraceStyle(false))
		got, err := e.Expand("${a} $a", map[string]any{"a": "x"})
		require.NoError(t, err)
		assert.Equal(t, "${a} x", got)
	})
}

func TestExpander_MustExpand(t *testing.T) {
	e := template.NewExpander(template.WithMissingAction(template.MissingError))

	assert.Equal(t, "hi", e.MustExpand("${a}", map[string]any{"a": "hi"}))
	assert.Panics(t, func() {
		e.MustExpand("${gone}", nil)
	})
}

func TestExpander_ExpandAll(t *testing.T) {
	e := template.NewExpander()

	got, err := e.ExpandAll([]string{"${a}", "plain"}, map[string]any{"a": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "plain"}, got)

	got, err = e.ExpandAll(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPackageLevelExpand(t *testing.T) {
	assert.Equal(t, "n=5", template.Expand("n=${n}", map[string]any{"n": 5}))
	assert.Equal(t, []string{"a 1"}, template.ExpandAll([]string{"a ${v}"}, map[string]any{"v": 1}))
}

func TestUndefinedVariableError_Message(t *testing.T) {
	one := &template.UndefinedVariableError{Names: []string{"a"}}
	assert.Equal(t, "undefined variable: a", one.Error())

	many := &template.UndefinedVariableError{Names: []string{"a", "b"}}
	assert.Equal(t, "undefined variables: a, b", many.Error())
}
