package gen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botforge/botc/pkg/botc/graph"
)

func failingDoc() *graph.Document {
	return &graph.Document{Nodes: []graph.Node{
		{ID: "start-1", Type: graph.TypeStart, Data: graph.NodeData{Text: "Hi"}},
	}}
}

func TestGenerate_FailureReturnsNoCode(t *testing.T) {
	orig := pipeline
	defer func() { pipeline = orig }()

	t.Run("phase error", func(t *testing.T) {
		boom := errors.New("emit failed")
		pipeline = append(append([]phase{}, orig...), phase{"broken", func(*Context, *writer) error {
			return boom
		}})

		res := Generate(context.Background(), BuildParams{Document: failingDoc()})
		require.False(t, res.OK)
		require.NotEmpty(t, res.Errors)
		assert.ErrorIs(t, res.Errors[0], boom)

		// A failed compilation never hands back a truncated program.
		assert.Empty(t, res.Code)
	})

	t.Run("phase panic", func(t *testing.T) {
		pipeline = append(append([]phase{}, orig...), phase{"broken", func(*Context, *writer) error {
			panic("kaboom")
		}})

		res := Generate(context.Background(), BuildParams{Document: failingDoc()})
		require.False(t, res.OK)
		require.NotEmpty(t, res.Errors)

		var ue *UnknownError
		require.ErrorAs(t, res.Errors[0], &ue)
		assert.Equal(t, "broken", ue.Component)
		assert.Empty(t, res.Code)
	})
}
