package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-oracle/internal/models"
)

func TestSessionTurns(t *testing.T) {
	ctx := context.Background()
	s, err := New()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	require.NoError(t, s.AddTurn(ctx, models.Turn{Role: models.RoleUser, Text: "what is the deadline?"}))
	require.NoError(t, s.AddTurn(ctx, models.Turn{Role: models.RoleAssistant, Text: "30 days."}))

	turns, err := s.Turns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Turn{
		{Role: models.RoleUser, Text: "what is the deadline?"},
		{Role: models.RoleAssistant, Text: "30 days."},
	}, turns)

	history, err := s.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Human: what is the deadline?\nAI: 30 days.", history)
}

func TestSessionUnknownRole(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.Error(t, s.AddTurn(context.Background(), models.Turn{Role: "system", Text: "x"}))
}

func TestSessionReset(t *testing.T) {
	ctx := context.Background()
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.AddTurn(ctx, models.Turn{Role: models.RoleUser, Text: "hi"}))

	require.NoError(t, s.Reset(ctx))

	turns, err := s.Turns(ctx)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestSessionLoadReplacesChunks(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.False(t, s.Loaded())

	chunks := []string{"a", "b"}
	s.Load(&models.Document{Source: "one.pdf"}, chunks)
	chunks[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, s.Chunks)

	s.Load(&models.Document{Source: "two.pdf"}, []string{"c"})
	assert.True(t, s.Loaded())
	assert.Equal(t, "two.pdf", s.Document.Source)
	assert.Equal(t, []string{"c"}, s.Chunks)
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)

	require.NoError(t, a.AddTurn(ctx, models.Turn{Role: models.RoleUser, Text: "only in a"}))

	turns, err := b.Turns(ctx)
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.NotEqual(t, a.ID, b.ID)
}
