package session

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"

	"document-oracle/internal/helper"
	"document-oracle/internal/models"
)

var ErrNoDocument = errors.New("no document loaded")

const (
	humanPrefix = "Human"
	aiPrefix    = "AI"
)

// Session holds the state of one user: the loaded document, its chunks and
// the conversation so far. It is owned by the caller and passed explicitly;
// it is not safe for concurrent use.
type Session struct {
	ID       string
	Document *models.Document
	Chunks   []string

	history *memory.ChatMessageHistory
}

func New() (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, history: memory.NewChatMessageHistory()}, nil
}

// Load replaces the document and its chunk set. The conversation is kept.
func (s *Session) Load(doc *models.Document, chunks []string) {
	s.Document = doc
	s.Chunks = append([]string(nil), chunks...)
}

func (s *Session) Loaded() bool {
	return s.Document != nil
}

// AddTurn appends one message to the conversation.
func (s *Session) AddTurn(ctx context.Context, turn models.Turn) error {
	switch turn.Role {
	case models.RoleUser:
		return s.history.AddUserMessage(ctx, turn.Text)
	case models.RoleAssistant:
		return s.history.AddAIMessage(ctx, turn.Text)
	default:
		return errors.New("unknown role: " + turn.Role)
	}
}

func (s *Session) Messages(ctx context.Context) ([]llms.ChatMessage, error) {
	return s.history.Messages(ctx)
}

func (s *Session) Turns(ctx context.Context) ([]models.Turn, error) {
	msgs, err := s.history.Messages(ctx)
	if err != nil {
		return nil, err
	}
	turns := make([]models.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := models.RoleUser
		if m.GetType() == llms.ChatMessageTypeAI {
			role = models.RoleAssistant
		}
		turns = append(turns, models.Turn{Role: role, Text: m.GetContent()})
	}
	return turns, nil
}

// History renders the conversation as "Human: ..." / "AI: ..." lines.
func (s *Session) History(ctx context.Context) (string, error) {
	msgs, err := s.history.Messages(ctx)
	if err != nil {
		return "", err
	}
	return llms.GetBufferString(msgs, humanPrefix, aiPrefix)
}

// Reset empties the conversation.
func (s *Session) Reset(ctx context.Context) error {
	return s.history.Clear(ctx)
}
