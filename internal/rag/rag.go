package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"document-oracle/internal/llmservice"
	"document-oracle/internal/models"
	"document-oracle/internal/retriever"
	"document-oracle/internal/session"
)

// Assistant answers questions about the document loaded in a session.
type Assistant struct {
	llm       llms.Model
	retriever *retriever.Retriever
	prompt    prompts.ChatPromptTemplate
}

func NewAssistant(llm llms.Model, r *retriever.Retriever) *Assistant {
	return &Assistant{
		llm:       llm,
		retriever: r,
		prompt: prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
			prompts.NewSystemMessagePromptTemplate(models.SystemPromptTemplate, []string{"context", "chat_history"}),
			prompts.NewHumanMessagePromptTemplate(models.UserPromptTemplate, []string{"input"}),
		}),
	}
}

// Ask grounds the question in the best matching chunks of the session's
// document, streams the reply through onToken and records both turns in the
// session.
func (a *Assistant) Ask(ctx context.Context, sess *session.Session, input string, onToken func(string)) (*models.PromptResponse, error) {
	if sess == nil || !sess.Loaded() {
		return nil, session.ErrNoDocument
	}

	docContext := a.retriever.Context(input, sess.Chunks)
	history, err := sess.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	log.Debug().Str("session", sess.ID).Int("context_chars", len(docContext)).Msg("Context selected")

	messages, err := a.prompt.FormatMessages(map[string]any{
		"context":      docContext,
		"chat_history": history,
		"input":        input,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}

	resp, err := llmservice.GenerateContent(ctx, a.llm, toMessageContent(messages), onToken)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}
	answer := resp.Choices[0].Content

	if err := sess.AddTurn(ctx, models.Turn{Role: models.RoleUser, Text: input}); err != nil {
		return nil, err
	}
	if err := sess.AddTurn(ctx, models.Turn{Role: models.RoleAssistant, Text: answer}); err != nil {
		return nil, err
	}

	return &models.PromptResponse{Query: input, Context: docContext, Content: answer}, nil
}

func toMessageContent(messages []llms.ChatMessage) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(m.GetType(), m.GetContent()))
	}
	return content
}
