// Package chat manages advising conversations: chat CRUD, the append-only
// message log, and the conversational turn that runs the advising pipeline.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tigertalks/tigertalks-go/internal/advisor"
	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
	"github.com/tigertalks/tigertalks-go/internal/genai"
	"github.com/tigertalks/tigertalks-go/internal/logger"
	"github.com/tigertalks/tigertalks-go/internal/storage"
)

// fallbackReply is persisted as the model turn when generation fails. The
// conversation must keep alternating, so turn failures never surface as
// errors to the student.
const fallbackReply = "I apologize, but I'm having trouble processing your request right now. Please try again later."

// Store is the persistence surface the chat service needs.
// Implemented by *storage.DB.
type Store interface {
	CreateChat(ctx context.Context, chat *storage.Chat) error
	GetChat(ctx context.Context, id string) (*storage.Chat, error)
	ListChats(ctx context.Context, userID string) ([]*storage.Chat, error)
	DeleteChat(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, msg *storage.Message) error
	GetMessages(ctx context.Context, chatID string) ([]*storage.Message, error)
}

// Generator produces the model's reply text. Satisfied by *genai.Generator.
type Generator interface {
	Complete(ctx context.Context, operation string, req genai.CompletionRequest) (string, error)
}

// Recorder observes chat turn outcomes.
type Recorder interface {
	RecordChatMessage(role string)
	RecordChatTurn(status string, duration float64)
	RecordChatFallback()
}

// Conversation is a chat together with its message log.
type Conversation struct {
	Chat     *storage.Chat      `json:"chat"`
	Messages []*storage.Message `json:"messages"`
}

// Service runs advising conversations.
type Service struct {
	store      Store
	users      advisor.UserStore
	classifier *advisor.Classifier
	engine     *advisor.Engine
	prompts    *advisor.PromptBuilder
	llm        Generator
	rerank     advisor.RerankOptions
	pairs      int
	log        *logger.Logger
	metrics    Recorder
}

// ServiceOptions wires the chat service together.
type ServiceOptions struct {
	Store      Store
	Users      advisor.UserStore
	Classifier *advisor.Classifier
	Engine     *advisor.Engine
	Prompts    *advisor.PromptBuilder
	LLM        Generator
	Rerank     advisor.RerankOptions
	// HistoryPairs bounds how many prior user/model turn pairs feed context
	// fusion. Zero selects the default.
	HistoryPairs int
}

// NewService creates a chat service.
func NewService(opts ServiceOptions, log *logger.Logger) (*Service, error) {
	if opts.Store == nil || opts.Users == nil || opts.Classifier == nil ||
		opts.Engine == nil || opts.Prompts == nil || opts.LLM == nil {
		return nil, fmt.Errorf("chat service: missing dependency")
	}
	pairs := opts.HistoryPairs
	if pairs <= 0 {
		pairs = advisor.DefaultHistoryPairs
	}
	return &Service{
		store:      opts.Store,
		users:      opts.Users,
		classifier: opts.Classifier,
		engine:     opts.Engine,
		prompts:    opts.Prompts,
		llm:        opts.LLM,
		rerank:     opts.Rerank,
		pairs:      pairs,
		log:        log.WithModule("chat"),
	}, nil
}

// SetMetrics attaches a chat recorder.
func (s *Service) SetMetrics(r Recorder) {
	s.metrics = r
}

// CreateChat starts a new conversation for a user.
func (s *Service) CreateChat(ctx context.Context, userID, title string) (*storage.Chat, error) {
	chat := &storage.Chat{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
	}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetChat returns a conversation with its messages. A chat owned by another
// user is indistinguishable from a missing one.
func (s *Service) GetChat(ctx context.Context, chatID, userID string) (*Conversation, error) {
	chat, err := s.ownedChat(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return &Conversation{Chat: chat, Messages: messages}, nil
}

// ListChats returns a user's conversations, most recently updated first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]*storage.Chat, error) {
	return s.store.ListChats(ctx, userID)
}

// DeleteChat removes a conversation and its messages.
func (s *Service) DeleteChat(ctx context.Context, chatID, userID string) error {
	if _, err := s.ownedChat(ctx, chatID, userID); err != nil {
		return err
	}
	return s.store.DeleteChat(ctx, chatID)
}

// SendMessage runs one conversational turn. The user message is persisted
// before generation starts, so a crashed or failed turn never loses the
// student's text. Generation failures produce a fixed fallback reply that is
// persisted like any model turn; only persistence failures return an error.
func (s *Service) SendMessage(ctx context.Context, chatID, userID, text string) (*storage.Message, error) {
	if text == "" {
		return nil, apperrors.NewValidationError("message", "message text is required")
	}
	if _, err := s.ownedChat(ctx, chatID, userID); err != nil {
		return nil, err
	}

	start := time.Now()

	userMsg := &storage.Message{
		ID:      uuid.NewString(),
		ChatID:  chatID,
		UserID:  userID,
		Role:    storage.RoleUser,
		Content: text,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		s.recordTurn("error", start)
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	s.recordMessage(storage.RoleUser)

	reply, genErr := s.generateReply(ctx, chatID, userID, text, userMsg.ID)
	status := "success"
	if genErr != nil {
		s.log.WithError(genErr).WithField("chat_id", chatID).Error("Chat generation failed, sending fallback reply")
		reply = fallbackReply
		status = "fallback"
		if s.metrics != nil {
			s.metrics.RecordChatFallback()
		}
	}

	modelMsg := &storage.Message{
		ID:      uuid.NewString(),
		ChatID:  chatID,
		UserID:  userID,
		Role:    storage.RoleModel,
		Content: reply,
	}
	if err := s.store.AppendMessage(ctx, modelMsg); err != nil {
		s.recordTurn("error", start)
		return nil, fmt.Errorf("persist model message: %w", err)
	}
	s.recordMessage(storage.RoleModel)

	s.recordTurn(status, start)
	return modelMsg, nil
}

// generateReply runs the advising pipeline for one turn: history fusion,
// classification, retrieval, reranking, prompt assembly, generation.
func (s *Service) generateReply(ctx context.Context, chatID, userID, text, currentMsgID string) (string, error) {
	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	history, err := s.loadHistory(ctx, chatID, currentMsgID)
	if err != nil {
		return "", err
	}
	queries, responses := advisor.SplitHistory(history)
	effective := advisor.EnhanceQuery(text, queries, responses)

	cls := s.classifier.Classify(ctx, effective)

	candidates, err := s.engine.Retrieve(ctx, cls, profile, effective)
	if err != nil {
		return "", err
	}
	candidates = advisor.Rerank(candidates, profile, s.rerank)

	system, contextMsg := s.prompts.BuildChat(ctx, cls, profile, candidates, effective)
	return s.llm.Complete(ctx, "chat", genai.CompletionRequest{
		System:      system,
		User:        contextMsg,
		Temperature: 0.7,
		MaxTokens:   1000,
	})
}

// loadHistory returns the prior turns, excluding the message just appended.
func (s *Service) loadHistory(ctx context.Context, chatID, currentMsgID string) ([]advisor.Turn, error) {
	messages, err := s.store.GetMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	prior := make([]*storage.Message, 0, len(messages))
	for _, m := range messages {
		if m.ID == currentMsgID {
			continue
		}
		prior = append(prior, m)
	}
	return advisor.BuildHistory(prior, s.pairs), nil
}

// loadProfile mirrors the recommendation flow: unknown users chat with an
// empty profile.
func (s *Service) loadProfile(ctx context.Context, userID string) (advisor.Profile, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return advisor.Profile{}, nil
		}
		return advisor.Profile{}, fmt.Errorf("load student profile: %w", err)
	}
	return advisor.ProfileFromUser(user), nil
}

// ownedChat loads a chat and verifies ownership.
func (s *Service) ownedChat(ctx context.Context, chatID, userID string) (*storage.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, fmt.Errorf("chat %s: %w", chatID, apperrors.ErrNotFound)
	}
	return chat, nil
}

func (s *Service) recordMessage(role string) {
	if s.metrics != nil {
		s.metrics.RecordChatMessage(role)
	}
}

func (s *Service) recordTurn(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordChatTurn(status, time.Since(start).Seconds())
	}
}
