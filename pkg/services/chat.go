package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"FitCoachAI/models"
	"FitCoachAI/pkg/logger"
	"FitCoachAI/pkg/memory"
	"FitCoachAI/pkg/store"
)

var ErrMissingInput = errors.New("no input provided")

// Stages of a chat turn, reported by TurnError.
const (
	StageLookup     = "lookup"
	StageCompletion = "completion"
	StagePersist    = "persist"
)

// TurnError wraps a fault raised while serving a chat turn.
type TurnError struct {
	Stage string
	Err   error
}

func (e *TurnError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *TurnError) Unwrap() error { return e.Err }

// ChatResult is the outcome of one successful chat turn.
type ChatResult struct {
	Response string `json:"response"`
	ID       uint   `json:"id"`
}

type ChatService struct {
	store    store.ConversationStore
	provider Provider
	memory   *memory.Store
	slots    *convSlots
	newName  func() string
}

func NewChatService(st store.ConversationStore, p Provider, mem *memory.Store) *ChatService {
	return &ChatService{
		store:    st,
		provider: p,
		memory:   mem,
		slots:    newConvSlots(),
		newName:  newChatName,
	}
}

// newChatName returns a display name such as "Chat 1a2b3c4d".
func newChatName() string {
	return "Chat " + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Send runs one non-streaming chat turn. A nil id starts a new conversation.
func (s *ChatService) Send(ctx context.Context, input string, id *uint) (*ChatResult, error) {
	return s.turn(ctx, input, id, s.provider.Complete)
}

// SendStream is Send with the reply delivered incrementally to onDelta.
func (s *ChatService) SendStream(ctx context.Context, input string, id *uint, onDelta func(string)) (*ChatResult, error) {
	return s.turn(ctx, input, id, func(ctx context.Context, msgs []ChatMessage) (string, error) {
		return s.provider.Stream(ctx, msgs, onDelta)
	})
}

type generateFunc func(ctx context.Context, msgs []ChatMessage) (string, error)

func (s *ChatService) turn(ctx context.Context, input string, id *uint, generate generateFunc) (*ChatResult, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrMissingInput
	}
	if id == nil {
		return s.startConversation(ctx, input, generate)
	}
	return s.continueConversation(ctx, input, *id, generate)
}

func (s *ChatService) startConversation(ctx context.Context, input string, generate generateFunc) (*ChatResult, error) {
	reply, err := generate(ctx, BuildPrompt(nil, input))
	if err != nil {
		return nil, &TurnError{Stage: StageCompletion, Err: err}
	}

	conv, err := s.store.Create(ctx, s.newName(), models.Exchange(input, reply))
	if err != nil {
		return nil, &TurnError{Stage: StagePersist, Err: err}
	}
	s.memory.Set(conv.ID, models.Exchange(input, reply))

	logger.WithContext(ctx).Info("conversation started",
		zap.Uint("chat_id", conv.ID),
		zap.String("name", conv.Name),
		zap.String("provider", s.provider.Name()),
	)
	return &ChatResult{Response: reply, ID: conv.ID}, nil
}

func (s *ChatService) continueConversation(ctx context.Context, input string, id uint, generate generateFunc) (*ChatResult, error) {
	release, err := s.slots.acquire(ctx, id)
	if err != nil {
		return nil, &TurnError{Stage: StageLookup, Err: err}
	}
	defer release()

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, &TurnError{Stage: StageLookup, Err: err}
	}

	history := s.memory.History(conv.ID, conv.Messages)
	reply, err := generate(ctx, BuildPrompt(history, input))
	if err != nil {
		return nil, &TurnError{Stage: StageCompletion, Err: err}
	}

	msgs := make([]models.Message, 0, len(conv.Messages)+2)
	msgs = append(msgs, conv.Messages...)
	msgs = append(msgs, models.Exchange(input, reply)...)
	if err := s.store.ReplaceMessages(ctx, conv.ID, msgs); err != nil {
		return nil, &TurnError{Stage: StagePersist, Err: fmt.Errorf("chat %d: %w", conv.ID, err)}
	}
	s.memory.Set(conv.ID, msgs)

	logger.WithContext(ctx).Info("conversation continued",
		zap.Uint("chat_id", conv.ID),
		zap.Int("messages", len(msgs)),
		zap.String("provider", s.provider.Name()),
	)
	return &ChatResult{Response: reply, ID: conv.ID}, nil
}

func (s *ChatService) List(ctx context.Context) ([]models.Conversation, error) {
	return s.store.List(ctx)
}

func (s *ChatService) Get(ctx context.Context, id uint) (*models.Conversation, error) {
	return s.store.Get(ctx, id)
}

// Delete removes the conversation and forgets its memory.
func (s *ChatService) Delete(ctx context.Context, id uint) error {
	release, err := s.slots.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.memory.Forget(id)
	logger.WithContext(ctx).Info("conversation deleted", zap.Uint("chat_id", id))
	return nil
}
