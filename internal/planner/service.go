// Package planner implements the study-planner turn logic: normalizing
// arbitrary generation-engine output, recovering the structured payload, and
// reconciling it into durable per-session memory.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/domain"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/store"
)

// fallbackReply is used when neither the payload nor the raw engine output
// yields any text. A turn never returns an empty reply.
const fallbackReply = "Sorry — I had trouble generating a response."

// Message is one role-tagged prompt entry sent to the generation engine.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenParams are the fixed decoding parameters used for every turn.
type GenParams struct {
	Temperature float64
	MaxTokens   int
}

// Engine produces a completion for an ordered message list. The returned
// value's shape is unconstrained: a plain string, a map with a text-bearing
// field, or a map already carrying the {reply, memory_update} envelope are
// all possible and all handled.
type Engine interface {
	Generate(ctx context.Context, messages []Message, params GenParams) (any, error)
}

// TurnResult is the outcome of one completed turn. Memory is the post-merge
// snapshot, without the transcript.
type TurnResult struct {
	Reply  string          `json:"reply"`
	Memory domain.Snapshot `json:"memory"`
}

// Service reconciles one turn at a time against a session's memory. Callers
// must serialize turns per session key; the service itself holds no locks.
type Service struct {
	repo       store.Repository
	engine     Engine
	params     GenParams
	genTimeout time.Duration
}

// NewService creates a reconciler. A zero genTimeout disables the generation
// deadline.
func NewService(repo store.Repository, engine Engine, params GenParams, genTimeout time.Duration) *Service {
	return &Service{
		repo:       repo,
		engine:     engine,
		params:     params,
		genTimeout: genTimeout,
	}
}

// HandleTurn runs one user-message-in, reply-out exchange: load memory, build
// the prompt, invoke the engine, recover the payload, merge the memory
// update, append the turn to the transcript, persist, and return the reply
// with the merged snapshot. Either the whole turn completes and is persisted
// or an error is returned and memory is left exactly as loaded.
func (s *Service) HandleTurn(ctx context.Context, sessionKey, message string) (*TurnResult, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	message = strings.TrimSpace(message)
	if sessionKey == "" {
		return nil, ErrEmptySession
	}
	if message == "" {
		return nil, ErrEmptyMessage
	}

	mem, err := s.repo.LoadMemory(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load memory: %v", ErrStorage, err)
	}

	messages := s.buildPrompt(mem, message)

	genCtx := ctx
	if s.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.genTimeout)
		defer cancel()
	}

	result, err := s.engine.Generate(genCtx, messages, s.params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrGenerationTimeout, s.genTimeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	payload := resolvePayload(result)
	reply := resolveReply(payload, result)

	if payload == nil {
		slog.Debug("No structured payload recovered, using raw text",
			"session_key", sessionKey)
	}

	if update, ok := payload.MemoryUpdate(); ok {
		mem.ApplyUpdate(update)
	}

	mem.AppendTurn(domain.RoleUser, message)
	mem.AppendTurn(domain.RoleAssistant, reply)

	if err := s.repo.SaveMemory(ctx, sessionKey, mem); err != nil {
		return nil, fmt.Errorf("%w: save memory: %v", ErrStorage, err)
	}

	return &TurnResult{Reply: reply, Memory: mem.Snapshot()}, nil
}

// buildPrompt assembles the engine input: the fixed system instruction, a
// synthetic system message carrying the current memory snapshot, the most
// recent transcript turns (oldest first), then the new user message.
func (s *Service) buildPrompt(mem *domain.Memory, message string) []Message {
	recent := mem.RecentChat(domain.PromptWindow)

	messages := make([]Message, 0, len(recent)+3)
	messages = append(messages, Message{Role: domain.RoleSystem, Content: SystemPrompt})
	messages = append(messages, Message{
		Role:    domain.RoleSystem,
		Content: "Current memory:\n" + marshalSnapshot(mem.Snapshot()),
	})
	for _, turn := range recent {
		messages = append(messages, Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, Message{Role: domain.RoleUser, Content: message})
	return messages
}

func marshalSnapshot(snap domain.Snapshot) string {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// resolvePayload recovers the structured payload from the raw engine result.
// A result that already exposes the response envelope as a nested object is
// used directly; otherwise the result is normalized to text and the extractor
// runs over it.
func resolvePayload(result any) Payload {
	if obj, ok := result.(map[string]any); ok {
		if inner, ok := obj[envelopeField].(map[string]any); ok {
			return Payload(inner)
		}
	}
	return ExtractPayload(ToText(result))
}

// resolveReply prefers the payload's reply, then the normalized raw text,
// then the fixed fallback. The result is never empty.
func resolveReply(payload Payload, result any) string {
	if reply, ok := payload.Reply(); ok {
		return reply
	}
	if raw := ToText(result); raw != "" {
		return raw
	}
	return fallbackReply
}
