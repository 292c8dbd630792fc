package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"ember/internal/middleware"
	"ember/internal/skills"
)

// maxToolRounds caps how many times one Send may loop through tool execution
// before the model is forced to answer with text.
const maxToolRounds = 8

type Service struct {
	adapter Adapter
	history []Message
	mws     *middleware.Chain
	tools   *skills.Manager
	sink    func(Part)
	system  string
	params  middleware.LLMParams
	log     *logrus.Entry
}

type ServiceOption func(*Service)

func WithMiddlewareChain(chain *middleware.Chain) ServiceOption {
	return func(s *Service) { s.mws = chain }
}

func WithSkills(m *skills.Manager) ServiceOption {
	return func(s *Service) { s.tools = m }
}

// WithPartSink streams every emitted part (text fragments, tool invocations)
// to fn as they arrive, before the turn completes.
func WithPartSink(fn func(Part)) ServiceOption {
	return func(s *Service) { s.sink = fn }
}

func WithSystemPrompt(prompt string) ServiceOption {
	return func(s *Service) { s.system = prompt }
}

// WithParams sets the base generation parameters for every turn. Middlewares
// may still override them per request.
func WithParams(p middleware.LLMParams) ServiceOption {
	return func(s *Service) { s.params = p }
}

func NewService(adapter Adapter, opts ...ServiceOption) *Service {
	s := &Service{
		adapter: adapter,
		history: make([]Message, 0, 16),
		log:     logrus.WithField("component", "chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Send(ctx context.Context, input string) (string, error) {
	return s.SendWithContext(ctx, input, nil)
}

func (s *Service) SendWithContext(ctx context.Context, input string, mwCtx map[string]any) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty input")
	}

	params := s.params
	if s.tools != nil {
		params.Tools = s.tools.Declarations()
	}

	if s.mws != nil {
		e := &middleware.Event{
			Name:     middleware.EventBeforeLLMRequest,
			UserText: input,
			Params:   &params,
			Context:  mwCtx,
		}
		results, err := s.mws.Dispatch(ctx, e)
		if err != nil {
			return "", err
		}
		updated, canceled := applyTextDecisions(input, results)
		if canceled != nil && canceled.Cancel {
			if strings.TrimSpace(updated) != "" {
				return updated, nil
			}
			if strings.TrimSpace(canceled.Reason) == "" {
				return "", errors.New("request canceled by middleware")
			}
			return "", errors.New(canceled.Reason)
		}
		input = updated
		if e.Params != nil {
			params = *e.Params
		}
	}

	mark := len(s.history)
	s.history = append(s.history, Message{Role: RoleUser, Content: input})

	assistant, err := s.runToolLoop(ctx, &params, mwCtx)
	if err != nil {
		s.history = s.history[:mark]
		return "", err
	}

	if s.mws != nil {
		e := &middleware.Event{
			Name:     middleware.EventAfterLLMResponse,
			UserText: input,
			LLMText:  assistant,
			Params:   &params,
			Context:  mwCtx,
		}
		results, err := s.mws.Dispatch(ctx, e)
		if err != nil {
			s.history = s.history[:mark]
			return "", err
		}
		updated, canceled := applyTextDecisions(assistant, results)
		if canceled != nil && canceled.Cancel {
			if strings.TrimSpace(updated) == "" {
				s.history = s.history[:mark]
				if strings.TrimSpace(canceled.Reason) == "" {
					return "", errors.New("response canceled by middleware")
				}
				return "", errors.New(canceled.Reason)
			}
		}
		assistant = updated
	}

	s.history = append(s.history, Message{Role: RoleAssistant, Content: assistant})
	return assistant, nil
}

// runToolLoop asks the adapter for a reply and, as long as it requests tool
// calls, executes them and feeds the results back, up to maxToolRounds.
func (s *Service) runToolLoop(ctx context.Context, params *middleware.LLMParams, mwCtx map[string]any) (string, error) {
	for round := 0; round < maxToolRounds; round++ {
		text, calls, err := s.adapter.ReplyStream(ctx, s.fullHistory(), params, s.sink)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)

		if len(calls) == 0 {
			if text == "" && ctx.Err() == nil {
				return "", errors.New("empty response from model")
			}
			return text, nil
		}
		if s.tools == nil {
			// Model asked for tools we cannot run; surface whatever prose
			// came with the request.
			return text, nil
		}

		s.history = append(s.history, Message{Role: RoleAssistant, Content: text, ToolCalls: calls})
		for _, call := range calls {
			result := s.executeCall(ctx, call, mwCtx)
			s.history = append(s.history, Message{
				Role:       RoleTool,
				Content:    result,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}
	return "", errors.New("tool loop exceeded round limit")
}

func (s *Service) executeCall(ctx context.Context, call ToolCall, mwCtx map[string]any) string {
	if s.mws != nil {
		e := &middleware.Event{
			Name:     middleware.EventBeforeToolExec,
			ToolName: call.Name,
			Context:  mwCtx,
		}
		results, err := s.mws.Dispatch(ctx, e)
		if err != nil {
			return "Error: " + err.Error()
		}
		for _, r := range results {
			if r.Decision.Cancel {
				reason := r.Decision.Reason
				if reason == "" {
					reason = "blocked by middleware"
				}
				s.log.WithFields(logrus.Fields{
					"tool":       call.Name,
					"middleware": r.MiddlewareID,
				}).Warn("tool call blocked")
				return "Error: " + reason
			}
		}
	}

	args := call.Args
	if args == nil {
		args = ParseToolArgs(call.Arguments)
	}
	s.log.WithField("tool", call.Name).Debug("executing tool call")
	return s.tools.Execute(ctx, call.Name, args)
}

func (s *Service) fullHistory() []Message {
	if s.system == "" {
		return s.history
	}
	out := make([]Message, 0, len(s.history)+1)
	out = append(out, Message{Role: RoleSystem, Content: s.system})
	return append(out, s.history...)
}

func (s *Service) History() []Message {
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Service) Clear() {
	s.history = s.history[:0]
}

func applyTextDecisions(initial string, results []middleware.DecisionResult) (string, *middleware.Decision) {
	cur := strings.TrimSpace(initial)
	for _, r := range results {
		dec := r.Decision
		if dec.ReplaceText != nil {
			cur = strings.TrimSpace(*dec.ReplaceText)
		}
		if dec.Cancel {
			return cur, &dec
		}
	}
	return cur, nil
}
