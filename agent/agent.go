package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"kennel-portal/completion"
	"kennel-portal/helper"
	"kennel-portal/models"
	"kennel-portal/observability"
)

// MaxToolRounds caps how many times tool results are fed back before the final
// answer. Round 2 never offers tools, so one pass is the whole budget.
const MaxToolRounds = 1

// FallbackReply is returned when the final round produces no text.
const FallbackReply = "Done."

const defaultMaxMessageChars = 2000

var ErrUnauthorized = errors.New("unauthorized")

// Caller is the authenticated user every scoped tool runs on behalf of.
type Caller struct {
	UserID string
	Email  string
}

// Store is the data access the tools need. Scoped methods always receive the
// caller id from the orchestrator, never from model arguments.
type Store interface {
	ListPuppies(ctx context.Context, filter models.PuppyFilter) ([]models.Puppy, error)
	ListApplications(ctx context.Context, userID string, limit int) ([]models.Application, error)
	InsertMessage(ctx context.Context, msg models.BreederMessage) (models.BreederMessage, error)
	PaymentURL() string
}

// Completer is the language-model completion service.
type Completer interface {
	Generate(ctx context.Context, req completion.Request) (*schema.Message, error)
}

type Agent struct {
	completer       Completer
	store           Store
	tools           []Tool
	byName          map[string]Tool
	systemPrompt    string
	maxMessageChars int
}

type Option func(*Agent)

// WithSystemPrompt replaces the built-in system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithMaxMessageChars sets the truncation limit for breeder messages.
func WithMaxMessageChars(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxMessageChars = n
		}
	}
}

func New(completer Completer, store Store, opts ...Option) *Agent {
	a := &Agent{
		completer:       completer,
		store:           store,
		tools:           Catalog(),
		systemPrompt:    systemPrompt,
		maxMessageChars: defaultMaxMessageChars,
	}
	a.byName = make(map[string]Tool, len(a.tools))
	for _, t := range a.tools {
		a.byName[t.Name] = t
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle turns one inbound conversation into the assistant's final reply.
// A nil caller fails before any completion call or tool execution.
func (a *Agent) Handle(ctx context.Context, conversation []*schema.Message, caller *Caller) (string, error) {
	if caller == nil || strings.TrimSpace(caller.UserID) == "" {
		return "", ErrUnauthorized
	}

	logger := observability.FromContext(ctx).With().Str("user_id", caller.UserID).Logger()
	ctx = observability.WithLogger(ctx, logger)

	history := make([]*schema.Message, 0, len(conversation)+4)
	history = append(history, &schema.Message{Role: schema.System, Content: a.systemPrompt})
	for _, m := range conversation {
		if m != nil {
			history = append(history, m)
		}
	}

	declared := Declarations(a.tools)

	for pass := 0; pass < MaxToolRounds; pass++ {
		proposal, err := a.complete(ctx, "propose", completion.Request{
			Messages:   history,
			Tools:      declared,
			ToolChoice: completion.ToolChoiceAuto,
		})
		if err != nil {
			return "", fmt.Errorf("propose round: %w", err)
		}

		calls := ParseToolCalls(proposal)
		if len(calls) == 0 {
			break
		}

		names := make([]string, 0, len(calls))
		for _, call := range calls {
			names = append(names, call.Name)
		}
		logger.Info().Strs("tools", helper.UniqueStrings(names)).Int("calls", len(calls)).Msg("model proposed tool calls")

		history = append(history, assistantTurn(proposal, calls))
		for _, call := range calls {
			result := a.runTool(ctx, caller, call)
			history = append(history, result.Message())
		}
	}

	final, err := a.complete(ctx, "answer", completion.Request{
		Messages:   history,
		Tools:      declared,
		ToolChoice: completion.ToolChoiceNone,
	})
	if err != nil {
		return "", fmt.Errorf("answer round: %w", err)
	}

	// tool calls proposed in the answer round are ignored
	reply := strings.TrimSpace(final.Content)
	if reply == "" {
		reply = FallbackReply
	}
	return reply, nil
}

func (a *Agent) complete(ctx context.Context, round string, req completion.Request) (*schema.Message, error) {
	logger := observability.FromContext(ctx)
	start := time.Now()

	msg, err := a.completer.Generate(ctx, req)
	if err == nil && msg == nil {
		err = fmt.Errorf("%w: empty message", completion.ErrUpstream)
	}
	observability.RecordCompletion(round, start, err == nil)
	if err != nil {
		logger.Error().Err(err).Str("round", round).Dur("duration", time.Since(start)).Msg("completion failed")
		return nil, err
	}

	logger.Info().
		Str("round", round).
		Int("messages", len(req.Messages)).
		Int("tool_calls", len(msg.ToolCalls)).
		Dur("duration", time.Since(start)).
		Msg("completion done")
	return msg, nil
}

// runTool executes one call and always produces a result, even on panic.
func (a *Agent) runTool(ctx context.Context, caller *Caller, call ToolCall) (result ToolResult) {
	logger := observability.FromContext(ctx)
	start := time.Now()
	result = ToolResult{CallID: call.ID, Name: call.Name}
	logger.Debug().Str("tool", call.Name).Str("args", helper.Summarize(call.RawArgs)).Msg("running tool")

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("tool", call.Name).Interface("panic", r).Msg("tool panicked")
			result = failure(call, fmt.Sprintf("tool %s failed", call.Name))
		}
		observability.RecordToolExecution(metricName(a.byName, call.Name), result.OK)
		event := logger.Info()
		if !result.OK {
			event = logger.Warn().Str("error", result.Error)
		}
		event.Str("tool", call.Name).Bool("ok", result.OK).Dur("duration", time.Since(start)).Msg("tool executed")
	}()

	if call.ParseErr != nil {
		return failure(call, call.ParseErr.Error())
	}

	tool, ok := a.byName[call.Name]
	if !ok {
		return failure(call, "unknown tool: "+call.Name)
	}

	env := ToolEnv{Caller: *caller, Store: a.store, MaxMessageChars: a.maxMessageChars}
	data, err := tool.Run(ctx, env, call.Args)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return failure(call, verr.Error())
		}
		logger.Error().Err(err).Str("tool", call.Name).Msg("tool execution error")
		return failure(call, fmt.Sprintf("%s could not be completed right now", call.Name))
	}

	result.OK = true
	result.Data = data
	return result
}

// metricName keeps the tool label bounded to the catalog.
func metricName(known map[string]Tool, name string) string {
	if _, ok := known[name]; ok {
		return name
	}
	return "unknown"
}

func assistantTurn(proposal *schema.Message, calls []ToolCall) *schema.Message {
	turn := &schema.Message{Role: schema.Assistant, Content: proposal.Content}
	for _, c := range calls {
		turn.ToolCalls = append(turn.ToolCalls, schema.ToolCall{
			ID:   c.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      c.Name,
				Arguments: c.RawArgs,
			},
		})
	}
	return turn
}
