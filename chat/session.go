// Package chat drives conversation turns between a user, a chat model and
// a catalog of operations.
//
// A turn sends the conversation and the catalog to the model. When the model
// proposes operations, each one is decoded, completed by an argprep.Preparer,
// executed and answered with a tool-result message; the model is then asked
// once more, without tools, for a summary. A turn is a single bounded round:
// failed operations are reported back to the model, never retried.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i2y/indexpilot/argprep"
	"github.com/i2y/indexpilot/llm"
	"github.com/i2y/indexpilot/provider"
)

// Default sampling temperatures of the two passes of a turn.
const (
	DefaultTemperature      = 0.1
	DefaultFinalTemperature = 0.3
)

// LegacyAppIDKey is renamed to argprep.FieldApplicationID in proposed
// arguments.
const LegacyAppIDKey = "ALGOLIA_APP_ID"

// ErrNoTools is returned by New when the catalog is empty.
var ErrNoTools = errors.New("chat: no tools available")

// TurnState is the progress of the current turn.
type TurnState int

const (
	StateIdle TurnState = iota
	StateAwaitingReply
	StateExecutingTools
	StateAwaitingFinalReply
	StateDone
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateExecutingTools:
		return "executing_tools"
	case StateAwaitingFinalReply:
		return "awaiting_final_reply"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("turn_state(%d)", int(s))
	}
}

// Caller sends a conversation to a chat model. *llm.Model implements it.
type Caller interface {
	CallMessages(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error)
}

// Recorder persists committed turns. A failed turn records only the
// invocations it executed, with no messages.
type Recorder interface {
	RecordTurn(ctx context.Context, sessionID string, messages []llm.Message, invocations []Invocation) error
}

// Session owns one conversation with its catalog and turn state.
// Turns on a session are serialized.
type Session struct {
	id       string
	model    Caller
	catalog  *llm.ToolRegistry
	preparer *argprep.Preparer

	systemPrompt     string
	temperature      float64
	finalTemperature float64
	logger           zerolog.Logger
	recorder         Recorder
	now              func() time.Time
	callOpts         []llm.Option

	// state is read without mu so State does not wait on a running turn.
	state atomic.Int32

	mu           sync.Mutex
	conversation []llm.Message
}

// Option configures a Session.
type Option func(*Session)

// WithTemperatures sets the temperatures of the first and the final pass.
func WithTemperatures(first, final float64) Option {
	return func(s *Session) {
		s.temperature = first
		s.finalTemperature = final
	}
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithRecorder persists every committed turn.
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithCallOptions adds model options, such as llm.WithMaxTokens, to both
// passes of every turn.
func WithCallOptions(opts ...llm.Option) Option {
	return func(s *Session) {
		s.callOpts = append(s.callOpts, opts...)
	}
}

// WithClock replaces the clock used for invocation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithID sets the session id. A random id is generated otherwise.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// New creates a session whose conversation starts with systemPrompt.
func New(model Caller, catalog *llm.ToolRegistry, preparer *argprep.Preparer, systemPrompt string, opts ...Option) (*Session, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, ErrNoTools
	}
	s := &Session{
		id:               uuid.NewString(),
		model:            model,
		catalog:          catalog,
		preparer:         preparer,
		systemPrompt:     systemPrompt,
		temperature:      DefaultTemperature,
		finalTemperature: DefaultFinalTemperature,
		logger:           zerolog.Nop(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.conversation = s.initialConversation()
	return s, nil
}

func (s *Session) initialConversation() []llm.Message {
	if s.systemPrompt == "" {
		return nil
	}
	return []llm.Message{llm.SystemMessage(s.systemPrompt)}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the state of the current or last turn.
func (s *Session) State() TurnState {
	return TurnState(s.state.Load())
}

func (s *Session) setState(state TurnState) {
	s.state.Store(int32(state))
}

// Conversation returns a copy of the committed conversation.
func (s *Session) Conversation() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Message(nil), s.conversation...)
}

// Reset clears the conversation back to the system prompt.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversation = s.initialConversation()
	s.setState(StateIdle)
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	// Reply is the assistant's answer, or an apology when the turn failed.
	Reply       string
	Invocations []Invocation
	// States lists the states the turn went through.
	States []TurnState
	Usage  provider.Usage
}

// ErrorReply is the reply shown when a turn fails.
func ErrorReply(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error: %v", err)
}

// Turn runs one user message through to a final reply. On error the
// returned result carries the apology reply and the committed
// conversation is left as it was before the turn.
func (s *Session) Turn(ctx context.Context, message string) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &turn{
		session: s,
		working: append(append([]llm.Message(nil), s.conversation...), llm.UserMessage(message)),
	}
	committed := len(s.conversation)

	if err := t.run(ctx); err != nil {
		s.setState(StateIdle)
		s.logger.Error().Err(err).Str("session", s.id).Msg("chat: turn failed")
		t.result.Reply = ErrorReply(err)
		if len(t.result.Invocations) > 0 {
			s.record(ctx, nil, t.result.Invocations)
		}
		return t.result, err
	}

	s.conversation = t.working
	s.setState(StateDone)
	s.record(ctx, t.working[committed:], t.result.Invocations)
	return t.result, nil
}

func (s *Session) record(ctx context.Context, messages []llm.Message, invocations []Invocation) {
	if s.recorder == nil {
		return
	}
	// A cancelled turn still has executed invocations worth keeping.
	ctx = context.WithoutCancel(ctx)
	if err := s.recorder.RecordTurn(ctx, s.id, messages, invocations); err != nil {
		s.logger.Warn().Err(err).Str("session", s.id).Msg("chat: recording turn")
	}
}

// turn is the working state of a single Turn call.
type turn struct {
	session *Session
	working []llm.Message
	result  TurnResult
}

func (t *turn) enter(state TurnState) {
	t.session.setState(state)
	t.result.States = append(t.result.States, state)
}

func (t *turn) addUsage(u provider.Usage) {
	t.result.Usage = t.result.Usage.Add(u)
}

func (t *turn) run(ctx context.Context) error {
	s := t.session

	t.enter(StateAwaitingReply)
	resp, err := s.model.CallMessages(ctx, t.working, s.options(
		llm.WithTools(s.catalog.All()...),
		llm.WithToolChoice(provider.ToolChoiceAuto),
		llm.WithTemperature(s.temperature),
	)...)
	if err != nil {
		return err
	}
	t.addUsage(resp.Usage())
	t.working = resp.Messages()

	if !resp.HasToolCalls() {
		t.result.Reply = resp.Text()
		t.enter(StateDone)
		return nil
	}

	t.enter(StateExecutingTools)
	for _, call := range resp.ToolCalls() {
		if err := ctx.Err(); err != nil {
			return err
		}
		inv, content := t.invoke(ctx, call)
		t.result.Invocations = append(t.result.Invocations, inv)
		t.working = append(t.working, llm.ToolMessage(call.ID, call.Name, content))
	}

	t.enter(StateAwaitingFinalReply)
	final, err := s.model.CallMessages(ctx, t.working, s.options(
		llm.WithoutTools(),
		llm.WithTemperature(s.finalTemperature),
	)...)
	if err != nil {
		return err
	}
	t.addUsage(final.Usage())
	t.working = final.Messages()
	t.result.Reply = final.Text()
	t.enter(StateDone)
	return nil
}

// options returns the session's call options followed by pass.
func (s *Session) options(pass ...llm.Option) []llm.Option {
	return append(append([]llm.Option(nil), s.callOpts...), pass...)
}

// invoke prepares and executes one proposed call. It returns the
// invocation record and the tool-result content. Every failure is
// reported in both and never aborts the turn.
func (t *turn) invoke(ctx context.Context, call llm.ToolCall) (Invocation, string) {
	s := t.session
	inv := Invocation{
		CallID:    call.ID,
		Name:      call.Name,
		Timestamp: s.now(),
	}
	log := s.logger.With().Str("tool", call.Name).Str("call_id", call.ID).Logger()

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		inv.Error = fmt.Sprintf("❌ %s: Invalid JSON arguments: %v", call.Name, err)
		log.Warn().Err(err).Msg("chat: malformed arguments")
		return inv, inv.Error
	}
	if v, ok := args[LegacyAppIDKey]; ok {
		delete(args, LegacyAppIDKey)
		args[argprep.FieldApplicationID] = v
	}
	inv.Arguments = args

	tool, ok := s.catalog.Get(call.Name)
	if !ok {
		inv.Error = (&llm.ToolNotFoundError{Name: call.Name}).Error()
		log.Warn().Msg("chat: unknown tool")
		return inv, errorContent(inv.Error)
	}

	prepared := s.preparer.PrepareRaw(tool.Parameters(), args, call.Name)
	inv.Warnings = prepared.Warnings
	if !prepared.Success {
		inv.Error = validationMessage(call.Name, prepared.MissingFields, prepared.Errors)
		log.Warn().Strs("missing", prepared.MissingFields).Strs("errors", prepared.Errors).Msg("chat: arguments rejected")
		return inv, inv.Error
	}
	for _, w := range prepared.Warnings {
		log.Info().Msg(w)
	}
	inv.Arguments = prepared.Arguments

	raw, err := json.Marshal(prepared.Arguments)
	if err != nil {
		inv.Error = fmt.Sprintf("encoding arguments: %v", err)
		return inv, errorContent(inv.Error)
	}

	start := time.Now()
	out, err := s.catalog.Execute(ctx, call.Name, raw)
	inv.Duration = time.Since(start)
	if err != nil {
		inv.Error = err.Error()
		log.Warn().Err(err).Dur("elapsed", inv.Duration).Msg("chat: tool failed")
		return inv, errorContent(inv.Error)
	}

	content, err := Serialize(out)
	if err != nil {
		inv.Error = err.Error()
		log.Warn().Err(err).Msg("chat: serializing result")
		return inv, errorContent(inv.Error)
	}
	inv.Result = content
	inv.Success = true
	log.Info().Dur("elapsed", inv.Duration).Msg("chat: tool executed")
	return inv, content
}

// decodeArguments parses the JSON-encoded arguments of a call. Empty
// arguments decode to an empty set.
func decodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
