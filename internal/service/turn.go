package service

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/qmuntal/stateless"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiaot623/gogo/chatstream/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

// Turn states.
const (
	stateAuthorizing           = "Authorizing"
	statePersistingUserMessage = "PersistingUserMessage"
	stateStreaming             = "Streaming"
	stateFinalizing            = "Finalizing"
	stateClosed                = "Closed"
)

// Turn triggers.
const (
	triggerAuthorized           = "authorized"
	triggerUserMessagePersisted = "userMessagePersisted"
	triggerStreamEnded          = "streamEnded"
	triggerFinalized            = "finalized"
	triggerFail                 = "fail"
)

func newTurnMachine(logger zerolog.Logger) *stateless.StateMachine {
	sm := stateless.NewStateMachine(stateAuthorizing)

	sm.Configure(stateAuthorizing).
		Permit(triggerAuthorized, statePersistingUserMessage).
		Permit(triggerFail, stateClosed)
	sm.Configure(statePersistingUserMessage).
		Permit(triggerUserMessagePersisted, stateStreaming).
		Permit(triggerFail, stateClosed)
	sm.Configure(stateStreaming).
		Permit(triggerStreamEnded, stateFinalizing).
		Permit(triggerFail, stateClosed)
	sm.Configure(stateFinalizing).
		Permit(triggerFinalized, stateClosed).
		Permit(triggerFail, stateClosed)

	sm.OnTransitioned(func(_ context.Context, tr stateless.Transition) {
		logger.Debug().
			Str("from", fmt.Sprint(tr.Source)).
			Str("to", fmt.Sprint(tr.Destination)).
			Str("trigger", fmt.Sprint(tr.Trigger)).
			Msg("turn state changed")
	})
	return sm
}

// EventSink receives the events of a streaming turn. A Send error means the
// client has gone away.
type EventSink interface {
	Send(event domain.StreamEvent) error
}

// TurnRequest describes one chat turn.
type TurnRequest struct {
	CallerID    string
	SessionID   string
	Model       string
	Messages    []domain.ChatMessage
	Temperature *float64
}

// Result summarizes a finished turn.
type Result struct {
	Outcome   domain.TurnOutcome
	MessageID string
	Content   string
	Source    string
	Fragments int
	// Err is set for failed turns.
	Err error
}

// Turn is a chat turn whose user message has been persisted and whose reply
// has yet to be streamed.
type Turn struct {
	svc         *Service
	fsm         *stateless.StateMachine
	logger      zerolog.Logger
	span        trace.Span
	callerID    string
	session     *domain.Session
	model       string
	temperature float64
	history     []domain.ChatMessage
}

// BeginTurn authorizes the caller against the session and model, then
// persists the latest user message, empty when the history has none. Errors
// returned here happen before any streaming and nothing of the turn is stored
// unless the user message was.
func (s *Service) BeginTurn(ctx context.Context, req TurnRequest) (*Turn, error) {
	logger := s.logger.With().Str("session_id", req.SessionID).Str("caller_id", req.CallerID).Logger()
	ctx, span := s.tracer.Start(ctx, "chat.turn", trace.WithAttributes(attribute.String("session.id", req.SessionID)))

	t := &Turn{
		svc:      s,
		fsm:      newTurnMachine(logger),
		logger:   logger,
		span:     span,
		callerID: req.CallerID,
		history:  req.Messages,
	}

	if err := t.authorize(ctx, req); err != nil {
		t.abort(err)
		return nil, err
	}
	t.fire(triggerAuthorized)

	if err := t.persistUserMessage(ctx); err != nil {
		t.abort(err)
		return nil, err
	}
	t.fire(triggerUserMessagePersisted)
	return t, nil
}

func (t *Turn) authorize(ctx context.Context, req TurnRequest) error {
	s := t.svc
	if req.CallerID == "" {
		return domain.ErrUnauthenticated
	}

	session, err := s.store.FindSession(ctx, req.SessionID, req.CallerID)
	if err != nil {
		return fmt.Errorf("%w: failed to get session: %v", domain.ErrPersistence, err)
	}
	if session == nil {
		return domain.ErrSessionNotFound
	}
	t.session = session

	t.model = firstNonEmpty(req.Model, session.Model, s.config.DefaultModel)
	allowed, err := s.policyEngine.AllowModel(ctx, req.CallerID, t.model)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s", domain.ErrModelNotAllowed, t.model)
	}

	t.temperature = s.config.DefaultTemperature
	if req.Temperature != nil {
		t.temperature = *req.Temperature
	}
	t.span.SetAttributes(attribute.String("chat.model", t.model))
	return nil
}

func (t *Turn) persistUserMessage(ctx context.Context) error {
	s := t.svc
	msg := &domain.Message{
		ID:        newID(),
		OwnerID:   t.callerID,
		SessionID: t.session.ID,
		Role:      domain.RoleUser,
		Content:   domain.LastUserContent(t.history),
		CreatedAt: s.now(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("%w: failed to save user message: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Stream produces the reply, forwarding each fragment to sink, then persists
// it. Every failure from here on is reported in-band. A disconnected client
// gets no further events but the partial reply is still stored.
func (t *Turn) Stream(ctx context.Context, sink EventSink) Result {
	s := t.svc
	defer t.span.End()
	ctx = trace.ContextWithSpan(ctx, t.span)

	start := time.Now()
	s.metrics.TurnStarted()

	streamCtx := ctx
	if d := s.config.TurnMaxDuration(); d > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	st := &streamState{start: start}
	t.streamReply(ctx, streamCtx, sink, st)
	t.fire(triggerStreamEnded)

	res := t.finalize(ctx, sink, st)
	s.metrics.TurnFinished(res.Outcome, start)

	t.span.SetAttributes(
		attribute.String("chat.source", res.Source),
		attribute.Int("chat.fragments", res.Fragments),
		attribute.String("chat.outcome", string(res.Outcome)),
	)
	if res.Err != nil {
		t.span.SetStatus(codes.Error, res.Err.Error())
	}
	t.logger.Info().
		Str("outcome", string(res.Outcome)).
		Str("source", res.Source).
		Int("fragments", res.Fragments).
		Dur("duration", time.Since(start)).
		Msg("turn finished")
	return res
}

// streamState accumulates what the client has been sent.
type streamState struct {
	start        time.Time
	content      strings.Builder
	fragments    int
	source       string
	disconnected bool
	timedOut     bool
	failure      error
}

// streamReply pulls from the primary source and, if it fails, from the
// fallback for the rest of the turn. The fallback replaces at most one failure.
func (t *Turn) streamReply(ctx, streamCtx context.Context, sink EventSink, st *streamState) {
	for i, src := range t.svc.replyChain() {
		if i > 0 {
			t.svc.metrics.Fallback()
			t.logger.Warn().Err(st.failure).Str("source", src.Name()).Msg("reply source failed, switching to fallback")
		}
		st.source = src.Name()
		st.failure = t.pull(ctx, streamCtx, src, sink, st)
		if st.failure == nil || st.disconnected || st.timedOut {
			return
		}
	}
}

// pull forwards fragments from src until it ends, fails, or the turn is
// interrupted. Disconnect is checked before every pull.
func (t *Turn) pull(ctx, streamCtx context.Context, src llm.ReplySource, sink EventSink, st *streamState) error {
	next, stop := iter.Pull2(src.Produce(streamCtx, t.history, t.model, t.temperature))
	defer stop()

	for {
		if interrupted(ctx, streamCtx, st) {
			return nil
		}
		frag, err, ok := next()
		if !ok {
			// Sources may end quietly when their context is done.
			interrupted(ctx, streamCtx, st)
			return nil
		}
		if err != nil {
			if interrupted(ctx, streamCtx, st) {
				return nil
			}
			return err
		}
		if frag == "" {
			continue
		}
		if err := sink.Send(domain.ChunkEvent(frag)); err != nil {
			t.logger.Debug().Err(err).Msg("client write failed")
			st.disconnected = true
			return nil
		}
		if st.fragments == 0 {
			t.svc.metrics.FirstFragment(st.start)
		}
		st.content.WriteString(frag)
		st.fragments++
		t.svc.metrics.Fragment(src.Name())
	}
}

func interrupted(ctx, streamCtx context.Context, st *streamState) bool {
	switch {
	case ctx.Err() != nil:
		st.disconnected = true
	case streamCtx.Err() != nil:
		st.timedOut = true
	default:
		return false
	}
	return true
}

// finalize stores the assistant message exactly once and sends the closing
// event. Persistence ignores cancellation of ctx.
func (t *Turn) finalize(ctx context.Context, sink EventSink, st *streamState) Result {
	s := t.svc
	persistCtx := context.WithoutCancel(ctx)
	res := Result{Content: st.content.String(), Source: st.source, Fragments: st.fragments}

	msg := &domain.Message{
		ID:        newID(),
		OwnerID:   t.callerID,
		SessionID: t.session.ID,
		Role:      domain.RoleAssistant,
		Content:   res.Content,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertMessage(persistCtx, msg); err != nil {
		t.logger.Error().Err(err).Msg("failed to persist assistant message")
		t.fire(triggerFail)
		res.Outcome = domain.TurnOutcomeFailed
		res.Err = fmt.Errorf("%w: failed to save assistant message: %v", domain.ErrPersistence, err)
		if !st.disconnected {
			t.send(sink, domain.ErrorEvent("failed to save assistant reply"))
		}
		return res
	}
	res.MessageID = msg.ID
	t.touchSession(persistCtx)
	t.fire(triggerFinalized)

	switch {
	case st.disconnected:
		res.Outcome = domain.TurnOutcomeDisconnected
	case st.timedOut:
		res.Outcome = domain.TurnOutcomeFailed
		res.Err = domain.ErrTurnTimeout
		t.send(sink, domain.ErrorEvent(domain.ErrTurnTimeout.Error()))
	case st.failure != nil:
		res.Outcome = domain.TurnOutcomeFailed
		res.Err = st.failure
		t.send(sink, domain.ErrorEvent("reply generation failed: "+st.failure.Error()))
	default:
		res.Outcome = domain.TurnOutcomeCompleted
		t.send(sink, domain.EndEvent(msg.ID))
	}
	return res
}

func (t *Turn) touchSession(ctx context.Context) {
	t.session.UpdatedAt = t.svc.now()
	if err := t.svc.store.UpdateSession(ctx, t.session); err != nil {
		t.logger.Warn().Err(err).Msg("failed to refresh session timestamp")
	}
}

func (t *Turn) send(sink EventSink, event domain.StreamEvent) {
	if err := sink.Send(event); err != nil {
		t.logger.Debug().Err(err).Str("type", string(event.Type)).Msg("client write failed")
	}
}

func (t *Turn) fire(trigger string) {
	if err := t.fsm.Fire(trigger); err != nil {
		t.logger.Error().Err(err).Str("trigger", trigger).Msg("invalid turn transition")
	}
}

// abort closes a turn that failed before streaming.
func (t *Turn) abort(err error) {
	t.fire(triggerFail)
	t.span.SetStatus(codes.Error, err.Error())
	t.span.End()
	t.logger.Debug().Err(err).Msg("turn rejected")
}

// State reports the turn's current state.
func (t *Turn) State() string {
	return fmt.Sprint(t.fsm.MustState())
}

func (s *Service) replyChain() []llm.ReplySource {
	if s.sources.Fallback == nil || s.sources.Fallback == s.sources.Primary {
		return []llm.ReplySource{s.sources.Primary}
	}
	return []llm.ReplySource{s.sources.Primary, s.sources.Fallback}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
