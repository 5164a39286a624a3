// Package capture implements the per-tab conversation state machine that
// chats with a visitor and, after enough engagement, collects their name,
// email and phone before resuming the conversation.
package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"funnel_backend/internal/identity"
	"funnel_backend/internal/transcript"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"
	"funnel_backend/platform/sanitize"

	"github.com/google/uuid"
)

const defaultCaptureAfterTurns = 2

// Config describes the task a session runs for.
type Config struct {
	TaskID          uuid.UUID
	Script          string
	OpeningQuestion string
	// Profile keys the identity cache; empty disables it.
	Profile string
	// CaptureAfterTurns is the number of answered visitor turns before the
	// name prompt.
	CaptureAfterTurns int
}

// Deps are the session's collaborators. Cache and Metrics may be nil.
type Deps struct {
	Responder ChatResponder
	Resolver  LeadResolver
	Saver     ConversationSaver
	Cache     IdentityCache
	Metrics   *metrics.Recorder
}

// Output is the state after handling one input.
type Output struct {
	Transcript transcript.Transcript
	// Notice is a transient message for the visitor that is not part of the
	// transcript.
	Notice string
	Stage  Stage
	LeadID uuid.UUID
}

// Session is one tab's conversation. Inputs are handled one at a time.
type Session struct {
	cfg     Config
	deps    Deps
	log     *logger.Logger
	prompts prompts
	saves   *saveQueue

	mu          sync.Mutex
	tr          transcript.Transcript
	stage       Stage
	identity    Identity
	cachedReply string

	leadID atomic.Pointer[uuid.UUID]
}

func NewSession(cfg Config, deps Deps, log *logger.Logger) *Session {
	if cfg.CaptureAfterTurns <= 0 {
		cfg.CaptureAfterTurns = defaultCaptureAfterTurns
	}
	s := &Session{
		cfg:     cfg,
		deps:    deps,
		log:     &logger.Logger{Logger: log.With(slog.String("task_id", cfg.TaskID.String()))},
		prompts: defaultPrompts,
		stage:   StageFreeChat,
	}
	if deps.Saver != nil {
		s.saves = newSaveQueue(deps.Saver, log)
	}
	return s
}

// Start appends the opening question and, when the identity cache already
// knows this profile, skips capture entirely.
func (s *Session) Start(ctx context.Context) Output {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q := strings.TrimSpace(s.cfg.OpeningQuestion); q != "" && len(s.tr) == 0 {
		s.tr = append(s.tr, transcript.Message{Speaker: transcript.SpeakerAgent, Text: q})
	}
	s.deps.Metrics.StageEntered(string(StageFreeChat))

	if s.deps.Cache != nil && s.cfg.Profile != "" {
		cached, ok, err := s.deps.Cache.Get(ctx, s.cfg.Profile)
		if err != nil {
			s.log.Warn("identity cache read failed", slog.String("error", err.Error()))
		} else if ok && usable(cached) {
			s.fastPath(ctx, cached)
		}
	}
	return s.output("")
}

// Adopt takes an identity the browser kept from an earlier visit. It has no
// effect once the session has an identity or when id is incomplete.
func (s *Session) Adopt(ctx context.Context, id Identity) Output {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage == StageDone || !usable(id) {
		return s.output("")
	}
	s.fastPath(ctx, id)
	s.putCache(ctx)
	return s.output("")
}

// usable reports whether id may skip capture. Cached and browser identities
// pass the same checks the capture prompts apply.
func usable(id Identity) bool {
	return id.Complete() && identity.IsValidEmail(id.Email) && identity.IsValidPhone(id.Phone)
}

func (s *Session) fastPath(ctx context.Context, id Identity) {
	s.identity = id
	s.setStage(StageDone)
	s.resolveLead(ctx)
}

// Submit handles one visitor message.
func (s *Session) Submit(ctx context.Context, text string) Output {
	text = sanitize.Text(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.stage {
	case StageAskName:
		return s.handleName(text)
	case StageAskEmail:
		return s.handleEmail(text)
	case StageAskPhone:
		return s.handlePhone(ctx, text)
	default:
		return s.handleChat(ctx, text)
	}
}

func (s *Session) handleChat(ctx context.Context, text string) Output {
	if text == "" {
		return s.output("")
	}

	history := s.tr.Clone()
	s.tr = append(s.tr, transcript.Message{Speaker: transcript.SpeakerVisitor, Text: text})

	reply, err := s.deps.Responder.Reply(ctx, s.cfg.Script, history, text)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errEmptyReply
	}
	if err != nil {
		s.tr = s.tr[:len(s.tr)-1]
		s.log.Warn("chat responder failed", slog.String("error", err.Error()))
		return s.output(s.prompts.ResponderUnavailable)
	}
	reply = strings.TrimSpace(reply)
	s.tr = append(s.tr, transcript.Message{Speaker: transcript.SpeakerAgent, Text: reply})

	switch {
	case s.stage == StageDone:
		s.save()
	case s.tr.VisitorTurns() >= s.cfg.CaptureAfterTurns:
		s.cachedReply = reply
		s.ask(s.prompts.AskName)
		s.setStage(StageAskName)
	}
	return s.output("")
}

func (s *Session) handleName(text string) Output {
	if text == "" {
		s.ask(s.prompts.RetryName)
		return s.output("")
	}
	name := sanitize.Line(text)
	s.answer(name)
	s.identity.Name = name
	s.ask(s.prompts.askEmail(name))
	s.setStage(StageAskEmail)
	return s.output("")
}

func (s *Session) handleEmail(text string) Output {
	s.answer(text)
	if !identity.IsValidEmail(text) {
		s.ask(s.prompts.RetryEmail)
		return s.output("")
	}
	s.identity.Email = text
	s.ask(s.prompts.AskPhone)
	s.setStage(StageAskPhone)
	return s.output("")
}

func (s *Session) handlePhone(ctx context.Context, text string) Output {
	s.answer(text)
	if !identity.IsValidPhone(text) {
		s.ask(s.prompts.RetryPhone)
		return s.output("")
	}
	s.identity.Phone = text

	s.resolveLead(ctx)
	s.putCache(ctx)
	s.setStage(StageDone)
	s.appendCachedReply()
	s.save()
	return s.output(s.prompts.Thanks)
}

// resolveLead asks the resolver for the lead, falls back to a direct match
// and otherwise leaves the session without a lead.
func (s *Session) resolveLead(ctx context.Context) {
	if s.deps.Resolver == nil {
		return
	}
	id, err := s.deps.Resolver.Resolve(ctx, s.cfg.TaskID, s.identity)
	if err != nil || id == uuid.Nil {
		if err != nil {
			s.log.Warn("lead resolve failed, trying direct match", slog.String("error", err.Error()))
		}
		id, err = s.deps.Resolver.FindByIdentity(ctx, s.cfg.TaskID, s.identity)
		if err != nil {
			s.log.Warn("lead lookup failed, continuing without lead", slog.String("error", err.Error()))
			return
		}
		if id == uuid.Nil {
			s.log.Warn("no lead for identity, continuing without lead")
			return
		}
	}
	s.leadID.Store(&id)
}

func (s *Session) putCache(ctx context.Context) {
	if s.deps.Cache == nil || s.cfg.Profile == "" {
		return
	}
	if err := s.deps.Cache.Put(ctx, s.cfg.Profile, s.identity); err != nil {
		s.log.Warn("identity cache write failed", slog.String("error", err.Error()))
	}
}

// appendCachedReply re-shows the reply the name prompt interrupted. It never
// duplicates an identical last entry.
func (s *Session) appendCachedReply() {
	if s.cachedReply == "" {
		return
	}
	if last, ok := s.tr.Last(); ok && last.Speaker == transcript.SpeakerAgent && last.Text == s.cachedReply {
		return
	}
	s.tr = append(s.tr, transcript.Message{Speaker: transcript.SpeakerAgent, Text: s.cachedReply, Capture: true})
}

func (s *Session) ask(text string) {
	s.tr = append(s.tr, transcript.Message{Speaker: transcript.SpeakerAgent, Text: text, Capture: true})
}

func (s *Session) answer(text string) {
	if text == "" {
		return
	}
	s.tr = append(s.tr, transcript.Message{Speaker: transcript.SpeakerVisitor, Text: text, Capture: true})
}

func (s *Session) setStage(stage Stage) {
	s.stage = stage
	s.deps.Metrics.StageEntered(string(stage))
}

func (s *Session) save() {
	leadID, ok := s.LeadID()
	if !ok || s.saves == nil {
		return
	}
	s.saves.enqueue(leadID, s.tr.Clone())
}

func (s *Session) output(notice string) Output {
	leadID, _ := s.LeadID()
	return Output{
		Transcript: s.tr.Clone(),
		Notice:     notice,
		Stage:      s.stage,
		LeadID:     leadID,
	}
}

// LeadID returns the resolved lead. Safe to call from any goroutine while
// an input is being handled.
func (s *Session) LeadID() (uuid.UUID, bool) {
	p := s.leadID.Load()
	if p == nil {
		return uuid.Nil, false
	}
	return *p, true
}

func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *Session) Transcript() transcript.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr.Clone()
}

// Close flushes the pending transcript save.
func (s *Session) Close() {
	if s.saves != nil {
		s.saves.close()
	}
}
