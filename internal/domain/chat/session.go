package chat

import (
	"context"
	"time"

	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/storage"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/apperrors"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/stringutils"
)

// FallbackReply replaces a streamed response that failed mid-flight.
const FallbackReply = "Sorry, I encountered an error. Please try again."

// Session is the explicit state of one signed-in chat client: the thread
// list, the active thread's messages and the rendering filter. It is the
// single owner of this state; callers mutate it only through its methods.
// A Session assumes a single goroutine drives it, matching the original
// single-tab contract.
type Session struct {
	manager      *Manager
	store        storage.Store
	userID       string
	defaultModel string
	now          func() time.Time

	Threads        []Thread
	ActiveThreadID int64
	Messages       []Message
	Filter         string
	SearchTerm     string
	Model          string

	streamingID int64
}

// NewSession constructs a Session for the given user.
func NewSession(manager *Manager, store storage.Store, userID, defaultModel string) *Session {
	return &Session{
		manager:      manager,
		store:        store,
		userID:       userID,
		defaultModel: defaultModel,
		now:          time.Now,
		Filter:       FilterAll,
	}
}

// UserID returns the owning user's ID.
func (s *Session) UserID() string { return s.userID }

// Start loads persisted state: the model selection and the thread list.
// With no stored threads a fresh one is created; otherwise the previously
// active thread (or the newest) is selected.
func (s *Session) Start(ctx context.Context) error {
	s.loadModel(ctx)

	threads := s.manager.ListThreads(ctx, s.userID)
	if len(threads) == 0 {
		return s.NewThread(ctx)
	}

	active := threads[0].ID
	for _, t := range threads {
		if t.IsActive {
			active = t.ID
			break
		}
	}
	return s.Select(ctx, active)
}

// NewThread creates and activates a fresh thread.
func (s *Session) NewThread(ctx context.Context) error {
	thread, messages, err := s.manager.CreateThread(ctx, s.userID)
	if err != nil {
		return err
	}
	s.Threads = s.manager.ListThreads(ctx, s.userID)
	s.ActiveThreadID = thread.ID
	s.Messages = messages
	return nil
}

// Select activates the given thread and loads its messages.
func (s *Session) Select(ctx context.Context, threadID int64) error {
	_, messages, err := s.manager.SelectThread(ctx, s.userID, threadID)
	if err != nil {
		return err
	}
	s.Threads = s.manager.ListThreads(ctx, s.userID)
	s.ActiveThreadID = threadID
	s.Messages = messages
	return nil
}

// Delete removes a thread; the manager decides which thread becomes
// active afterwards (or creates one).
func (s *Session) Delete(ctx context.Context, threadID int64) error {
	active, messages, err := s.manager.DeleteThread(ctx, s.userID, threadID)
	if err != nil {
		return err
	}
	s.Threads = s.manager.ListThreads(ctx, s.userID)
	s.ActiveThreadID = active.ID
	s.Messages = messages
	return nil
}

// AppendMessage adds a message to the active thread, persists the thread's
// message list, refreshes the thread preview, and derives the thread title
// from the first user message of a new thread.
func (s *Session) AppendMessage(ctx context.Context, content string, isAssistant bool) (Message, error) {
	created := s.now()
	msg := NewMessage(s.uniqueMessageID(created.UnixMilli()), content, isAssistant, created)
	s.Messages = append(s.Messages, msg)

	if err := s.persistMessages(ctx); err != nil {
		return Message{}, err
	}
	if err := s.manager.UpdatePreview(ctx, s.userID, s.ActiveThreadID, content); err != nil {
		return Message{}, err
	}

	if !isAssistant {
		if thread := s.activeThread(); thread != nil && thread.IsNew && s.userMessageCount() == 1 {
			title := stringutils.GenerateTitle(content)
			if err := s.manager.SetTitle(ctx, s.userID, s.ActiveThreadID, title); err != nil {
				return Message{}, err
			}
		}
	}

	s.Threads = s.manager.ListThreads(ctx, s.userID)
	return msg, nil
}

// BeginStream appends an in-memory placeholder assistant message whose ID
// and timestamp stay fixed while streamed content accrues. The placeholder
// is not persisted until CompleteStream.
func (s *Session) BeginStream() Message {
	created := s.now()
	placeholder := Message{
		ID:          s.uniqueMessageID(created.UnixMilli()),
		IsAssistant: true,
		Timestamp:   created,
		Tags:        []string{},
	}
	s.Messages = append(s.Messages, placeholder)
	s.streamingID = placeholder.ID
	return placeholder
}

// AppendStreamContent concatenates a fragment onto the placeholder,
// causing incremental re-render in any observer of Messages.
func (s *Session) AppendStreamContent(fragment string) {
	for i := range s.Messages {
		if s.Messages[i].ID == s.streamingID {
			s.Messages[i].Content += fragment
			return
		}
	}
}

// CompleteStream finalizes the placeholder as an ordinary message: tags
// are derived from the full content and the thread state is persisted.
func (s *Session) CompleteStream(ctx context.Context) (Message, error) {
	idx := s.streamingIndex()
	if idx < 0 {
		return Message{}, apperrors.New(apperrors.TypeInternal, "no stream in progress")
	}
	s.streamingID = 0

	s.Messages[idx].Tags = DeriveTags(s.Messages[idx].Content, true)
	final := s.Messages[idx]

	if err := s.persistMessages(ctx); err != nil {
		return Message{}, err
	}
	if err := s.manager.UpdatePreview(ctx, s.userID, s.ActiveThreadID, final.Content); err != nil {
		return Message{}, err
	}
	s.Threads = s.manager.ListThreads(ctx, s.userID)
	return final, nil
}

// AbortStream discards the partial placeholder and appends the fixed
// fallback reply in its place.
func (s *Session) AbortStream(ctx context.Context) (Message, error) {
	if idx := s.streamingIndex(); idx >= 0 {
		s.Messages = append(s.Messages[:idx], s.Messages[idx+1:]...)
	}
	s.streamingID = 0
	return s.AppendMessage(ctx, FallbackReply, true)
}

// ToggleFavorite flips the favorite flag on a message and persists the
// change; unknown IDs are a silent no-op.
func (s *Session) ToggleFavorite(ctx context.Context, messageID int64) error {
	if !ToggleFavorite(s.Messages, messageID) {
		return nil
	}
	return s.persistMessages(ctx)
}

// FilteredMessages projects the active thread's messages through the
// session's filter and search term.
func (s *Session) FilteredMessages() []FilterResult {
	return FilterMessages(s.Messages, s.Filter, s.SearchTerm)
}

// SetModel records the completion model selection and persists it.
func (s *Session) SetModel(ctx context.Context, model string) error {
	s.Model = model
	if err := s.store.Set(ctx, storage.ModelKey(s.userID), model); err != nil {
		return apperrors.Wrap(apperrors.TypeStorage, "persist model selection", err)
	}
	return nil
}

func (s *Session) loadModel(ctx context.Context) {
	s.Model = s.defaultModel
	model, ok, err := s.store.Get(ctx, storage.ModelKey(s.userID))
	if err != nil {
		lg := logger.GetLogger()
		lg.Warn().Err(err).Msg("load model selection")
		return
	}
	if ok && model != "" {
		s.Model = model
	}
}

func (s *Session) activeThread() *Thread {
	for i := range s.Threads {
		if s.Threads[i].ID == s.ActiveThreadID {
			return &s.Threads[i]
		}
	}
	return nil
}

func (s *Session) userMessageCount() int {
	count := 0
	for _, msg := range s.Messages {
		if !msg.IsAssistant {
			count++
		}
	}
	return count
}

func (s *Session) streamingIndex() int {
	if s.streamingID == 0 {
		return -1
	}
	for i := range s.Messages {
		if s.Messages[i].ID == s.streamingID {
			return i
		}
	}
	return -1
}

func (s *Session) persistMessages(ctx context.Context) error {
	return s.manager.SaveMessages(ctx, s.userID, s.ActiveThreadID, s.Messages)
}

func (s *Session) uniqueMessageID(candidate int64) int64 {
	for {
		collision := false
		for _, msg := range s.Messages {
			if msg.ID == candidate {
				collision = true
				break
			}
		}
		if !collision {
			return candidate
		}
		candidate++
	}
}
