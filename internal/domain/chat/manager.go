package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/storage"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/apperrors"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/stringutils"
)

// Manager performs thread CRUD over the storage port. Every mutating
// operation persists the full thread list for the user before returning.
type Manager struct {
	store storage.Store
	now   func() time.Time
}

// NewManager constructs a Manager over the given store.
func NewManager(store storage.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// ListThreads loads the user's threads, newest first as stored. A missing
// or corrupted entry yields an empty list.
func (m *Manager) ListThreads(ctx context.Context, userID string) []Thread {
	raw, ok, err := m.store.Get(ctx, storage.ThreadsKey(userID))
	if err != nil || !ok {
		if err != nil {
			lg := logger.GetLogger()
			lg.Warn().Err(err).Str("user", userID).Msg("load threads")
		}
		return nil
	}

	var threads []Thread
	if err := json.Unmarshal([]byte(raw), &threads); err != nil {
		lg := logger.GetLogger()
		lg.Warn().Err(err).Str("user", userID).Msg("discarding corrupted thread list")
		return nil
	}
	return threads
}

// CreateThread deactivates every existing thread, inserts a fresh one at
// the head marked new and active, persists the list and seeds the thread
// with the assistant greeting. It returns the thread and its messages.
func (m *Manager) CreateThread(ctx context.Context, userID string) (Thread, []Message, error) {
	threads := m.ListThreads(ctx, userID)
	for i := range threads {
		threads[i].IsActive = false
	}

	created := m.now()
	thread := Thread{
		ID:        m.uniqueThreadID(threads, created.UnixMilli()),
		Title:     NewThreadTitle,
		Preview:   NewThreadPreview,
		Timestamp: created,
		IsActive:  true,
		IsNew:     true,
	}
	threads = append([]Thread{thread}, threads...)

	greeting := NewMessage(created.UnixMilli(), Greeting, true, created)
	messages := []Message{greeting}

	if err := m.SaveMessages(ctx, userID, thread.ID, messages); err != nil {
		return Thread{}, nil, err
	}
	if err := m.saveThreads(ctx, userID, threads); err != nil {
		return Thread{}, nil, err
	}
	return thread, messages, nil
}

// SelectThread marks exactly the given thread active, persists the flag
// change and returns the thread with its messages.
func (m *Manager) SelectThread(ctx context.Context, userID string, threadID int64) (Thread, []Message, error) {
	threads := m.ListThreads(ctx, userID)

	var selected *Thread
	for i := range threads {
		threads[i].IsActive = threads[i].ID == threadID
		if threads[i].IsActive {
			selected = &threads[i]
		}
	}
	if selected == nil {
		return Thread{}, nil, apperrors.New(apperrors.TypeNotFound, "thread not found")
	}

	if err := m.saveThreads(ctx, userID, threads); err != nil {
		return Thread{}, nil, err
	}
	return *selected, m.LoadMessages(ctx, userID, threadID), nil
}

// DeleteThread removes the thread and its message collection. When the
// deleted thread was active the first remaining thread takes over; when
// none remain a fresh thread is created. The newly active thread and its
// messages are returned.
func (m *Manager) DeleteThread(ctx context.Context, userID string, threadID int64) (Thread, []Message, error) {
	threads := m.ListThreads(ctx, userID)

	wasActive := false
	remaining := threads[:0]
	for _, t := range threads {
		if t.ID == threadID {
			wasActive = t.IsActive
			continue
		}
		remaining = append(remaining, t)
	}

	if err := m.store.Delete(ctx, storage.MessagesKey(userID, threadID)); err != nil {
		return Thread{}, nil, apperrors.Wrap(apperrors.TypeStorage, "delete thread messages", err)
	}
	if err := m.saveThreads(ctx, userID, remaining); err != nil {
		return Thread{}, nil, err
	}

	if len(remaining) == 0 {
		return m.CreateThread(ctx, userID)
	}
	if wasActive {
		return m.SelectThread(ctx, userID, remaining[0].ID)
	}

	for _, t := range remaining {
		if t.IsActive {
			return t, m.LoadMessages(ctx, userID, t.ID), nil
		}
	}
	return m.SelectThread(ctx, userID, remaining[0].ID)
}

// UpdatePreview truncates content into the thread's preview and refreshes
// its activity timestamp. Unknown threads are a silent no-op.
func (m *Manager) UpdatePreview(ctx context.Context, userID string, threadID int64, content string) error {
	threads := m.ListThreads(ctx, userID)
	for i := range threads {
		if threads[i].ID != threadID {
			continue
		}
		threads[i].Preview = stringutils.TruncatePreview(content)
		threads[i].Timestamp = m.now()
		return m.saveThreads(ctx, userID, threads)
	}
	return nil
}

// SetTitle stores a generated title and clears the thread's new flag.
// Unknown threads are a silent no-op.
func (m *Manager) SetTitle(ctx context.Context, userID string, threadID int64, title string) error {
	threads := m.ListThreads(ctx, userID)
	for i := range threads {
		if threads[i].ID != threadID {
			continue
		}
		threads[i].Title = title
		threads[i].IsNew = false
		return m.saveThreads(ctx, userID, threads)
	}
	return nil
}

// LoadMessages reads one thread's messages in append order, treating a
// missing or corrupted entry as empty.
func (m *Manager) LoadMessages(ctx context.Context, userID string, threadID int64) []Message {
	raw, ok, err := m.store.Get(ctx, storage.MessagesKey(userID, threadID))
	if err != nil || !ok {
		if err != nil {
			lg := logger.GetLogger()
			lg.Warn().Err(err).Str("user", userID).Int64("thread", threadID).Msg("load messages")
		}
		return nil
	}

	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		lg := logger.GetLogger()
		lg.Warn().Err(err).Str("user", userID).Int64("thread", threadID).Msg("discarding corrupted message list")
		return nil
	}
	return messages
}

// SaveMessages persists one thread's full message list.
func (m *Manager) SaveMessages(ctx context.Context, userID string, threadID int64, messages []Message) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return apperrors.Wrap(apperrors.TypeInternal, "encode messages", err)
	}
	if err := m.store.Set(ctx, storage.MessagesKey(userID, threadID), string(raw)); err != nil {
		return apperrors.Wrap(apperrors.TypeStorage, "persist messages", err)
	}
	return nil
}

func (m *Manager) saveThreads(ctx context.Context, userID string, threads []Thread) error {
	raw, err := json.Marshal(threads)
	if err != nil {
		return apperrors.Wrap(apperrors.TypeInternal, "encode threads", err)
	}
	if err := m.store.Set(ctx, storage.ThreadsKey(userID), string(raw)); err != nil {
		return apperrors.Wrap(apperrors.TypeStorage, "persist threads", err)
	}
	return nil
}

// uniqueThreadID bumps a millisecond timestamp past any collision with an
// existing thread, which matters when threads are created within the same
// millisecond.
func (m *Manager) uniqueThreadID(existing []Thread, candidate int64) int64 {
	for {
		collision := false
		for _, t := range existing {
			if t.ID == candidate {
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
