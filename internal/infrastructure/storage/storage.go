// Package storage defines the key-value port that holds all chat state,
// plus the backends that satisfy it. Keys are namespaced per user and per
// thread; values are JSON-encoded by the callers.
package storage

import (
	"context"
	"fmt"
)

// Store is the persistence port. A missing key is not an error: Get
// reports presence through its second return value.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Key namespace, kept byte-compatible with the browser client's
// localStorage layout so existing data can be migrated verbatim.

// UsersKey holds the JSON array of registered local-credential users.
func UsersKey() string { return "users" }

// CurrentUserKey holds the JSON-encoded signed-in user.
func CurrentUserKey() string { return "currentUser" }

// ThreadsKey holds the JSON array of a user's threads, newest first.
func ThreadsKey(userID string) string {
	return fmt.Sprintf("chat_threads_%s", userID)
}

// MessagesKey holds the JSON array of one thread's messages in append order.
func MessagesKey(userID string, threadID int64) string {
	return fmt.Sprintf("chat_messages_%s_%d", userID, threadID)
}

// ModelKey holds the user's selected completion model.
func ModelKey(userID string) string {
	return fmt.Sprintf("selected_model_%s", userID)
}
