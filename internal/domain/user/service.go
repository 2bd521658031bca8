package user

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/storage"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/apperrors"
)

// Service persists and resolves users through the storage port.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService constructs a Service over the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Register creates a local-credential user. The email must not already be
// registered; the password is stored as a bcrypt hash.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, apperrors.New(apperrors.TypeValidation, "name, email and password are required")
	}

	users := s.loadUsers(ctx)
	for _, existing := range users {
		if existing.Email == email {
			return nil, apperrors.New(apperrors.TypeConflict, "email already in use")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "hash password", err)
	}

	created := s.now()
	newUser := User{
		ID:           strconv.FormatInt(created.UnixMilli(), 10),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    created,
	}

	users = append(users, newUser)
	if err := s.saveUsers(ctx, users); err != nil {
		return nil, err
	}
	if err := s.setCurrent(ctx, newUser); err != nil {
		return nil, err
	}
	return &newUser, nil
}

// Login resolves a local user by email and password. Unknown emails and
// wrong passwords return the same error so neither leaks account existence.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	for _, candidate := range s.loadUsers(ctx) {
		if candidate.Email != email || candidate.IsGoogleUser {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(candidate.PasswordHash), []byte(password)) != nil {
			break
		}
		if err := s.setCurrent(ctx, candidate); err != nil {
			return nil, err
		}
		return &candidate, nil
	}
	return nil, apperrors.New(apperrors.TypeUnauthorized, "invalid email or password")
}

// EnsureGoogleUser upserts a user record for a verified Google identity,
// keyed by the provider subject.
func (s *Service) EnsureGoogleUser(ctx context.Context, identity Identity) (*User, error) {
	if identity.Subject == "" {
		return nil, apperrors.New(apperrors.TypeValidation, "identity subject is required")
	}

	googleUser := User{
		ID:           identity.Subject,
		Name:         identity.Name,
		Email:        strings.ToLower(identity.Email),
		Picture:      identity.Picture,
		IsGoogleUser: true,
		CreatedAt:    s.now(),
	}

	users := s.loadUsers(ctx)
	replaced := false
	for i, existing := range users {
		if existing.ID == googleUser.ID {
			googleUser.CreatedAt = existing.CreatedAt
			users[i] = googleUser
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, googleUser)
	}

	if err := s.saveUsers(ctx, users); err != nil {
		return nil, err
	}
	if err := s.setCurrent(ctx, googleUser); err != nil {
		return nil, err
	}
	return &googleUser, nil
}

// Current returns the signed-in user, or nil when nobody is signed in.
func (s *Service) Current(ctx context.Context) (*User, error) {
	raw, ok, err := s.store.Get(ctx, storage.CurrentUserKey())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeStorage, "load current user", err)
	}
	if !ok {
		return nil, nil
	}

	var current User
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		lg := logger.GetLogger()
		lg.Warn().Err(err).Msg("discarding corrupted current user entry")
		return nil, nil
	}
	return &current, nil
}

// Logout clears the signed-in user.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, storage.CurrentUserKey()); err != nil {
		return apperrors.Wrap(apperrors.TypeStorage, "clear current user", err)
	}
	return nil
}

// loadUsers reads the registered user list, treating a missing or
// corrupted entry as empty.
func (s *Service) loadUsers(ctx context.Context) []User {
	raw, ok, err := s.store.Get(ctx, storage.UsersKey())
	if err != nil || !ok {
		if err != nil {
			lg := logger.GetLogger()
			lg.Warn().Err(err).Msg("load users")
		}
		return nil
	}

	var users []User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		lg := logger.GetLogger()
		lg.Warn().Err(err).Msg("discarding corrupted users entry")
		return nil
	}
	return users
}

func (s *Service) saveUsers(ctx context.Context, users []User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return apperrors.Wrap(apperrors.TypeInternal, "encode users", err)
	}
	if err := s.store.Set(ctx, storage.UsersKey(), string(raw)); err != nil {
		return apperrors.Wrap(apperrors.TypeStorage, "persist users", err)
	}
	return nil
}

func (s *Service) setCurrent(ctx context.Context, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return apperrors.Wrap(apperrors.TypeInternal, "encode current user", err)
	}
	if err := s.store.Set(ctx, storage.CurrentUserKey(), string(raw)); err != nil {
		return apperrors.Wrap(apperrors.TypeStorage, "persist current user", err)
	}
	return nil
}
