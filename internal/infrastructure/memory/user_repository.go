package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"amanah/internal/domain/user"
)

type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateParams) (*user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if _, exists := s.usersByEmail[email]; exists {
		return nil, user.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:           s.nextUserID,
		Email:        email,
		Name:         params.Name,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.nextUserID++
	s.users[u.ID] = u
	s.usersByEmail[email] = u.ID

	return cloneUser(u), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
