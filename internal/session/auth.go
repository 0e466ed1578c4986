package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"blogify/internal/api"
)

// ErrNotSignedIn is returned by operations that need a stored identity.
var ErrNotSignedIn = errors.New("not signed in")

// AuthAPI is the part of api.Client the session operations call.
type AuthAPI interface {
	Signup(ctx context.Context, name, email, password string) (*api.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*api.User, error)
	Stats(ctx context.Context) (*api.Stats, error)
}

// Auth runs account operations and keeps the Store in step with the server.
type Auth struct {
	api   AuthAPI
	store *Store
	log   *slog.Logger
}

// NewAuth creates the account operations over client and store.
func NewAuth(client AuthAPI, store *Store, log *slog.Logger) *Auth {
	if log == nil {
		log = slog.Default()
	}
	return &Auth{api: client, store: store, log: log}
}

func (a *Auth) Signup(ctx context.Context, name, email, password string) (*Identity, error) {
	resp, err := a.api.Signup(ctx, name, email, password)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return a.persist(resp)
}

func (a *Auth) Login(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := a.api.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return a.persist(resp)
}

// Logout revokes the token server-side when possible and always forgets it locally.
func (a *Auth) Logout(ctx context.Context) error {
	if a.store.Token() != "" {
		if err := a.api.Logout(ctx); err != nil {
			a.log.WarnContext(ctx, "token revocation failed", "error", err)
		}
	}
	return a.store.Clear()
}

// UpdateProfile changes the user's name, password or avatar and refreshes the stored identity.
func (a *Auth) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*Identity, error) {
	current := a.store.Current()
	if current == nil {
		return nil, ErrNotSignedIn
	}

	user, err := a.api.UpdateProfile(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	current.Name = user.Name
	current.Email = user.Email
	current.Avatar = user.Avatar
	if err := a.store.Save(*current); err != nil {
		return nil, err
	}
	return current, nil
}

func (a *Auth) Stats(ctx context.Context) (*api.Stats, error) {
	if a.store.Token() == "" {
		return nil, ErrNotSignedIn
	}
	stats, err := a.api.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

func (a *Auth) persist(resp *api.AuthResponse) (*Identity, error) {
	id := Identity{
		UserID: resp.User.ID,
		Name:   resp.User.Name,
		Email:  resp.User.Email,
		Avatar: resp.User.Avatar,
		Token:  resp.Token,
	}
	if err := a.store.Save(id); err != nil {
		return nil, err
	}
	return &id, nil
}
