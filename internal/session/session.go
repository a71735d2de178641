// Package session tracks which identity, if any, is signed in on each device.
//
// Authentication itself is out of scope: signing in asserts an email address
// and derives a stable user id from it. The session is persisted in the
// device's local storage so it survives restarts.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/example/geolearn/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Key under which the session is stored in local storage
const Key = "geo-learning-session"

// userNamespace scopes the name-based user ids
var userNamespace = uuid.MustParse("6f1c2b0e-3a7d-5b8e-9c4f-0d2e1a3b4c5d")

// User is a signed-in identity
type User struct {
	ID    string `json:"id"`
	Email string `json:"email" validate:"required,email"`
}

// UserIDForEmail returns the stable id of the identity owning email
func UserIDForEmail(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(normalizeEmail(email))).String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ChangeFunc is called after the identity of a device changes. user is nil on sign-out.
type ChangeFunc func(device string, user *User)

// Provider supplies the current user of every device and announces changes
type Provider struct {
	storeFor func(device string) storage.KeyValueStore
	validate *validator.Validate

	mu        sync.Mutex
	listeners []ChangeFunc
}

// NewProvider creates a provider persisting sessions through storeFor
func NewProvider(storeFor func(device string) storage.KeyValueStore) *Provider {
	return &Provider{
		storeFor: storeFor,
		validate: validator.New(),
	}
}

// OnChange registers fn to be called on every sign-in and sign-out
func (p *Provider) OnChange(fn ChangeFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Current returns the signed-in user of device, or nil
func (p *Provider) Current(ctx context.Context, device string) (*User, error) {
	raw, ok, err := p.storeFor(device).GetItem(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		// a broken session is treated as signed out
		return nil, nil
	}
	return &user, nil
}

// SignIn makes email the identity of device
func (p *Provider) SignIn(ctx context.Context, device, email string) (*User, error) {
	user := User{Email: normalizeEmail(email)}
	if err := p.validate.Struct(user); err != nil {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	user.ID = UserIDForEmail(user.Email)

	current, err := p.Current(ctx, device)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	if err := p.storeFor(device).SetItem(ctx, Key, string(data)); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	if current == nil || current.ID != user.ID {
		p.notify(device, &user)
	}
	return &user, nil
}

// SignOut clears the identity of device
func (p *Provider) SignOut(ctx context.Context, device string) error {
	current, err := p.Current(ctx, device)
	if err != nil {
		return err
	}
	if err := p.storeFor(device).RemoveItem(ctx, Key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if current != nil {
		p.notify(device, nil)
	}
	return nil
}

func (p *Provider) notify(device string, user *User) {
	p.mu.Lock()
	listeners := append([]ChangeFunc(nil), p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(device, user)
	}
}
