package session

import (
	"context"
	"testing"

	"github.com/example/geolearn/internal/storage"
	"github.com/example/geolearn/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	device string
	user   *User
}

func newTestProvider() (*Provider, *[]change) {
	stores := map[string]*storagetest.MemoryKV{}
	p := NewProvider(func(device string) storage.KeyValueStore {
		if stores[device] == nil {
			stores[device] = storagetest.NewMemoryKV()
		}
		return stores[device]
	})
	var changes []change
	p.OnChange(func(device string, user *User) {
		changes = append(changes, change{device, user})
	})
	return p, &changes
}

func TestUserIDForEmail(t *testing.T) {
	assert.Equal(t, UserIDForEmail("a@example.com"), UserIDForEmail("  A@Example.com "))
	assert.NotEqual(t, UserIDForEmail("a@example.com"), UserIDForEmail("b@example.com"))
}

func TestSignInAndOut(t *testing.T) {
	ctx := context.Background()
	p, changes := newTestProvider()

	user, err := p.Current(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = p.SignIn(ctx, "42", "Reader@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", user.Email)
	assert.Equal(t, UserIDForEmail("reader@example.com"), user.ID)

	current, err := p.Current(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, user.ID, current.ID)

	other, err := p.Current(ctx, "7")
	require.NoError(t, err)
	assert.Nil(t, other)

	// signing in again as the same user is not a change
	_, err = p.SignIn(ctx, "42", "reader@example.com")
	require.NoError(t, err)

	require.NoError(t, p.SignOut(ctx, "42"))
	require.NoError(t, p.SignOut(ctx, "42"))

	require.Len(t, *changes, 2)
	assert.Equal(t, "42", (*changes)[0].device)
	assert.NotNil(t, (*changes)[0].user)
	assert.Nil(t, (*changes)[1].user)
}

func TestSignInRejectsInvalidEmail(t *testing.T) {
	p, changes := newTestProvider()

	_, err := p.SignIn(context.Background(), "1", "not-an-email")
	assert.Error(t, err)
	assert.Empty(t, *changes)
}

func TestSwitchUser(t *testing.T) {
	ctx := context.Background()
	p, changes := newTestProvider()

	_, err := p.SignIn(ctx, "1", "a@example.com")
	require.NoError(t, err)
	_, err = p.SignIn(ctx, "1", "b@example.com")
	require.NoError(t, err)

	require.Len(t, *changes, 2)
	assert.Equal(t, "b@example.com", (*changes)[1].user.Email)
}
