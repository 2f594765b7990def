// Package prefs holds the small set of locally persisted user preferences:
// the device identifier sent with every API request and the last e-mail
// address used to log in.
package prefs

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Keys under which preferences are persisted.
const (
	KeyLastUsedLoginEmail = "LastUsedLoginEmailKey"
	KeyDeviceID           = "DeviceIdKey"
)

// Store is a string key-value store.
type Store interface {
	// Get returns the value under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// SetIfAbsent stores value under key unless a value is already present.
	// It returns the value that is stored after the call.
	SetIfAbsent(ctx context.Context, key, value string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Preferences provides typed access to the persisted preferences.
type Preferences struct {
	store Store
	newID func() string

	group singleflight.Group

	// deviceID caches the identifier once it is known; it never changes for
	// the lifetime of the store.
	mu       sync.RWMutex
	deviceID string
}

// New creates Preferences backed by store.
func New(store Store) *Preferences {
	return &Preferences{
		store: store,
		newID: uuid.NewString,
	}
}

// DeviceID returns the persisted device identifier, generating and storing a
// new UUID on first access. Concurrent first accesses agree on one value.
func (p *Preferences) DeviceID(ctx context.Context) (string, error) {
	p.mu.RLock()
	id := p.deviceID
	p.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	v, err, _ := p.group.Do(KeyDeviceID, func() (any, error) {
		id, ok, err := p.store.Get(ctx, KeyDeviceID)
		if err != nil {
			return "", errors.Wrap(err, "get device id")
		}
		if !ok || id == "" {
			// Another process may race us to the store; the first writer wins.
			id, err = p.store.SetIfAbsent(ctx, KeyDeviceID, p.newID())
			if err != nil {
				return "", errors.Wrap(err, "store device id")
			}
		}

		p.mu.Lock()
		p.deviceID = id
		p.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// LastUsedLoginEmail returns the e-mail address last used to log in, if any.
func (p *Preferences) LastUsedLoginEmail(ctx context.Context) (string, bool, error) {
	email, ok, err := p.store.Get(ctx, KeyLastUsedLoginEmail)
	if err != nil {
		return "", false, errors.Wrap(err, "get last used login email")
	}
	return email, ok, nil
}

// SetLastUsedLoginEmail stores the e-mail address last used to log in.
// A nil email clears it.
func (p *Preferences) SetLastUsedLoginEmail(ctx context.Context, email *string) error {
	if email == nil {
		if err := p.store.Delete(ctx, KeyLastUsedLoginEmail); err != nil {
			return errors.Wrap(err, "clear last used login email")
		}
		return nil
	}
	if err := p.store.Set(ctx, KeyLastUsedLoginEmail, *email); err != nil {
		return errors.Wrap(err, "set last used login email")
	}
	return nil
}

// ResetUserData forgets user-specific data. The device identifier is kept.
func (p *Preferences) ResetUserData(ctx context.Context) error {
	return p.SetLastUsedLoginEmail(ctx, nil)
}
