package mock

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/users"
)

// namespace seeds the deterministic user IDs handed out by the directory.
var namespace = uuid.MustParse("6f1c6c8e-5f0a-4c38-9a57-2b7d0d3e9a41")

var errUserNotFound = errors.New("not found")

// Directory is the mock identity provider's user table, keyed by login identifier.
type Directory struct {
	users       map[string]*users.User
	identifiers map[string]string // login identifier to user id
	lock        sync.RWMutex
}

func NewDirectory() *Directory {
	return &Directory{
		users:       make(map[string]*users.User),
		identifiers: make(map[string]string),
	}
}

// UserID is the stable ID for a login identifier.
func UserID(identifier string) string {
	return uuid.NewSHA1(namespace, []byte(identifier)).String()
}

func (d *Directory) Upsert(identifier string, user *users.User) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if user.ID == "" {
		user.ID = UserID(identifier)
	}
	d.users[user.ID] = user.Clone()
	d.identifiers[identifier] = user.ID
	return nil
}

func (d *Directory) Delete(identifier string) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	userID, ok := d.identifiers[identifier]
	if !ok {
		return errUserNotFound
	}
	delete(d.identifiers, identifier)
	delete(d.users, userID)
	return nil
}

func (d *Directory) GetByIdentifier(identifier string) (*users.User, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	id, ok := d.identifiers[identifier]
	if !ok {
		return nil, errUserNotFound
	}
	return d.users[id].Clone(), nil
}

func (d *Directory) GetByID(id string) (*users.User, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	return u.Clone(), nil
}

// Ensure returns the user registered under identifier, creating it on first sight.
func (d *Directory) Ensure(identifier string, build func(id string) *users.User, now time.Time) *users.User {
	if u, err := d.GetByIdentifier(identifier); err == nil {
		return u
	}

	u := build(UserID(identifier))
	if u.CreatedAt == nil {
		u.CreatedAt = utils.Ptr(now)
	}
	_ = d.Upsert(identifier, u)
	return u.Clone()
}

// Touch records a successful login for the user.
func (d *Directory) Touch(id string, at time.Time) (*users.User, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	u, ok := d.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	next := u.Clone()
	next.LastLogin = utils.Ptr(at)
	d.users[id] = next
	return next.Clone(), nil
}
