package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryProvider is an in-process Provider for tests and local development.
// Passwords are bcrypt-hashed with a low cost: this store never leaves the
// process, so the cost only needs to defeat accidental plaintext logging.
type MemoryProvider struct {
	mu        sync.Mutex
	accounts  map[string]memAccount // keyed by lowercased email
	current   *User
	listeners map[int]func(*User)
	nextID    int
}

type memAccount struct {
	user User
	hash []byte
}

// NewMemoryProvider creates an empty provider with no signed-in user.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts:  make(map[string]memAccount),
		listeners: make(map[int]func(*User)),
	}
}

func (p *MemoryProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.accounts[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}

	u := acc.user
	p.current = &u
	p.notifyLocked()
	return cloneUser(&u), nil
}

func (p *MemoryProvider) SignUp(ctx context.Context, email, password string) (*User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := p.accounts[key]; exists {
		return nil, ErrEmailAlreadyInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	u := User{
		ID:           uuid.New().String(),
		Email:        email,
		Role:         RoleUser,
		Status:       StatusActive,
		TokenBalance: DefaultTokenBalance,
	}
	p.accounts[key] = memAccount{user: u, hash: hash}
	p.current = &u
	p.notifyLocked()
	return cloneUser(&u), nil
}

func (p *MemoryProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return ErrNotSignedIn
	}
	p.current = nil
	p.notifyLocked()
	return nil
}

func (p *MemoryProvider) CurrentUser() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneUser(p.current)
}

func (p *MemoryProvider) OnChange(fn func(*User)) CancelFunc {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	current := cloneUser(p.current)
	p.mu.Unlock()

	// Immediate delivery of the current state, outside the lock so the
	// listener can call back into the provider.
	fn(current)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// DeleteAccount removes an account, e.g. to roll back provisioning in
// tests. Signs the user out if they are current.
func (p *MemoryProvider) DeleteAccount(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.ToLower(email)
	acc, ok := p.accounts[key]
	if !ok {
		return
	}
	delete(p.accounts, key)
	if p.current != nil && p.current.ID == acc.user.ID {
		p.current = nil
		p.notifyLocked()
	}
}

func (p *MemoryProvider) notifyLocked() {
	current := cloneUser(p.current)
	for _, fn := range p.listeners {
		go fn(current)
	}
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
