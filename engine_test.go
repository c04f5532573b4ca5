package portalguard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eduportal/portalguard/credential"
)

var testSecret = []byte("engine-test-secret-0123456789abcdef")

// fakeDirectory is an in-memory UserDirectory. Setting err makes every
// call fail with it; setting delay makes every call sleep first, which the
// timeout tests use.
type fakeDirectory struct {
	mu    sync.Mutex
	users []*UserRecord
	pass  map[int64]string
	err   error
	delay time.Duration

	byIDCalls    int
	byEmailCalls int
}

func newFakeDirectory(users ...*UserRecord) *fakeDirectory {
	return &fakeDirectory{
		users: users,
		pass:  map[int64]string{},
	}
}

func (d *fakeDirectory) wait(ctx context.Context) error {
	if d.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *fakeDirectory) UserByID(ctx context.Context, id int64, _ string) (*UserRecord, error) {
	d.mu.Lock()
	d.byIDCalls++
	d.mu.Unlock()

	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}
	for _, user := range d.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *fakeDirectory) UserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	d.mu.Lock()
	d.byEmailCalls++
	d.mu.Unlock()

	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}
	for _, user := range d.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *fakeDirectory) UpdatePassword(ctx context.Context, id int64, newPassword string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	d.pass[id] = newPassword
	d.mu.Unlock()
	return nil
}

type captureMailer struct {
	mu    sync.Mutex
	mails []Mail
	err   error
}

func (m *captureMailer) Send(_ context.Context, mail Mail) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.mails = append(m.mails, mail)
	m.mu.Unlock()
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mails)
}

func (m *captureMailer) last(t *testing.T) Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.mails) == 0 {
		t.Fatal("no mail captured")
	}
	return m.mails[len(m.mails)-1]
}

func buildEngine(t *testing.T, cfg Config, dir UserDirectory, mailer Mailer) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Credential.Secret = testSecret
	return cfg
}

func mintToken(t *testing.T, userID int64, ttl time.Duration) string {
	t.Helper()

	verifier, err := credential.NewVerifier(credential.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	token, err := verifier.Sign(userID, ttl)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return token
}
