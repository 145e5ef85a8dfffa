package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/dlgen/internal/api"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

type fakeBackend struct {
	mu        sync.Mutex
	session   *api.Session
	sessErr   error
	exchange  *api.Session
	exchErr   error
	exchBlock chan struct{}
	exchCalls int
	checks    int
	logout    *api.StatusResponse
}

func (f *fakeBackend) CheckSession(ctx context.Context) (*api.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.session, f.sessErr
}

func (f *fakeBackend) ExchangeCode(ctx context.Context, code string) (*api.Session, error) {
	f.mu.Lock()
	f.exchCalls++
	block := f.exchBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.exchange, f.exchErr
}

func (f *fakeBackend) Logout(ctx context.Context) (*api.StatusResponse, error) {
	return f.logout, nil
}

func (f *fakeBackend) LoginURL() string { return "http://backend/api/login" }

func adminSession() *api.Session {
	return &api.Session{Success: true, Username: "Ana", Role: "ops", Access: "admin", Clients: []string{"ACME"}, Avatar: api.Avatar{URL: "a.png"}}
}

func TestProbeWithoutCode(t *testing.T) {
	b := &fakeBackend{session: adminSession()}
	c := NewController(b, nil)

	u, err := c.Bootstrap(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Username)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, "a.png", u.AvatarURL)
	assert.Equal(t, 0, b.exchCalls)
	assert.Equal(t, 1, b.checks)
}

func TestExchangeThenVerify(t *testing.T) {
	b := &fakeBackend{session: adminSession(), exchange: &api.Session{Success: true, Username: "Ana"}}
	c := NewController(b, nil)

	u, err := c.Bootstrap(context.Background(), "code-123")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Username)
	assert.Equal(t, 1, b.exchCalls)
	assert.Equal(t, 1, b.checks)
}

func TestFailedExchangeSurfacesDetail(t *testing.T) {
	b := &fakeBackend{exchange: &api.Session{Success: false, Detail: "Invalid code"}}
	c := NewController(b, nil)

	_, err := c.Bootstrap(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
	assert.Equal(t, "Invalid code", err.Error())
	assert.Equal(t, 0, b.checks)
}

func TestNonSuccessProbeIsNotAuthenticated(t *testing.T) {
	b := &fakeBackend{session: &api.Session{Success: false}}
	c := NewController(b, nil)

	_, err := c.Bootstrap(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestUnauthorizedProbeIsNotAuthenticated(t *testing.T) {
	b := &fakeBackend{sessErr: api.NewError(api.ErrTypeUnauthorized, api.EndpointCheckSession, "Not authenticated")}
	c := NewController(b, nil)

	_, err := c.Bootstrap(context.Background(), "")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, api.IsUnauthorized(err))
	assert.Equal(t, "No active session.", authErr.Detail)
}

func TestRejectedCodeIsNotAuthenticated(t *testing.T) {
	b := &fakeBackend{exchErr: api.NewError(api.ErrTypeUnauthorized, api.EndpointCallback, "Invalid code")}
	c := NewController(b, nil)

	_, err := c.Bootstrap(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, b.checks)
}

func TestReentrantExchangeIsNoOp(t *testing.T) {
	b := &fakeBackend{
		session:   adminSession(),
		exchange:  &api.Session{Success: true},
		exchBlock: make(chan struct{}),
	}
	c := NewController(b, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Bootstrap(context.Background(), "code-1")
		done <- err
	}()

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.exchCalls == 1
	}, timeout, tick)

	_, err := c.Bootstrap(context.Background(), "code-1")
	assert.True(t, errors.Is(err, ErrExchangeInFlight))

	close(b.exchBlock)
	require.NoError(t, <-done)
	assert.Equal(t, 1, b.exchCalls)
}

func TestLogout(t *testing.T) {
	c := NewController(&fakeBackend{logout: &api.StatusResponse{Success: true}}, nil)
	assert.NoError(t, c.Logout(context.Background()))

	c = NewController(&fakeBackend{logout: &api.StatusResponse{Success: false, Detail: "nope"}}, nil)
	assert.EqualError(t, c.Logout(context.Background()), "nope")
}

func TestParseCode(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"  abc  ": "abc",
		"https://app.example.com/?code=xyz&state=1": "xyz",
		"?code=q1":          "q1",
		"code=q2&state=abc": "q2",
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseCode(in), "input %q", in)
	}
}
