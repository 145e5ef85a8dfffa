package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yildizm/dlgen/internal/config"
)

// resettableJar is a cookie jar that can be emptied while requests are in flight
type resettableJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newResettableJar() *resettableJar {
	jar, _ := cookiejar.New(nil)
	return &resettableJar{jar: jar}
}

func (j *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *resettableJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

func (j *resettableJar) reset() {
	jar, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}

// storedCookie is the on-disk form of a session cookie
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type storedSession struct {
	BaseURL string         `json:"base_url"`
	SavedAt time.Time      `json:"saved_at"`
	Cookies []storedCookie `json:"cookies"`
}

// cookieStore persists the backend session cookie between CLI invocations
type cookieStore struct {
	path string
}

func (s *cookieStore) file() string {
	return config.ExpandPath(s.path)
}

func (s *cookieStore) load(jar http.CookieJar, base *url.URL) error {
	data, err := os.ReadFile(s.file())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}
	if stored.BaseURL != base.String() {
		return nil
	}

	cookies := make([]*http.Cookie, 0, len(stored.Cookies))
	for _, c := range stored.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(base, cookies)
	return nil
}

func (s *cookieStore) save(jar http.CookieJar, base *url.URL) error {
	cookies := jar.Cookies(base)
	if len(cookies) == 0 {
		return nil
	}

	stored := storedSession{BaseURL: base.String(), SavedAt: time.Now()}
	for _, c := range cookies {
		stored.Cookies = append(stored.Cookies, storedCookie{Name: c.Name, Value: c.Value})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	path := s.file()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (s *cookieStore) clear() error {
	err := os.Remove(s.file())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
