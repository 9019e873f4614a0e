package web

import (
	"crypto/rand"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "gebo"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Message string
	Class   string
}

// sessionManager wraps a gorilla cookie store with the two things the app
// keeps in the session: flash messages and the logged-in user id.
type sessionManager struct {
	store *sessions.CookieStore
}

// newSessionManager creates a session manager. An empty secret gets an
// ephemeral random key: flashes and logins then survive only until restart,
// which is fine for auth-disabled local use.
func newSessionManager(secret string) *sessionManager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	store := sessions.NewCookieStore(key)
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode
	return &sessionManager{store: store}
}

func (m *sessionManager) session(r *http.Request) *sessions.Session {
	// Get never fails fatally; a bad cookie yields a fresh session.
	s, _ := m.store.Get(r, sessionName)
	return s
}

// AddFlash queues a flash message for the next page render.
func (m *sessionManager) AddFlash(w http.ResponseWriter, r *http.Request, message, class string) {
	s := m.session(r)
	s.AddFlash(message, "message")
	s.AddFlash(class, "class")
	_ = s.Save(r, w)
}

// PopFlashes returns and clears all queued flash messages.
func (m *sessionManager) PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	s := m.session(r)
	messages := s.Flashes("message")
	classes := s.Flashes("class")
	if len(messages) == 0 {
		return nil
	}
	_ = s.Save(r, w)

	out := make([]Flash, 0, len(messages))
	for i, msg := range messages {
		f := Flash{Class: "alert-success"}
		if str, ok := msg.(string); ok {
			f.Message = str
		}
		if i < len(classes) {
			if str, ok := classes[i].(string); ok {
				f.Class = str
			}
		}
		out = append(out, f)
	}
	return out
}

// SetUserID records a successful login in the session.
func (m *sessionManager) SetUserID(w http.ResponseWriter, r *http.Request, id int64) {
	s := m.session(r)
	s.Values["user_id"] = id
	_ = s.Save(r, w)
}

// ClearUser logs the session out.
func (m *sessionManager) ClearUser(w http.ResponseWriter, r *http.Request) {
	s := m.session(r)
	delete(s.Values, "user_id")
	_ = s.Save(r, w)
}

// UserID returns the logged-in user id, if any.
func (m *sessionManager) UserID(r *http.Request) (int64, bool) {
	s := m.session(r)
	id, ok := s.Values["user_id"].(int64)
	return id, ok
}
