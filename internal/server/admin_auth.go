package server

import (
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminCookieName = "admin_session"
	adminSessionTTL = 7 * 24 * time.Hour
)

type adminSession struct {
	Username string
	Expires  time.Time
}

// adminSessions holds logged-in admins in memory. A restart logs
// everyone out.
type adminSessions struct {
	mu   sync.Mutex
	byID map[string]adminSession
	now  func() time.Time
}

func newAdminSessions() *adminSessions {
	return &adminSessions{byID: make(map[string]adminSession), now: time.Now}
}

func (s *adminSessions) create(username string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = adminSession{Username: username, Expires: s.now().Add(adminSessionTTL)}
	return id
}

func (s *adminSessions) lookup(id string) (adminSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return adminSession{}, false
	}
	if !s.now().Before(sess.Expires) {
		delete(s.byID, id)
		return adminSession{}, false
	}
	return sess, true
}

func (s *adminSessions) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// checkPassword compares against a bcrypt hash when stored looks like one,
// and against the plain value otherwise.
func checkPassword(stored, given string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
