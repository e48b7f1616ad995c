package net

// SessionStore indexes live sessions by id. Game loop goroutine only; the
// input system adds and removes entries, everything else reads.
type SessionStore struct {
	sessions map[uint64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uint64]*Session, 64),
	}
}

func (st *SessionStore) Add(s *Session) {
	st.sessions[s.ID] = s
}

func (st *SessionStore) Remove(id uint64) {
	delete(st.sessions, id)
}

func (st *SessionStore) Get(id uint64) (*Session, bool) {
	s, ok := st.sessions[id]
	return s, ok
}

func (st *SessionStore) Len() int {
	return len(st.sessions)
}

// FindByIdentity returns the in-world session bound to identity, or nil.
// Linear scan; the store holds tens of sessions, not thousands.
func (st *SessionStore) FindByIdentity(identity string) *Session {
	if identity == "" {
		return nil
	}
	for _, s := range st.sessions {
		if s.Identity == identity {
			return s
		}
	}
	return nil
}

// Raw exposes the underlying map for drain loops that remove entries while
// iterating. Game loop goroutine only.
func (st *SessionStore) Raw() map[uint64]*Session {
	return st.sessions
}

// ForEach visits every session. The visitor must not add or remove entries.
func (st *SessionStore) ForEach(fn func(*Session)) {
	for _, s := range st.sessions {
		fn(s)
	}
}
