package server

import (
	"sync"

	"github.com/google/uuid"

	pipelineerrors "github.com/ironsheep/idphoto-mcp/internal/errors"
	"github.com/ironsheep/idphoto-mcp/internal/imaging"
	"github.com/ironsheep/idphoto-mcp/internal/overlay"
	"github.com/ironsheep/idphoto-mcp/internal/session"
)

// documentSession is one loaded document and its extraction flow.
type documentSession struct {
	id      string
	machine *session.Machine
	info    *imaging.DocumentInfo

	// preview is the last preview rendered, used to map preview
	// coordinates back to the page.
	preview *overlay.Preview
}

// sessionStore keeps independent sessions keyed by ID.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*documentSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*documentSession)}
}

func (st *sessionStore) create(machine *session.Machine, info *imaging.DocumentInfo) *documentSession {
	ds := &documentSession{
		id:      uuid.NewString(),
		machine: machine,
		info:    info,
	}
	st.mu.Lock()
	st.sessions[ds.id] = ds
	st.mu.Unlock()
	return ds
}

func (st *sessionStore) get(id string) (*documentSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ds, ok := st.sessions[id]
	if !ok {
		return nil, pipelineerrors.NewInvalidInputError(
			"unknown session",
			map[string]interface{}{"session_id": id},
		)
	}
	return ds, nil
}

func (st *sessionStore) remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
