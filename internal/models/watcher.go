package models

import (
	"sync"

	"github.com/google/uuid"
)

// Conn is the part of a websocket connection a watcher writes to.
type Conn interface {
	WriteJSON(v interface{}) error
}

// Watcher is an open page following a viewer's session.
type Watcher struct {
	Id   uuid.UUID `json:"watcherid"`
	Conn Conn      `json:"-"`
	mu   sync.Mutex
}

func (w *Watcher) Send(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(v)
}
