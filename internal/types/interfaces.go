// internal/types/interfaces.go
package types

type SessionStore interface {
	List() []*Session
	Get(id SessionID) (*Session, bool)
	Create(session *Session) error
	AppendMessage(id SessionID, msg Message) error
	Delete(id SessionID) error
	Active() (SessionID, bool)
	SetActive(id SessionID) error
	ClearActive()
}
