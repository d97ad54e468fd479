// Package event defines the typed wire protocol exchanged over a
// collaboration connection. Every frame is an Envelope; payloads are
// validated here, at the boundary, so core logic never re-parses or
// second-guesses them.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"live-docs/domain"
	"live-docs/errors"
)

type Type string

const (
	// client -> server
	TypeJoinDocument  Type = "join-document"
	TypeLeaveDocument Type = "leave-document"
	TypeTextChange    Type = "text-change"
	TypeCursorMove    Type = "cursor-move"
	TypeSaveDocument  Type = "save-document"

	// server -> client
	TypeActiveUsers   Type = "active-users"
	TypeUserJoined    Type = "user-joined"
	TypeUserLeft      Type = "user-left"
	TypeCursorUpdate  Type = "cursor-update"
	TypeDocumentSaved Type = "document-saved"
	TypeSaveError     Type = "save-error"
)

// Envelope is one frame on the wire: a type tag and a JSON payload.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var validate = validator.New()

// UserRef is the identity a client asserts when joining a document.
type UserRef struct {
	ID       string `json:"id" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type JoinDocument struct {
	DocumentID string  `json:"documentId" validate:"required"`
	User       UserRef `json:"user" validate:"required"`
}

type LeaveDocument struct {
	DocumentID string  `json:"documentId" validate:"required"`
	User       UserRef `json:"user"`
}

// TextChange carries an opaque editor delta. The relay never inspects it.
type TextChange struct {
	DocumentID string          `json:"documentId" validate:"required"`
	Delta      json.RawMessage `json:"delta" validate:"required"`
}

// CursorRange is a position/selection in the document.
type CursorRange struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// CursorMove reports the sender's cursor. A nil Range means "hide the
// cursor", which receivers must distinguish from position zero.
type CursorMove struct {
	DocumentID string       `json:"documentId" validate:"required"`
	Range      *CursorRange `json:"range"`
}

type SaveDocument struct {
	DocumentID string `json:"documentId" validate:"required"`
	Content    string `json:"content"`
}

// CursorUpdate is the relayed form of CursorMove, annotated with the
// sender identity asserted at join time.
type CursorUpdate struct {
	DocumentID string       `json:"documentId"`
	Range      *CursorRange `json:"range"`
	Identity   UserRef      `json:"identity"`
}

type UserLeft struct {
	UserID string `json:"userId"`
}

type SaveStatus struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
}

// Decode unmarshals and validates an inbound payload into dst.
// Anything that fails here is dropped before it can reach core logic.
func Decode(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}

// mustEnvelope builds a server frame. Payloads are our own structs, so a
// marshal failure is a programming error and yields an empty payload
// rather than a panic in the relay path.
func mustEnvelope(t Type, payload any) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{Type: t}
	}
	return Envelope{Type: t, Payload: raw}
}

func NewActiveUsers(members []domain.Participant) Envelope {
	if members == nil {
		members = []domain.Participant{}
	}
	return mustEnvelope(TypeActiveUsers, members)
}

func NewUserJoined(p domain.Participant) Envelope {
	return mustEnvelope(TypeUserJoined, p)
}

func NewUserLeft(userID string) Envelope {
	return mustEnvelope(TypeUserLeft, UserLeft{UserID: userID})
}

func NewTextChange(documentID string, delta json.RawMessage) Envelope {
	return mustEnvelope(TypeTextChange, TextChange{DocumentID: documentID, Delta: delta})
}

func NewCursorUpdate(documentID string, r *CursorRange, identity UserRef) Envelope {
	return mustEnvelope(TypeCursorUpdate, CursorUpdate{DocumentID: documentID, Range: r, Identity: identity})
}

func NewDocumentSaved(documentID string) Envelope {
	return mustEnvelope(TypeDocumentSaved, SaveStatus{DocumentID: documentID, Status: "Document saved successfully"})
}

func NewSaveError(documentID string) Envelope {
	return mustEnvelope(TypeSaveError, SaveStatus{DocumentID: documentID, Status: "Error saving document"})
}
