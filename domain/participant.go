// Package domain contains core concepts of the collaboration system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Participant is one user currently joined to a document.
// The SocketID is the transient connection currently representing the user:
// a re-join with the same user ID replaces the previous entry, it never
// duplicates it.
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	SocketID string `json:"socketId"`
}

// Removal reports a participant entry removed from a document when a
// connection goes away. Used by the lifecycle cleanup to notify the
// remaining members of each affected room.
type Removal struct {
	DocumentID  string
	Participant Participant
}
