package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"live-docs/auth"
	"live-docs/domain"
	"live-docs/domain/event"
	"live-docs/mocks"
	"live-docs/observability"
	"live-docs/runtime"
)

func newCollabServer(t *testing.T, store *mocks.MockIDocumentStore) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	monitor := observability.NewMonitor(log)
	saver := runtime.NewSaver(log, store, monitor, time.Second)
	hub := runtime.NewHub(log, runtime.NewRegistry(), saver, monitor)

	server := httptest.NewServer(NewServer(log, hub, 32))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, userID, username string) *websocket.Conn {
	t.Helper()
	token, err := auth.GenerateToken(userID, username, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType event.Type, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(event.Envelope{Type: eventType, Payload: raw}))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) event.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e event.Envelope
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestServer_RejectsMissingOrInvalidToken(t *testing.T) {
	req := require.New(t)
	server := newCollabServer(t, nil)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_JoinFlow(t *testing.T) {
	req := require.New(t)
	server := newCollabServer(t, nil)

	// Alice joins an empty document and receives herself in the snapshot
	alice := dial(t, server, "u-alice", "alice")
	send(t, alice, event.TypeJoinDocument, event.JoinDocument{
		DocumentID: "doc1",
		User:       event.UserRef{ID: "u-alice", Username: "alice"},
	})

	e := readEnvelope(t, alice)
	req.Equal(event.TypeActiveUsers, e.Type)
	var snapshot []domain.Participant
	req.NoError(json.Unmarshal(e.Payload, &snapshot))
	req.Len(snapshot, 1)
	req.Equal("u-alice", snapshot[0].ID)

	// Bob joins; he gets the two-member snapshot, alice gets user-joined
	bob := dial(t, server, "u-bob", "bob")
	send(t, bob, event.TypeJoinDocument, event.JoinDocument{
		DocumentID: "doc1",
		User:       event.UserRef{ID: "u-bob", Username: "bob"},
	})

	e = readEnvelope(t, bob)
	req.Equal(event.TypeActiveUsers, e.Type)
	req.NoError(json.Unmarshal(e.Payload, &snapshot))
	req.Len(snapshot, 2)

	e = readEnvelope(t, alice)
	req.Equal(event.TypeUserJoined, e.Type)
	var joined domain.Participant
	req.NoError(json.Unmarshal(e.Payload, &joined))
	req.Equal("u-bob", joined.ID)
}

func TestServer_JoinWithForeignIdentityIsDropped(t *testing.T) {
	req := require.New(t)
	server := newCollabServer(t, nil)

	// The JWT asserts u-alice; claiming u-mallory in the payload is ignored
	alice := dial(t, server, "u-alice", "alice")
	send(t, alice, event.TypeJoinDocument, event.JoinDocument{
		DocumentID: "doc1",
		User:       event.UserRef{ID: "u-mallory", Username: "mallory"},
	})

	req.NoError(alice.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	var e event.Envelope
	req.Error(alice.ReadJSON(&e), "no snapshot must be sent for a dropped join")
}

func TestServer_ChangeAndCursorRelay(t *testing.T) {
	req := require.New(t)
	server := newCollabServer(t, nil)

	alice := dial(t, server, "u-alice", "alice")
	bob := dial(t, server, "u-bob", "bob")
	send(t, alice, event.TypeJoinDocument, event.JoinDocument{
		DocumentID: "doc1",
		User:       event.UserRef{ID: "u-alice", Username: "alice"},
	})
	readEnvelope(t, alice) // her snapshot
	send(t, bob, event.TypeJoinDocument, event.JoinDocument{
		DocumentID: "doc1",
		User:       event.UserRef{ID: "u-bob", Username: "bob"},
	})
	readEnvelope(t, bob)   // his snapshot
	readEnvelope(t, alice) // user-joined for bob

	// Alice edits; bob receives the delta untouched
	send(t, alice, event.TypeTextChange, event.TextChange{
		DocumentID: "doc1",
		Delta:      json.RawMessage(`{"ops":[{"insert":"hello"}]}`),
	})
	e := readEnvelope(t, bob)
	req.Equal(event.TypeTextChange, e.Type)
	var change event.TextChange
	req.NoError(json.Unmarshal(e.Payload, &change))
	req.JSONEq(`{"ops":[{"insert":"hello"}]}`, string(change.Delta))

	// Alice moves her cursor; bob sees it annotated with her identity
	send(t, alice, event.TypeCursorMove, event.CursorMove{
		DocumentID: "doc1",
		Range:      &event.CursorRange{Index: 5},
	})
	e = readEnvelope(t, bob)
	req.Equal(event.TypeCursorUpdate, e.Type)
	var cursor event.CursorUpdate
	req.NoError(json.Unmarshal(e.Payload, &cursor))
	req.Equal("u-alice", cursor.Identity.ID)
	req.Equal(5, cursor.Range.Index)
}

func TestServer_DisconnectNotifiesRoom(t *testing.T) {
	req := require.New(t)
	server := newCollabServer(t, nil)

	alice := dial(t, server, "u-alice", "alice")
	bob := dial(t, server, "u-bob", "bob")
	send(t, alice, event.TypeJoinDocument, event.JoinDocument{
		DocumentID: "doc1",
		User:       event.UserRef{ID: "u-alice", Username: "alice"},
	})
	readEnvelope(t, alice)
	send(t, bob, event.TypeJoinDocument, event.JoinDocument{
		DocumentID: "doc1",
		User:       event.UserRef{ID: "u-bob", Username: "bob"},
	})
	readEnvelope(t, bob)
	readEnvelope(t, alice)

	// Bob's browser goes away without a leave-document
	req.NoError(bob.Close())

	e := readEnvelope(t, alice)
	req.Equal(event.TypeUserLeft, e.Type)
	var left event.UserLeft
	req.NoError(json.Unmarshal(e.Payload, &left))
	req.Equal("u-bob", left.UserID)
}

func TestServer_SaveReportsBackToRequester(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIDocumentStore(ctrl)
	store.EXPECT().
		Update(gomock.Any(), "doc1", "final content").
		Return(nil)

	server := newCollabServer(t, store)

	alice := dial(t, server, "u-alice", "alice")
	send(t, alice, event.TypeJoinDocument, event.JoinDocument{
		DocumentID: "doc1",
		User:       event.UserRef{ID: "u-alice", Username: "alice"},
	})
	readEnvelope(t, alice)

	send(t, alice, event.TypeSaveDocument, event.SaveDocument{
		DocumentID: "doc1",
		Content:    "final content",
	})

	e := readEnvelope(t, alice)
	req.Equal(event.TypeDocumentSaved, e.Type)
	var status event.SaveStatus
	req.NoError(json.Unmarshal(e.Payload, &status))
	req.Equal("doc1", status.DocumentID)
}
