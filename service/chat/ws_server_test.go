package chat_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"duochat/middleware"
	"duochat/module/chat/model"
	chatsvc "duochat/module/chat/service"
	"duochat/module/chat/store"
	"duochat/module/user"
	"duochat/service/chat"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv  *httptest.Server
	auth *user.JWTAuthenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := chat.NewRegistry(chat.RegistryConf{})
	broadcaster := chat.NewBroadcaster(reg, chat.PresenceConf{})
	broadcaster.Bind()

	svc := chatsvc.NewMessageService(store.NewMemoryStore(), chat.NewRouter(reg), time.Second)
	auth := user.NewJWTAuthenticator([]byte("test-secret"), time.Hour)
	gateway := chat.NewGateway(reg, auth, svc)

	r := gin.New()
	r.GET("/ws", gateway.HandleWS)
	r.POST("/api/messages/send/:id", middleware.Auth(auth), svc.HandlerSend)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(broadcaster.Close)
	return &testEnv{srv: srv, auth: auth}
}

func (e *testEnv) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, _, err := e.auth.IssueToken(userID)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) chat.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame chat.Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func decodeUsers(t *testing.T, frame chat.Frame) []string {
	t.Helper()
	require.Equal(t, chat.EventOnlineUsers, frame.Event)
	var users []string
	require.NoError(t, json.Unmarshal(frame.Data, &users))
	return users
}

func TestGateway_RefusesUnresolvableToken(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws?token=garbage"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.Error(err)
	req.Nil(conn)
	if resp != nil {
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestGateway_EndToEnd(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	// alice connects and sees herself online
	alice := env.dial(t, "alice")
	req.Equal([]string{"alice"}, decodeUsers(t, readFrame(t, alice)))

	// bob connects: both get the full snapshot
	bob := env.dial(t, "bob")
	req.ElementsMatch([]string{"alice", "bob"}, decodeUsers(t, readFrame(t, bob)))
	req.ElementsMatch([]string{"alice", "bob"}, decodeUsers(t, readFrame(t, alice)))

	// bob starts typing toward alice
	err := bob.WriteJSON(chat.Frame{Event: chat.EventTyping, Data: json.RawMessage(`{"receiverId":"alice"}`)})
	req.NoError(err)

	frame := readFrame(t, alice)
	req.Equal(chat.EventTyping, frame.Event)
	var notice chat.TypingNotice
	req.NoError(json.Unmarshal(frame.Data, &notice))
	req.Equal("bob", notice.SenderID)

	// bob sends a message over REST: typing clears first, then delivery
	token, _, err := env.auth.IssueToken("bob")
	req.NoError(err)
	body := bytes.NewBufferString(`{"message":"hello alice"}`)
	httpReq, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/messages/send/alice", body)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var stored model.Message
	req.NoError(json.NewDecoder(resp.Body).Decode(&stored))
	req.Equal("bob", stored.SenderID)
	req.Equal("hello alice", stored.Body)
	req.False(stored.ID.IsZero())

	frame = readFrame(t, alice)
	req.Equal(chat.EventStopTyping, frame.Event)

	frame = readFrame(t, alice)
	req.Equal(chat.EventNewMessage, frame.Event)
	var delivered model.Message
	req.NoError(json.Unmarshal(frame.Data, &delivered))
	req.Equal(stored.ID, delivered.ID)
	req.Equal("hello alice", delivered.Body)

	// bob disconnects: alice gets the shrunken snapshot
	req.NoError(bob.Close())
	req.Equal([]string{"alice"}, decodeUsers(t, readFrame(t, alice)))
}

func TestGateway_StaleDisconnect_KeepsNewConnectionTyping(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	// alice's first connection, then bob
	stale := env.dial(t, "alice")
	req.Equal([]string{"alice"}, decodeUsers(t, readFrame(t, stale)))
	bob := env.dial(t, "bob")
	req.ElementsMatch([]string{"alice", "bob"}, decodeUsers(t, readFrame(t, bob)))
	req.ElementsMatch([]string{"alice", "bob"}, decodeUsers(t, readFrame(t, stale)))

	// alice reconnects; the first connection is superseded but still open
	alice := env.dial(t, "alice")
	req.ElementsMatch([]string{"alice", "bob"}, decodeUsers(t, readFrame(t, alice)))
	req.ElementsMatch([]string{"alice", "bob"}, decodeUsers(t, readFrame(t, bob)))

	// she starts typing toward bob on the new connection
	err := alice.WriteJSON(chat.Frame{Event: chat.EventTyping, Data: json.RawMessage(`{"receiverId":"bob"}`)})
	req.NoError(err)
	frame := readFrame(t, bob)
	req.Equal(chat.EventTyping, frame.Event)

	// the superseded connection finally drops; its late exit must not touch
	// alice's typing edge or emit anything to bob
	req.NoError(stale.Close())
	time.Sleep(150 * time.Millisecond)

	// the edge is still armed, so a repeated start emits nothing
	err = alice.WriteJSON(chat.Frame{Event: chat.EventTyping, Data: json.RawMessage(`{"receiverId":"bob"}`)})
	req.NoError(err)
	time.Sleep(150 * time.Millisecond)

	// sending clears the edge exactly once: bob sees stopTyping then the
	// message, nothing in between
	token, _, err := env.auth.IssueToken("alice")
	req.NoError(err)
	body := bytes.NewBufferString(`{"message":"still here"}`)
	httpReq, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/messages/send/bob", body)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	frame = readFrame(t, bob)
	req.Equal(chat.EventStopTyping, frame.Event)
	frame = readFrame(t, bob)
	req.Equal(chat.EventNewMessage, frame.Event)
}

func TestGateway_SendToOfflineReceiver_Succeeds(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	token, _, err := env.auth.IssueToken("alice")
	req.NoError(err)

	body := bytes.NewBufferString(`{"message":"anyone there?"}`)
	httpReq, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/messages/send/nobody", body)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	defer resp.Body.Close()

	// receiver offline is not an error: the write is durable, the routing
	// miss is silent
	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestGateway_EmptyBodyRejected(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	token, _, err := env.auth.IssueToken("alice")
	req.NoError(err)

	body := bytes.NewBufferString(`{"message":""}`)
	httpReq, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/messages/send/bob", body)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}
