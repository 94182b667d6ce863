package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"manualcall/internal/core/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHubBroadcastsNotifications(t *testing.T) {
	hub := NewHub(nil, nil)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Notify(domain.Toast(domain.LevelSuccess, "Connected"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got domain.Notification
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, domain.KindToast, got.Kind)
	assert.Equal(t, "Connected", got.Message)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub([]string{"http://localhost:3000"}, nil)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, _, err := websocket.DefaultDialer.Dial(url, header)
	assert.Error(t, err)

	header.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	n := NewLogNotifier(zap.New(core).Sugar())

	n.Notify(domain.Toast(domain.LevelWarning, "DataChannel closed"))
	n.Notify(domain.Notification{Kind: domain.KindCaption, Caption: &domain.CaptionEntry{Text: "hi", Origin: domain.OriginRemote}})
	n.Notify(domain.StateChange(domain.KindICEState, "checking"))

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "DataChannel closed", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "caption", entries[1].Message)
	assert.Equal(t, zap.DebugLevel, entries[2].Level)
}

func TestLogNotifierTruncatesLongCaptions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core).Sugar())

	long := strings.Repeat("あ", maxLoggedCaptionRunes+10)
	n.Notify(domain.Notification{Kind: domain.KindCaption, Caption: &domain.CaptionEntry{Text: long, Origin: domain.OriginSelf}})

	text := logs.All()[0].ContextMap()["text"].(string)
	assert.Equal(t, maxLoggedCaptionRunes, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, "…"))
}

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify(domain.Notification) { c.n++ }

func TestFanout(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	Fanout{a, nil, b}.Notify(domain.Toast(domain.LevelInfo, "x"))
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
