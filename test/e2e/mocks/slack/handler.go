// Package slackmock is an in-process fake of the Slack Web API methods the bridge calls.
package slackmock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// PostedMessage is a chat.postMessage call recorded by the mock.
type PostedMessage struct {
	Token    string
	Channel  string
	Text     string
	ThreadTS string
	Blocks   string
	TS       string
	Deleted  bool
}

// ThreadMessage is one entry served by conversations.replies.
type ThreadMessage struct {
	User  string `json:"user,omitempty"`
	BotID string `json:"bot_id,omitempty"`
	Text  string `json:"text"`
	TS    string `json:"ts"`
}

type user struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	IsBot bool   `json:"is_bot"`
}

// Handler serves auth.test, users.info, conversations.replies,
// chat.postMessage, chat.delete and private file downloads.
type Handler struct {
	mu       sync.Mutex
	selfIDs  map[string]string // token -> user id
	users    map[string]user
	threads  map[string][]ThreadMessage // channel/ts -> replies
	files    map[string][]byte          // path -> content
	messages []PostedMessage
	nextTS   int64
}

// NewHandler creates an empty mock.
func NewHandler() *Handler {
	h := &Handler{nextTS: time.Now().Unix()}
	h.Reset()
	return h
}

// Reset forgets recorded messages and configured fixtures.
func (h *Handler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selfIDs = make(map[string]string)
	h.users = make(map[string]user)
	h.threads = make(map[string][]ThreadMessage)
	h.files = make(map[string][]byte)
	h.messages = nil
}

// AddBot registers a bot token and its user id.
func (h *Handler) AddBot(token, userID, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selfIDs[token] = userID
	h.users[userID] = user{ID: userID, Name: name, IsBot: true}
}

// AddUser registers a human user.
func (h *Handler) AddUser(userID, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[userID] = user{ID: userID, Name: name}
}

// SetThread sets the replies returned for a thread.
func (h *Handler) SetThread(channel, ts string, messages ...ThreadMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threads[channel+"/"+ts] = messages
}

// AddFile serves content at /files/<name>.
func (h *Handler) AddFile(name string, content []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files["/files/"+name] = content
}

// Messages returns a copy of every recorded post.
func (h *Handler) Messages() []PostedMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]PostedMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

// Visible returns posts that were not deleted.
func (h *Handler) Visible() []PostedMessage {
	var out []PostedMessage
	for _, m := range h.Messages() {
		if !m.Deleted {
			out = append(out, m)
		}
	}
	return out
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/files/") {
		h.handleFile(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, map[string]any{"ok": false, "error": "invalid_form_data"})
		return
	}

	token := bearer(r)
	if token == "" {
		writeJSON(w, map[string]any{"ok": false, "error": "not_authed"})
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/api/") {
	case "auth.test":
		h.handleAuthTest(w, token)
	case "users.info":
		h.handleUserInfo(w, r)
	case "conversations.replies":
		h.handleReplies(w, r)
	case "chat.postMessage":
		h.handlePostMessage(w, r, token)
	case "chat.delete":
		h.handleDelete(w, r)
	default:
		writeJSON(w, map[string]any{"ok": false, "error": "unknown_method"})
	}
}

func (h *Handler) handleAuthTest(w http.ResponseWriter, token string) {
	h.mu.Lock()
	id, ok := h.selfIDs[token]
	h.mu.Unlock()

	if !ok {
		writeJSON(w, map[string]any{"ok": false, "error": "invalid_auth"})
		return
	}
	writeJSON(w, map[string]any{"ok": true, "user_id": id, "team_id": "T0001", "user": id})
}

func (h *Handler) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	u, ok := h.users[r.FormValue("user")]
	h.mu.Unlock()

	if !ok {
		writeJSON(w, map[string]any{"ok": false, "error": "user_not_found"})
		return
	}
	writeJSON(w, map[string]any{"ok": true, "user": u})
}

func (h *Handler) handleReplies(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	msgs, ok := h.threads[r.FormValue("channel")+"/"+r.FormValue("ts")]
	h.mu.Unlock()

	if !ok {
		writeJSON(w, map[string]any{"ok": false, "error": "thread_not_found"})
		return
	}
	writeJSON(w, map[string]any{
		"ok":                true,
		"messages":          msgs,
		"has_more":          false,
		"response_metadata": map[string]string{"next_cursor": ""},
	})
}

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request, token string) {
	channel := r.FormValue("channel")
	if channel == "" {
		writeJSON(w, map[string]any{"ok": false, "error": "channel_not_found"})
		return
	}

	h.mu.Lock()
	h.nextTS++
	ts := fmt.Sprintf("%d.%06d", h.nextTS, len(h.messages))
	h.messages = append(h.messages, PostedMessage{
		Token:    token,
		Channel:  channel,
		Text:     r.FormValue("text"),
		ThreadTS: r.FormValue("thread_ts"),
		Blocks:   r.FormValue("blocks"),
		TS:       ts,
	})
	h.mu.Unlock()

	writeJSON(w, map[string]any{"ok": true, "channel": channel, "ts": ts})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	channel, ts := r.FormValue("channel"), r.FormValue("ts")

	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.messages {
		if h.messages[i].Channel == channel && h.messages[i].TS == ts {
			h.messages[i].Deleted = true
			writeJSON(w, map[string]any{"ok": true, "channel": channel, "ts": ts})
			return
		}
	}
	writeJSON(w, map[string]any{"ok": false, "error": "message_not_found"})
}

func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	if bearer(r) == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	h.mu.Lock()
	content, ok := h.files[r.URL.Path]
	h.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(content)
}

func bearer(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.FormValue("token")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
