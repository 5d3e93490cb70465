package acceptance

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// fakeDiscord serves the subset of the Discord API the service calls
type fakeDiscord struct {
	server *httptest.Server

	mu        sync.Mutex
	members   map[string]bool
	denied    map[string]bool
	refreshes int
	messages  []string
}

func newFakeDiscord() *fakeDiscord {
	d := &fakeDiscord{}
	d.Reset()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", d.token)
	mux.HandleFunc("GET /users/@me", d.currentUser)
	mux.HandleFunc("PUT /guilds/{guild}/members/{user}", d.addMember)
	mux.HandleFunc("POST /users/@me/channels", d.openChannel)
	mux.HandleFunc("POST /channels/{channel}/messages", d.sendMessage)
	d.server = httptest.NewServer(mux)

	return d
}

func (d *fakeDiscord) URL() string {
	return d.server.URL
}

func (d *fakeDiscord) Close() {
	d.server.Close()
}

func (d *fakeDiscord) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members = make(map[string]bool)
	d.denied = make(map[string]bool)
	d.refreshes = 0
	d.messages = nil
}

// DenyRefresh makes refresh attempts with the given token fail with invalid_grant
func (d *fakeDiscord) DenyRefresh(refreshToken string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denied[refreshToken] = true
}

func (d *fakeDiscord) Refreshes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refreshes
}

func (d *fakeDiscord) Messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.messages...)
}

func (d *fakeDiscord) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") != "valid-code" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-from-code",
			"refresh_token": "refresh-from-code",
			"token_type":    "Bearer",
			"expires_in":    604800,
			"scope":         "identify email guilds.join",
		})
	case "refresh_token":
		refreshToken := r.PostForm.Get("refresh_token")
		if d.denied[refreshToken] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		d.refreshes++
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "refreshed-" + refreshToken,
			"refresh_token": "rotated-" + refreshToken,
			"token_type":    "Bearer",
			"expires_in":    604800,
			"scope":         "identify email guilds.join",
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (d *fakeDiscord) currentUser(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer access-from-code" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "401: Unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          "300000000000000001",
		"username":    "consenting",
		"global_name": "Consenting User",
		"email":       "consenting@example.com",
		"locale":      "en-US",
	})
}

// addMember accepts any access token that is not a known-bad one
func (d *fakeDiscord) addMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AccessToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing access_token"})
		return
	}
	if strings.HasPrefix(body.AccessToken, "revoked") {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "Missing Access", "code": 50001})
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := r.PathValue("guild") + "/" + r.PathValue("user")
	if d.members[key] {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	d.members[key] = true
	writeJSON(w, http.StatusCreated, map[string]any{"user": map[string]string{"id": r.PathValue("user")}})
}

func (d *fakeDiscord) openChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RecipientID string `json:"recipient_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	writeJSON(w, http.StatusOK, map[string]string{"id": "dm-" + body.RecipientID})
}

func (d *fakeDiscord) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	d.mu.Lock()
	d.messages = append(d.messages, r.PathValue("channel")+":"+body.Content)
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"id": "message"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
