package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"murmur/agent/internal/auth"
	"murmur/agent/internal/config"
	"murmur/agent/internal/loop"
	"murmur/agent/internal/store"
	"murmur/agent/internal/types"
	"murmur/agent/internal/workerws"
)

type Handlers struct {
	cfg   config.Config
	store *store.Store
	disp  *loop.Dispatcher
}

func NewHandlers(cfg config.Config, st *store.Store, disp *loop.Dispatcher) *Handlers {
	return &Handlers{cfg: cfg, store: st, disp: disp}
}

func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Worker.TokenSecret == "" {
		http.Error(w, "missing worker token secret", http.StatusBadRequest)
		return
	}
	id := uuid.New().String()
	exp := time.Now().Add(time.Duration(h.cfg.Worker.TokenExpMin) * time.Minute).Unix()
	token := auth.MintSessionToken(h.cfg.Worker.TokenSecret, id, exp)

	sess := &types.Session{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		Status:      "created",
		WorkerToken: token,
	}
	_ = h.store.CreateSession(sess)
	h.store.AppendEvent(id, "session_created", nil)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id":   id,
		"worker_token": token,
	})
}

func (h *Handlers) HandleEndSession(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.store.GetSession(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	h.store.SetStatus(id, "ended")
	h.store.AppendEvent(id, "session_ended", nil)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.store.GetSession(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	events := h.store.ListEvents(id)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": id,
		"events":     events,
	})
}

// HandleUtterance injects a transcript as if an STT worker had sent it, so
// the decide path can be exercised without audio.
func (h *Handlers) HandleUtterance(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.store.GetSession(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	h.disp.OnMessage(id, workerws.Message{
		Type:      "transcript_final",
		TsMs:      time.Now().UnixMilli(),
		SessionID: id,
		Text:      body.Text,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":       true,
		"speaking": h.disp.IsSpeaking(id),
	})
}
