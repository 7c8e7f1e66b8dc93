package loop

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"murmur/agent/internal/interrupt"
	"murmur/agent/internal/responder"
	"murmur/agent/internal/store"
	"murmur/agent/internal/workerws"
)

// Dispatcher is the agent loop: it tracks the speaking mode per session,
// classifies every final transcript, stops playback on actionable input, and
// hands actionable text to the responder.
type Dispatcher struct {
	reg        *workerws.Registry
	store      *store.Store
	classifier *interrupt.Classifier
	responder  responder.Responder

	speechTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*sessState
}

type sessState struct {
	tracker      *interrupt.Tracker
	stopping     bool
	pendingCmdID string
	ttsStartRecv time.Time

	// recv timestamps of the transcript that triggered the last stop, for
	// barge-in latency once tts_stopped comes back
	lastInterruptTsMs   int64
	lastInterruptRecvMs int64

	replyCancel context.CancelFunc
}

func New(reg *workerws.Registry, st *store.Store, cl *interrupt.Classifier, rsp responder.Responder, speechTimeoutSec int) *Dispatcher {
	return &Dispatcher{
		reg:           reg,
		store:         st,
		classifier:    cl,
		responder:     rsp,
		speechTimeout: time.Duration(speechTimeoutSec) * time.Second,
		sessions:      make(map[string]*sessState),
	}
}

func (d *Dispatcher) state(sessionID string) *sessState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.sessions[sessionID]
	if s == nil {
		s = &sessState{tracker: interrupt.NewTracker()}
		d.sessions[sessionID] = s
	}
	return s
}

// IsSpeaking reports the tracked mode for a session (used by the debug API).
func (d *Dispatcher) IsSpeaking(sessionID string) bool {
	return d.state(sessionID).tracker.IsSpeaking()
}

// OnMessage processes a worker message and may send commands back.
func (d *Dispatcher) OnMessage(sessionID string, msg workerws.Message) {
	s := d.state(sessionID)
	nowRecvMs := time.Now().UnixMilli()

	switch msg.Type {
	case "tts_started":
		d.setMode(s, sessionID, interrupt.ModeSpeaking)
		s.ttsStartRecv = time.Now()
		d.store.AppendEvent(sessionID, "tts_started", map[string]any{"utterance_id": msg.UtteranceID, "recv_ms": nowRecvMs})

	case "tts_first_audio":
		d.store.AppendEvent(sessionID, "tts_first_audio", map[string]any{"recv_ms": nowRecvMs})

	case "tts_stopped":
		reason := ""
		if msg.Payload != nil {
			if v, ok := msg.Payload["reason"].(string); ok {
				reason = v
			}
		}
		d.setMode(s, sessionID, interrupt.ModeSilent)
		s.ttsStartRecv = time.Time{}
		if reason == "interrupted" && s.lastInterruptTsMs > 0 {
			workerMs := msg.TsMs - s.lastInterruptTsMs
			backendMs := nowRecvMs - s.lastInterruptRecvMs
			metricStopLatencyMS.Observe(float64(backendMs))
			d.store.AppendEvent(sessionID, "barge_in_latency", map[string]any{
				"worker_ms": workerMs, "backend_ms": backendMs,
				"utterance_id": msg.UtteranceID,
			})
		}
		s.stopping = false
		s.pendingCmdID = ""
		d.store.AppendEvent(sessionID, "tts_stopped", map[string]any{"reason": reason})

	case "transcript_interim":
		// Interim text is too unstable to act on; only finals are classified.

	case "transcript_final":
		d.handleTranscript(s, sessionID, msg, nowRecvMs)

	case "cmd_ack":
		if msg.CommandID != "" && msg.CommandID == s.pendingCmdID {
			d.store.AppendEvent(sessionID, "cmd_ack", map[string]any{"command_id": msg.CommandID})
		} else {
			d.store.AppendEvent(sessionID, "cmd_ack", map[string]any{"command_id": msg.CommandID, "note": "unexpected"})
		}

	case "worker_hello":
		// Fresh worker: assume silence until it restates playback.
		d.setMode(s, sessionID, interrupt.ModeSilent)
		s.stopping = false
		s.pendingCmdID = ""
		s.ttsStartRecv = time.Time{}
	}

	// Safety: a worker that dies mid-playback never sends tts_stopped.
	if !s.ttsStartRecv.IsZero() && time.Since(s.ttsStartRecv) > d.speechTimeout {
		d.setMode(s, sessionID, interrupt.ModeSilent)
		s.stopping = false
		s.pendingCmdID = ""
		s.ttsStartRecv = time.Time{}
		d.store.AppendEvent(sessionID, "speech_timeout_reset", nil)
	}
}

// handleTranscript runs the interruption decision for one final transcript.
func (d *Dispatcher) handleTranscript(s *sessState, sessionID string, msg workerws.Message, nowRecvMs int64) {
	text := msg.Text
	mode := s.tracker.Mode()
	d.store.SetLastUtterance(sessionID, text, time.Now().UTC())

	if !d.classifier.Decide(mode, text) {
		metricTranscriptsDropped.Inc()
		log.Printf("[loop] ignoring filler sid=%s mode=%s text=%q", sessionID, mode, text)
		d.store.AppendEvent(sessionID, "utterance_ignored", map[string]any{"text": text, "mode": mode.String()})
		return
	}

	if mode == interrupt.ModeSpeaking {
		d.stopPlayback(s, sessionID, msg, nowRecvMs)
	}

	d.store.AppendEvent(sessionID, "utterance_accepted", map[string]any{"text": text, "mode": mode.String()})
	go d.respond(sessionID, text)
}

// stopPlayback sends stop_tts once per barge-in and cancels any reply still
// being generated.
func (d *Dispatcher) stopPlayback(s *sessState, sessionID string, msg workerws.Message, nowRecvMs int64) {
	log.Printf("[loop] barge-in sid=%s text=%q", sessionID, msg.Text)
	metricBargeIns.Inc()
	s.lastInterruptTsMs = msg.TsMs
	s.lastInterruptRecvMs = nowRecvMs

	d.cancelReply(s)

	if s.stopping {
		return
	}
	s.stopping = true
	cmdID := uuid.New().String()
	s.pendingCmdID = cmdID

	out := workerws.Message{
		Type:      "stop_tts",
		TsMs:      time.Now().UnixMilli(),
		SessionID: sessionID,
		CommandID: cmdID,
		Payload:   map[string]any{"mode": "current"},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = d.reg.SendJSON(ctx, sessionID, out)
	cancel()
	d.store.AppendEvent(sessionID, "stop_tts_sent", map[string]any{"command_id": cmdID})
}

// respond generates a reply and pushes it to the worker as start_tts.
func (d *Dispatcher) respond(sessionID, userText string) {
	if d.responder == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.attachReply(sessionID, cancel)
	defer d.detachReply(sessionID)

	reply, err := d.responder.Reply(ctx, userText)
	if err != nil {
		if ctx.Err() != nil {
			d.store.AppendEvent(sessionID, "reply_cancelled", nil)
			return
		}
		log.Printf("[loop] reply failed sid=%s: %v", sessionID, err)
		d.store.AppendEvent(sessionID, "reply_failed", map[string]any{"error": err.Error()})
		return
	}
	if reply == "" {
		return
	}

	out := workerws.Message{
		Type:        "start_tts",
		TsMs:        time.Now().UnixMilli(),
		SessionID:   sessionID,
		UtteranceID: uuid.New().String(),
		Text:        reply,
	}
	sendCtx, sendCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = d.reg.SendJSON(sendCtx, sessionID, out)
	sendCancel()
	d.store.AppendEvent(sessionID, "reply_sent", map[string]any{"utterance_id": out.UtteranceID})
}

func (d *Dispatcher) setMode(s *sessState, sessionID string, to interrupt.Mode) {
	from := s.tracker.Mode()
	if from == to {
		return
	}
	s.tracker.SetMode(to)
	interrupt.CountTransition(from, to)
	log.Printf("[loop] mode sid=%s %s -> %s", sessionID, from, to)
}

func (d *Dispatcher) attachReply(sessionID string, cancel context.CancelFunc) {
	d.mu.Lock()
	if s := d.sessions[sessionID]; s != nil {
		s.replyCancel = cancel
	}
	d.mu.Unlock()
}

func (d *Dispatcher) detachReply(sessionID string) {
	d.mu.Lock()
	if s := d.sessions[sessionID]; s != nil {
		s.replyCancel = nil
	}
	d.mu.Unlock()
}

func (d *Dispatcher) cancelReply(s *sessState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s.replyCancel != nil {
		s.replyCancel()
		s.replyCancel = nil
	}
}
