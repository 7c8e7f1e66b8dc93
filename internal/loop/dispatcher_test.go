package loop

import (
	"context"
	"testing"
	"time"

	"murmur/agent/internal/interrupt"
	"murmur/agent/internal/responder"
	"murmur/agent/internal/store"
	"murmur/agent/internal/types"
	"murmur/agent/internal/workerws"
)

type fakeResponder struct {
	replies chan string
	block   chan struct{} // if set, Reply blocks until closed or ctx done
}

func (f *fakeResponder) Reply(ctx context.Context, userText string) (string, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.replies != nil {
		f.replies <- userText
	}
	return "reply to " + userText, nil
}

func newTestDispatcher(rsp *fakeResponder) (*Dispatcher, *store.Store) {
	st := store.New()
	_ = st.CreateSession(&types.Session{ID: "s1", CreatedAt: time.Now()})
	reg := workerws.NewRegistry()
	var r responder.Responder
	if rsp != nil {
		r = rsp
	}
	d := New(reg, st, interrupt.NewClassifier(nil), r, 60)
	return d, st
}

func hasEvent(st *store.Store, sessionID, typ string) bool {
	for _, e := range st.ListEvents(sessionID) {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for responder call")
		return ""
	}
}

func TestTTSLifecycleTracksMode(t *testing.T) {
	d, _ := newTestDispatcher(nil)

	if d.IsSpeaking("s1") {
		t.Fatal("new session should start silent")
	}
	d.OnMessage("s1", workerws.Message{Type: "tts_started", UtteranceID: "u1", TsMs: 1000})
	if !d.IsSpeaking("s1") {
		t.Fatal("tts_started should set speaking")
	}
	d.OnMessage("s1", workerws.Message{Type: "tts_stopped", UtteranceID: "u1", TsMs: 2000})
	if d.IsSpeaking("s1") {
		t.Fatal("tts_stopped should set silent")
	}
}

func TestFillerWhileSpeakingIsDropped(t *testing.T) {
	rsp := &fakeResponder{replies: make(chan string, 1)}
	d, st := newTestDispatcher(rsp)

	d.OnMessage("s1", workerws.Message{Type: "tts_started", TsMs: 1000})
	d.OnMessage("s1", workerws.Message{Type: "transcript_final", Text: "yeah okay", TsMs: 1500})

	if !hasEvent(st, "s1", "utterance_ignored") {
		t.Fatal("expected utterance_ignored event")
	}
	if hasEvent(st, "s1", "stop_tts_sent") {
		t.Fatal("filler must not trigger stop_tts")
	}
	if !d.IsSpeaking("s1") {
		t.Fatal("agent should keep speaking through filler")
	}
	select {
	case got := <-rsp.replies:
		t.Fatalf("responder should not be called for filler, got %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCommandWhileSpeakingStopsAndDispatches(t *testing.T) {
	rsp := &fakeResponder{replies: make(chan string, 1)}
	d, st := newTestDispatcher(rsp)

	d.OnMessage("s1", workerws.Message{Type: "tts_started", TsMs: 1000})
	d.OnMessage("s1", workerws.Message{Type: "transcript_final", Text: "yeah okay but wait", TsMs: 1500})

	if !hasEvent(st, "s1", "stop_tts_sent") {
		t.Fatal("expected stop_tts_sent event on barge-in")
	}
	if got := waitFor(t, rsp.replies); got != "yeah okay but wait" {
		t.Fatalf("responder got %q", got)
	}
}

func TestAnyInputWhileSilentDispatches(t *testing.T) {
	rsp := &fakeResponder{replies: make(chan string, 1)}
	d, st := newTestDispatcher(rsp)

	d.OnMessage("s1", workerws.Message{Type: "transcript_final", Text: "yeah", TsMs: 1000})

	if hasEvent(st, "s1", "stop_tts_sent") {
		t.Fatal("no playback to stop while silent")
	}
	if got := waitFor(t, rsp.replies); got != "yeah" {
		t.Fatalf("responder got %q", got)
	}
}

func TestEmptyTranscriptDropped(t *testing.T) {
	rsp := &fakeResponder{replies: make(chan string, 1)}
	d, st := newTestDispatcher(rsp)

	d.OnMessage("s1", workerws.Message{Type: "transcript_final", Text: "   ", TsMs: 1000})

	if !hasEvent(st, "s1", "utterance_ignored") {
		t.Fatal("expected utterance_ignored for whitespace input")
	}
	select {
	case <-rsp.replies:
		t.Fatal("responder should not be called for empty input")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBargeInCancelsInFlightReply(t *testing.T) {
	rsp := &fakeResponder{block: make(chan struct{})}
	d, st := newTestDispatcher(rsp)

	// First utterance while silent starts a slow reply.
	d.OnMessage("s1", workerws.Message{Type: "transcript_final", Text: "tell me a story", TsMs: 1000})

	// Wait for the reply goroutine to attach its cancel func.
	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.Lock()
		attached := d.sessions["s1"] != nil && d.sessions["s1"].replyCancel != nil
		d.mu.Unlock()
		if attached {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reply cancel never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Worker starts playing, user barges in.
	d.OnMessage("s1", workerws.Message{Type: "tts_started", TsMs: 1100})
	d.OnMessage("s1", workerws.Message{Type: "transcript_final", Text: "stop", TsMs: 1200})

	deadline = time.Now().Add(2 * time.Second)
	for !hasEvent(st, "s1", "reply_cancelled") {
		if time.Now().After(deadline) {
			t.Fatal("expected reply_cancelled event")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopSentOncePerBargeIn(t *testing.T) {
	d, st := newTestDispatcher(nil)

	d.OnMessage("s1", workerws.Message{Type: "tts_started", TsMs: 1000})
	d.OnMessage("s1", workerws.Message{Type: "transcript_final", Text: "stop", TsMs: 1100})
	d.OnMessage("s1", workerws.Message{Type: "transcript_final", Text: "stop stop", TsMs: 1200})

	n := 0
	for _, e := range st.ListEvents("s1") {
		if e.Type == "stop_tts_sent" {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("expected one stop_tts_sent while stopping, got %d", n)
	}
}

func TestWorkerHelloResetsMode(t *testing.T) {
	d, _ := newTestDispatcher(nil)

	d.OnMessage("s1", workerws.Message{Type: "tts_started", TsMs: 1000})
	d.OnMessage("s1", workerws.Message{Type: "worker_hello", TsMs: 2000})
	if d.IsSpeaking("s1") {
		t.Fatal("worker_hello should reset mode to silent")
	}
}

func TestBargeInLatencyRecorded(t *testing.T) {
	d, st := newTestDispatcher(nil)

	d.OnMessage("s1", workerws.Message{Type: "tts_started", TsMs: 1000})
	d.OnMessage("s1", workerws.Message{Type: "transcript_final", Text: "wait", TsMs: 1500})
	d.OnMessage("s1", workerws.Message{Type: "tts_stopped", TsMs: 1600, Payload: map[string]any{"reason": "interrupted"}})

	if !hasEvent(st, "s1", "barge_in_latency") {
		t.Fatal("expected barge_in_latency event after interrupted stop")
	}
}
