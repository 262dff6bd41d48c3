package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/intelevision/internal/snapshot"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (s *fakeSender) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, message{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{err: s.err}
}

func (s *fakeSender) messages() []message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]message(nil), s.msgs...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPublisher_SendsRetainedSnapshots(t *testing.T) {
	sender := &fakeSender{}
	p := NewPublisher(sender, PublisherConfig{Topic: "cams/front"})

	store := snapshot.New()
	sub := p.Attach(store)
	defer sub.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	store.Publish(snapshot.Snapshot{
		Persons:      []snapshot.PersonRecord{{ID: "person_1", Gesture: "hands_up"}},
		Timestamp:    42,
		CameraActive: true,
	})

	waitFor(t, func() bool { return p.Sent() == 2 })

	msgs := sender.messages()
	last := msgs[len(msgs)-1]
	if last.topic != "cams/front" || !last.retained || last.qos != 1 {
		t.Errorf("unexpected message envelope: %+v", last)
	}

	var got snapshot.Snapshot
	if err := json.Unmarshal(last.payload, &got); err != nil {
		t.Fatalf("payload is not a snapshot: %v", err)
	}
	if got.Timestamp != 42 || len(got.Persons) != 1 || got.Persons[0].Gesture != "hands_up" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestPublisher_EnqueueNeverBlocks(t *testing.T) {
	p := NewPublisher(&fakeSender{}, PublisherConfig{Topic: "t", QueueSize: 2})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.Enqueue(snapshot.Empty())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked with no consumer")
	}

	if p.Dropped() != 8 {
		t.Errorf("Dropped() = %d, want 8", p.Dropped())
	}
}

func TestPublisher_ErrorsAreNotCounted(t *testing.T) {
	sender := &fakeSender{err: errors.New("not authorized")}
	p := NewPublisher(sender, PublisherConfig{Topic: "t"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	p.Enqueue(snapshot.Empty())
	waitFor(t, func() bool { return len(sender.messages()) == 1 })

	// Give the loop a moment to record the outcome.
	time.Sleep(10 * time.Millisecond)
	if p.Sent() != 0 {
		t.Errorf("Sent() = %d, want 0 after broker error", p.Sent())
	}
}

func TestPublisher_StopsOnCancel(t *testing.T) {
	p := NewPublisher(&fakeSender{}, PublisherConfig{Topic: "t"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
