package snapshot

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

func snap(ts int64, persons int) Snapshot {
	s := Snapshot{Timestamp: ts, CameraActive: true}
	for i := 0; i < persons; i++ {
		s.Persons = append(s.Persons, PersonRecord{ID: fmt.Sprintf("person_%d", i+1)})
	}
	return s
}

func TestStore_InitialSnapshot(t *testing.T) {
	s := New()
	cur := s.Current()

	if cur.Timestamp != 0 {
		t.Errorf("expected timestamp 0, got %d", cur.Timestamp)
	}
	if cur.CameraActive {
		t.Error("expected camera inactive")
	}
	if cur.Persons == nil || len(cur.Persons) != 0 {
		t.Errorf("expected empty non-nil persons, got %v", cur.Persons)
	}
	if cur.Objects == nil || len(cur.Objects) != 0 {
		t.Errorf("expected empty non-nil objects, got %v", cur.Objects)
	}
}

func TestStore_SubscribeBeforePublishGetsEmpty(t *testing.T) {
	s := New()

	var got []Snapshot
	sub := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })
	defer sub.Cancel()

	if len(got) != 1 {
		t.Fatalf("expected 1 immediate notification, got %d", len(got))
	}
	if got[0].Timestamp != 0 || len(got[0].Persons) != 0 {
		t.Errorf("expected empty snapshot, got %+v", got[0])
	}
}

func TestStore_SubscribeAfterPublishesGetsLatest(t *testing.T) {
	s := New()
	for i := int64(1); i <= 3; i++ {
		s.Publish(snap(i*100, int(i)))
	}

	var got []Snapshot
	sub := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })
	defer sub.Cancel()

	if len(got) != 1 {
		t.Fatalf("expected 1 immediate notification, got %d", len(got))
	}
	if got[0].Timestamp != 300 || len(got[0].Persons) != 3 {
		t.Errorf("expected third snapshot, got %+v", got[0])
	}
}

func TestStore_DeliversInPublishOrder(t *testing.T) {
	s := New()

	var a, b []int64
	subA := s.Subscribe(func(snap Snapshot) { a = append(a, snap.Timestamp) })
	subB := s.Subscribe(func(snap Snapshot) { b = append(b, snap.Timestamp) })
	defer subA.Cancel()
	defer subB.Cancel()

	for _, ts := range []int64{10, 20, 30} {
		s.Publish(snap(ts, 1))
	}

	want := []int64{0, 10, 20, 30}
	for name, got := range map[string][]int64{"a": a, "b": b} {
		if len(got) != len(want) {
			t.Fatalf("subscriber %s: got %v, want %v", name, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("subscriber %s: got %v, want %v", name, got, want)
				break
			}
		}
	}
}

func TestStore_Cancel(t *testing.T) {
	s := New()

	count := 0
	sub := s.Subscribe(func(Snapshot) { count++ })
	if s.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", s.Subscribers())
	}

	sub.Cancel()
	sub.Cancel()
	s.Publish(snap(1, 0))

	if count != 1 {
		t.Errorf("expected only the replay notification, got %d", count)
	}
	if s.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", s.Subscribers())
	}
}

func TestStore_PublishCopies(t *testing.T) {
	s := New()

	in := snap(5, 1)
	s.Publish(in)
	in.Persons[0].ID = "mutated"

	if got := s.Current().Persons[0].ID; got != "person_1" {
		t.Errorf("publisher mutation leaked into store: %q", got)
	}

	out := s.Current()
	out.Persons[0].ID = "mutated"
	if got := s.Current().Persons[0].ID; got != "person_1" {
		t.Errorf("reader mutation leaked into store: %q", got)
	}
}

func TestStore_SubscriptionIDsAreUnique(t *testing.T) {
	s := New()
	a := s.Subscribe(func(Snapshot) {})
	b := s.Subscribe(func(Snapshot) {})
	defer a.Cancel()
	defer b.Cancel()

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				cur := s.Current()
				if cur.Persons == nil {
					t.Error("current snapshot had nil persons")
					return
				}
			}
		}()
	}

	for i := int64(1); i <= 200; i++ {
		s.Publish(snap(i, int(i%3)))
	}
	wg.Wait()

	if got := s.Current().Timestamp; got != 200 {
		t.Errorf("expected last timestamp 200, got %d", got)
	}
}

func TestSnapshot_JSONShape(t *testing.T) {
	data, err := json.Marshal(Empty())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"persons":[],"objects":[],"timestamp":0,"cameraActive":false}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
