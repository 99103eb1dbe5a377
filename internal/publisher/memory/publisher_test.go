package memory

import (
	"context"
	"testing"
)

func TestPublisherRecordsInOrder(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "rank-sync-events", map[string]string{"run_id": "run-1"})
	if err != nil || id1 != "mem-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "other-topic", "payload")
	if err != nil || id2 != "mem-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != "rank-sync-events" || msgs[1].Topic != "other-topic" {
		t.Fatalf("topics not recorded correctly: %+v", msgs)
	}
	if msgs[0].ID != "mem-1" || msgs[1].ID != "mem-2" {
		t.Fatalf("ids not recorded correctly: %+v", msgs)
	}

	msgs[0].Topic = "modified"
	if pub.Messages()[0].Topic == "modified" {
		t.Fatal("expected Messages() to return a copy")
	}
}

func TestPublisherMessagesForFiltersByTopic(t *testing.T) {
	t.Parallel()

	pub := New()
	if _, err := pub.Publish(context.Background(), "rank-sync-events", "a"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := pub.Publish(context.Background(), "audit", "b"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	scoped := pub.MessagesFor("rank-sync-events")
	if len(scoped) != 1 || scoped[0].Payload != "a" {
		t.Fatalf("unexpected scoped messages: %+v", scoped)
	}
	if got := pub.MessagesFor("missing"); len(got) != 0 {
		t.Fatalf("expected no messages for unknown topic, got %+v", got)
	}
}

func TestPublisherReset(t *testing.T) {
	t.Parallel()

	pub := New()
	if _, err := pub.Publish(context.Background(), "rank-sync-events", "a"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	pub.Reset()
	if got := pub.Messages(); len(got) != 0 {
		t.Fatalf("expected empty publisher after Reset, got %+v", got)
	}

	id, err := pub.Publish(context.Background(), "rank-sync-events", "b")
	if err != nil || id != "mem-1" {
		t.Fatalf("expected ids to restart after Reset, got id=%s err=%v", id, err)
	}
}
