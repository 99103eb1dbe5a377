package progress

import (
	"context"
	"fmt"
	"time"
)

type tallySink struct {
	total int
}

func (s *tallySink) Consume(_ context.Context, batch []Event) error {
	s.total += len(batch)
	return nil
}

func (s *tallySink) Close(context.Context) error {
	return nil
}

// ExampleHub_Emit demonstrates emitting an event and flushing via Close.
func ExampleHub_Emit() {
	sink := &tallySink{}
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Second,
	}, sink)

	hub.Emit(Event{
		RunID: "run-1",
		TS:    time.Unix(0, 0),
		Stage: StageRunStart,
	})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("events delivered: %d\n", sink.total)
	// Output:
	// events delivered: 1
}

// ExampleSink implements a custom Sink that totals rewritten cells.
func ExampleSink() {
	type cellsSink struct {
		changed int
	}
	var s cellsSink
	capture := sinkFunc(func(_ context.Context, batch []Event) error {
		for _, evt := range batch {
			s.changed += evt.Changed
		}
		return nil
	})
	hub := NewHub(Config{
		BufferSize:     2,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Second,
	}, capture)

	hub.Emit(Event{
		RunID:   "run-2",
		TS:      time.Unix(0, 0),
		Stage:   StageDomainDone,
		Domain:  "kia.lk",
		Changed: 12,
	})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("cells rewritten: %d\n", s.changed)
	// Output:
	// cells rewritten: 12
}

type sinkFunc func(context.Context, []Event) error

func (f sinkFunc) Consume(ctx context.Context, batch []Event) error {
	return f(ctx, batch)
}

func (sinkFunc) Close(context.Context) error {
	return nil
}
