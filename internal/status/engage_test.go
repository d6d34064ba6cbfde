package status

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestToggleReactionOnOff(t *testing.T) {
	engine, _, _, clock := newTestEngine(t)
	s := mustCreate(t, engine, "hello", testAuthor("u1"), nil)
	ctx := context.Background()

	res := engine.ToggleReaction(ctx, s.ID, "🔥", "u2")
	if !res.OK {
		t.Fatalf("toggle on failed: %v", res.Err)
	}
	if r := res.Reactions["🔥"]; r.Count != 1 || !reflect.DeepEqual(r.Reactors, []string{"u2"}) {
		t.Fatalf("after toggle on: %+v", res.Reactions)
	}

	res = engine.ToggleReaction(ctx, s.ID, "🔥", "u2")
	if !res.OK {
		t.Fatalf("toggle off failed: %v", res.Err)
	}
	if _, ok := res.Reactions["🔥"]; ok {
		t.Fatalf("emoji key must be deleted at zero reactors: %+v", res.Reactions)
	}

	// lastInteractionAt bumped
	clock.Advance(time.Minute)
	engine.ToggleReaction(ctx, s.ID, "👍", "u2")
	got, err := engine.FetchStatuses(ctx, FeedFilter{})
	if err != nil || len(got) != 1 {
		t.Fatalf("fetch: %v (%d)", err, len(got))
	}
	if got[0].LastInteractionAt != clock.Now().UnixMilli() {
		t.Errorf("lastInteractionAt = %d, want %d", got[0].LastInteractionAt, clock.Now().UnixMilli())
	}
}

func TestToggleReactionMultipleEmoji(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	s := mustCreate(t, engine, "hello", testAuthor("u1"), nil)
	ctx := context.Background()

	engine.ToggleReaction(ctx, s.ID, "🔥", "u2")
	res := engine.ToggleReaction(ctx, s.ID, "👍", "u2")
	if !res.OK {
		t.Fatal(res.Err)
	}
	if len(res.Reactions) != 2 {
		t.Fatalf("one user should hold reactions under multiple emoji: %+v", res.Reactions)
	}

	// Toggling one emoji off leaves the other intact.
	res = engine.ToggleReaction(ctx, s.ID, "🔥", "u2")
	if _, ok := res.Reactions["🔥"]; ok {
		t.Error("🔥 should be gone")
	}
	if res.Reactions["👍"].Count != 1 {
		t.Errorf("👍 lost: %+v", res.Reactions)
	}
}

func TestToggleReactionConcurrentNoLostUpdate(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	s := mustCreate(t, engine, "hello", testAuthor("u1"), nil)
	ctx := context.Background()

	const users = 8
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			res := engine.ToggleReaction(ctx, s.ID, "🔥", string(rune('a'+n)))
			if !res.OK {
				t.Errorf("toggle %d: %v", n, res.Err)
			}
		}(i)
	}
	wg.Wait()

	got, err := engine.FetchStatuses(ctx, FeedFilter{})
	if err != nil || len(got) != 1 {
		t.Fatalf("fetch: %v", err)
	}
	r := got[0].Reactions["🔥"]
	if r.Count != users || len(r.Reactors) != users {
		t.Fatalf("lost update: count=%d reactors=%v", r.Count, r.Reactors)
	}
}

func TestToggleReactionSoftFailures(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	res := engine.ToggleReaction(context.Background(), "nope", "🔥", "u1")
	if res.OK || !errors.Is(res.Err, ErrStatusNotFound) {
		t.Errorf("missing status: %+v", res)
	}

	res = engine.ToggleReaction(context.Background(), "s", "🔥", "")
	if res.OK || !errors.Is(res.Err, ErrNotAuthenticated) {
		t.Errorf("missing uid: %+v", res)
	}

	res = engine.ToggleReaction(context.Background(), "s", "", "u1")
	if res.OK || !errors.Is(res.Err, ErrEmojiRequired) {
		t.Errorf("missing emoji: %+v", res)
	}
}

func TestReportThresholdHidesStatus(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	s := mustCreate(t, engine, "hello", testAuthor("author"), nil)
	ctx := context.Background()

	for i, uid := range []string{"r1", "r2"} {
		res := engine.ReportStatus(ctx, s.ID, uid, "spam")
		if !res.OK || res.IsHidden || res.ReportCount != i+1 {
			t.Fatalf("report %d: %+v", i+1, res)
		}
	}

	res := engine.ReportStatus(ctx, s.ID, "r3", "spam")
	if !res.OK || !res.IsHidden || res.ReportCount != testThreshold {
		t.Fatalf("third report should hide: %+v", res)
	}

	// A fourth reporter still counts; hidden never regresses.
	res = engine.ReportStatus(ctx, s.ID, "r4", "abuse")
	if !res.OK || !res.IsHidden || res.ReportCount != 4 {
		t.Fatalf("fourth report: %+v", res)
	}
}

func TestReportIsIdempotentPerUser(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	s := mustCreate(t, engine, "hello", testAuthor("author"), nil)
	ctx := context.Background()

	first := engine.ReportStatus(ctx, s.ID, "r1", "spam")
	if !first.OK || first.AlreadyReported {
		t.Fatalf("first report: %+v", first)
	}

	second := engine.ReportStatus(ctx, s.ID, "r1", "spam again")
	if !second.OK || !second.AlreadyReported {
		t.Fatalf("second report should be flagged: %+v", second)
	}
	if second.ReportCount != 1 {
		t.Fatalf("re-report changed count: %+v", second)
	}
}

func TestReportSoftFailOnMissingStatus(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	res := engine.ReportStatus(context.Background(), "nope", "r1", "spam")
	if res.OK || !errors.Is(res.Err, ErrStatusNotFound) {
		t.Fatalf("missing status: %+v", res)
	}
}
