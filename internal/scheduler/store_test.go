package scheduler_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/testsupport"
)

func newStoreAt(t *testing.T, current *time.Time) *scheduler.Store {
	t.Helper()
	store := testsupport.MustOpenSchedulerStore(t, nil)
	store.SetClock(func() time.Time { return *current })
	return store
}

func TestScheduleValidation(t *testing.T) {
	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newStoreAt(t, &current)
	ctx := context.Background()

	cases := []struct {
		name string
		req  scheduler.ScheduleRequest
	}{
		{"past time", scheduler.ScheduleRequest{Platform: "twitter", Content: "x", ScheduledTime: current.Add(-time.Second)}},
		{"now exactly", scheduler.ScheduleRequest{Platform: "twitter", Content: "x", ScheduledTime: current}},
		{"empty content", scheduler.ScheduleRequest{Platform: "twitter", Content: "   ", ScheduledTime: current.Add(time.Hour)}},
		{"no platform", scheduler.ScheduleRequest{Content: "x", ScheduledTime: current.Add(time.Hour)}},
		{"over ceiling", scheduler.ScheduleRequest{Platform: "twitter", Content: strings.Repeat("a", 281), ScheduledTime: current.Add(time.Hour)}},
	}
	for _, tc := range cases {
		if _, err := store.Schedule(ctx, tc.req); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	id, err := store.Schedule(ctx, scheduler.ScheduleRequest{
		Platform:      "twitter",
		Content:       strings.Repeat("a", 280),
		ScheduledTime: current.Add(time.Hour),
		Metadata:      map[string]string{"post_id": "7"},
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	post, err := store.GetByID(ctx, id)
	if err != nil || post == nil {
		t.Fatalf("GetByID: %v %v", post, err)
	}
	if post.Status != scheduler.StatusPending || post.RetryCount != 0 {
		t.Fatalf("new intent = %s retries=%d", post.Status, post.RetryCount)
	}
}

func TestGetReadyOrdersByScheduledTime(t *testing.T) {
	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newStoreAt(t, &current)
	ctx := context.Background()

	t3, _ := store.Schedule(ctx, scheduler.ScheduleRequest{Platform: "twitter", Content: "third", ScheduledTime: current.Add(3 * time.Minute)})
	t1, _ := store.Schedule(ctx, scheduler.ScheduleRequest{Platform: "twitter", Content: "first", ScheduledTime: current.Add(1 * time.Minute)})
	t2, _ := store.Schedule(ctx, scheduler.ScheduleRequest{Platform: "twitter", Content: "second", ScheduledTime: current.Add(2 * time.Minute)})

	ready, err := store.GetReady(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 0 {
		t.Fatalf("nothing is due yet, got %d rows", len(ready))
	}

	current = current.Add(time.Hour)
	ready, err = store.GetReady(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 3 {
		t.Fatalf("ready = %d rows, want 3", len(ready))
	}
	wantOrder := []int64{t1, t2, t3}
	for i, post := range ready {
		if post.ID != wantOrder[i] {
			t.Fatalf("position %d = post %d, want %d (earliest-due first)", i, post.ID, wantOrder[i])
		}
	}
}

func TestMarkPublishedIsIdempotent(t *testing.T) {
	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newStoreAt(t, &current)
	ctx := context.Background()

	id, err := store.Schedule(ctx, scheduler.ScheduleRequest{Platform: "twitter", Content: "x", ScheduledTime: current.Add(time.Minute)})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.MarkPublished(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkPublished(ctx, id); err != nil {
		t.Fatalf("second MarkPublished should be a no-op, got %v", err)
	}
	post, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if post.Status != scheduler.StatusPublished {
		t.Fatalf("status = %s, want published", post.Status)
	}
}

func TestRetryLedgerCapsAtMax(t *testing.T) {
	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newStoreAt(t, &current)
	ctx := context.Background()

	id, err := store.Schedule(ctx, scheduler.ScheduleRequest{Platform: "twitter", Content: "x", ScheduledTime: current.Add(time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	current = current.Add(time.Hour)

	for i := 1; i <= 2; i++ {
		if err := store.Retry(ctx, id); err != nil {
			t.Fatalf("retry %d: %v", i, err)
		}
		post, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if post.RetryCount != i || post.Status != scheduler.StatusPending {
			t.Fatalf("after retry %d: count=%d status=%s", i, post.RetryCount, post.Status)
		}
	}

	// Third retry hits the cap and flips to failed.
	if err := store.Retry(ctx, id); err != nil {
		t.Fatal(err)
	}
	post, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if post.Status != scheduler.StatusFailed || post.RetryCount != 3 {
		t.Fatalf("after final retry: count=%d status=%s", post.RetryCount, post.Status)
	}
	if post.ErrorMessage != "max retries reached" {
		t.Fatalf("reason = %q", post.ErrorMessage)
	}

	// The failed row is invisible to readiness and immune to further retries.
	ready, err := store.GetReady(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 0 {
		t.Fatalf("failed row must never be ready again, got %d", len(ready))
	}
	if err := store.Retry(ctx, id); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("retry past cap should be rejected, got %v", err)
	}
}

func TestCancelOnlyWhilePending(t *testing.T) {
	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newStoreAt(t, &current)
	ctx := context.Background()

	id, err := store.Schedule(ctx, scheduler.ScheduleRequest{Platform: "twitter", Content: "x", ScheduledTime: current.Add(time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Cancel(ctx, id); err != nil {
		t.Fatal(err)
	}
	post, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if post.Status != scheduler.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", post.Status)
	}

	published, err := store.Schedule(ctx, scheduler.ScheduleRequest{Platform: "twitter", Content: "y", ScheduledTime: current.Add(time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.MarkPublished(ctx, published); err != nil {
		t.Fatal(err)
	}
	if err := store.Cancel(ctx, published); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("cancelling a published post should fail, got %v", err)
	}
}

func TestStatsGroupsByStatus(t *testing.T) {
	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newStoreAt(t, &current)
	ctx := context.Background()

	a, _ := store.Schedule(ctx, scheduler.ScheduleRequest{Platform: "twitter", Content: "a", ScheduledTime: current.Add(time.Minute)})
	if _, err := store.Schedule(ctx, scheduler.ScheduleRequest{Platform: "twitter", Content: "b", ScheduledTime: current.Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkPublished(ctx, a); err != nil {
		t.Fatal(err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pending != 1 || stats.Published != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestScheduleRefusesSecondPendingDeliveryForPost(t *testing.T) {
	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newStoreAt(t, &current)
	ctx := context.Background()

	req := scheduler.ScheduleRequest{
		PostID:        7,
		Platform:      "twitter",
		Content:       "booked once",
		ScheduledTime: current.Add(time.Hour),
	}
	if _, err := store.Schedule(ctx, req); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if _, err := store.Schedule(ctx, req); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for a second pending delivery, got %v", err)
	}

	pending, err := store.List(ctx, scheduler.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending rows = %d, want 1", len(pending))
	}

	// Ad-hoc rows carry no draft and may coexist.
	adhoc := scheduler.ScheduleRequest{Platform: "twitter", Content: "no draft", ScheduledTime: current.Add(time.Hour)}
	if _, err := store.Schedule(ctx, adhoc); err != nil {
		t.Fatalf("first ad-hoc: %v", err)
	}
	if _, err := store.Schedule(ctx, adhoc); err != nil {
		t.Fatalf("second ad-hoc: %v", err)
	}
}

func TestDeferPushesDeliveryWithoutTouchingRetries(t *testing.T) {
	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newStoreAt(t, &current)
	ctx := context.Background()

	id, err := store.Schedule(ctx, scheduler.ScheduleRequest{
		Platform:      "twitter",
		Content:       "throttled",
		ScheduledTime: current.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	current = current.Add(2 * time.Minute)

	if err := store.Defer(ctx, id, 30*time.Second); err != nil {
		t.Fatalf("Defer: %v", err)
	}
	post, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if post.RetryCount != 0 || post.Status != scheduler.StatusPending {
		t.Fatalf("post = %s retries=%d, want pending with 0 retries", post.Status, post.RetryCount)
	}
	if !post.ScheduledTime.Equal(current.Add(30 * time.Second)) {
		t.Fatalf("scheduled_time = %s, want %s", post.ScheduledTime, current.Add(30*time.Second))
	}

	if err := store.MarkPublished(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := store.Defer(ctx, id, time.Minute); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error deferring a published row, got %v", err)
	}
}
