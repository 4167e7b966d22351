package notify

import (
	"context"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/iliyamo/lube-storefront/internal/i18n"
)

func TestPublishTimedNotificationSelfDismisses(t *testing.T) {
	h := NewHub(nil)
	events, cancel := h.Subscribe("v1")
	defer cancel()

	id := h.Publish("v1", Notification{Message: "saved", Severity: SeveritySuccess, Duration: 20 * time.Millisecond})

	ev := <-events
	if ev.Kind != EventPublished || ev.Notification.ID != id {
		t.Fatalf("first event = %+v", ev)
	}
	select {
	case ev = <-events:
		if ev.Kind != EventRemoved || ev.Notification.ID != id {
			t.Fatalf("second event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed notification was not removed")
	}
	if n := len(h.Pending("v1")); n != 0 {
		t.Fatalf("pending = %d, want 0", n)
	}
}

func TestZeroDurationPersistsUntilDismissed(t *testing.T) {
	h := NewHub(nil)
	id := h.Publish("v1", Notification{Message: "sticky", Severity: SeverityWarning})
	time.Sleep(30 * time.Millisecond)
	if got := h.Pending("v1"); len(got) != 1 || got[0].ID != id {
		t.Fatalf("pending = %+v", got)
	}
	if err := h.Dismiss("v1", id); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if err := h.Dismiss("v1", id); err != ErrNotFound {
		t.Fatalf("second dismiss err = %v, want ErrNotFound", err)
	}
}

func TestAudiencesAreIsolated(t *testing.T) {
	h := NewHub(nil)
	h.Publish("a", Notification{Message: "for a"})
	if got := h.Pending("b"); len(got) != 0 {
		t.Fatalf("audience b sees %+v", got)
	}
}

func TestPendingIsOldestFirst(t *testing.T) {
	h := NewHub(nil)
	base := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	tick := 0
	h.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }
	first := h.Publish("v", Notification{Message: "one"})
	second := h.Publish("v", Notification{Message: "two"})
	got := h.Pending("v")
	if len(got) != 2 || got[0].ID != first || got[1].ID != second {
		t.Fatalf("order = %+v", got)
	}
}

func TestConfirmRunsContinuationOnlyOnConfirm(t *testing.T) {
	h := NewHub(nil)
	s := NewScope(h, "v1", i18n.Printer(language.English))

	var decisions []bool
	id := s.Confirm("Delete this product?", func(_ context.Context, ok bool) {
		decisions = append(decisions, ok)
	})

	pending := h.Pending("v1")
	if len(pending) != 1 || len(pending[0].Actions) != 2 {
		t.Fatalf("confirm notification = %+v", pending)
	}
	if pending[0].Duration != 0 {
		t.Fatal("confirm dialog must not self-dismiss")
	}
	if pending[0].Actions[0].Label != i18n.MsgConfirm || pending[0].Actions[1].Label != i18n.MsgCancel {
		t.Fatalf("labels = %q, %q", pending[0].Actions[0].Label, pending[0].Actions[1].Label)
	}

	if err := h.Select(context.Background(), "v1", id, 1); err != nil {
		t.Fatalf("select cancel: %v", err)
	}
	if len(decisions) != 1 || decisions[0] {
		t.Fatalf("decisions after cancel = %v", decisions)
	}
	if err := h.Select(context.Background(), "v1", id, 0); err != ErrNotFound {
		t.Fatalf("reselect err = %v, want ErrNotFound", err)
	}

	id = s.Confirm("Delete this product?", func(_ context.Context, ok bool) {
		decisions = append(decisions, ok)
	})
	if err := h.Select(context.Background(), "v1", id, 0); err != nil {
		t.Fatalf("select confirm: %v", err)
	}
	if len(decisions) != 2 || !decisions[1] {
		t.Fatalf("decisions after confirm = %v", decisions)
	}
}

func TestDismissedConfirmNeverRuns(t *testing.T) {
	h := NewHub(nil)
	s := NewScope(h, "v1", nil)
	ran := false
	id := s.Confirm("sure?", func(context.Context, bool) { ran = true })
	if err := h.Dismiss("v1", id); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if ran {
		t.Fatal("continuation ran after dismissal")
	}
}

func TestSelectRejectsBadIndex(t *testing.T) {
	h := NewHub(nil)
	id := h.Publish("v1", Notification{Message: "plain"})
	if err := h.Select(context.Background(), "v1", id, 0); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(h.Pending("v1")) != 1 {
		t.Fatal("bad selection removed the notification")
	}
}

func TestOnPublishHook(t *testing.T) {
	h := NewHub(nil)
	var seen []Severity
	h.OnPublish(func(s Severity) { seen = append(seen, s) })
	NewScope(h, "v", nil).Error("boom")
	if len(seen) != 1 || seen[0] != SeverityError {
		t.Fatalf("seen = %v", seen)
	}
}

func TestForgetDropsOnlyStickyNotifications(t *testing.T) {
	h := NewHub(nil)
	s := NewScope(h, "v1", nil)
	ran := false
	s.Confirm("delete?", func(context.Context, bool) { ran = true })
	s.Info("signed out")

	if n := h.Forget("v1"); n != 1 {
		t.Fatalf("dropped = %d, want 1", n)
	}
	pending := h.Pending("v1")
	if len(pending) != 1 || pending[0].Message != "signed out" {
		t.Fatalf("pending = %+v", pending)
	}
	if ran {
		t.Fatal("forgotten confirmation ran its continuation")
	}
	if n := h.Forget("nobody"); n != 0 {
		t.Fatalf("dropped = %d for unknown audience", n)
	}
}
