package dispatcher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func collect[T any](t *testing.T, sub *Subscription[T]) []Event[T] {
	t.Helper()
	var events []Event[T]
	timeout := time.After(testWait)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for stream events")
			return nil
		}
	}
}

func assertSuccess(t *testing.T, events []Event[user], name string) {
	t.Helper()
	if len(events) != 2 {
		t.Fatalf("expected next+completed, got %d events: %+v", len(events), events)
	}
	if events[0].Kind != EventNext || events[0].Value == nil || events[0].Value.Value.Name != name {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].Kind != EventCompleted {
		t.Errorf("expected completion, got %s", events[1].Kind)
	}
}

func TestPublish_IsLazy(t *testing.T) {
	tr := &fixedTransport{status: 200, body: `{"name":"x"}`}
	d := newTestDispatcher(t, tr)

	stream := Publish(context.Background(), d, newTestResource[user, apiError](http.MethodGet, "https://api.test/u"))
	time.Sleep(20 * time.Millisecond)

	if stream.Started() {
		t.Error("stream must not start before the first subscriber")
	}
	if tr.calls.Load() != 0 {
		t.Errorf("expected zero transport calls, got %d", tr.calls.Load())
	}
}

func TestPublish_SingleCallForManySubscribers(t *testing.T) {
	tr := newGatedTransport(200, `{"name":"dave"}`)
	d := newTestDispatcher(t, tr)
	stream := Publish(context.Background(), d, newTestResource[user, apiError](http.MethodGet, "https://api.test/u"))

	subs := []*Subscription[user]{stream.Subscribe(), stream.Subscribe(), stream.Subscribe()}
	waitClosed(t, tr.started, "transport call")
	close(tr.release)

	for _, sub := range subs {
		assertSuccess(t, collect(t, sub), "dave")
	}

	late := collect(t, stream.Subscribe())
	assertSuccess(t, late, "dave")

	if got := tr.calls.Load(); got != 1 {
		t.Errorf("expected exactly one transport call, got %d", got)
	}
}

func TestPublish_Failure(t *testing.T) {
	tr := &fixedTransport{status: 404, body: `{"message":"not found"}`}
	d := newTestDispatcher(t, tr)
	stream := Publish(context.Background(), d, newTestResource[user, apiError](http.MethodGet, "https://api.test/u"))

	events := collect(t, stream.Subscribe())
	if len(events) != 1 || events[0].Kind != EventFailed {
		t.Fatalf("expected a single failure event, got %+v", events)
	}
	if !IsServerError(events[0].Err) {
		t.Errorf("expected server error, got %v", events[0].Err)
	}
	if events[0].Err.Error() != "Error returned by the server: URL: https://api.test/u, Code: 404, Description: not found" {
		t.Errorf("unexpected rendering %q", events[0].Err.Error())
	}
}

func TestPublish_CancelBeforeResolution(t *testing.T) {
	tr := newGatedTransport(200, `{"name":"never"}`)
	d := newTestDispatcher(t, tr)
	res := newTestResource[user, apiError](http.MethodGet, "https://api.test/u")
	stream := Publish(context.Background(), d, res)

	sub := stream.Subscribe()
	waitClosed(t, tr.started, "transport call")
	sub.Cancel()

	if events := collect(t, sub); len(events) != 0 {
		t.Errorf("expected no emissions after cancel, got %+v", events)
	}
	waitClosed(t, tr.canceled, "transport cancellation")

	// Give the task goroutine time to unwind; nothing may be parsed.
	time.Sleep(20 * time.Millisecond)
	if res.parseCalls.Load()+res.parseErrorCalls.Load() != 0 {
		t.Error("no parser may run after cancellation")
	}

	events := collect(t, stream.Subscribe())
	if len(events) != 1 || !errors.Is(events[0].Err, context.Canceled) {
		t.Errorf("expected late subscriber of a cancelled stream to get a cancellation failure, got %+v", events)
	}
	if tr.calls.Load() != 1 {
		t.Errorf("expected one transport call, got %d", tr.calls.Load())
	}
}

func TestPublish_OneSubscriberCancelKeepsOthers(t *testing.T) {
	tr := newGatedTransport(200, `{"name":"erin"}`)
	d := newTestDispatcher(t, tr)
	stream := Publish(context.Background(), d, newTestResource[user, apiError](http.MethodGet, "https://api.test/u"))

	leaving := stream.Subscribe()
	staying := stream.Subscribe()
	waitClosed(t, tr.started, "transport call")

	leaving.Cancel()
	leaving.Cancel()
	close(tr.release)

	assertSuccess(t, collect(t, staying), "erin")
	if events := collect(t, leaving); len(events) != 0 {
		t.Errorf("cancelled subscriber must not receive events, got %+v", events)
	}
	select {
	case <-tr.canceled:
		t.Error("transport must not be cancelled while a subscriber remains")
	default:
	}
}

func TestStream_Cancel(t *testing.T) {
	tr := newGatedTransport(200, `{}`)
	d := newTestDispatcher(t, tr)
	stream := Publish(context.Background(), d, newTestResource[user, apiError](http.MethodGet, "https://api.test/u"))

	a, b := stream.Subscribe(), stream.Subscribe()
	waitClosed(t, tr.started, "transport call")
	stream.Cancel()

	waitClosed(t, tr.canceled, "transport cancellation")
	if len(collect(t, a))+len(collect(t, b)) != 0 {
		t.Error("expected no emissions after stream cancel")
	}
	stream.Cancel()
	a.Cancel()
}

func TestStream_CancelBeforeActivation(t *testing.T) {
	tr := &fixedTransport{status: 200, body: `{}`}
	d := newTestDispatcher(t, tr)
	stream := Publish(context.Background(), d, newTestResource[user, apiError](http.MethodGet, "https://api.test/u"))

	stream.Cancel()
	events := collect(t, stream.Subscribe())
	if len(events) != 1 || !IsTransportFailure(events[0].Err) {
		t.Errorf("expected transport failure, got %+v", events)
	}
	if tr.calls.Load() != 0 {
		t.Errorf("expected zero transport calls, got %d", tr.calls.Load())
	}
}

func TestEventKindString(t *testing.T) {
	tests := map[EventKind]string{
		EventNext:      "next",
		EventCompleted: "completed",
		EventFailed:    "failed",
		EventKind(42):  "unknown",
	}
	for kind, want := range tests {
		if kind.String() != want {
			t.Errorf("expected %q, got %q", want, kind.String())
		}
	}
}
