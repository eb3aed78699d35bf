package gateway

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestEventStream_Frames(t *testing.T) {
	w := httptest.NewRecorder()
	es, ok := newEventStream(w)
	if !ok {
		t.Fatal("recorder should support flushing")
	}
	es.begin()

	if err := es.content("line \"one\"\n"); err != nil {
		t.Fatalf("content: %v", err)
	}
	if err := es.done(); err != nil {
		t.Fatalf("done: %v", err)
	}

	want := "data: {\"content\":\"line \\\"one\\\"\\n\"}\n\n" + "data: {\"done\":true}\n\n"
	if got := w.Body.String(); got != want {
		t.Errorf("unexpected frames\n got: %q\nwant: %q", got, want)
	}
	if !w.Flushed {
		t.Error("expected flush")
	}
}

func TestEventStream_NothingAfterTerminal(t *testing.T) {
	w := httptest.NewRecorder()
	es, _ := newEventStream(w)
	es.begin()

	if err := es.fail("boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := es.content("late"); !errors.Is(err, errStreamClosed) {
		t.Errorf("expected errStreamClosed, got %v", err)
	}
	if err := es.done(); !errors.Is(err, errStreamClosed) {
		t.Errorf("expected errStreamClosed, got %v", err)
	}
	if got := w.Body.String(); got != "data: {\"error\":\"boom\"}\n\n" {
		t.Errorf("unexpected body %q", got)
	}
}
