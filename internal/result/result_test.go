package result

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/failure"
)

func TestFromClassifiesErrors(t *testing.T) {
	r := From(failure.OpGetUser, 0, &biblio.APIError{StatusCode: 404})
	if !r.IsFailed() || r.Kind() != failure.NotFound {
		t.Fatalf("From = %#v, want failed not-found", r)
	}
	if r.Message() == "" || r.Err() == nil {
		t.Fatalf("failed result should expose message and error")
	}

	ok := From(failure.OpGetUser, 7, nil)
	if !ok.IsSuccess() || ok.Value != 7 || ok.Err() != nil || ok.Message() != "" {
		t.Fatalf("From = %#v, want success 7", ok)
	}
}

func TestFailNilFallsBackToUnknown(t *testing.T) {
	r := Fail[string](nil)
	if r.Kind() != failure.Unknown || r.Message() == "" {
		t.Fatalf("Fail(nil) = %#v", r)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Loading: "loading", Success: "success", Failed: "failed"} {
		if s.String() != want {
			t.Fatalf("State(%d) = %q, want %q", s, s.String(), want)
		}
	}
	if !Pending[int]().IsLoading() {
		t.Fatalf("Pending should be loading")
	}
}

func TestGoDeliversExactlyOnce(t *testing.T) {
	ch := Go(context.Background(), func(context.Context) Result[string] {
		return Ok("fet")
	})
	r, err := Await(context.Background(), ch)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if r.Value != "fet" {
		t.Fatalf("Value = %q, want fet", r.Value)
	}
	if _, open := <-ch; open {
		t.Fatalf("channel should be closed after the single result")
	}
}

func TestAwaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	ch := Go(context.Background(), func(context.Context) Result[int] {
		<-release
		return Ok(1)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := Await(ctx, ch); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Await error = %v, want deadline exceeded", err)
	}
}
