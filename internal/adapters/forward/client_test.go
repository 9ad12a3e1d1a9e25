package forward

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tg-relay-bot/internal/domain"
)

func TestDeliverPostsMessage(t *testing.T) {
	var got forwardPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("ожидали POST, получили %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("неверный Content-Type: %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
	}))
	defer srv.Close()

	channel := NewChannel(time.Second)
	outcome := channel.Deliver(context.Background(), domain.Recipient{Address: srv.URL}, "hello world")

	if !outcome.OK {
		t.Fatalf("ожидали успех, получили %+v", outcome)
	}
	if got.Message != "hello world" {
		t.Fatalf("неверное тело запроса: %+v", got)
	}
}

func TestDeliverNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	channel := NewChannel(time.Second)
	outcome := channel.Deliver(context.Background(), domain.Recipient{Address: srv.URL}, "hi")

	if outcome.OK {
		t.Fatal("ожидали отказ")
	}
	if outcome.Failure != domain.FailureNonSuccessStatus {
		t.Fatalf("неверный вид отказа: %s", outcome.Failure)
	}
	if outcome.Error != "status 500" {
		t.Fatalf("неверное описание отказа: %q", outcome.Error)
	}
}

func TestDeliverUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // адрес валиден, но никто не слушает

	channel := NewChannel(time.Second)
	outcome := channel.Deliver(context.Background(), domain.Recipient{Address: srv.URL}, "hi")

	if outcome.OK {
		t.Fatal("ожидали отказ")
	}
	if outcome.Failure != domain.FailureUnreachable {
		t.Fatalf("неверный вид отказа: %s", outcome.Failure)
	}
}

func TestDeliverTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	channel := NewChannel(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome := channel.Deliver(ctx, domain.Recipient{Address: srv.URL}, "hi")
	if outcome.OK {
		t.Fatal("ожидали отказ по таймауту")
	}
	if outcome.Failure != domain.FailureTimeout {
		t.Fatalf("неверный вид отказа: %s", outcome.Failure)
	}
}

func TestDeliverBadAddress(t *testing.T) {
	channel := NewChannel(time.Second)
	outcome := channel.Deliver(context.Background(), domain.Recipient{Address: "://bad"}, "hi")

	if outcome.OK {
		t.Fatal("ожидали отказ")
	}
	if outcome.Failure != domain.FailureUnreachable {
		t.Fatalf("неверный вид отказа: %s", outcome.Failure)
	}
}
