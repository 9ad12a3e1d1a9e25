package relay

import (
	"testing"

	"tg-relay-bot/internal/domain"
)

func TestClassifyForwardWithURL(t *testing.T) {
	intent := Classify("/user_send http://example.com/hook hello world")
	if intent.Kind != domain.IntentExternalForward {
		t.Fatalf("ожидали external_forward, получили %s", intent.Kind)
	}
	if intent.Address != "http://example.com/hook" {
		t.Fatalf("неверный адрес: %q", intent.Address)
	}
	if intent.Content != "hello world" {
		t.Fatalf("неверный контент: %q", intent.Content)
	}
}

func TestClassifyForwardWithoutURL(t *testing.T) {
	intent := Classify("/user_send просто сохранить")
	if intent.Kind != domain.IntentExternalForward {
		t.Fatalf("ожидали external_forward, получили %s", intent.Kind)
	}
	if intent.Address != "" {
		t.Fatalf("ожидали пустой адрес, получили %q", intent.Address)
	}
	if intent.Content != "просто сохранить" {
		t.Fatalf("неверный контент: %q", intent.Content)
	}
}

func TestClassifyForwardNoContent(t *testing.T) {
	intent := Classify("/user_send http://example.com/hook")
	if intent.Kind != domain.IntentUnrecognized {
		t.Fatalf("ожидали unrecognized, получили %s", intent.Kind)
	}
	if intent.Reason != "no content" {
		t.Fatalf("неверная причина: %q", intent.Reason)
	}
}

func TestClassifyEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		intent := Classify(raw)
		if intent.Kind != domain.IntentUnrecognized {
			t.Fatalf("ожидали unrecognized для %q, получили %s", raw, intent.Kind)
		}
		if intent.Reason != "empty" {
			t.Fatalf("неверная причина: %q", intent.Reason)
		}
	}
}

func TestClassifyDirectUser(t *testing.T) {
	intent := Classify("/bot_send @alice hi")
	if intent.Kind != domain.IntentDirectUser {
		t.Fatalf("ожидали direct_user, получили %s", intent.Kind)
	}
	if intent.TargetUsername != "alice" {
		t.Fatalf("неверный username: %q", intent.TargetUsername)
	}
	if intent.Content != "hi" {
		t.Fatalf("неверный контент: %q", intent.Content)
	}
}

func TestClassifyBroadcast(t *testing.T) {
	intent := Classify("/bot_send hi")
	if intent.Kind != domain.IntentBroadcast {
		t.Fatalf("ожидали broadcast, получили %s", intent.Kind)
	}
	if intent.Content != "hi" {
		t.Fatalf("неверный контент: %q", intent.Content)
	}
}

func TestClassifyUnknownPrefixDefaultsToBroadcast(t *testing.T) {
	intent := Classify("привет всем")
	if intent.Kind != domain.IntentBroadcast {
		t.Fatalf("ожидали broadcast, получили %s", intent.Kind)
	}
	if intent.Content != "привет всем" {
		t.Fatalf("неверный контент: %q", intent.Content)
	}
}

func TestClassifyBotSendBareCommand(t *testing.T) {
	intent := Classify("/bot_send")
	if intent.Kind != domain.IntentUnrecognized {
		t.Fatalf("ожидали unrecognized, получили %s", intent.Kind)
	}
}

// @username без следующего за ним текста считается содержимым рассылки,
// а не адресатом.
func TestClassifyBotSendUsernameOnly(t *testing.T) {
	intent := Classify("/bot_send @alice")
	if intent.Kind != domain.IntentBroadcast {
		t.Fatalf("ожидали broadcast, получили %s", intent.Kind)
	}
	if intent.Content != "@alice" {
		t.Fatalf("неверный контент: %q", intent.Content)
	}
}
