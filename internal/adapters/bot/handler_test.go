package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-relay-bot/internal/domain"
)

type stubSender struct {
	replies []tgbotapi.MessageConfig
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.replies = append(s.replies, msg)
	}
	return tgbotapi.Message{}, nil
}

func (s *stubSender) lastReply(t *testing.T) string {
	t.Helper()
	if len(s.replies) == 0 {
		t.Fatal("бот не ответил")
	}
	return s.replies[len(s.replies)-1].Text
}

type stubAPI struct {
	userSend    int
	botSend     int
	defaultSend int
	saveToDB    bool
	err         error
}

func (s *stubAPI) UserSend(ctx context.Context, content string, fromUserID int64) (string, error) {
	s.userSend++
	return "", s.err
}

func (s *stubAPI) BotSend(ctx context.Context, content string, fromUserID int64, saveToDB bool) (string, error) {
	s.botSend++
	s.saveToDB = saveToDB
	return "", s.err
}

func (s *stubAPI) DefaultSend(ctx context.Context, content string, fromUserID int64) (string, error) {
	s.defaultSend++
	return "", s.err
}

type stubDirectory struct {
	created bool
	err     error
}

func (s *stubDirectory) ResolveAll(ctx context.Context) ([]int64, error) { return nil, nil }

func (s *stubDirectory) ResolveByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	return domain.User{}, false, nil
}

func (s *stubDirectory) UpsertUser(ctx context.Context, tgUserID int64, username, name string, activityTime time.Time) (domain.User, bool, error) {
	if s.err != nil {
		return domain.User{}, false, s.err
	}
	return domain.User{TGUserID: tgUserID, Username: username, Name: name}, s.created, nil
}

type stubQueue struct {
	jobs []domain.RelayJob
	err  error
}

func (s *stubQueue) Enqueue(ctx context.Context, job domain.RelayJob) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *stubQueue) Pop(ctx context.Context) (domain.RelayJob, error) {
	return domain.RelayJob{}, errors.New("not implemented")
}

func update(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: 42, UserName: "alice", FirstName: "Алиса"},
		Chat: &tgbotapi.Chat{ID: 42},
	}}
}

func TestHandleStartNewUser(t *testing.T) {
	sender := &stubSender{}
	h := NewHandler(sender, zerolog.Nop(), &stubAPI{}, &stubDirectory{created: true}, nil)

	h.HandleUpdate(context.Background(), update("/start"))

	if got := sender.lastReply(t); got != "Привет, Алиса! Ты успешно зарегистрирован." {
		t.Fatalf("неверное приветствие: %q", got)
	}
}

func TestHandleStartReturningUser(t *testing.T) {
	sender := &stubSender{}
	h := NewHandler(sender, zerolog.Nop(), &stubAPI{}, &stubDirectory{}, nil)

	h.HandleUpdate(context.Background(), update("/start"))

	if got := sender.lastReply(t); got != "Добро пожаловать снова, Алиса!" {
		t.Fatalf("неверное приветствие: %q", got)
	}
}

func TestRelayRoutesByPrefix(t *testing.T) {
	cases := []struct {
		text string
		want func(api *stubAPI) bool
	}{
		{"/user_send привет", func(api *stubAPI) bool { return api.userSend == 1 }},
		{"/bot_send привет", func(api *stubAPI) bool { return api.botSend == 1 && !api.saveToDB }},
		{"просто текст", func(api *stubAPI) bool { return api.defaultSend == 1 }},
	}
	for _, tc := range cases {
		api := &stubAPI{}
		sender := &stubSender{}
		h := NewHandler(sender, zerolog.Nop(), api, &stubDirectory{}, nil)

		h.HandleUpdate(context.Background(), update(tc.text))

		if !tc.want(api) {
			t.Fatalf("%q ушёл не в тот эндпоинт: %+v", tc.text, api)
		}
		if got := sender.lastReply(t); got != "Сообщение успешно обработано." {
			t.Fatalf("неверный ответ для %q: %q", tc.text, got)
		}
	}
}

func TestRelayFailureEnqueues(t *testing.T) {
	sender := &stubSender{}
	queue := &stubQueue{}
	h := NewHandler(sender, zerolog.Nop(), &stubAPI{err: errors.New("api down")}, &stubDirectory{}, queue)

	h.HandleUpdate(context.Background(), update("/bot_send привет"))

	if len(queue.jobs) != 1 {
		t.Fatalf("задача не попала в очередь: %d", len(queue.jobs))
	}
	job := queue.jobs[0]
	if job.ID == "" {
		t.Fatal("задача должна получить идентификатор")
	}
	if job.Raw != "/bot_send привет" || job.SenderID != 42 || job.Source != domain.RelaySourceGateway {
		t.Fatalf("неверная задача: %+v", job)
	}
	if got := sender.lastReply(t); got != "Сообщение поставлено в повторную обработку." {
		t.Fatalf("неверный ответ: %q", got)
	}
}

func TestRelayFailureWithoutQueue(t *testing.T) {
	sender := &stubSender{}
	h := NewHandler(sender, zerolog.Nop(), &stubAPI{err: errors.New("api down")}, &stubDirectory{}, nil)

	h.HandleUpdate(context.Background(), update("привет"))

	if got := sender.lastReply(t); got != "Ошибка при обработке сообщения." {
		t.Fatalf("неверный ответ: %q", got)
	}
}

func TestRelayFailureEnqueueFails(t *testing.T) {
	sender := &stubSender{}
	h := NewHandler(sender, zerolog.Nop(), &stubAPI{err: errors.New("api down")}, &stubDirectory{}, &stubQueue{err: errors.New("queue down")})

	h.HandleUpdate(context.Background(), update("привет"))

	if got := sender.lastReply(t); got != "Ошибка при обработке сообщения." {
		t.Fatalf("неверный ответ: %q", got)
	}
}

func TestEmptyMessageSkipped(t *testing.T) {
	sender := &stubSender{}
	h := NewHandler(sender, zerolog.Nop(), &stubAPI{}, &stubDirectory{}, nil)

	h.HandleUpdate(context.Background(), update("   "))

	if len(sender.replies) != 0 {
		t.Fatalf("пустое сообщение не должно получать ответ: %v", sender.replies)
	}
}
