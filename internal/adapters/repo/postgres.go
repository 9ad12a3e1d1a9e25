package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-relay-bot/internal/domain"
	"tg-relay-bot/internal/infra/metrics"
)

// Postgres реализует реестр получателей и запись сообщений на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserDirectory   = (*Postgres)(nil)
	_ domain.MessageRecorder = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}

// UpsertUser реализует domain.UserDirectory. Пользователь создаётся при
// первом контакте, иначе обновляются username, имя и время активности.
func (p *Postgres) UpsertUser(ctx context.Context, tgUserID int64, username, name string, activityTime time.Time) (domain.User, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		user        domain.User
		usernameSQL sql.NullString
		nameSQL     sql.NullString
		created     bool
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO users (tg_user_id, username, name, last_start_time)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4)
ON CONFLICT (tg_user_id) DO UPDATE
    SET username = COALESCE(EXCLUDED.username, users.username),
        name = COALESCE(EXCLUDED.name, users.name),
        last_start_time = EXCLUDED.last_start_time
RETURNING id, tg_user_id, username, name, last_start_time, (xmax = 0) AS inserted
`, tgUserID, strings.TrimSpace(username), strings.TrimSpace(name), activityTime).
		Scan(&user.ID, &user.TGUserID, &usernameSQL, &nameSQL, &user.LastStartTime, &created)
	metrics.ObserveNetworkRequest("postgres", "users_upsert", "users", start, err)
	if err != nil {
		return domain.User{}, false, storeErr("upsert пользователя", err)
	}
	if usernameSQL.Valid {
		user.Username = usernameSQL.String
	}
	if nameSQL.Valid {
		user.Name = nameSQL.String
	}
	return user, created, nil
}

// ResolveAll возвращает идентификаторы всех зарегистрированных пользователей.
func (p *Postgres) ResolveAll(ctx context.Context) ([]int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT tg_user_id FROM users ORDER BY id`)
	metrics.ObserveNetworkRequest("postgres", "users_resolve_all", "users", start, err)
	if err != nil {
		return nil, storeErr("снимок реестра", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("чтение реестра", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("чтение реестра", err)
	}
	return ids, nil
}

// ResolveByUsername ищет пользователя по точному совпадению username.
func (p *Postgres) ResolveByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		user    domain.User
		nameSQL sql.NullString
		lastSQL sql.NullTime
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, tg_user_id, username, name, last_start_time
FROM users WHERE username = $1
`, username).Scan(&user.ID, &user.TGUserID, &user.Username, &nameSQL, &lastSQL)
	metrics.ObserveNetworkRequest("postgres", "users_resolve_by_username", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, storeErr("поиск пользователя", err)
	}
	if nameSQL.Valid {
		user.Name = nameSQL.String
	}
	if lastSQL.Valid {
		user.LastStartTime = lastSQL.Time
	}
	return user, true, nil
}

// RecordMessage повторно проверяет существование отправителя и атомарно
// записывает сообщение в одной транзакции. При откате запись не видна.
func (p *Postgres) RecordMessage(ctx context.Context, senderID int64, content string) (domain.Message, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "messages", start, err)
	if err != nil {
		return domain.Message{}, storeErr("открытие транзакции", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	start = time.Now()
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE tg_user_id = $1)`, senderID).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "users_exists", "users", start, err)
	if err != nil {
		return domain.Message{}, storeErr("проверка отправителя", err)
	}
	if !exists {
		return domain.Message{}, fmt.Errorf("%w: %d", domain.ErrUnknownSender, senderID)
	}

	msg := domain.Message{Content: content, SenderID: senderID}
	start = time.Now()
	err = tx.QueryRow(ctx, `
INSERT INTO messages (content, sender_id, created_at)
VALUES ($1, $2, now())
RETURNING id, created_at
`, content, senderID).Scan(&msg.ID, &msg.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "messages_insert", "messages", start, err)
	if err != nil {
		return domain.Message{}, storeErr("запись сообщения", err)
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "messages", start, err)
	if err != nil {
		return domain.Message{}, storeErr("фиксация транзакции", err)
	}
	return msg, nil
}
