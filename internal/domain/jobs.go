package domain

import "time"

// RelayJobSource описывает источник отложенной задачи ретрансляции.
type RelayJobSource string

const (
	// RelaySourceGateway — шлюз бота не смог достучаться до API.
	RelaySourceGateway RelayJobSource = "gateway"
	// RelaySourceManual — задача поставлена оператором напрямую в очередь.
	RelaySourceManual RelayJobSource = "manual"
)

// RelayJob содержит одну отложенную команду ретрансляции. Задача проходит
// через тот же движок, что и синхронные запросы.
type RelayJob struct {
	ID          string         `json:"job_id"`
	Raw         string         `json:"raw"`
	SenderID    int64          `json:"sender_id"`
	SaveToDB    bool           `json:"save_to_db,omitempty"`
	RequestedAt time.Time      `json:"requested_at"`
	Source      RelayJobSource `json:"source"`
}
