package models

import "time"

// RefreshToken — единственная сохраняемая сущность ядра сессий.
//
// Запись считается живой, только если она есть в хранилище И её Token
// проходит проверку подписи и срока действия. Истёкшая запись логически
// мертва, даже если физически ещё не удалена.
type RefreshToken struct {
	// ID — идентификатор, назначенный хранилищем (непрозрачный).
	ID string
	// AccountID — владелец записи.
	AccountID string
	// Token — подписанный долгоживущий токен; уникален среди живых записей.
	Token string
	// CreatedAt — момент создания (UTC).
	CreatedAt time.Time
}
