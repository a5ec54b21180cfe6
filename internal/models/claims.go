// Package models содержит доменные сущности сервиса сессий.
package models

// Claims — полезная нагрузка, зашиваемая и в access-, и в refresh-токен.
// После выпуска не меняется и переносится без изменений при каждой ротации.
type Claims struct {
	AccountID string
	Email     string
	Role      string
	Name      string
}
