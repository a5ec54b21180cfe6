package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе, регистрации и ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API, нигде не хранится;
//   - RefreshToken — долгоживущий JWT, хранится на сервере и одноразов в пределах ротации;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}
