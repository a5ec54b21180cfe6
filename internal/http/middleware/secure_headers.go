package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeaders выставляет защитные заголовки ответа API: запрет MIME-sniffing,
// запрет встраивания во фреймы, CSP без источников и no-referrer.
// HSTS отправляется только на TLS-запросы.
func SecureHeaders() Middleware {
	s := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
		STSSeconds:            15552000,
		STSIncludeSubdomains:  true,
	})

	return func(next http.Handler) http.Handler {
		return s.Handler(next)
	}
}
