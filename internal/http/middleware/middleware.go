// Package middleware — обвязка HTTP-запросов сервиса сессий: восстановление
// после паники, request id, логирование, защитные заголовки, CORS,
// ограничение частоты, дедлайн и проверка access-токена.
package middleware

import (
	"net/http"
)

// Middleware оборачивает http.Handler. Совместим с chi.Router.Use.
type Middleware func(http.Handler) http.Handler

// passthrough — выключенный мидлвар.
func passthrough(next http.Handler) http.Handler { return next }

// Chain собирает обработчик: mws[0] выполняется первым.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	wrapped := h
	for i := range mws {
		wrapped = mws[len(mws)-1-i](wrapped)
	}

	return wrapped
}

// responseMeter запоминает код ответа и число записанных байт тела.
// Повторный WriteHeader игнорируется, как и в net/http.
type responseMeter struct {
	http.ResponseWriter
	code    int
	written int
}

func meter(w http.ResponseWriter) *responseMeter {
	return &responseMeter{ResponseWriter: w}
}

func (m *responseMeter) WriteHeader(code int) {
	if m.code != 0 {
		return
	}

	m.code = code
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(p []byte) (int, error) {
	if m.code == 0 {
		m.code = http.StatusOK
	}

	n, err := m.ResponseWriter.Write(p)
	m.written += n

	return n, err
}

// Status возвращает отправленный код; 200, если обработчик ничего не писал.
func (m *responseMeter) Status() int {
	if m.code == 0 {
		return http.StatusOK
	}

	return m.code
}

// Unwrap открывает исходный writer для http.ResponseController.
func (m *responseMeter) Unwrap() http.ResponseWriter {
	return m.ResponseWriter
}
