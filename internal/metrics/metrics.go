// Package metrics — счётчики Prometheus для сессий и очистки refresh-токенов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Операции менеджера сессий (значения метки op).
const (
	OpLogin     = "login"
	OpRotate    = "rotate"
	OpRevokeOne = "revoke_one"
	OpRevokeAll = "revoke_all"
)

// Recorder принимает события менеджера сессий и очистки.
type Recorder interface {
	SessionOp(op, outcome string)
	SweepRun(outcome string, deleted int)
}

// Nop ничего не записывает.
type Nop struct{}

func (Nop) SessionOp(string, string) {}
func (Nop) SweepRun(string, int)     {}

// OrNop возвращает r или Nop, если r == nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}

	return r
}

// Prometheus — Recorder поверх client_golang.
type Prometheus struct {
	sessionOps   *prometheus.CounterVec
	sweepRuns    *prometheus.CounterVec
	sweepDeleted prometheus.Counter
}

// New создаёт счётчики и регистрирует их в reg (prometheus.DefaultRegisterer, если nil).
func New(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		sessionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_operations_total",
			Help: "Session manager operations by outcome.",
		}, []string{"op", "outcome"}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweeper_runs_total",
			Help: "Expired refresh token sweeps by outcome.",
		}, []string{"outcome"}),
		sweepDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_deleted_total",
			Help: "Refresh token records deleted by the sweeper.",
		}),
	}

	reg.MustRegister(p.sessionOps, p.sweepRuns, p.sweepDeleted)

	return p
}

// SessionOp увеличивает session_operations_total{op,outcome}.
func (p *Prometheus) SessionOp(op, outcome string) {
	p.sessionOps.WithLabelValues(op, outcome).Inc()
}

// SweepRun учитывает проход очистки и число удалённых записей.
func (p *Prometheus) SweepRun(outcome string, deleted int) {
	p.sweepRuns.WithLabelValues(outcome).Inc()
	if deleted > 0 {
		p.sweepDeleted.Add(float64(deleted))
	}
}
