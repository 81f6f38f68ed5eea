// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import "github.com/prometheus/client_golang/prometheus"

// Metrics is ambient observability for a running Program: claim-lifecycle
// counters and the current difficulty, exported the way the rest of this
// corpus instruments long-running services. It is not part of the
// program's consensus logic -- a Program with a nil *Metrics behaves
// identically, just unobserved.
type Metrics struct {
	claimsMined     prometheus.Counter
	claimsRevealed  prometheus.Counter
	claimsConsumed  prometheus.Counter
	claimsExpired   prometheus.Counter
	currentDifficulty prometheus.Gauge
}

// NewMetrics registers the scramble gate's counters and gauges with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claimsMined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scramble", Name: "claims_mined_total",
			Help: "Total claims successfully mined.",
		}),
		claimsRevealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scramble", Name: "claims_revealed_total",
			Help: "Total claims successfully revealed.",
		}),
		claimsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scramble", Name: "claims_consumed_total",
			Help: "Total claims fully consumed.",
		}),
		claimsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scramble", Name: "claims_expired_total",
			Help: "Total claims observed expired (reveal or claim window).",
		}),
		currentDifficulty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scramble", Name: "current_difficulty_msb",
			Help: "Most significant 32 bits of current_difficulty, as a rough trend indicator.",
		}),
	}
	reg.MustRegister(m.claimsMined, m.claimsRevealed, m.claimsConsumed, m.claimsExpired, m.currentDifficulty)
	return m
}

// Attach wires m to p; subsequent instruction calls record into it.
func (p *Program) Attach(m *Metrics) { p.metrics = m }

func (m *Metrics) observeMSBDifficulty(d [32]byte) {
	if m == nil {
		return
	}
	msb := uint64(d[31])<<24 | uint64(d[30])<<16 | uint64(d[29])<<8 | uint64(d[28])
	m.currentDifficulty.Set(float64(msb))
}
