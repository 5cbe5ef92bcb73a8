package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verifyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mossi_verify_requests_total",
		Help: "Number of public verification lookups, by result",
	}, []string{"result"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mossi_login_attempts_total",
		Help: "Number of admin login attempts, by result",
	}, []string{"result"})

	artworkMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mossi_artwork_mutations_total",
		Help: "Number of artwork create, update and delete requests, by operation and result",
	}, []string{"operation", "result"})
)
