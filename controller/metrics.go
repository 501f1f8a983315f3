// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reason label values.
const (
	reasonInvalidEndpoint = "invalid_endpoint"
	reasonUnknownPeer     = "unknown_peer"
	reasonInvalidSender   = "invalid_sender"
	reasonInvalidFormat   = "invalid_format"
	reasonInvalidNonce    = "invalid_nonce"
	reasonStaleTimestamp  = "stale_timestamp"
	reasonPaused          = "paused"
	reasonHandlerFailure  = "handler_failure"
)

type controllerMetrics struct {
	messagesReceived    prometheus.Counter
	messagesRejected    *prometheus.CounterVec
	commandsProcessed   *prometheus.CounterVec
	batchEntriesApplied prometheus.Counter
	duplicateDeliveries prometheus.Counter
}

func newControllerMetrics(registerer prometheus.Registerer) *controllerMetrics {
	m := controllerMetrics{
		messagesReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "messages_received",
				Help: "Number of messages handed to the controller by the transport",
			},
		),
		messagesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messages_rejected",
				Help: "Number of messages rejected before or during dispatch",
			},
			[]string{"reason"},
		),
		commandsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commands_processed",
				Help: "Number of commands applied successfully",
			},
			[]string{"command"},
		),
		batchEntriesApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "batch_entries_applied",
				Help: "Number of individual batch entries applied to the tree",
			},
		),
		duplicateDeliveries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "duplicate_deliveries",
				Help: "Number of byte-identical redeliveries of already processed messages",
			},
		),
	}
	registerer.MustRegister(m.messagesReceived)
	registerer.MustRegister(m.messagesRejected)
	registerer.MustRegister(m.commandsProcessed)
	registerer.MustRegister(m.batchEntriesApplied)
	registerer.MustRegister(m.duplicateDeliveries)

	return &m
}
