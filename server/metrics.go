// Copyright 2025 The plainhttp Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/plainhttp/plainhttp/common"
)

var (
	uptime = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "Uptime in seconds",
		},
		func() float64 {
			return float64(time.Now().Unix() - common.Started())
		},
	)

	acceptedConns = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "accepted_connections_total",
			Help:      "Accepted connections total",
		},
	)

	activeConns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "active_connections",
			Help:      "Currently active connections",
		},
	)

	handledExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "handled_exchanges_total",
			Help:      "Handled request/response exchanges total",
		},
		[]string{"method", "status"},
	)

	errorResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "error_responses_total",
			Help:      "4xx/5xx responses total",
		},
	)

	readBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "read_bytes_total",
			Help:      "Bytes read from peers total",
		},
	)

	writtenBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "written_bytes_total",
			Help:      "Bytes written to peers total",
		},
	)

	idleTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "idle_timeouts_total",
			Help:      "Connections closed by idle timeout total",
		},
	)
)
