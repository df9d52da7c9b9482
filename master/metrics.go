// Copyright 2026 gorse Project Authors
//
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

package master

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const LabelStep = "step"

var (
	LoadStepSecondsVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "load_step_seconds",
	}, []string{LabelStep})
	LoadTotalSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "load_total_seconds",
	})
	LoadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "load_failures_total",
	})
	FetchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "fetch_retries_total",
	})
	StateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "state",
	})
	NumItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "num_items",
	})
	NumUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "num_users",
	})
	NumRatings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "num_ratings",
	})
	ModelRMSE = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "model_rmse",
	})
	ModelMAE = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "transit",
		Subsystem: "master",
		Name:      "model_mae",
	})
)
