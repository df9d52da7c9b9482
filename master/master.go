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
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorse-io/transit/base"
	"github.com/gorse-io/transit/base/log"
	"github.com/gorse-io/transit/config"
	"github.com/gorse-io/transit/dataset"
	"github.com/gorse-io/transit/logics"
	"github.com/gorse-io/transit/model"
	"github.com/gorse-io/transit/model/mf"
	"github.com/gorse-io/transit/storage/cache"
	"github.com/gorse-io/transit/storage/data"
	"github.com/juju/errors"
	"go.opentelemetry.io/otel"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// State of the model lifecycle.
type State int32

const (
	Uninitialized State = iota
	Loading
	Trained
	TrainingSkipped
	Serving
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Trained:
		return "trained"
	case TrainingSkipped:
		return "training_skipped"
	case Serving:
		return "serving"
	default:
		return "unknown"
	}
}

// Status summarizes the served snapshot.
type Status struct {
	State       string    `json:"state"`
	Mode        string    `json:"mode"`
	Version     string    `json:"version,omitempty"`
	NumItems    int       `json:"num_items"`
	NumUsers    int       `json:"num_users"`
	NumRatings  int       `json:"num_ratings"`
	Trained     bool      `json:"trained"`
	RMSE        float32   `json:"rmse"`
	MAE         float32   `json:"mae"`
	LastFitTime time.Time `json:"last_fit_time"`
	LastError   string    `json:"last_error,omitempty"`
}

// Master loads interactions, trains the preference model and publishes
// snapshots for queries.
type Master struct {
	Config      *config.Config
	DataClient  data.Database
	CacheClient cache.Database

	itemFilter *logics.ItemFilter
	snapshot   atomic.Pointer[logics.Snapshot]
	state      atomic.Int32
	lastError  atomic.Error
	lastFit    atomic.Time

	buildMutex sync.Mutex
	ticker     *time.Ticker
	scheduled  chan struct{}
}

func NewMaster(cfg *config.Config, dataClient data.Database, cacheClient cache.Database) (*Master, error) {
	itemFilter, err := logics.NewItemFilter(cfg.Recommend.ItemFilter)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cacheClient == nil {
		cacheClient = cache.NoDatabase{}
	}
	return &Master{
		Config:      cfg,
		DataClient:  dataClient,
		CacheClient: cacheClient,
		itemFilter:  itemFilter,
		scheduled:   make(chan struct{}, 1),
	}, nil
}

// Snapshot returns the served snapshot, or nil before the first load.
func (m *Master) Snapshot() *logics.Snapshot {
	return m.snapshot.Load()
}

func (m *Master) State() State {
	return State(m.state.Load())
}

func (m *Master) setState(state State) {
	m.state.Store(int32(state))
	StateGauge.Set(float64(state))
}

func (m *Master) Status() Status {
	status := Status{
		State:       m.State().String(),
		Mode:        m.Config.Server.Mode,
		LastFitTime: m.lastFit.Load(),
	}
	if err := m.lastError.Load(); err != nil {
		status.LastError = err.Error()
	}
	if snapshot := m.Snapshot(); snapshot != nil {
		status.Version = snapshot.Version
		status.NumItems = len(snapshot.Items)
		status.NumUsers = snapshot.WarmUsers.Cardinality()
		status.NumRatings = snapshot.NumRatings
		status.Trained = snapshot.Model != nil
		status.RMSE = snapshot.Score.RMSE
		status.MAE = snapshot.Score.MAE
	}
	return status
}

// Load fetches the catalog and interactions, trains a model and publishes a
// new snapshot. On failure the previous snapshot keeps being served.
func (m *Master) Load(ctx context.Context) error {
	m.buildMutex.Lock()
	defer m.buildMutex.Unlock()
	start := time.Now()
	previous := m.State()
	m.setState(Loading)
	log.Logger().Info("start loading", zap.String("mode", m.Config.Server.Mode))
	ctx, span := otel.Tracer("master").Start(ctx, "Load")
	defer span.End()

	items, interactions, err := m.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		m.fail(previous, err)
		return errors.Trace(err)
	}
	LoadStepSecondsVec.WithLabelValues("fetch").Set(time.Since(start).Seconds())

	snapshot, svd, state, err := m.build(ctx, items, interactions)
	if err != nil {
		span.RecordError(err)
		m.fail(previous, err)
		return errors.Trace(err)
	}
	m.setState(state)

	publishStart := time.Now()
	m.snapshot.Store(snapshot)
	m.setState(Serving)
	m.lastFit.Store(snapshot.Timestamp)
	m.lastError.Store(nil)
	m.writeMeta(ctx, snapshot, state)
	if svd != nil {
		m.dump(snapshot.Version, svd)
	}
	NumItems.Set(float64(len(snapshot.Items)))
	NumUsers.Set(float64(snapshot.WarmUsers.Cardinality()))
	NumRatings.Set(float64(snapshot.NumRatings))
	ModelRMSE.Set(float64(snapshot.Score.RMSE))
	ModelMAE.Set(float64(snapshot.Score.MAE))
	LoadStepSecondsVec.WithLabelValues("publish").Set(time.Since(publishStart).Seconds())
	LoadTotalSeconds.Set(time.Since(start).Seconds())
	log.Logger().Info("complete loading",
		zap.String("version", snapshot.Version),
		zap.String("state", state.String()),
		zap.Int("n_items", len(snapshot.Items)),
		zap.Int("n_ratings", snapshot.NumRatings),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (m *Master) fail(previous State, err error) {
	if previous == Loading {
		previous = Uninitialized
	}
	if m.Snapshot() != nil {
		previous = Serving
	}
	m.setState(previous)
	m.lastError.Store(err)
	LoadFailuresTotal.Inc()
	log.Logger().Error("failed to load", zap.Error(err))
}

func (m *Master) retryOptions(name string) []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(m.Config.Loader.RetryDelay)),
		backoff.WithMaxTries(uint(m.Config.Loader.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			FetchRetriesTotal.Inc()
			log.Logger().Warn("failed to fetch, retrying",
				zap.String("collection", name),
				zap.Duration("retry_after", next),
				zap.Error(err))
		}),
	}
}

// retryable marks configuration errors as permanent.
func retryable(err error) error {
	if errors.Is(err, errors.NotValid) || errors.Is(err, errors.NotSupported) {
		return backoff.Permanent(err)
	}
	return err
}

func (m *Master) fetch(ctx context.Context) ([]data.Item, []data.Interaction, error) {
	items, err := backoff.Retry(ctx, func() ([]data.Item, error) {
		items, err := m.DataClient.ListItems(ctx)
		return items, retryable(err)
	}, m.retryOptions("items")...)
	if err != nil {
		return nil, nil, errors.Annotate(err, "failed to fetch items")
	}
	interactions, err := backoff.Retry(ctx, func() ([]data.Interaction, error) {
		interactions, err := m.DataClient.ListInteractions(ctx)
		return interactions, retryable(err)
	}, m.retryOptions("interactions")...)
	if err != nil {
		return nil, nil, errors.Annotate(err, "failed to fetch interactions")
	}
	return items, interactions, nil
}

func (m *Master) build(ctx context.Context, items []data.Item, interactions []data.Interaction) (*logics.Snapshot, *mf.SVD, State, error) {
	start := time.Now()
	items, err := m.itemFilter.Filter(items)
	if err != nil {
		return nil, nil, Uninitialized, errors.Trace(err)
	}
	scale := dataset.RatingScale{Min: m.Config.Recommend.RatingMin, Max: m.Config.Recommend.RatingMax}
	ratings := dataset.Aggregate(interactions, scale)
	LoadStepSecondsVec.WithLabelValues("aggregate").Set(time.Since(start).Seconds())
	log.Logger().Info("aggregate ratings",
		zap.Int("n_interactions", len(interactions)),
		zap.Int("n_ratings", ratings.Count()),
		zap.Int("n_users", ratings.CountUsers()),
		zap.Int("n_items", ratings.CountItems()))

	var (
		svd       *mf.SVD
		predictor logics.Predictor
		score     model.Score
		state     = TrainingSkipped
	)
	if ratings.Count() > 0 {
		fitStart := time.Now()
		score, svd, err = m.fit(ctx, ratings)
		if err != nil {
			return nil, nil, Uninitialized, errors.Trace(err)
		}
		predictor = svd
		state = Trained
		LoadStepSecondsVec.WithLabelValues("fit").Set(time.Since(fitStart).Seconds())
	} else {
		log.Logger().Warn("no ratings found, skip training")
	}

	snapshot := logics.NewSnapshot(m.Config.Server.Mode, items, ratings, predictor)
	snapshot.Version = uuid.NewString()
	snapshot.DefaultN = m.Config.Server.DefaultN
	snapshot.Score = score
	return snapshot, svd, state, nil
}

// fit trains the served model on all ratings. When a validation ratio is set,
// a probe model trained on the remaining ratings provides the score.
func (m *Master) fit(ctx context.Context, ratings *dataset.Dataset) (model.Score, *mf.SVD, error) {
	params := m.Config.Recommend.Model.Params()
	var score model.Score
	validated := false
	if ratio := m.Config.Recommend.ValidateRatio; ratio > 0 {
		train, test := ratings.Split(ratio, m.Config.Recommend.Model.RandomState)
		if train.Count() > 0 && test.Count() > 0 {
			probe := mf.NewSVD(params.Copy())
			var err error
			if score, err = probe.Fit(ctx, train, test, nil); err != nil {
				return model.Score{}, nil, errors.Trace(err)
			}
			validated = true
		}
	}
	svd := mf.NewSVD(params)
	trainScore, err := svd.Fit(ctx, ratings, nil, nil)
	if err != nil {
		return model.Score{}, nil, errors.Trace(err)
	}
	if !validated {
		score = trainScore
	}
	return score, svd, nil
}

func (m *Master) writeMeta(ctx context.Context, snapshot *logics.Snapshot, state State) {
	err := m.CacheClient.Set(ctx,
		cache.Time(cache.LastFitTime, snapshot.Timestamp),
		cache.String(cache.ModelVersion, snapshot.Version),
		cache.String(cache.State, state.String()),
		cache.Integer(cache.NumUsers, snapshot.WarmUsers.Cardinality()),
		cache.Integer(cache.NumItems, len(snapshot.Items)),
		cache.Integer(cache.NumRatings, snapshot.NumRatings),
		cache.Float(cache.RMSE, float64(snapshot.Score.RMSE)))
	if err != nil && !errors.Is(err, cache.ErrNoDatabase) {
		log.Logger().Warn("failed to write meta", zap.Error(err))
	}
}

func (m *Master) dump(version string, svd *mf.SVD) {
	if m.Config.Loader.DumpPath == "" {
		return
	}
	if err := os.MkdirAll(m.Config.Loader.DumpPath, os.ModePerm); err != nil {
		log.Logger().Error("failed to create dump directory", zap.Error(err))
		return
	}
	path := filepath.Join(m.Config.Loader.DumpPath, "model-"+version+".bin")
	f, err := os.Create(path)
	if err != nil {
		log.Logger().Error("failed to create model dump", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()
	if err = svd.Marshal(f); err != nil {
		log.Logger().Error("failed to dump model", zap.String("path", path), zap.Error(err))
		return
	}
	log.Logger().Info("dump model", zap.String("path", path))
}

// ScheduleReload requests an asynchronous reload. It returns false if a
// reload is already pending.
func (m *Master) ScheduleReload() bool {
	select {
	case m.scheduled <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunReloadLoop reloads on schedule until ctx is done.
func (m *Master) RunReloadLoop(ctx context.Context) {
	defer base.CheckPanic()
	var tick <-chan time.Time
	if m.Config.Loader.ReloadPeriod > 0 {
		m.ticker = time.NewTicker(m.Config.Loader.ReloadPeriod)
		defer m.ticker.Stop()
		tick = m.ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-m.scheduled:
		}
		if err := m.Load(ctx); err != nil {
			log.Logger().Error("failed to reload, keep serving previous snapshot", zap.Error(err))
		}
	}
}
