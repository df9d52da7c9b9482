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

package logics

import (
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/transit/dataset"
	"github.com/gorse-io/transit/model"
	"github.com/gorse-io/transit/storage/data"
)

const fallbackN = 10

// Predictor estimates how much a user would like an item.
type Predictor interface {
	Predict(userId, itemId string) float32
}

// Snapshot is everything needed to answer queries, built once per training
// run and never modified after it is published.
type Snapshot struct {
	Version   string
	Mode      string
	Timestamp time.Time
	DefaultN  int

	Items       []data.Item
	MeanRatings map[string]float64
	WarmUsers   mapset.Set[string]
	Model       Predictor
	NumRatings  int
	Score       model.Score

	itemIndex    map[string]int
	itemFeatures []mapset.Set[string]
}

// NewSnapshot bundles a catalog with the rating matrix and the model trained
// on it. predictor is nil when training was skipped.
func NewSnapshot(mode string, items []data.Item, ratings *dataset.Dataset, predictor Predictor) *Snapshot {
	s := &Snapshot{
		Mode:         mode,
		Timestamp:    time.Now(),
		DefaultN:     fallbackN,
		Items:        items,
		MeanRatings:  map[string]float64{},
		WarmUsers:    mapset.NewThreadUnsafeSet[string](),
		Model:        predictor,
		itemIndex:    make(map[string]int, len(items)),
		itemFeatures: make([]mapset.Set[string], len(items)),
	}
	if ratings != nil {
		s.MeanRatings = ratings.MeanRatings
		s.WarmUsers = ratings.WarmUsers()
		s.NumRatings = ratings.Count()
	}
	for i, item := range items {
		if _, exist := s.itemIndex[item.ItemId]; !exist {
			s.itemIndex[item.ItemId] = i
		}
		s.itemFeatures[i] = itemFeatures(item)
	}
	return s
}

// Personalized returns true if rankings for the user come from the model.
func (s *Snapshot) Personalized(userId string) bool {
	return s.Model != nil && s.WarmUsers.Contains(userId)
}

// Item returns an item by id.
func (s *Snapshot) Item(itemId string) (data.Item, bool) {
	if i, ok := s.itemIndex[itemId]; ok {
		return s.Items[i], true
	}
	return data.Item{}, false
}

func (s *Snapshot) resolveN(n int) int {
	if n > 0 {
		return n
	}
	if s.DefaultN > 0 {
		return s.DefaultN
	}
	return fallbackN
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// itemFeatures returns the one-hot categorical features of an item.
func itemFeatures(item data.Item) mapset.Set[string] {
	features := mapset.NewThreadUnsafeSet[string]()
	if origin := normalize(item.Origin); origin != "" {
		features.Add("origin=" + origin)
	}
	if destination := normalize(item.Destination); destination != "" {
		features.Add("destination=" + destination)
	}
	if station, ok := item.Meta["station_name"].(string); ok && normalize(station) != "" {
		features.Add("station=" + normalize(station))
	}
	return features
}
