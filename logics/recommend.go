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
	"sort"
	"strings"

	"github.com/gorse-io/transit/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Entry is a recommended item as returned to clients. It never carries scores.
type Entry struct {
	Id          string         `json:"id"`
	Name        string         `json:"name"`
	Mode        string         `json:"mode"`
	Source      string         `json:"source"`
	Destination string         `json:"destination"`
	Departure   string         `json:"departure"`
	Arrival     string         `json:"arrival"`
	Meta        map[string]any `json:"meta"`
}

func (s *Snapshot) newEntry(item data.Item) Entry {
	name := item.Name
	if name == "" {
		name = item.ItemId
	}
	mode := item.Mode
	if mode == "" {
		mode = s.Mode
	}
	return Entry{
		Id:          item.ItemId,
		Name:        name,
		Mode:        mode,
		Source:      item.Origin,
		Destination: item.Destination,
		Departure:   item.Departure,
		Arrival:     item.Arrival,
		Meta:        lo.Assign(item.Meta),
	}
}

func (s *Snapshot) newEntries(items []data.Item) []Entry {
	return lo.Map(items, func(item data.Item, _ int) Entry {
		return s.newEntry(item)
	})
}

type UserRecommendation struct {
	UserId          string  `json:"user_id"`
	Mode            string  `json:"mode"`
	Personalized    bool    `json:"personalized"`
	Recommendations []Entry `json:"recommendations"`
}

type RouteRecommendation struct {
	Source          string  `json:"source"`
	Destination     string  `json:"destination"`
	UserId          string  `json:"user_id"`
	Mode            string  `json:"mode"`
	Personalized    bool    `json:"personalized"`
	Recommendations []Entry `json:"recommendations"`
}

// rankByModel orders items by descending predicted rating. Ties keep the
// input order.
func (s *Snapshot) rankByModel(userId string, items []data.Item) []data.Item {
	scores := make([]float32, len(items))
	for i, item := range items {
		scores[i] = s.Model.Predict(userId, item.ItemId)
	}
	order := lo.Range(len(items))
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	return lo.Map(order, func(i int, _ int) data.Item {
		return items[i]
	})
}

// rankByMeanRating orders items by descending mean rating, missing means
// count as 0, ties by ascending item id.
func (s *Snapshot) rankByMeanRating(items []data.Item) []data.Item {
	ranked := append([]data.Item(nil), items...)
	sort.SliceStable(ranked, func(i, j int) bool {
		mi, mj := s.MeanRatings[ranked[i].ItemId], s.MeanRatings[ranked[j].ItemId]
		if mi != mj {
			return mi > mj
		}
		return ranked[i].ItemId < ranked[j].ItemId
	})
	return ranked
}

// RecommendForUser ranks the whole catalog for a user. Users without
// bookings get the catalog in stored order.
func (s *Snapshot) RecommendForUser(userId string, n int) (*UserRecommendation, error) {
	userId = strings.TrimSpace(userId)
	if userId == "" {
		return nil, errors.NotValidf("empty user id")
	}
	n = s.resolveN(n)
	result := &UserRecommendation{
		UserId:       userId,
		Mode:         s.Mode,
		Personalized: s.Personalized(userId),
	}
	items := s.Items
	if result.Personalized {
		items = s.rankByModel(userId, items)
	}
	result.Recommendations = s.newEntries(lo.Subset(items, 0, uint(n)))
	return result, nil
}

// RecommendForRoute ranks the items travelling from source to destination.
// Matching ignores case and surrounding spaces.
func (s *Snapshot) RecommendForRoute(source, destination, userId string, n int) (*RouteRecommendation, error) {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(destination) == "" {
		return nil, errors.NotValidf("empty source or destination")
	}
	n = s.resolveN(n)
	source, destination = strings.TrimSpace(source), strings.TrimSpace(destination)
	userId = strings.TrimSpace(userId)
	candidates := lo.Filter(s.Items, func(item data.Item, _ int) bool {
		return strings.EqualFold(strings.TrimSpace(item.Origin), source) &&
			strings.EqualFold(strings.TrimSpace(item.Destination), destination)
	})
	if len(candidates) == 0 {
		return nil, errors.NotFoundf("%s from %s to %s", s.Mode, source, destination)
	}
	result := &RouteRecommendation{
		Source:       source,
		Destination:  destination,
		UserId:       userId,
		Mode:         s.Mode,
		Personalized: userId != "" && s.Personalized(userId),
	}
	if result.Personalized {
		candidates = s.rankByModel(userId, candidates)
	} else {
		candidates = s.rankByMeanRating(candidates)
	}
	result.Recommendations = s.newEntries(lo.Subset(candidates, 0, uint(n)))
	return result, nil
}
