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
	"math"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

type SimilarRecommendation struct {
	ItemId          string  `json:"item_id"`
	Mode            string  `json:"mode"`
	Recommendations []Entry `json:"recommendations"`
}

// cosine similarity between two one-hot feature vectors.
func cosine(a, b mapset.Set[string]) float64 {
	if a.Cardinality() == 0 || b.Cardinality() == 0 {
		return 0
	}
	common := a.Intersect(b).Cardinality()
	return float64(common) / math.Sqrt(float64(a.Cardinality())*float64(b.Cardinality()))
}

// RecommendSimilar returns the items sharing the most route features with
// an item: origin, destination and boarding station. Ties keep catalog order.
func (s *Snapshot) RecommendSimilar(itemId string, n int) (*SimilarRecommendation, error) {
	if strings.TrimSpace(itemId) == "" {
		return nil, errors.NotValidf("empty item id")
	}
	target, ok := s.itemIndex[itemId]
	if !ok {
		return nil, errors.NotFoundf("item %s", itemId)
	}
	n = s.resolveN(n)
	scores := make([]float64, len(s.Items))
	candidates := make([]int, 0, len(s.Items))
	for i := range s.Items {
		if s.Items[i].ItemId == itemId {
			continue
		}
		scores[i] = cosine(s.itemFeatures[target], s.itemFeatures[i])
		candidates = append(candidates, i)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return scores[candidates[i]] > scores[candidates[j]]
	})
	candidates = lo.Subset(candidates, 0, uint(n))
	return &SimilarRecommendation{
		ItemId: itemId,
		Mode:   s.Mode,
		Recommendations: lo.Map(candidates, func(i int, _ int) Entry {
			return s.newEntry(s.Items[i])
		}),
	}, nil
}
