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

package dataset

import (
	"math"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/transit/base"
	"github.com/gorse-io/transit/storage/data"
)

// RatingScale is the closed interval of accepted ratings.
type RatingScale struct {
	Min float64
	Max float64
}

var DefaultRatingScale = RatingScale{Min: 1, Max: 5}

func (s RatingScale) Contains(rating float64) bool {
	return rating >= s.Min && rating <= s.Max
}

// Rating is an observed (user, item, rating) triple.
type Rating struct {
	UserId string
	ItemId string
	Value  float64
}

// Dataset is the rating matrix derived from bookings. It is immutable after
// construction.
type Dataset struct {
	Ratings     []Rating
	MeanRatings map[string]float64

	scale       RatingScale
	userIndex   *FreqDict
	itemIndex   *FreqDict
	users       []int32
	items       []int32
	userRatings [][]int32
	itemRatings [][]int32
	globalMean  float64
}

// Aggregate keeps bookings by a non-blank user on a present item with a
// finite rating inside scale. Input order and duplicates are preserved.
func Aggregate(interactions []data.Interaction, scale RatingScale) *Dataset {
	ratings := make([]Rating, 0, len(interactions))
	for _, interaction := range interactions {
		if interaction.Type != data.Book {
			continue
		}
		if interaction.ItemId == "" || strings.TrimSpace(interaction.UserId) == "" {
			continue
		}
		if interaction.Rating == nil {
			continue
		}
		rating := *interaction.Rating
		if math.IsNaN(rating) || math.IsInf(rating, 0) || !scale.Contains(rating) {
			continue
		}
		ratings = append(ratings, Rating{
			UserId: interaction.UserId,
			ItemId: interaction.ItemId,
			Value:  rating,
		})
	}
	return NewDataset(ratings, scale)
}

// NewDataset indexes ratings that have already been validated.
func NewDataset(ratings []Rating, scale RatingScale) *Dataset {
	d := &Dataset{
		Ratings:     ratings,
		MeanRatings: make(map[string]float64),
		scale:       scale,
		userIndex:   NewFreqDict(),
		itemIndex:   NewFreqDict(),
		users:       make([]int32, len(ratings)),
		items:       make([]int32, len(ratings)),
	}
	sums := make(map[string]float64)
	var total float64
	for i, rating := range ratings {
		userId := d.userIndex.Add(rating.UserId)
		itemId := d.itemIndex.Add(rating.ItemId)
		if int(userId) == len(d.userRatings) {
			d.userRatings = append(d.userRatings, nil)
		}
		if int(itemId) == len(d.itemRatings) {
			d.itemRatings = append(d.itemRatings, nil)
		}
		d.users[i] = userId
		d.items[i] = itemId
		d.userRatings[userId] = append(d.userRatings[userId], int32(i))
		d.itemRatings[itemId] = append(d.itemRatings[itemId], int32(i))
		sums[rating.ItemId] += rating.Value
		total += rating.Value
	}
	for itemId, sum := range sums {
		d.MeanRatings[itemId] = sum / float64(d.itemIndex.Freq(d.itemIndex.Id(itemId)))
	}
	if len(ratings) > 0 {
		d.globalMean = total / float64(len(ratings))
	}
	return d
}

// Count returns the number of ratings.
func (d *Dataset) Count() int {
	return len(d.Ratings)
}

func (d *Dataset) Scale() RatingScale {
	return d.scale
}

func (d *Dataset) UserIndex() *FreqDict {
	return d.userIndex
}

func (d *Dataset) ItemIndex() *FreqDict {
	return d.itemIndex
}

func (d *Dataset) CountUsers() int {
	return int(d.userIndex.Count())
}

func (d *Dataset) CountItems() int {
	return int(d.itemIndex.Count())
}

// GetDense returns the i-th rating with dense user and item ids.
func (d *Dataset) GetDense(i int) (int32, int32, float32) {
	return d.users[i], d.items[i], float32(d.Ratings[i].Value)
}

// GetUserRatings returns the indices of the ratings given by a dense user id.
func (d *Dataset) GetUserRatings(userId int32) []int32 {
	return d.userRatings[userId]
}

// GetItemRatings returns the indices of the ratings received by a dense item id.
func (d *Dataset) GetItemRatings(itemId int32) []int32 {
	return d.itemRatings[itemId]
}

// WarmUsers returns the users with at least one rating.
func (d *Dataset) WarmUsers() mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(d.userIndex.Strings()...)
}

// GlobalMean returns the mean of all ratings, or 0 when empty.
func (d *Dataset) GlobalMean() float64 {
	return d.globalMean
}

// Split randomly holds out ratio of the ratings as a test set.
func (d *Dataset) Split(ratio float64, seed int64) (*Dataset, *Dataset) {
	rng := base.NewRandomGenerator(seed)
	perm := rng.Permutation(d.Count())
	numTest := int(float64(d.Count()) * ratio)
	testRatings := make([]Rating, 0, numTest)
	trainRatings := make([]Rating, 0, d.Count()-numTest)
	for i, idx := range perm {
		if i < numTest {
			testRatings = append(testRatings, d.Ratings[idx])
		} else {
			trainRatings = append(trainRatings, d.Ratings[idx])
		}
	}
	return NewDataset(trainRatings, d.scale), NewDataset(testRatings, d.scale)
}
