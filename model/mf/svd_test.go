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

package mf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/gorse-io/transit/dataset"
	"github.com/gorse-io/transit/model"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SVDTestSuite struct {
	suite.Suite
	trainSet *dataset.Dataset
	testSet  *dataset.Dataset
}

// synthetic ratings: users in group 0 like even items, group 1 likes odd items.
func syntheticRatings() []dataset.Rating {
	var ratings []dataset.Rating
	for u := 0; u < 40; u++ {
		for i := 0; i < 20; i++ {
			if (u+i)%3 == 0 {
				continue
			}
			value := 1.0
			if u%2 == i%2 {
				value = 5.0
			}
			ratings = append(ratings, dataset.Rating{
				UserId: fmt.Sprintf("u%d", u),
				ItemId: fmt.Sprintf("i%d", i),
				Value:  value,
			})
		}
	}
	return ratings
}

func (suite *SVDTestSuite) SetupSuite() {
	d := dataset.NewDataset(syntheticRatings(), dataset.DefaultRatingScale)
	suite.trainSet, suite.testSet = d.Split(0.1, 1)
}

func (suite *SVDTestSuite) TestFit() {
	svd := NewSVD(model.Params{
		model.NFactors:    8,
		model.NEpochs:     100,
		model.Lr:          0.02,
		model.InitStdDev:  0.1,
		model.RandomState: 1,
	})
	suite.True(svd.Invalid())
	score, err := svd.Fit(context.Background(), suite.trainSet, suite.testSet, NewFitConfig().SetVerbose(10))
	suite.NoError(err)
	suite.False(svd.Invalid())
	suite.Less(score.RMSE, float32(1.0))
	suite.LessOrEqual(score.MAE, score.RMSE)
	// evaluate on training data
	trainScore := svd.Evaluate(suite.trainSet)
	suite.Less(trainScore.RMSE, float32(0.5))
}

func (suite *SVDTestSuite) TestPredictionsInScale() {
	svd := NewSVD(model.Params{model.NFactors: 8, model.NEpochs: 50, model.Lr: 0.05, model.RandomState: 1})
	_, err := svd.Fit(context.Background(), suite.trainSet, nil, nil)
	suite.NoError(err)
	for u := 0; u < 40; u++ {
		for i := 0; i < 20; i++ {
			p := svd.Predict(fmt.Sprintf("u%d", u), fmt.Sprintf("i%d", i))
			suite.GreaterOrEqual(p, float32(1))
			suite.LessOrEqual(p, float32(5))
		}
	}
}

func (suite *SVDTestSuite) TestMarshal() {
	svd := NewSVD(model.Params{model.NFactors: 4, model.NEpochs: 5, model.RandomState: 1})
	_, err := svd.Fit(context.Background(), suite.trainSet, nil, nil)
	suite.NoError(err)
	buf := bytes.NewBuffer(nil)
	suite.NoError(svd.Marshal(buf))
	copied := NewSVD(nil)
	suite.NoError(copied.Unmarshal(buf))
	suite.Equal(svd.GetParams(), copied.GetParams())
	suite.Equal(svd.GlobalMean, copied.GlobalMean)
	for _, userId := range []string{"u0", "u1", "unknown"} {
		suite.Equal(svd.IsUserPredictable(userId), copied.IsUserPredictable(userId))
		for _, itemId := range []string{"i0", "i1", "unknown"} {
			suite.Equal(svd.Predict(userId, itemId), copied.Predict(userId, itemId))
		}
	}
	// unfitted model
	suite.Error(NewSVD(nil).Marshal(bytes.NewBuffer(nil)))
	// truncated stream
	suite.Error(NewSVD(nil).Unmarshal(bytes.NewBuffer([]byte{1, 0, 0})))
}

func TestSVD(t *testing.T) {
	suite.Run(t, new(SVDTestSuite))
}

func TestSVD_UnknownUserAndItem(t *testing.T) {
	d := dataset.NewDataset([]dataset.Rating{
		{UserId: "u1", ItemId: "A", Value: 5},
		{UserId: "u1", ItemId: "B", Value: 1},
		{UserId: "u2", ItemId: "A", Value: 4},
	}, dataset.DefaultRatingScale)
	svd := NewSVD(model.Params{model.NFactors: 4, model.NEpochs: 20, model.RandomState: 1})
	_, err := svd.Fit(context.Background(), d, nil, nil)
	assert.NoError(t, err)
	assert.InDelta(t, 10.0/3, svd.GlobalMean, 1e-6)
	// both unknown
	assert.Equal(t, svd.GlobalMean, svd.Predict("nobody", "nothing"))
	// unknown user drops b_u and p_u
	a := svd.ItemIndex.Id("A")
	assert.InDelta(t, svd.GlobalMean+svd.ItemBias[a], svd.Predict("nobody", "A"), 1e-6)
	// unknown item drops b_i and q_i
	u := svd.UserIndex.Id("u1")
	assert.InDelta(t, svd.GlobalMean+svd.UserBias[u], svd.Predict("u1", "nothing"), 1e-6)
	assert.True(t, svd.IsUserPredictable("u1"))
	assert.False(t, svd.IsUserPredictable("nobody"))
	assert.True(t, svd.IsItemPredictable("B"))
	assert.False(t, svd.IsItemPredictable("C"))
}

func TestSVD_BookedHigherRanksFirst(t *testing.T) {
	d := dataset.NewDataset([]dataset.Rating{
		{UserId: "u1", ItemId: "A", Value: 5},
		{UserId: "u1", ItemId: "B", Value: 1},
	}, dataset.DefaultRatingScale)
	svd := NewSVD(model.Params{
		model.NFactors:    10,
		model.NEpochs:     100,
		model.Lr:          0.05,
		model.InitStdDev:  0.01,
		model.RandomState: 42,
	})
	_, err := svd.Fit(context.Background(), d, nil, nil)
	assert.NoError(t, err)
	assert.Greater(t, svd.Predict("u1", "A"), svd.Predict("u1", "B"))
}

func TestSVD_Clip(t *testing.T) {
	svd := &SVD{MinRating: 1, MaxRating: 5}
	assert.Equal(t, float32(1), svd.clip(-3))
	assert.Equal(t, float32(5), svd.clip(7))
	assert.Equal(t, float32(2.5), svd.clip(2.5))
}

func TestSVD_Clear(t *testing.T) {
	d := dataset.NewDataset([]dataset.Rating{{UserId: "u1", ItemId: "A", Value: 5}}, dataset.DefaultRatingScale)
	svd := NewSVD(model.Params{model.NFactors: 2, model.NEpochs: 1})
	_, err := svd.Fit(context.Background(), d, nil, nil)
	assert.NoError(t, err)
	svd.Clear()
	assert.True(t, svd.Invalid())
	assert.Zero(t, svd.Predict("u1", "A"))
	assert.False(t, svd.IsUserPredictable("u1"))
}

func TestSVD_EmptyTrainSet(t *testing.T) {
	svd := NewSVD(nil)
	_, err := svd.Fit(context.Background(), dataset.NewDataset(nil, dataset.DefaultRatingScale), nil, nil)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestSVD_Cancel(t *testing.T) {
	d := dataset.NewDataset(syntheticRatings(), dataset.DefaultRatingScale)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svd := NewSVD(model.Params{model.NFactors: 2})
	_, err := svd.Fit(ctx, d, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
