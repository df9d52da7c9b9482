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
	"context"
	"io"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	"github.com/gorse-io/transit/base/encoding"
	"github.com/gorse-io/transit/base/log"
	"github.com/gorse-io/transit/common/floats"
	"github.com/gorse-io/transit/dataset"
	"github.com/gorse-io/transit/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

type FitConfig struct {
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{Verbose: 10}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

// SVD is the biased matrix factorization popularized by Simon Funk during
// the Netflix Prize. The prediction is
//
//	r_ui = mu + b_u + b_i + q_i^T p_u
//
// If user u is unknown, then b_u and p_u are assumed to be zero. The same
// applies for item i with b_i and q_i. mu is fixed to the mean of the
// training ratings.
type SVD struct {
	model.BaseModel
	// Model parameters
	UserIndex       *dataset.FreqDict
	ItemIndex       *dataset.FreqDict
	UserPredictable *bitset.BitSet
	ItemPredictable *bitset.BitSet
	UserFactor      [][]float32 // p_u
	ItemFactor      [][]float32 // q_i
	UserBias        []float32   // b_u
	ItemBias        []float32   // b_i
	GlobalMean      float32     // mu
	MinRating       float32
	MaxRating       float32
	// Hyper parameters
	useBias    bool
	nFactors   int
	nEpochs    int
	lr         float32
	reg        float32
	initMean   float32
	initStdDev float32
}

// NewSVD creates a SVD model. Params:
//
//	UseBias    - Add bias terms to the model. Default is true.
//	Reg        - The regularization strength. Default is 0.02.
//	Lr         - The learning rate of SGD. Default is 0.005.
//	NFactors   - The number of latent factors. Default is 100.
//	NEpochs    - The number of epochs of SGD. Default is 20.
//	InitMean   - The mean of initial latent factors. Default is 0.
//	InitStdDev - The standard deviation of initial latent factors. Default is 0.1.
func NewSVD(params model.Params) *SVD {
	svd := new(SVD)
	svd.SetParams(params)
	return svd
}

func (svd *SVD) SetParams(params model.Params) {
	svd.BaseModel.SetParams(params)
	svd.useBias = svd.Params.GetBool(model.UseBias, true)
	svd.nFactors = svd.Params.GetInt(model.NFactors, 100)
	svd.nEpochs = svd.Params.GetInt(model.NEpochs, 20)
	svd.lr = svd.Params.GetFloat32(model.Lr, 0.005)
	svd.reg = svd.Params.GetFloat32(model.Reg, 0.02)
	svd.initMean = svd.Params.GetFloat32(model.InitMean, 0)
	svd.initStdDev = svd.Params.GetFloat32(model.InitStdDev, 0.1)
}

// Invalid returns true if the model has not been fitted.
func (svd *SVD) Invalid() bool {
	return svd == nil ||
		svd.UserIndex == nil ||
		svd.ItemIndex == nil ||
		svd.UserFactor == nil ||
		svd.ItemFactor == nil
}

// Clear model weights.
func (svd *SVD) Clear() {
	svd.UserIndex = nil
	svd.ItemIndex = nil
	svd.UserPredictable = nil
	svd.ItemPredictable = nil
	svd.UserFactor = nil
	svd.ItemFactor = nil
	svd.UserBias = nil
	svd.ItemBias = nil
	svd.GlobalMean = 0
}

func (svd *SVD) IsUserPredictable(userId string) bool {
	if svd.Invalid() {
		return false
	}
	u := svd.UserIndex.Id(userId)
	return u >= 0 && svd.UserPredictable.Test(uint(u))
}

func (svd *SVD) IsItemPredictable(itemId string) bool {
	if svd.Invalid() {
		return false
	}
	i := svd.ItemIndex.Id(itemId)
	return i >= 0 && svd.ItemPredictable.Test(uint(i))
}

// Predict estimates the rating of a user for an item, clipped to the rating
// scale seen during training.
func (svd *SVD) Predict(userId, itemId string) float32 {
	if svd.Invalid() {
		return 0
	}
	return svd.clip(svd.predict(svd.UserIndex.Id(userId), svd.ItemIndex.Id(itemId)))
}

func (svd *SVD) predict(u, i int32) float32 {
	ret := svd.GlobalMean
	if u >= 0 && svd.useBias {
		ret += svd.UserBias[u]
	}
	if i >= 0 && svd.useBias {
		ret += svd.ItemBias[i]
	}
	if u >= 0 && i >= 0 {
		ret += floats.Dot(svd.UserFactor[u], svd.ItemFactor[i])
	}
	return ret
}

func (svd *SVD) clip(r float32) float32 {
	return math32.Max(svd.MinRating, math32.Min(svd.MaxRating, r))
}

func (svd *SVD) init(trainSet *dataset.Dataset) {
	scale := trainSet.Scale()
	svd.UserIndex = trainSet.UserIndex()
	svd.ItemIndex = trainSet.ItemIndex()
	svd.MinRating = float32(scale.Min)
	svd.MaxRating = float32(scale.Max)
	svd.GlobalMean = float32(trainSet.GlobalMean())
	numUsers, numItems := trainSet.CountUsers(), trainSet.CountItems()
	svd.UserBias = make([]float32, numUsers)
	svd.ItemBias = make([]float32, numItems)
	rng := svd.GetRandomGenerator()
	svd.UserFactor = rng.NormalMatrix(numUsers, svd.nFactors, svd.initMean, svd.initStdDev)
	svd.ItemFactor = rng.NormalMatrix(numItems, svd.nFactors, svd.initMean, svd.initStdDev)
	svd.UserPredictable = bitset.New(uint(numUsers))
	svd.ItemPredictable = bitset.New(uint(numItems))
	for u := 0; u < numUsers; u++ {
		if len(trainSet.GetUserRatings(int32(u))) > 0 {
			svd.UserPredictable.Set(uint(u))
		}
	}
	for i := 0; i < numItems; i++ {
		if len(trainSet.GetItemRatings(int32(i))) > 0 {
			svd.ItemPredictable.Set(uint(i))
		}
	}
}

// Fit the model by stochastic gradient descent over shuffled ratings. The
// returned score is measured on validateSet, or on trainSet if it is nil.
func (svd *SVD) Fit(ctx context.Context, trainSet, validateSet *dataset.Dataset, config *FitConfig) (model.Score, error) {
	if config == nil {
		config = NewFitConfig()
	}
	if trainSet.Count() == 0 {
		return model.Score{}, errors.NotValidf("empty training set")
	}
	if validateSet == nil {
		validateSet = trainSet
	}
	log.Logger().Info("fit svd",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Int("validate_set_size", validateSet.Count()),
		zap.String("params", svd.Params.String()))
	svd.init(trainSet)
	rng := svd.GetRandomGenerator()
	buffer := make([]float32, svd.nFactors)
	start := time.Now()
	for epoch := 1; epoch <= svd.nEpochs; epoch++ {
		select {
		case <-ctx.Done():
			return model.Score{}, errors.Trace(ctx.Err())
		default:
		}
		var sumLoss float32
		for _, idx := range rng.Permutation(trainSet.Count()) {
			u, i, rating := trainSet.GetDense(int(idx))
			// e_ui = r_ui - r^_ui
			diff := rating - svd.predict(u, i)
			sumLoss += diff * diff
			if svd.useBias {
				// b_u <- b_u + lr (e_ui - reg b_u)
				svd.UserBias[u] += svd.lr * (diff - svd.reg*svd.UserBias[u])
				// b_i <- b_i + lr (e_ui - reg b_i)
				svd.ItemBias[i] += svd.lr * (diff - svd.reg*svd.ItemBias[i])
			}
			userFactor := svd.UserFactor[u]
			itemFactor := svd.ItemFactor[i]
			copy(buffer, userFactor)
			// p_u <- p_u + lr (e_ui q_i - reg p_u)
			floats.MulConst(userFactor, 1-svd.lr*svd.reg)
			floats.MulConstAdd(itemFactor, svd.lr*diff, userFactor)
			// q_i <- q_i + lr (e_ui p_u - reg q_i)
			floats.MulConst(itemFactor, 1-svd.lr*svd.reg)
			floats.MulConstAdd(buffer, svd.lr*diff, itemFactor)
		}
		if config.Verbose > 0 && (epoch%config.Verbose == 0 || epoch == svd.nEpochs) {
			log.Logger().Debug("fit svd",
				zap.Int("epoch", epoch),
				zap.Int("n_epochs", svd.nEpochs),
				zap.Float32("train_rmse", math32.Sqrt(sumLoss/float32(trainSet.Count()))))
		}
	}
	score := svd.Evaluate(validateSet)
	log.Logger().Info("fit svd complete",
		zap.Duration("duration", time.Since(start)),
		zap.Float32("rmse", score.RMSE),
		zap.Float32("mae", score.MAE))
	return score, nil
}

// Evaluate computes RMSE and MAE of clipped predictions on a rating set.
func (svd *SVD) Evaluate(testSet *dataset.Dataset) model.Score {
	if testSet.Count() == 0 {
		return model.Score{}
	}
	var sumSquare, sumAbs float32
	for _, rating := range testSet.Ratings {
		diff := float32(rating.Value) - svd.Predict(rating.UserId, rating.ItemId)
		sumSquare += diff * diff
		sumAbs += math32.Abs(diff)
	}
	n := float32(testSet.Count())
	return model.Score{
		RMSE: math32.Sqrt(sumSquare / n),
		MAE:  sumAbs / n,
	}
}

type svdHeader struct {
	Params     model.Params
	Users      []string
	Items      []string
	GlobalMean float32
	MinRating  float32
	MaxRating  float32
}

// Marshal writes a fitted model to a stream.
func (svd *SVD) Marshal(w io.Writer) error {
	if svd.Invalid() {
		return errors.NotValidf("unfitted model")
	}
	if err := encoding.WriteGob(w, svdHeader{
		Params:     svd.Params,
		Users:      svd.UserIndex.Strings(),
		Items:      svd.ItemIndex.Strings(),
		GlobalMean: svd.GlobalMean,
		MinRating:  svd.MinRating,
		MaxRating:  svd.MaxRating,
	}); err != nil {
		return errors.Trace(err)
	}
	for _, v := range [][]float32{svd.UserBias, svd.ItemBias} {
		if err := encoding.WriteVector(w, v); err != nil {
			return errors.Trace(err)
		}
	}
	for _, m := range [][][]float32{svd.UserFactor, svd.ItemFactor} {
		if err := encoding.WriteMatrix(w, m); err != nil {
			return errors.Trace(err)
		}
	}
	if _, err := svd.UserPredictable.WriteTo(w); err != nil {
		return errors.Trace(err)
	}
	_, err := svd.ItemPredictable.WriteTo(w)
	return errors.Trace(err)
}

// Unmarshal reads a model written by Marshal.
func (svd *SVD) Unmarshal(r io.Reader) error {
	var header svdHeader
	if err := encoding.ReadGob(r, &header); err != nil {
		return errors.Trace(err)
	}
	svd.SetParams(header.Params)
	svd.UserIndex = dataset.NewFreqDict()
	for _, userId := range header.Users {
		svd.UserIndex.Add(userId)
	}
	svd.ItemIndex = dataset.NewFreqDict()
	for _, itemId := range header.Items {
		svd.ItemIndex.Add(itemId)
	}
	svd.GlobalMean = header.GlobalMean
	svd.MinRating = header.MinRating
	svd.MaxRating = header.MaxRating
	var err error
	if svd.UserBias, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if svd.ItemBias, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if svd.UserFactor, err = encoding.ReadMatrix(r); err != nil {
		return errors.Trace(err)
	}
	if svd.ItemFactor, err = encoding.ReadMatrix(r); err != nil {
		return errors.Trace(err)
	}
	if len(svd.UserBias) != len(header.Users) || len(svd.UserFactor) != len(header.Users) ||
		len(svd.ItemBias) != len(header.Items) || len(svd.ItemFactor) != len(header.Items) {
		return errors.NotValidf("model shape")
	}
	svd.UserPredictable = new(bitset.BitSet)
	if _, err = svd.UserPredictable.ReadFrom(r); err != nil {
		return errors.Trace(err)
	}
	svd.ItemPredictable = new(bitset.BitSet)
	if _, err = svd.ItemPredictable.ReadFrom(r); err != nil {
		return errors.Trace(err)
	}
	return nil
}
