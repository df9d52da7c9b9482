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

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorse-io/transit/config"
	"github.com/gorse-io/transit/dataset"
	"github.com/gorse-io/transit/logics"
	"github.com/gorse-io/transit/master"
	"github.com/gorse-io/transit/server"
	"github.com/gorse-io/transit/storage/data"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

const apiKey = "test_api_key"

type staticEngine struct {
	snapshot *logics.Snapshot
}

func (e *staticEngine) Snapshot() *logics.Snapshot {
	return e.snapshot
}

func (e *staticEngine) Status() master.Status {
	return master.Status{State: master.Serving.String(), Mode: data.Rail, Version: e.snapshot.Version, NumItems: len(e.snapshot.Items)}
}

func (e *staticEngine) ScheduleReload() bool {
	return true
}

type TransitClientTestSuite struct {
	suite.Suite
	server *httptest.Server
	client *TransitClient
}

func (suite *TransitClientTestSuite) SetupSuite() {
	items := []data.Item{
		{ItemId: "12951", Mode: data.Rail, Origin: "Mumbai Central", Destination: "New Delhi", Name: "Rajdhani Express", Meta: map[string]any{"station_name": "Mumbai Central"}},
		{ItemId: "12627", Mode: data.Rail, Origin: "Bangalore", Destination: "New Delhi", Name: "Karnataka Express"},
		{ItemId: "12953", Mode: data.Rail, Origin: "Mumbai Central", Destination: "New Delhi", Name: "August Kranti", Meta: map[string]any{"station_name": "Mumbai Central"}},
	}
	ratings := dataset.Aggregate([]data.Interaction{
		{UserId: "u1", ItemId: "12627", Type: data.Book, Rating: lo.ToPtr(4.0)},
	}, dataset.DefaultRatingScale)
	snapshot := logics.NewSnapshot(data.Rail, items, ratings, nil)
	snapshot.Version = "v1"

	cfg := config.GetDefaultConfig()
	cfg.Server.APIKey = apiKey
	suite.server = httptest.NewServer(server.NewRestServer(cfg, &staticEngine{snapshot: snapshot}).Handler())
	suite.client = NewTransitClient(suite.server.URL+"/", apiKey)
}

func (suite *TransitClientTestSuite) TearDownSuite() {
	suite.server.Close()
}

func (suite *TransitClientTestSuite) TestRecommendForUser() {
	result, err := suite.client.RecommendForUser(context.Background(), "u1", 2)
	suite.Require().NoError(err)
	suite.Equal("u1", result.UserId)
	suite.Equal(data.Rail, result.Mode)
	suite.False(result.Personalized)
	suite.Equal([]string{"12951", "12627"}, lo.Map(result.Recommendations, func(e Entry, _ int) string { return e.Id }))
	suite.Equal("Rajdhani Express", result.Recommendations[0].Name)
}

func (suite *TransitClientTestSuite) TestRecommendForRoute() {
	result, err := suite.client.RecommendForRoute(context.Background(), "mumbai central", "new delhi", "", 0)
	suite.Require().NoError(err)
	suite.Len(result.Recommendations, 2)
	suite.Empty(result.UserId)

	_, err = suite.client.RecommendForRoute(context.Background(), "Goa", "Pune", "u1", 0)
	var message *ErrorMessage
	suite.ErrorAs(err, &message)
	suite.Equal(http.StatusNotFound, message.StatusCode)
	suite.Equal("not_found", message.Code)
}

func (suite *TransitClientTestSuite) TestGetSimilar() {
	result, err := suite.client.GetSimilar(context.Background(), "12951", 1)
	suite.Require().NoError(err)
	suite.Equal("12951", result.ItemId)
	suite.Len(result.Recommendations, 1)
	suite.Equal("12953", result.Recommendations[0].Id)
}

func (suite *TransitClientTestSuite) TestSystem() {
	ctx := context.Background()
	health, err := suite.client.Health(ctx)
	suite.Require().NoError(err)
	suite.Equal("healthy", health.Status)
	status, err := suite.client.Status(ctx)
	suite.Require().NoError(err)
	suite.Equal("v1", status.Version)
	suite.Equal(3, status.NumItems)
	scheduled, err := suite.client.Reload(ctx)
	suite.Require().NoError(err)
	suite.True(scheduled)
}

func (suite *TransitClientTestSuite) TestUnauthorized() {
	_, err := NewTransitClient(suite.server.URL, "").Status(context.Background())
	var message *ErrorMessage
	suite.ErrorAs(err, &message)
	suite.Equal(http.StatusUnauthorized, message.StatusCode)
}

func TestTransitClient(t *testing.T) {
	suite.Run(t, new(TransitClientTestSuite))
}
