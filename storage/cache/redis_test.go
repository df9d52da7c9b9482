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

package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"
)

type RedisTestSuite struct {
	suite.Suite
	server   *miniredis.Miniredis
	Database Database
}

func (suite *RedisTestSuite) SetupTest() {
	var err error
	suite.server, err = miniredis.Run()
	suite.NoError(err)
	suite.Database, err = Open("redis://"+suite.server.Addr(), "air_")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func (suite *RedisTestSuite) TearDownTest() {
	suite.NoError(suite.Database.Close())
	suite.server.Close()
}

func (suite *RedisTestSuite) TestPing() {
	suite.NoError(suite.Database.Ping(context.Background()))
}

func (suite *RedisTestSuite) TestMeta() {
	testMeta(suite.T(), suite.Database)
}

func (suite *RedisTestSuite) TestTablePrefix() {
	err := suite.Database.Set(context.Background(), String(ModelVersion, "abc"))
	suite.NoError(err)
	value, err := suite.server.Get("air_" + ModelVersion)
	suite.NoError(err)
	suite.Equal("abc", value)
}

func TestRedis(t *testing.T) {
	suite.Run(t, new(RedisTestSuite))
}
