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

package data

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/transit/storage"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var (
	mySqlDSN    string
	postgresDSN string
)

func init() {
	mySqlDSN = os.Getenv("MYSQL_URI")
	postgresDSN = os.Getenv("POSTGRES_URI")
}

type SQLiteTestSuite struct {
	baseTestSuite
}

func (suite *SQLiteTestSuite) SetupSuite() {
	var err error
	path := filepath.Join(suite.T().TempDir(), "sqlite.db")
	suite.Database, err = Open(storage.SQLitePrefix+path, "air_")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func (suite *SQLiteTestSuite) TestTablePrefix() {
	db := suite.Database.(*SQLDatabase)
	var count int64
	err := db.gormDB.Table("air_items").Count(&count).Error
	suite.NoError(err)
	err = db.gormDB.Table("air_interactions").Count(&count).Error
	suite.NoError(err)
}

func TestSQLite(t *testing.T) {
	suite.Run(t, new(SQLiteTestSuite))
}

func TestSQLiteMode(t *testing.T) {
	db, err := Open(storage.SQLitePrefix+filepath.Join(t.TempDir(), "sqlite.db"), "", storage.WithMode(Rail))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Init())
	testListByMode(t, db)
}

type MySQLTestSuite struct {
	baseTestSuite
}

func (suite *MySQLTestSuite) SetupSuite() {
	// create database
	databaseComm, err := sql.Open("mysql", mySqlDSN[len(storage.MySQLPrefix):])
	suite.NoError(err)
	const dbName = "transit_test"
	_, err = databaseComm.Exec("DROP DATABASE IF EXISTS " + dbName)
	suite.NoError(err)
	_, err = databaseComm.Exec("CREATE DATABASE " + dbName)
	suite.NoError(err)
	suite.NoError(databaseComm.Close())
	// connect database
	suite.Database, err = Open(mySqlDSN+dbName, "")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func TestMySQL(t *testing.T) {
	if mySqlDSN == "" {
		t.Skip("MYSQL_URI is not set")
	}
	suite.Run(t, new(MySQLTestSuite))
}

type PostgresTestSuite struct {
	baseTestSuite
}

func (suite *PostgresTestSuite) SetupSuite() {
	var err error
	suite.Database, err = Open(postgresDSN, "")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func TestPostgres(t *testing.T) {
	if postgresDSN == "" {
		t.Skip("POSTGRES_URI is not set")
	}
	suite.Run(t, new(PostgresTestSuite))
}
