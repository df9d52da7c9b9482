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
	"context"
	"time"

	"github.com/gorse-io/transit/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoItem struct {
	ItemId      string         `bson:"_id"`
	Mode        string         `bson:"mode"`
	Origin      string         `bson:"origin"`
	Destination string         `bson:"destination"`
	Name        string         `bson:"name"`
	Departure   string         `bson:"departure"`
	Arrival     string         `bson:"arrival"`
	Meta        map[string]any `bson:"meta,omitempty"`
}

type mongoInteraction struct {
	Seq       int64     `bson:"seq"`
	UserId    string    `bson:"user_id"`
	ItemId    string    `bson:"item_id"`
	Type      string    `bson:"interaction_type"`
	Timestamp time.Time `bson:"timestamp"`
	Rating    *float64  `bson:"rating,omitempty"`
}

// MongoDB is the data storage based on MongoDB.
type MongoDB struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
	mode   string
}

// Init collections and indices in MongoDB.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	for _, name := range []string{db.ItemsTable(), db.InteractionsTable()} {
		if !lo.Contains(collections, name) {
			if err = d.CreateCollection(ctx, name); err != nil {
				return errors.Trace(err)
			}
		}
	}
	_, err = d.Collection(db.ItemsTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "origin", Value: 1}, {Key: "destination", Value: 1}},
	})
	if err != nil {
		return errors.Trace(err)
	}
	_, err = d.Collection(db.InteractionsTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{"seq": 1},
	})
	return errors.Trace(err)
}

func (db *MongoDB) Ping(ctx context.Context) error {
	return errors.Trace(db.client.Ping(ctx, nil))
}

// Close connection to MongoDB.
func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

// Purge deletes every item and interaction.
func (db *MongoDB) Purge(ctx context.Context) error {
	d := db.client.Database(db.dbName)
	for _, name := range []string{db.ItemsTable(), db.InteractionsTable()} {
		if _, err := d.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ListItems returns the catalog ordered by item id.
func (db *MongoDB) ListItems(ctx context.Context) ([]Item, error) {
	filter := bson.M{}
	if db.mode != "" {
		filter["mode"] = db.mode
	}
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	r, err := c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Trace(err)
	}
	var rows []mongoItem
	if err = r.All(ctx, &rows); err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row mongoItem, _ int) Item {
		return Item{
			ItemId:      row.ItemId,
			Mode:        row.Mode,
			Origin:      row.Origin,
			Destination: row.Destination,
			Name:        row.Name,
			Departure:   row.Departure,
			Arrival:     row.Arrival,
			Meta:        row.Meta,
		}
	}), nil
}

// ListInteractions returns interactions in insertion order. Interactions on
// items of another mode are skipped.
func (db *MongoDB) ListInteractions(ctx context.Context) ([]Interaction, error) {
	filter := bson.M{}
	if db.mode != "" {
		itemIds, err := db.client.Database(db.dbName).Collection(db.ItemsTable()).
			Distinct(ctx, "_id", bson.M{"mode": db.mode})
		if err != nil {
			return nil, errors.Trace(err)
		}
		if itemIds == nil {
			itemIds = []interface{}{}
		}
		filter["item_id"] = bson.M{"$in": itemIds}
	}
	c := db.client.Database(db.dbName).Collection(db.InteractionsTable())
	r, err := c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, errors.Trace(err)
	}
	var rows []mongoInteraction
	if err = r.All(ctx, &rows); err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row mongoInteraction, _ int) Interaction {
		return Interaction{
			UserId:    row.UserId,
			ItemId:    row.ItemId,
			Type:      row.Type,
			Timestamp: row.Timestamp,
			Rating:    row.Rating,
		}
	}), nil
}

// BatchInsertItems upserts items by id.
func (db *MongoDB) BatchInsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	var models []mongo.WriteModel
	for _, item := range items {
		models = append(models, mongo.NewReplaceOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"_id": item.ItemId}).
			SetReplacement(mongoItem{
				ItemId:      item.ItemId,
				Mode:        item.Mode,
				Origin:      item.Origin,
				Destination: item.Destination,
				Name:        item.Name,
				Departure:   item.Departure,
				Arrival:     item.Arrival,
				Meta:        item.Meta,
			}))
	}
	_, err := c.BulkWrite(ctx, models)
	return errors.Trace(err)
}

// BatchInsertInteractions appends interactions. Insertion order is kept by a
// sequence number continuing from the largest stored one.
func (db *MongoDB) BatchInsertInteractions(ctx context.Context, interactions []Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.InteractionsTable())
	var last mongoInteraction
	err := c.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})).Decode(&last)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Trace(err)
	}
	docs := make([]interface{}, 0, len(interactions))
	for i, interaction := range interactions {
		docs = append(docs, mongoInteraction{
			Seq:       last.Seq + int64(i) + 1,
			UserId:    interaction.UserId,
			ItemId:    interaction.ItemId,
			Type:      interaction.Type,
			Timestamp: interaction.Timestamp.UTC(),
			Rating:    interaction.Rating,
		})
	}
	_, err = c.InsertMany(ctx, docs)
	return errors.Trace(err)
}
