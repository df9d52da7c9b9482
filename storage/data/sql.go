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
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gorse-io/transit/storage"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLItem is the row layout of the items table.
type SQLItem struct {
	ItemId      string         `gorm:"column:item_id;type:varchar(256);primaryKey"`
	Mode        string         `gorm:"column:mode;type:varchar(16)"`
	Origin      string         `gorm:"column:origin;type:varchar(256);index"`
	Destination string         `gorm:"column:destination;type:varchar(256);index"`
	Name        string         `gorm:"column:name;type:text"`
	Departure   string         `gorm:"column:departure;type:varchar(64)"`
	Arrival     string         `gorm:"column:arrival;type:varchar(64)"`
	Meta        string         `gorm:"column:meta;type:text"`
}

// SQLInteraction is the row layout of the interactions table.
type SQLInteraction struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserId    string    `gorm:"column:user_id;type:varchar(256);index"`
	ItemId    string    `gorm:"column:item_id;type:varchar(256);index"`
	Type      string    `gorm:"column:interaction_type;type:varchar(32)"`
	Timestamp time.Time `gorm:"column:time_stamp"`
	Rating    *float64  `gorm:"column:rating"`
}

func newSQLItem(item Item) (SQLItem, error) {
	row := SQLItem{
		ItemId:      item.ItemId,
		Mode:        item.Mode,
		Origin:      item.Origin,
		Destination: item.Destination,
		Name:        item.Name,
		Departure:   item.Departure,
		Arrival:     item.Arrival,
	}
	if len(item.Meta) > 0 {
		meta, err := json.Marshal(item.Meta)
		if err != nil {
			return SQLItem{}, errors.Trace(err)
		}
		row.Meta = string(meta)
	}
	return row, nil
}

func (row SQLItem) toItem() (Item, error) {
	item := Item{
		ItemId:      row.ItemId,
		Mode:        row.Mode,
		Origin:      row.Origin,
		Destination: row.Destination,
		Name:        row.Name,
		Departure:   row.Departure,
		Arrival:     row.Arrival,
	}
	if row.Meta != "" {
		if err := json.Unmarshal([]byte(row.Meta), &item.Meta); err != nil {
			return Item{}, errors.Trace(err)
		}
	}
	return item, nil
}

// SQLDatabase keeps the catalog and the interaction log in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
	// mode restricts listings to one transport mode; empty lists everything
	mode string
}

// Init tables and indices.
func (d *SQLDatabase) Init() error {
	if err := d.gormDB.AutoMigrate(&SQLItem{}, &SQLInteraction{}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (d *SQLDatabase) Ping(ctx context.Context) error {
	return errors.Trace(d.client.PingContext(ctx))
}

// Close connection.
func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

// Purge deletes every item and interaction.
func (d *SQLDatabase) Purge(ctx context.Context) error {
	for _, tableName := range []string{d.ItemsTable(), d.InteractionsTable()} {
		if err := d.gormDB.WithContext(ctx).Exec("DELETE FROM " + tableName).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ListItems returns the catalog ordered by item id.
func (d *SQLDatabase) ListItems(ctx context.Context) ([]Item, error) {
	tx := d.gormDB.WithContext(ctx)
	if d.mode != "" {
		tx = tx.Where("mode = ?", d.mode)
	}
	var rows []SQLItem
	if err := tx.Order("item_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := row.toItem()
		if err != nil {
			return nil, errors.Trace(err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ListInteractions returns interactions in insertion order. Interactions on
// items of another mode are skipped.
func (d *SQLDatabase) ListInteractions(ctx context.Context) ([]Interaction, error) {
	tx := d.gormDB.WithContext(ctx)
	if d.mode != "" {
		tx = tx.Where("item_id IN (?)", d.gormDB.Model(&SQLItem{}).Select("item_id").Where("mode = ?", d.mode))
	}
	var rows []SQLInteraction
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLInteraction, _ int) Interaction {
		return Interaction{
			UserId:    row.UserId,
			ItemId:    row.ItemId,
			Type:      row.Type,
			Timestamp: row.Timestamp,
			Rating:    row.Rating,
		}
	}), nil
}

// BatchInsertItems inserts items, overwriting existing ones with the same id.
func (d *SQLDatabase) BatchInsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]SQLItem, 0, len(items))
	for _, item := range items {
		row, err := newSQLItem(item)
		if err != nil {
			return errors.Trace(err)
		}
		rows = append(rows, row)
	}
	return errors.Trace(d.gormDB.WithContext(ctx).Save(&rows).Error)
}

// BatchInsertInteractions appends interactions to the log.
func (d *SQLDatabase) BatchInsertInteractions(ctx context.Context, interactions []Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	rows := lo.Map(interactions, func(interaction Interaction, _ int) SQLInteraction {
		return SQLInteraction{
			UserId:    interaction.UserId,
			ItemId:    interaction.ItemId,
			Type:      interaction.Type,
			Timestamp: interaction.Timestamp.UTC(),
			Rating:    interaction.Rating,
		}
	})
	return errors.Trace(d.gormDB.WithContext(ctx).Create(&rows).Error)
}
