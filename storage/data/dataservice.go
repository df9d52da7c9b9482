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
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// FlexibleString decodes a JSON string or number into its text form.
type FlexibleString string

func (s *FlexibleString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		*s = FlexibleString(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(b, &number); err != nil {
		return errors.Trace(err)
	}
	*s = FlexibleString(number.String())
	return nil
}

// FlexibleRating decodes a rating sent as number, numeric string, empty
// string, "NaN" or null. Anything that does not parse is left nil.
type FlexibleRating struct {
	Value *float64
}

func (r *FlexibleRating) UnmarshalJSON(b []byte) error {
	r.Value = nil
	if string(b) == "null" {
		return nil
	}
	var number float64
	if err := json.Unmarshal(b, &number); err == nil {
		r.Value = &number
		return nil
	}
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		text = strings.TrimSpace(text)
		if strings.EqualFold(text, "nan") {
			r.Value = lo.ToPtr(math.NaN())
		} else if parsed, err := strconv.ParseFloat(text, 64); err == nil {
			r.Value = &parsed
		}
	}
	return nil
}

// parseTimestamp reads the loosely formatted timestamps of the data service.
// Naive timestamps are taken as UTC and unparsable ones as zero.
func parseTimestamp(s string) time.Time {
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

type flightRecord struct {
	FlightNumber FlexibleString `json:"flightNumber"`
	Airline      FlexibleString `json:"airline"`
	Source       FlexibleString `json:"source"`
	Destination  FlexibleString `json:"destination"`
	Departure    FlexibleString `json:"departure"`
	Arrival      FlexibleString `json:"arrival"`
}

func (f flightRecord) toItem() Item {
	airline := string(f.Airline)
	if airline == "" {
		airline = "Unknown"
	}
	return Item{
		ItemId:      string(f.FlightNumber),
		Mode:        Air,
		Origin:      string(f.Source),
		Destination: string(f.Destination),
		Name:        fmt.Sprintf("%s %s", airline, f.FlightNumber),
		Departure:   string(f.Departure),
		Arrival:     string(f.Arrival),
		Meta:        map[string]any{"airline": string(f.Airline)},
	}
}

type trainRecord struct {
	TrainNumber FlexibleString `json:"train_number"`
	TrainName   FlexibleString `json:"train_name"`
	Source      FlexibleString `json:"source"`
	Destination FlexibleString `json:"destination"`
	StationName FlexibleString `json:"station_name"`
	Departure   FlexibleString `json:"departure"`
}

func (t trainRecord) toItem() Item {
	return Item{
		ItemId:      string(t.TrainNumber),
		Mode:        Rail,
		Origin:      string(t.Source),
		Destination: string(t.Destination),
		Name:        string(t.TrainName),
		Departure:   string(t.Departure),
		Meta:        map[string]any{"station_name": string(t.StationName)},
	}
}

type interactionRecord struct {
	UserId          FlexibleString `json:"userId"`
	FlightNumber    FlexibleString `json:"flightNumber"`
	TrainNumber     FlexibleString `json:"trainNumber"`
	InteractionType FlexibleString `json:"interactionType"`
	Timestamp       FlexibleString `json:"timestamp"`
	Rating          FlexibleRating `json:"rating"`
}

func (r interactionRecord) toInteraction(mode string) Interaction {
	itemId := r.FlightNumber
	if mode == Rail {
		itemId = r.TrainNumber
	}
	return Interaction{
		UserId:    string(r.UserId),
		ItemId:    string(itemId),
		Type:      string(r.InteractionType),
		Timestamp: parseTimestamp(string(r.Timestamp)),
		Rating:    r.Rating.Value,
	}
}

// DataService reads the catalog and interactions from the HTTP data service
// of one transport mode. It is read-only.
type DataService struct {
	baseURL string
	mode    string
	limit   int
	client  *http.Client
}

func NewDataService(baseURL, mode string, limit int) *DataService {
	return &DataService{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		mode:    mode,
		limit:   limit,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *DataService) get(ctx context.Context, path string, params url.Values, v any) error {
	uri := d.baseURL + path
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return errors.Trace(err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Trace(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("GET %s: %s %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	if v == nil {
		return nil
	}
	return errors.Trace(json.NewDecoder(resp.Body).Decode(v))
}

func (d *DataService) listParams() url.Values {
	params := url.Values{}
	if d.limit > 0 {
		params.Set("limit", strconv.Itoa(d.limit))
	}
	return params
}

// Init nothing.
func (d *DataService) Init() error {
	return nil
}

func (d *DataService) Ping(ctx context.Context) error {
	return d.get(ctx, "/health", nil, nil)
}

func (d *DataService) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func (d *DataService) Purge(_ context.Context) error {
	return ErrReadOnly
}

// ListItems fetches /flights or /trains depending on the mode.
func (d *DataService) ListItems(ctx context.Context) ([]Item, error) {
	if d.mode == Rail {
		var records []trainRecord
		if err := d.get(ctx, "/trains", d.listParams(), &records); err != nil {
			return nil, errors.Trace(err)
		}
		return lo.Map(records, func(record trainRecord, _ int) Item {
			return record.toItem()
		}), nil
	}
	var records []flightRecord
	if err := d.get(ctx, "/flights", d.listParams(), &records); err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(records, func(record flightRecord, _ int) Item {
		return record.toItem()
	}), nil
}

// ListInteractions fetches /users.
func (d *DataService) ListInteractions(ctx context.Context) ([]Interaction, error) {
	var records []interactionRecord
	if err := d.get(ctx, "/users", d.listParams(), &records); err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(records, func(record interactionRecord, _ int) Interaction {
		return record.toInteraction(d.mode)
	}), nil
}

func (d *DataService) BatchInsertItems(_ context.Context, _ []Item) error {
	return ErrReadOnly
}

func (d *DataService) BatchInsertInteractions(_ context.Context, _ []Interaction) error {
	return ErrReadOnly
}
