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
	"fmt"
	"time"
)

type Entry struct {
	Id          string         `json:"id"`
	Name        string         `json:"name"`
	Mode        string         `json:"mode"`
	Source      string         `json:"source"`
	Destination string         `json:"destination"`
	Departure   string         `json:"departure"`
	Arrival     string         `json:"arrival"`
	Meta        map[string]any `json:"meta"`
}

type UserRecommendation struct {
	UserId          string  `json:"user_id"`
	Mode            string  `json:"mode"`
	Personalized    bool    `json:"personalized"`
	Recommendations []Entry `json:"recommendations"`
}

type RouteRecommendation struct {
	Source          string  `json:"source"`
	Destination     string  `json:"destination"`
	UserId          string  `json:"user_id"`
	Mode            string  `json:"mode"`
	Personalized    bool    `json:"personalized"`
	Recommendations []Entry `json:"recommendations"`
}

type SimilarRecommendation struct {
	ItemId          string  `json:"item_id"`
	Mode            string  `json:"mode"`
	Recommendations []Entry `json:"recommendations"`
}

type Status struct {
	State       string    `json:"state"`
	Mode        string    `json:"mode"`
	Version     string    `json:"version,omitempty"`
	NumItems    int       `json:"num_items"`
	NumUsers    int       `json:"num_users"`
	NumRatings  int       `json:"num_ratings"`
	Trained     bool      `json:"trained"`
	RMSE        float32   `json:"rmse"`
	MAE         float32   `json:"mae"`
	LastFitTime time.Time `json:"last_fit_time"`
	LastError   string    `json:"last_error,omitempty"`
}

type Health struct {
	Status string `json:"status"`
}

// ErrorMessage is returned for non-2xx responses.
type ErrorMessage struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *ErrorMessage) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}
