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
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

type TransitClient struct {
	entryPoint string
	apiKey     string
	httpClient http.Client
}

func NewTransitClient(entryPoint, apiKey string) *TransitClient {
	return &TransitClient{
		entryPoint: strings.TrimSuffix(entryPoint, "/"),
		apiKey:     apiKey,
	}
}

// RecommendForUser returns the top n items for a user. n <= 0 uses the
// server default.
func (c *TransitClient) RecommendForUser(ctx context.Context, userId string, n int) (*UserRecommendation, error) {
	var result UserRecommendation
	err := c.request(ctx, http.MethodGet, "/recommend/"+url.PathEscape(userId), withN(url.Values{}, n), http.StatusOK, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RecommendForRoute returns the top n items from source to destination.
// userId may be empty.
func (c *TransitClient) RecommendForRoute(ctx context.Context, source, destination, userId string, n int) (*RouteRecommendation, error) {
	query := url.Values{}
	query.Set("source", source)
	query.Set("destination", destination)
	if userId != "" {
		query.Set("user-id", userId)
	}
	var result RouteRecommendation
	if err := c.request(ctx, http.MethodGet, "/recommend-route", withN(query, n), http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *TransitClient) GetSimilar(ctx context.Context, itemId string, n int) (*SimilarRecommendation, error) {
	var result SimilarRecommendation
	err := c.request(ctx, http.MethodGet, "/similar/"+url.PathEscape(itemId), withN(url.Values{}, n), http.StatusOK, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *TransitClient) Health(ctx context.Context) (*Health, error) {
	var result Health
	if err := c.request(ctx, http.MethodGet, "/health", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *TransitClient) Status(ctx context.Context) (*Status, error) {
	var result Status
	if err := c.request(ctx, http.MethodGet, "/status", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reload asks the server to retrain. It returns false if a reload was
// already pending.
func (c *TransitClient) Reload(ctx context.Context) (bool, error) {
	var result struct {
		Scheduled bool `json:"scheduled"`
	}
	if err := c.request(ctx, http.MethodPost, "/reload", nil, http.StatusAccepted, &result); err != nil {
		return false, err
	}
	return result.Scheduled, nil
}

func withN(query url.Values, n int) url.Values {
	if n > 0 {
		query.Set("n", strconv.Itoa(n))
	}
	return query
}

func (c *TransitClient) request(ctx context.Context, method, path string, query url.Values, expected int, result any) error {
	target := c.entryPoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return errors.Trace(err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Trace(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Trace(err)
	}
	if resp.StatusCode != expected {
		message := &ErrorMessage{StatusCode: resp.StatusCode}
		if err = json.Unmarshal(body, message); err != nil {
			message.Message = string(body)
		}
		return message
	}
	return errors.Trace(json.Unmarshal(body, result))
}
