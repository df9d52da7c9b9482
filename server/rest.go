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

package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/transit/base/log"
	"github.com/gorse-io/transit/config"
	"github.com/gorse-io/transit/logics"
	"github.com/gorse-io/transit/master"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.uber.org/zap"
)

// Engine serves snapshots and accepts reload requests.
type Engine interface {
	Snapshot() *logics.Snapshot
	Status() master.Status
	ScheduleReload() bool
}

// RestServer implements a REST-ful API server.
type RestServer struct {
	Config     *config.Config
	Engine     Engine
	HttpHost   string
	HttpPort   int
	WebService *restful.WebService
	HttpServer *http.Server

	// similar items keyed by snapshot version, item and n
	similarCache *ttlcache.Cache[string, *logics.SimilarRecommendation]
}

const (
	similarCacheTTL      = time.Minute
	similarCacheCapacity = 10000
)

func NewRestServer(cfg *config.Config, engine Engine) *RestServer {
	return &RestServer{
		Config:     cfg,
		Engine:     engine,
		HttpHost:   cfg.Server.Host,
		HttpPort:   cfg.Server.Port,
		WebService: new(restful.WebService),
		similarCache: ttlcache.New(
			ttlcache.WithTTL[string, *logics.SimilarRecommendation](similarCacheTTL),
			ttlcache.WithCapacity[string, *logics.SimilarRecommendation](similarCacheCapacity),
		),
	}
}

type HealthStatus struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ReloadResponse struct {
	Scheduled bool `json:"scheduled"`
}

// Handler registers the web service, the OpenAPI document and the metrics
// endpoint on a new container.
func (s *RestServer) Handler() http.Handler {
	s.CreateWebService()
	container := restful.NewContainer()
	container.Add(s.WebService)
	specConfig := restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	container.Add(restfulspec.NewOpenAPIService(specConfig))
	container.Handle("/metrics", promhttp.Handler())
	return container
}

// StartHttpServer blocks until the server is shut down.
func (s *RestServer) StartHttpServer() error {
	s.HttpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.HttpHost, s.HttpPort),
		Handler: s.Handler(),
	}
	go s.similarCache.Start()
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.HttpHost, s.HttpPort)))
	if err := s.HttpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

func (s *RestServer) Shutdown(ctx context.Context) error {
	if s.HttpServer == nil {
		return nil
	}
	s.similarCache.Stop()
	return errors.Trace(s.HttpServer.Shutdown(ctx))
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter("X-Request-ID")
	if requestId == "" {
		requestId = uuid.NewString()
	}
	resp.AddHeader("X-Request-ID", requestId)

	start := time.Now()
	chain.ProcessFilter(req, resp)
	duration := time.Since(start)
	if route := req.SelectedRoutePath(); route != "" {
		RestAPIRequestSecondsVec.WithLabelValues(route).Observe(duration.Seconds())
	}
	if req.Request.URL.Path != "/health" && req.Request.URL.Path != "/metrics" {
		log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("duration", duration))
	}
}

// AuthFilter rejects requests without the configured API key.
func (s *RestServer) AuthFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if s.Config.Server.APIKey == "" || req.HeaderParameter("X-API-Key") == s.Config.Server.APIKey {
		chain.ProcessFilter(req, resp)
		return
	}
	log.ResponseLogger(resp).Error("unauthorized: api key rejected",
		zap.Bool("has_api_key", req.HeaderParameter("X-API-Key") != ""),
		zap.String("path", req.Request.URL.Path))
	writeError(resp, http.StatusUnauthorized, "unauthorized", "invalid api key")
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/")
	ws.Filter(otelrestful.OTelFilter("transit"))
	ws.Filter(LogFilter)

	// Recommend for a user
	ws.Route(ws.GET("/recommend/{user-id}").To(s.getRecommend).
		Filter(s.AuthFilter).
		Doc("Recommend items for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("string")).
		Param(ws.QueryParameter("n", "number of returned items").DataType("integer")).
		Param(ws.QueryParameter("top_n", "alias of n").DataType("integer")).
		Writes(logics.UserRecommendation{}).
		Returns(http.StatusOK, "OK", logics.UserRecommendation{}).
		Returns(http.StatusUnprocessableEntity, "invalid user id", ErrorResponse{}))
	// Recommend for a route
	ws.Route(ws.GET("/recommend-route").To(s.getRouteRecommend).
		Filter(s.AuthFilter).
		Doc("Recommend items travelling between two places.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.QueryParameter("source", "origin of the route").DataType("string")).
		Param(ws.QueryParameter("destination", "destination of the route").DataType("string")).
		Param(ws.QueryParameter("user-id", "identifier of the user").DataType("string")).
		Param(ws.QueryParameter("user_id", "alias of user-id").DataType("string")).
		Param(ws.QueryParameter("n", "number of returned items").DataType("integer")).
		Param(ws.QueryParameter("top_n", "alias of n").DataType("integer")).
		Writes(logics.RouteRecommendation{}).
		Returns(http.StatusOK, "OK", logics.RouteRecommendation{}).
		Returns(http.StatusNotFound, "no item on the route", ErrorResponse{}).
		Returns(http.StatusUnprocessableEntity, "missing source or destination", ErrorResponse{}))
	// Similar items
	ws.Route(ws.GET("/similar/{item-id}").To(s.getSimilar).
		Filter(s.AuthFilter).
		Doc("Get items similar to an item.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("item-id", "identifier of the item").DataType("string")).
		Param(ws.QueryParameter("n", "number of returned items").DataType("integer")).
		Param(ws.QueryParameter("top_n", "alias of n").DataType("integer")).
		Writes(logics.SimilarRecommendation{}).
		Returns(http.StatusOK, "OK", logics.SimilarRecommendation{}).
		Returns(http.StatusNotFound, "unknown item", ErrorResponse{}))

	ws.Route(ws.GET("/health").To(s.getHealth).
		Doc("Health check.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"system"}).
		Writes(HealthStatus{}).
		Returns(http.StatusOK, "OK", HealthStatus{}).
		Returns(http.StatusServiceUnavailable, "no model loaded", HealthStatus{}))
	ws.Route(ws.GET("/status").To(s.getStatus).
		Filter(s.AuthFilter).
		Doc("Get status of the served model.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"system"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(master.Status{}))
	ws.Route(ws.POST("/reload").To(s.reload).
		Filter(s.AuthFilter).
		Doc("Reload data and retrain the model asynchronously.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"system"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(ReloadResponse{}).
		Returns(http.StatusAccepted, "Accepted", ReloadResponse{}))
}

// ParseInt reads the first non-empty query parameter among names.
func ParseInt(request *restful.Request, fallback int, names ...string) (int, error) {
	for _, name := range names {
		valueString := request.QueryParameter(name)
		if valueString == "" {
			continue
		}
		value, err := strconv.Atoi(valueString)
		if err != nil {
			return 0, errors.Annotatef(err, "failed to parse %s", name)
		}
		return value, nil
	}
	return fallback, nil
}

func queryParameter(request *restful.Request, names ...string) string {
	for _, name := range names {
		if value := request.QueryParameter(name); value != "" {
			return value
		}
	}
	return ""
}

// snapshot returns the served snapshot or writes 503.
func (s *RestServer) snapshot(response *restful.Response) *logics.Snapshot {
	snapshot := s.Engine.Snapshot()
	if snapshot == nil {
		writeError(response, http.StatusServiceUnavailable, "unavailable", "model is not loaded yet")
	}
	return snapshot
}

func (s *RestServer) getRecommend(request *restful.Request, response *restful.Response) {
	n, err := ParseInt(request, 0, "n", "top_n")
	if err != nil {
		BadRequest(response, err)
		return
	}
	snapshot := s.snapshot(response)
	if snapshot == nil {
		return
	}
	result, err := snapshot.RecommendForUser(request.PathParameter("user-id"), n)
	if err != nil {
		Error(response, err)
		return
	}
	RecommendTotalVec.WithLabelValues("user", strconv.FormatBool(result.Personalized)).Inc()
	Ok(response, result)
}

func (s *RestServer) getRouteRecommend(request *restful.Request, response *restful.Response) {
	n, err := ParseInt(request, 0, "n", "top_n")
	if err != nil {
		BadRequest(response, err)
		return
	}
	snapshot := s.snapshot(response)
	if snapshot == nil {
		return
	}
	result, err := snapshot.RecommendForRoute(
		request.QueryParameter("source"),
		request.QueryParameter("destination"),
		queryParameter(request, "user-id", "user_id"),
		n)
	if err != nil {
		Error(response, err)
		return
	}
	RecommendTotalVec.WithLabelValues("route", strconv.FormatBool(result.Personalized)).Inc()
	Ok(response, result)
}

func (s *RestServer) getSimilar(request *restful.Request, response *restful.Response) {
	n, err := ParseInt(request, 0, "n", "top_n")
	if err != nil {
		BadRequest(response, err)
		return
	}
	snapshot := s.snapshot(response)
	if snapshot == nil {
		return
	}
	itemId := request.PathParameter("item-id")
	key := fmt.Sprintf("%s/%s/%d", snapshot.Version, itemId, n)
	if cached := s.similarCache.Get(key); cached != nil {
		Ok(response, cached.Value())
		return
	}
	result, err := snapshot.RecommendSimilar(itemId, n)
	if err != nil {
		Error(response, err)
		return
	}
	s.similarCache.Set(key, result, ttlcache.DefaultTTL)
	Ok(response, result)
}

func (s *RestServer) getHealth(_ *restful.Request, response *restful.Response) {
	if s.Engine.Snapshot() == nil {
		if err := response.WriteHeaderAndJson(http.StatusServiceUnavailable, HealthStatus{Status: "unavailable"}, restful.MIME_JSON); err != nil {
			log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
		}
		return
	}
	Ok(response, HealthStatus{Status: "healthy"})
}

func (s *RestServer) getStatus(_ *restful.Request, response *restful.Response) {
	Ok(response, s.Engine.Status())
}

func (s *RestServer) reload(_ *restful.Request, response *restful.Response) {
	scheduled := s.Engine.ScheduleReload()
	log.ResponseLogger(response).Info("reload requested", zap.Bool("scheduled", scheduled))
	if err := response.WriteHeaderAndJson(http.StatusAccepted, ReloadResponse{Scheduled: scheduled}, restful.MIME_JSON); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}

func writeError(response *restful.Response, status int, name, message string) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteHeaderAndJson(status, ErrorResponse{Error: name, Message: message}, restful.MIME_JSON); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Error maps invalid input to 422, missing resources to 404 and anything
// else to 500.
func Error(response *restful.Response, err error) {
	switch {
	case errors.Is(err, errors.NotValid):
		writeError(response, http.StatusUnprocessableEntity, "invalid_input", err.Error())
	case errors.Is(err, errors.NotFound):
		writeError(response, http.StatusNotFound, "not_found", err.Error())
	default:
		InternalServerError(response, err)
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	log.ResponseLogger(response).Warn("bad request", zap.Error(err))
	writeError(response, http.StatusBadRequest, "bad_request", err.Error())
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	writeError(response, http.StatusInternalServerError, "internal_error", err.Error())
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content any) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
