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
	"strings"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/base/log"
	"github.com/gorse-io/lodrec/config"
	"github.com/gorse-io/lodrec/logics"
	"github.com/juju/errors"
	"github.com/juju/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	HeaderAPIKey    = "X-API-Key"
	HeaderRequestID = "X-Request-ID"
)

// RestServer implements a REST-ful API server.
type RestServer struct {
	Config      *config.Config
	Recommender *logics.Recommender
	WebService  *restful.WebService
	HttpServer  *http.Server

	limiter *ratelimit.Bucket
}

// ScoreResponse wraps a single score.
type ScoreResponse struct {
	Score float64
}

func NewRestServer(cfg *config.Config, recommender *logics.Recommender) *RestServer {
	s := &RestServer{
		Config:      cfg,
		Recommender: recommender,
		WebService:  new(restful.WebService),
	}
	if rps := cfg.Server.RequestsPerSecond; rps > 0 {
		s.limiter = ratelimit.NewBucketWithRate(float64(rps), int64(rps))
	}
	s.CreateWebService()
	return s
}

// Handler returns the container serving REST APIs and metrics.
func (s *RestServer) Handler() *restful.Container {
	container := restful.NewContainer()
	container.Add(s.WebService)
	container.Handle("/metrics", promhttp.Handler())
	return container
}

// StartHttpServer serves until ctx is done, then shuts the server down.
func (s *RestServer) StartHttpServer(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.HttpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.HttpServer.Shutdown(shutdownCtx); err != nil {
			log.Logger().Error("failed to shutdown http server", zap.Error(err))
		}
	}()
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s", addr)),
		zap.String("paradigm", s.Recommender.Paradigm()))
	if err := s.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

// LogFilter assigns a request id, logs the request and records its latency.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter(HeaderRequestID)
	if requestId == "" {
		requestId = uuid.New().String()
	}
	resp.Header().Set(HeaderRequestID, requestId)
	start := time.Now()
	chain.ProcessFilter(req, resp)
	api := req.SelectedRoutePath()
	RestAPIRequestSeconds.WithLabelValues(api).Observe(time.Since(start).Seconds())
	RestAPIRequestsTotal.WithLabelValues(api, strconv.Itoa(resp.StatusCode())).Inc()
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("used_time", time.Since(start)))
}

// RateLimitFilter rejects requests exceeding the configured rate.
func (s *RestServer) RateLimitFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if s.limiter != nil && s.limiter.TakeAvailable(1) == 0 {
		if err := resp.WriteError(http.StatusTooManyRequests, fmt.Errorf("too many requests")); err != nil {
			log.ResponseLogger(resp).Error("failed to write error", zap.Error(err))
		}
		return
	}
	chain.ProcessFilter(req, resp)
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(LogFilter)
	ws.Filter(s.RateLimitFilter)

	ws.Route(ws.GET("/recommend").To(s.getRecommend).
		Doc("Get top recommendations for a user.").
		Param(ws.HeaderParameter(HeaderAPIKey, "secret key for RESTful API")).
		Param(ws.QueryParameter("user", "URI of the user").DataType("string").Required(true)).
		Param(ws.QueryParameter("n", "number of returned items, at most server.max_n").DataType("int")).
		Param(ws.QueryParameter("include-consumed", "recommend consumed items").DataType("boolean")).
		Writes([]*logics.Score{}))
	ws.Route(ws.GET("/predict").To(s.getPredict).
		Doc("Predict the score of an item for a user.").
		Param(ws.HeaderParameter(HeaderAPIKey, "secret key for RESTful API")).
		Param(ws.QueryParameter("user", "URI of the user").DataType("string").Required(true)).
		Param(ws.QueryParameter("item", "URI of the item").DataType("string").Required(true)).
		Writes(ScoreResponse{}))
	ws.Route(ws.GET("/candidates").To(s.getCandidates).
		Doc("Get recommendation candidates of a user.").
		Param(ws.HeaderParameter(HeaderAPIKey, "secret key for RESTful API")).
		Param(ws.QueryParameter("user", "URI of the user").DataType("string").Required(true)).
		Writes([]string{}))
	ws.Route(ws.GET("/neighbors").To(s.getNeighbors).
		Doc("Get neighbors of a resource.").
		Param(ws.HeaderParameter(HeaderAPIKey, "secret key for RESTful API")).
		Param(ws.QueryParameter("id", "URI of the resource").DataType("string").Required(true)).
		Writes([]logics.Score{}))
	ws.Route(ws.GET("/importance").To(s.getImportance).
		Doc("Get the importance of node2 relative to node1.").
		Param(ws.HeaderParameter(HeaderAPIKey, "secret key for RESTful API")).
		Param(ws.QueryParameter("node1", "URI of the first resource").DataType("string").Required(true)).
		Param(ws.QueryParameter("node2", "URI of the second resource").DataType("string").Required(true)).
		Writes(ScoreResponse{}))
	ws.Route(ws.GET("/similarity").To(s.getSimilarity).
		Doc("Get the similarity between two users.").
		Param(ws.HeaderParameter(HeaderAPIKey, "secret key for RESTful API")).
		Param(ws.QueryParameter("user1", "URI of the first user").DataType("string").Required(true)).
		Param(ws.QueryParameter("user2", "URI of the second user").DataType("string").Required(true)).
		Writes(ScoreResponse{}))
	ws.Route(ws.GET("/stats").To(s.getStats).
		Doc("Get statistics of indexed data.").
		Param(ws.HeaderParameter(HeaderAPIKey, "secret key for RESTful API")).
		Writes(logics.Stats{}))
	ws.Route(ws.GET("/config").To(s.getConfig).
		Doc("Get the configuration.").
		Param(ws.HeaderParameter(HeaderAPIKey, "secret key for RESTful API")).
		Writes(map[string]any{}))
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

// ParseBool parses booleans from the query parameter.
func ParseBool(request *restful.Request, name string, fallback bool) (value bool, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.ParseBool(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

// requireParams returns query parameters in order, or an error naming the first missing one.
func requireParams(request *restful.Request, names ...string) ([]string, error) {
	values := make([]string, len(names))
	for i, name := range names {
		if values[i] = request.QueryParameter(name); values[i] == "" {
			return nil, errors.NotValidf("missing parameter %s", name)
		}
	}
	return values, nil
}

func (s *RestServer) getRecommend(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	start := time.Now()
	params, err := requireParams(request, "user")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Server.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	if n > s.Config.Server.MaxN {
		BadRequest(response, errors.NotValidf("n %d exceeds %d", n, s.Config.Server.MaxN))
		return
	}
	includeConsumed, err := ParseBool(request, "include-consumed", s.Config.Recommend.IncludeConsumed)
	if err != nil {
		BadRequest(response, err)
		return
	}
	scores, err := s.Recommender.GetTopRecommendations(request.Request.Context(), params[0], n, includeConsumed)
	if err != nil {
		WriteError(response, err)
		return
	}
	GetRecommendSeconds.Observe(time.Since(start).Seconds())
	Ok(response, scores)
}

func (s *RestServer) getPredict(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	params, err := requireParams(request, "user", "item")
	if err != nil {
		BadRequest(response, err)
		return
	}
	score, err := s.Recommender.PredictRating(request.Request.Context(), params[0], params[1])
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, ScoreResponse{Score: score})
}

func (s *RestServer) getCandidates(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	params, err := requireParams(request, "user")
	if err != nil {
		BadRequest(response, err)
		return
	}
	candidates, err := s.Recommender.GetRecCandidates(request.Request.Context(), params[0])
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, candidates)
}

func (s *RestServer) getNeighbors(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	params, err := requireParams(request, "id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	neighbors, err := s.Recommender.GetNeighbors(request.Request.Context(), params[0])
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, neighbors)
}

func (s *RestServer) getImportance(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	params, err := requireParams(request, "node1", "node2")
	if err != nil {
		BadRequest(response, err)
		return
	}
	score, err := s.Recommender.GetResRelativeImportance(request.Request.Context(), params[0], params[1])
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, ScoreResponse{Score: score})
}

func (s *RestServer) getSimilarity(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	params, err := requireParams(request, "user1", "user2")
	if err != nil {
		BadRequest(response, err)
		return
	}
	score, err := s.Recommender.Similarity(request.Request.Context(), params[0], params[1])
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, ScoreResponse{Score: score})
}

func (s *RestServer) getStats(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	Ok(response, s.Recommender.Stats())
}

func (s *RestServer) getConfig(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	var configMap map[string]any
	if err := mapstructure.Decode(s.Config, &configMap); err != nil {
		InternalServerError(response, err)
		return
	}
	if serverMap, ok := configMap["server"].(map[string]any); ok {
		if key, _ := serverMap["api_key"].(string); key != "" {
			serverMap["api_key"] = strings.Repeat("x", len(key))
		}
	}
	Ok(response, formatConfig(configMap))
}

func formatConfig(configMap map[string]any) map[string]any {
	return lo.MapValues(configMap, func(v any, _ string) any {
		switch value := v.(type) {
		case time.Duration:
			s := value.String()
			if strings.HasSuffix(s, "m0s") {
				s = s[:len(s)-2]
			}
			if strings.HasSuffix(s, "h0m") {
				s = s[:len(s)-2]
			}
			return s
		case map[string]any:
			return formatConfig(value)
		default:
			return v
		}
	})
}

// WriteError maps an error to a status code.
func WriteError(response *restful.Response, err error) {
	switch {
	case errors.Is(err, errors.NotFound), errors.Is(err, base.ErrEmptyResultSet):
		PageNotFound(response, err)
	case errors.Is(err, errors.NotValid):
		BadRequest(response, err)
	default:
		InternalServerError(response, err)
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content any) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}

func (s *RestServer) auth(request *restful.Request, response *restful.Response) bool {
	if s.Config.Server.APIKey == "" {
		return true
	}
	apikey := request.HeaderParameter(HeaderAPIKey)
	if apikey == s.Config.Server.APIKey {
		return true
	}
	log.ResponseLogger(response).Error("unauthorized", zap.String(HeaderAPIKey, apikey))
	if err := response.WriteError(http.StatusUnauthorized, fmt.Errorf("unauthorized")); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
	return false
}
