package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/signalrank/internal/ranking"
	"github.com/temcen/signalrank/internal/repository"
	"github.com/temcen/signalrank/internal/services"
	"github.com/temcen/signalrank/pkg/models"
)

type MockRankingService struct {
	mock.Mock
}

func (m *MockRankingService) Rank(ctx context.Context, entityID string, req *models.RankingRequest) (*models.RankedList, error) {
	args := m.Called(ctx, entityID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RankedList), args.Error(1)
}

type MockEntityService struct {
	mock.Mock
}

func (m *MockEntityService) Get(ctx context.Context, id string) (*models.Entity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

func (m *MockEntityService) Register(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
	args := m.Called(ctx, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

func (m *MockEntityService) UpdatePreferences(ctx context.Context, id string, update *models.PreferenceUpdate) (*models.Entity, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

func (m *MockEntityService) ExtractPreferences(ctx context.Context, id string, apply bool) (*services.PreferenceExtraction, error) {
	args := m.Called(ctx, id, apply)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PreferenceExtraction), args.Error(1)
}

func (m *MockEntityService) Deactivate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type staticHealth string

func (s staticHealth) CheckHealth(context.Context) *services.HealthStatus {
	return &services.HealthStatus{Status: string(s)}
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newRouter(rankingSvc *MockRankingService, entitySvc *MockEntityService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := newTestLogger()

	rh := NewRankingHandler(logger, rankingSvc)
	eh := NewEntityHandler(logger, entitySvc)

	router := gin.New()
	router.POST("/rankings/:entityId", rh.Rank)
	router.POST("/entities", eh.Register)
	router.GET("/entities/:entityId", eh.Get)
	router.PUT("/entities/:entityId/preferences", eh.UpdatePreferences)
	router.POST("/entities/:entityId/preferences/extract", eh.ExtractPreferences)
	router.POST("/entities/:entityId/deactivate", eh.Deactivate)
	return router
}

func errorCode(t *testing.T, body string) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp.Error.Code
}

func TestRankingHandler_Rank(t *testing.T) {
	list := &models.RankedList{
		EntityID: "u1",
		Items: []models.ScoredCandidate{
			{CandidateID: "c1", Score: 0.9},
			{CandidateID: "c2", Score: 0.4},
		},
		Eligible: 3,
	}

	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockRankingService)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "empty body uses defaults",
			mockSetup: func(m *MockRankingService) {
				m.On("Rank", mock.Anything, "u1", &models.RankingRequest{}).Return(list, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "overrides are passed through",
			body: `{"max_recommendations": 2, "weights": {"preference": 1}}`,
			mockSetup: func(m *MockRankingService) {
				m.On("Rank", mock.Anything, "u1", mock.MatchedBy(func(r *models.RankingRequest) bool {
					return r.MaxRecommendations != nil && *r.MaxRecommendations == 2 && r.Weights["preference"] == 1
				})).Return(list, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed json",
			body:           `{"weights":`,
			mockSetup:      func(*MockRankingService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_REQUEST",
		},
		{
			name:           "struct validation",
			body:           `{"max_recommendations": 0}`,
			mockSetup:      func(*MockRankingService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_FAILED",
		},
		{
			name: "unknown entity",
			mockSetup: func(m *MockRankingService) {
				m.On("Rank", mock.Anything, "u1", mock.Anything).Return(nil, repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "ENTITY_NOT_FOUND",
		},
		{
			name: "inactive entity",
			mockSetup: func(m *MockRankingService) {
				m.On("Rank", mock.Anything, "u1", mock.Anything).Return(nil, services.ErrEntityInactive)
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "ENTITY_INACTIVE",
		},
		{
			name: "invalid configuration",
			mockSetup: func(m *MockRankingService) {
				m.On("Rank", mock.Anything, "u1", mock.Anything).
					Return(nil, fmt.Errorf("%w: weights sum to zero", ranking.ErrInvalidConfiguration))
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_RANKING_CONFIG",
		},
		{
			name: "all signals failed",
			mockSetup: func(m *MockRankingService) {
				m.On("Rank", mock.Anything, "u1", mock.Anything).Return(nil, ranking.ErrAllSignalsFailed)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "ALL_SIGNALS_FAILED",
		},
		{
			name: "unexpected failure",
			mockSetup: func(m *MockRankingService) {
				m.On("Rank", mock.Anything, "u1", mock.Anything).Return(nil, errors.New("connection reset"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rankingSvc := new(MockRankingService)
			tt.mockSetup(rankingSvc)

			req := httptest.NewRequest(http.MethodPost, "/rankings/u1", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			newRouter(rankingSvc, new(MockEntityService)).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(t, w.Body.String()))
				return
			}

			var resp struct {
				Data models.RankedList `json:"data"`
				Meta struct {
					Count    int `json:"count"`
					Eligible int `json:"eligible"`
				} `json:"meta"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, []string{"c1", "c2"}, resp.Data.CandidateIDs())
			assert.Equal(t, 2, resp.Meta.Count)
			assert.Equal(t, 3, resp.Meta.Eligible)
			rankingSvc.AssertExpectations(t)
		})
	}
}

func TestEntityHandler(t *testing.T) {
	entity := &models.Entity{ID: "u1", Active: true, Preferences: map[string]float64{"books": 2}}

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		mockSetup      func(*MockEntityService)
		expectedStatus int
		expectedError  string
	}{
		{
			name:   "get",
			method: http.MethodGet,
			path:   "/entities/u1",
			mockSetup: func(m *MockEntityService) {
				m.On("Get", mock.Anything, "u1").Return(entity, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "get missing",
			method: http.MethodGet,
			path:   "/entities/nope",
			mockSetup: func(m *MockEntityService) {
				m.On("Get", mock.Anything, "nope").Return(nil, repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "ENTITY_NOT_FOUND",
		},
		{
			name:   "register",
			method: http.MethodPost,
			path:   "/entities",
			body:   `{"id": "u1", "preferences": {"books": 2}}`,
			mockSetup: func(m *MockEntityService) {
				m.On("Register", mock.Anything, mock.MatchedBy(func(e *models.Entity) bool {
					return e.ID == "u1" && e.Preferences["books"] == 2
				})).Return(entity, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "register without id",
			method:         http.MethodPost,
			path:           "/entities",
			body:           `{"preferences": {"books": 2}}`,
			mockSetup:      func(*MockEntityService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_FAILED",
		},
		{
			name:   "register conflict",
			method: http.MethodPost,
			path:   "/entities",
			body:   `{"id": "u1"}`,
			mockSetup: func(m *MockEntityService) {
				m.On("Register", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict)
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "ENTITY_EXISTS",
		},
		{
			name:   "update preferences",
			method: http.MethodPut,
			path:   "/entities/u1/preferences",
			body:   `{"preferences": {"books": 2}, "replace": true}`,
			mockSetup: func(m *MockEntityService) {
				m.On("UpdatePreferences", mock.Anything, "u1", &models.PreferenceUpdate{
					Preferences: map[string]float64{"books": 2},
					Replace:     true,
				}).Return(entity, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "negative preference",
			method:         http.MethodPut,
			path:           "/entities/u1/preferences",
			body:           `{"preferences": {"books": -1}}`,
			mockSetup:      func(*MockEntityService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_FAILED",
		},
		{
			name:   "extract and apply",
			method: http.MethodPost,
			path:   "/entities/u1/preferences/extract?apply=true",
			mockSetup: func(m *MockEntityService) {
				m.On("ExtractPreferences", mock.Anything, "u1", true).
					Return(&services.PreferenceExtraction{EntityID: "u1", Applied: true}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "extract with bad flag",
			method:         http.MethodPost,
			path:           "/entities/u1/preferences/extract?apply=maybe",
			mockSetup:      func(*MockEntityService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_APPLY",
		},
		{
			name:   "deactivate",
			method: http.MethodPost,
			path:   "/entities/u1/deactivate",
			mockSetup: func(m *MockEntityService) {
				m.On("Deactivate", mock.Anything, "u1").Return(nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:   "deactivate inactive",
			method: http.MethodPost,
			path:   "/entities/u1/deactivate",
			mockSetup: func(m *MockEntityService) {
				m.On("Deactivate", mock.Anything, "u1").Return(services.ErrEntityInactive)
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "ENTITY_INACTIVE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entitySvc := new(MockEntityService)
			tt.mockSetup(entitySvc)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			newRouter(new(MockRankingService), entitySvc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(t, w.Body.String()))
			}
			entitySvc.AssertExpectations(t)
		})
	}
}

func TestHealthHandler_Check(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		status   string
		expected int
	}{
		{"healthy", http.StatusOK},
		{"degraded", http.StatusOK},
		{"unhealthy", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", NewHealthHandler(newTestLogger(), staticHealth(tt.status)).Check)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.expected, w.Code)
			assert.Contains(t, w.Body.String(), tt.status)
		})
	}
}
