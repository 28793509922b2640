package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/store"
)

var subsDBSeq atomic.Int64

func setupSubscriptionRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:subscriptions_test_%d?mode=memory&cache=shared", subsDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Resource{}, &model.PushSubscription{}))

	handler := NewHandler(Deps{Store: store.NewGormStore(db)})
	r := gin.New()
	r.GET("/api/subscriptions", handler.GetSubscription)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	r.DELETE("/api/subscriptions", handler.DeleteSubscription)
	return r, db
}

func TestPutSubscriptionInvalidBody(t *testing.T) {
	router, _ := setupSubscriptionRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionRoundTrip(t *testing.T) {
	router, db := setupSubscriptionRouter(t)

	require.NoError(t, db.Create(&model.Resource{Name: "Sala 101", Type: "room", Capacity: 1, Status: model.ResourceAvailable}).Error)
	require.NoError(t, db.Create(&model.Resource{Name: "Sala 102", Type: "room", Capacity: 1, Status: model.ResourceAvailable}).Error)

	put := func(body string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/subscriptions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w.Code
	}

	code := put(`{"endpoint":"https://push.example/abc","p256dh":"k1","auth":"a1","subscribed_resources":[1,2]}`)
	require.Equal(t, http.StatusCreated, code)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/subscriptions?endpoint=https://push.example/abc", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_resources":[1,2]}`, w.Body.String())

	// A second PUT for the same endpoint replaces the watched set.
	code = put(`{"endpoint":"https://push.example/abc","p256dh":"k1","auth":"a1","subscribed_resources":[2]}`)
	require.Equal(t, http.StatusCreated, code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/subscriptions?endpoint=https://push.example/abc", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_resources":[2]}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", "/api/subscriptions", strings.NewReader(`{"endpoint":"https://push.example/abc"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/subscriptions?endpoint=https://push.example/abc", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
