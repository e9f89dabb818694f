package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/services"
	"github.com/givers/givers-backend/store"
	"github.com/givers/givers-backend/testutil"
)

func newCampaignRouter(t *testing.T) (*testutil.Mem, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := testutil.NewMem()
	log := zap.NewNop()
	cache := services.NewQueryCache()
	resolver := services.NewResolver(mem, log)
	foundations := services.NewFoundations(mem, resolver, cache, log)
	campaigns := services.NewCampaigns(mem, resolver, foundations, cache, log)

	r := gin.New()
	r.GET("/campaigns", ListCampaigns(campaigns))
	r.GET("/campaigns/:id", GetCampaign(campaigns))
	return mem, r
}

type listResponse struct {
	Data       []models.CampaignView `json:"data"`
	NextCursor *string               `json:"next_cursor"`
}

func getJSON(t *testing.T, r *gin.Engine, url string, out any) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	r.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func TestListCampaignsPaginatesOverHTTP(t *testing.T) {
	mem, r := newCampaignRouter(t)
	for i := 0; i < 5; i++ {
		mem.Coll(store.Campaigns).Put(models.Campaign{Name: fmt.Sprintf("campaign-%d", i), Status: true})
	}

	var (
		seen   []string
		cursor string
		pages  int
	)
	for {
		url := "/campaigns?limit=2"
		if cursor != "" {
			url += "&cursor=" + cursor
		}
		var body listResponse
		w := getJSON(t, r, url, &body)
		require.Equal(t, http.StatusOK, w.Code)

		if len(body.Data) == 0 {
			assert.Nil(t, body.NextCursor)
			break
		}
		require.NotNil(t, body.NextCursor)
		for _, v := range body.Data {
			seen = append(seen, v.Name)
		}
		cursor = *body.NextCursor
		pages++
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 5)
}

func TestListCampaignsBadSortKey(t *testing.T) {
	_, r := newCampaignRouter(t)
	w := getJSON(t, r, "/campaigns?sort=cumulative_amount", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCampaignsBadCursor(t *testing.T) {
	_, r := newCampaignRouter(t)
	w := getJSON(t, r, "/campaigns?cursor=%21%21garbage", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCampaignETag(t *testing.T) {
	mem, r := newCampaignRouter(t)
	id := mem.Coll(store.Campaigns).Put(models.Campaign{Name: "one", Status: true})

	w := getJSON(t, r, "/campaigns/"+id.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/campaigns/"+id.Hex(), nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestGetCampaignNotFound(t *testing.T) {
	_, r := newCampaignRouter(t)
	w := getJSON(t, r, "/campaigns/aaaaaaaaaaaaaaaaaaaaaaaa", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = getJSON(t, r, "/campaigns/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
