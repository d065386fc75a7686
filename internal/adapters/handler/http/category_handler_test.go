package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/statline/statline-engine/internal/adapters/handler/http"
	"github.com/statline/statline-engine/internal/adapters/handler/http/middleware"
	"github.com/statline/statline-engine/internal/adapters/repository"
	"github.com/statline/statline-engine/internal/core/domain"
	"github.com/statline/statline-engine/internal/core/services"
)

// headerAuth stands in for the JWT middleware: the user id comes straight
// from a header so handler tests need no token plumbing.
func headerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(middleware.ContextUserIDKey, userID)
		c.Next()
	}
}

func setupRouter() (*gin.Engine, *repository.InMemoryCategoryRepository) {
	gin.SetMode(gin.TestMode)

	repo := repository.NewInMemoryCategoryRepository()
	svc := services.NewCategoryService(repo, nil)
	handler := adapterHTTP.NewCategoryHandler(svc)

	r := gin.New()
	group := r.Group("/api/v1")
	group.Use(headerAuth())
	handler.RegisterRoutes(group)
	return r, repo
}

func doJSON(router *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedCategory(t *testing.T, repo *repository.InMemoryCategoryRepository, owner, name string) *domain.Category {
	t.Helper()
	cat, err := domain.NewCategory(owner, name)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), cat))
	return cat
}

func TestCreateCategory(t *testing.T) {
	t.Run("Success: 201 Created", func(t *testing.T) {
		router, _ := setupRouter()

		w := doJSON(router, "POST", "/api/v1/categories", "user-1", `{"name": "Fitness"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"name":"Fitness"`)
		assert.Contains(t, w.Body.String(), `"id":`)
	})

	t.Run("Fail: 401 Unauthorized (Missing Header)", func(t *testing.T) {
		router, _ := setupRouter()

		w := doJSON(router, "POST", "/api/v1/categories", "", `{"name": "Fitness"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Fail: 400 Bad Request (Missing Name)", func(t *testing.T) {
		router, _ := setupRouter()

		w := doJSON(router, "POST", "/api/v1/categories", "user-1", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListCategories(t *testing.T) {
	t.Run("Success: 200 OK with search filter", func(t *testing.T) {
		router, repo := setupRouter()
		seedCategory(t, repo, "user-1", "Fitness")
		seedCategory(t, repo, "user-1", "Finance")
		seedCategory(t, repo, "user-1", "Reading")

		w := doJSON(router, "GET", "/api/v1/categories?q=fin", "user-1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Finance")
		assert.NotContains(t, w.Body.String(), "Fitness")
		assert.NotContains(t, w.Body.String(), "Reading")
	})

	t.Run("Success: hide_completed drops achieved goals from the view", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Life Admin")

		fetched, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		_, err = fetched.AddQualitativeGoal("Done Task")
		require.NoError(t, err)
		_, err = fetched.AddQualitativeGoal("Open Task")
		require.NoError(t, err)
		_, err = fetched.ToggleGoal("Done Task")
		require.NoError(t, err)
		require.NoError(t, repo.Update(context.Background(), fetched))

		w := doJSON(router, "GET", "/api/v1/categories?hide_completed=true", "user-1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Open Task")

		var views []struct {
			Goals []struct {
				Name string `json:"name"`
			} `json:"goals"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
		require.Len(t, views, 1)
		require.Len(t, views[0].Goals, 1)
		assert.Equal(t, "Open Task", views[0].Goals[0].Name)
	})
}

func TestGetCategory(t *testing.T) {
	t.Run("Success: 200 OK with goal progress", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		fetched, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		require.NoError(t, fetched.SetStat("Weight", "8500"))
		_, err = fetched.AddQuantitativeGoal("Save", "Weight", "10000")
		require.NoError(t, err)
		require.NoError(t, repo.Update(context.Background(), fetched))

		w := doJSON(router, "GET", "/api/v1/categories/"+cat.ID, "user-1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"progress":85`)
	})

	t.Run("Fail: 404 for someone else's category (IDOR Protection)", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Secret")

		w := doJSON(router, "GET", "/api/v1/categories/"+cat.ID, "user-2", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPutStat(t *testing.T) {
	t.Run("Success: value write creates the stat", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		w := doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Weight", "user-1", `{"value": "70"}`)

		assert.Equal(t, http.StatusOK, w.Code)

		stored, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		assert.Equal(t, "70", stored.Stats["Weight"])
		assert.Equal(t, []string{"Weight"}, stored.StatsOrder)
	})

	t.Run("Success: rename cascades into goals", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		fetched, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		require.NoError(t, fetched.SetStat("Steps", "4000"))
		_, err = fetched.AddQuantitativeGoal("Walk", "Steps", "10000")
		require.NoError(t, err)
		require.NoError(t, repo.Update(context.Background(), fetched))

		w := doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Steps", "user-1",
			`{"new_name": "Daily Steps", "value": "12000"}`)

		assert.Equal(t, http.StatusOK, w.Code)

		stored, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		assert.Equal(t, "12000", stored.Stats["Daily Steps"])
		assert.NotContains(t, stored.Stats, "Steps")
		assert.Equal(t, "Daily Steps", stored.Goals["Walk"].Stat)
		assert.True(t, stored.Goals["Walk"].Achieved)
	})

	t.Run("Success: rename without a value leaves the value alone", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		fetched, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		require.NoError(t, fetched.SetStat("Steps", "4000"))
		require.NoError(t, repo.Update(context.Background(), fetched))

		w := doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Steps", "user-1",
			`{"new_name": "Daily Steps"}`)

		assert.Equal(t, http.StatusOK, w.Code)

		stored, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		assert.Equal(t, "4000", stored.Stats["Daily Steps"])
	})

	t.Run("Success: explicit empty value clears the stat during rename", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		fetched, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		require.NoError(t, fetched.SetStat("Steps", "4000"))
		require.NoError(t, repo.Update(context.Background(), fetched))

		w := doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Steps", "user-1",
			`{"new_name": "Daily Steps", "value": ""}`)

		assert.Equal(t, http.StatusOK, w.Code)

		stored, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		require.Contains(t, stored.Stats, "Daily Steps")
		assert.Equal(t, "", stored.Stats["Daily Steps"])
	})

	t.Run("Fail: 404 when renaming a missing stat", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		w := doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Ghost", "user-1",
			`{"new_name": "Still Ghost"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Fail: 400 when neither value nor rename is present", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		w := doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Weight", "user-1", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteStat(t *testing.T) {
	router, repo := setupRouter()
	cat := seedCategory(t, repo, "user-1", "Fitness")

	fetched, err := repo.GetByID(context.Background(), cat.ID)
	require.NoError(t, err)
	require.NoError(t, fetched.SetStat("Weight", "70"))
	_, err = fetched.AddQuantitativeGoal("Gain", "Weight", "75")
	require.NoError(t, err)
	require.NoError(t, repo.Update(context.Background(), fetched))

	w := doJSON(router, "DELETE", "/api/v1/categories/"+cat.ID+"/stats/Weight", "user-1", "")

	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.GetByID(context.Background(), cat.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.Stats, "Weight")
	assert.Contains(t, stored.Goals, "Gain", "goals survive their stat")

	// The view reports zero progress for the now-dangling reference.
	assert.Contains(t, w.Body.String(), `"progress":0`)
}

func TestGoalEndpoints(t *testing.T) {
	t.Run("Create, toggle and delete a qualitative goal", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Life Admin")

		w := doJSON(router, "POST", "/api/v1/categories/"+cat.ID+"/goals", "user-1",
			`{"name": "Taxes", "qualitative": true}`)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(router, "POST", "/api/v1/categories/"+cat.ID+"/goals/Taxes/toggle", "user-1", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"achieved":true`)

		w = doJSON(router, "DELETE", "/api/v1/categories/"+cat.ID+"/goals/Taxes", "user-1", "")
		assert.Equal(t, http.StatusOK, w.Code)

		stored, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Goals)
	})

	t.Run("Create quantitative goal seeds from the stat", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		w := doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Weight", "user-1", `{"value": "70"}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(router, "POST", "/api/v1/categories/"+cat.ID+"/goals", "user-1",
			`{"name": "Gain Weight", "stat": "Weight", "target": "75"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"current_value":"70"`)
		assert.Contains(t, w.Body.String(), `"achieved":false`)
	})

	t.Run("Fail: 400 for quantitative goal without stat", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		w := doJSON(router, "POST", "/api/v1/categories/"+cat.ID+"/goals", "user-1",
			`{"name": "Broken", "target": "10"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Fail: 400 toggling a quantitative goal", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Weight", "user-1", `{"value": "70"}`)
		doJSON(router, "POST", "/api/v1/categories/"+cat.ID+"/goals", "user-1",
			`{"name": "Gain", "stat": "Weight", "target": "75"}`)

		w := doJSON(router, "POST", "/api/v1/categories/"+cat.ID+"/goals/Gain/toggle", "user-1", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Update goal: rename and retarget", func(t *testing.T) {
		router, repo := setupRouter()
		cat := seedCategory(t, repo, "user-1", "Fitness")

		doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Weight", "user-1", `{"value": "70"}`)
		doJSON(router, "POST", "/api/v1/categories/"+cat.ID+"/goals", "user-1",
			`{"name": "Old", "stat": "Weight", "target": "75"}`)

		w := doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/goals/Old", "user-1",
			`{"new_name": "New", "target": "65"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"name":"New"`)
		assert.Contains(t, w.Body.String(), `"achieved":true`)

		stored, err := repo.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		assert.NotContains(t, stored.Goals, "Old")
	})
}

func TestDeleteCategory(t *testing.T) {
	router, repo := setupRouter()
	cat := seedCategory(t, repo, "user-1", "Doomed")

	w := doJSON(router, "DELETE", "/api/v1/categories/"+cat.ID, "user-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := repo.GetByID(context.Background(), cat.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

// conflictingRepo rejects every write the way a lost optimistic-lock race
// would.
type conflictingRepo struct {
	*repository.InMemoryCategoryRepository
}

func (r *conflictingRepo) Update(ctx context.Context, cat *domain.Category) error {
	return domain.ErrCategoryConflict
}

func TestConflictMapsTo409(t *testing.T) {
	gin.SetMode(gin.TestMode)

	inner := repository.NewInMemoryCategoryRepository()
	repo := &conflictingRepo{InMemoryCategoryRepository: inner}
	svc := services.NewCategoryService(repo, nil)
	handler := adapterHTTP.NewCategoryHandler(svc)

	router := gin.New()
	group := router.Group("/api/v1")
	group.Use(headerAuth())
	handler.RegisterRoutes(group)

	cat := seedCategory(t, inner, "user-1", "Fitness")

	w := doJSON(router, "PUT", "/api/v1/categories/"+cat.ID+"/stats/Weight", "user-1", `{"value": "70"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "version conflict")
}
