package driver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDriver(t *testing.T, serverURL string) *ILevel {
	t.Helper()
	driver := New(WithRateLimit(0))
	config := driver.GetConfigRef().(*Config)
	config.BaseURL = serverURL
	config.Username = "user"
	config.Password = "secret"
	config.StartDate = "2022-06-01T00:00:00Z"
	config.RetryBackoff = "1ms"
	require.NoError(t, driver.Setup(context.Background()))
	return driver
}

func TestCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "1", r.URL.Query().Get("page_size"))
		fmt.Fprint(w, `{"assets": [{"id": 1}]}`)
	}))
	defer server.Close()

	driver := setupDriver(t, server.URL)
	require.NoError(t, driver.Check(context.Background(), assetsStream()))

	driver.config.Password = "wrong"
	driver.client = NewClient(driver.config, WithRateLimit(0))
	err := driver.Check(context.Background(), assetsStream())
	assert.True(t, types.IsFatal(err))
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	driver := New()
	assert.Error(t, driver.Setup(context.Background()))

	_, err := driver.Pages(context.Background(), types.FetchRequest{Stream: assetsStream()})
	assert.Error(t, err)
}

func TestStartBookmark(t *testing.T) {
	driver := setupDriver(t, "https://api.example.com")

	assert.Equal(t, time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), driver.StartBookmark(assetsStream()))

	integer := assetsStream()
	integer.BookmarkType = types.IntegerBookmark
	assert.Nil(t, driver.StartBookmark(integer))

	fullTable := &types.StreamDefinition{Name: "scenarios", ReplicationMethod: types.FullTable}
	assert.Nil(t, driver.StartBookmark(fullTable))
}

func TestPagesUsesConfiguredPageSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000", r.URL.Query().Get("page_size"))
		fmt.Fprint(w, `{"assets": []}`)
	}))
	defer server.Close()

	driver := setupDriver(t, server.URL)
	pages, err := driver.Pages(context.Background(), types.FetchRequest{Stream: assetsStream()})
	require.NoError(t, err)
	assert.False(t, pages.Next(context.Background()))
	assert.NoError(t, pages.Err())
}

func TestSpec(t *testing.T) {
	schema, err := New().Spec()
	require.NoError(t, err)
	assert.Contains(t, schema.Properties, "base_url")
	assert.Contains(t, schema.Properties, "start_date")
}
