package apitest_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-tui/atlas/internal/apitest"
	"github.com/atlas-tui/atlas/internal/countries"
)

func newClient(t *testing.T, srv *apitest.Server, token countries.TokenSource) *countries.Client {
	t.Helper()
	client, err := countries.NewClient(srv.URL, countries.WithTokenSource(token))
	require.NoError(t, err)
	return client
}

func TestAPI_PagesAndSearch(t *testing.T) {
	srv := apitest.New(t, apitest.World())
	client := newClient(t, srv, countries.StaticToken(""))
	ctx := context.Background()

	page, err := client.ListCountries(ctx, 3, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "CAN", page[0].Code())

	found, err := client.SearchCountries(ctx, countries.FilterSubregion, "Central America")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "CRI", found[0].Code())

	found, err = client.SearchCountries(ctx, countries.FilterTranslation, "brésil")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "BRA", found[0].Code())

	found, err = client.SearchCountries(ctx, countries.FilterTranslation, "japon")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "JPN", found[0].Code())

	found, err = client.SearchCountries(ctx, countries.FilterCapital, "brasilia")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "BRA", found[0].Code())

	_, err = client.SearchCountries(ctx, countries.FilterName, "atlantis")
	require.Error(t, err)
	assert.Equal(t, "No countries found", countries.UserMessage(err))

	assert.Contains(t, srv.Requests(), "GET /api/countries/subregion/Central%20America")
}

func TestAPI_AuthAndFavorites(t *testing.T) {
	srv := apitest.New(t, apitest.World())
	user := srv.AddUser("ana", "ana@example.com", "secret")
	ctx := context.Background()

	anon := newClient(t, srv, countries.StaticToken(""))
	_, err := anon.Login(ctx, countries.Credentials{Email: "ana@example.com", Password: "nope"})
	require.Error(t, err)
	assert.True(t, countries.IsUnauthorized(err))

	auth, err := anon.Login(ctx, countries.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, auth.User.ID)

	client := newClient(t, srv, countries.StaticToken(auth.Token))
	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana", me.Username)

	_, err = client.AddFavorite(ctx, countries.Favorite{Code: "jpn", Name: "Japan"})
	require.NoError(t, err)
	favs, err := client.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "JPN", favs[0].Code)

	require.NoError(t, client.RemoveFavorite(ctx, "JPN"))
	assert.Empty(t, srv.Favorites(user.ID))

	_, err = anon.ListFavorites(ctx)
	assert.True(t, countries.IsUnauthorized(err))
}

func TestAPI_ExpiredTokenRejected(t *testing.T) {
	srv := apitest.New(t, nil)
	user := srv.AddUser("bo", "bo@example.com", "pw")
	client := newClient(t, srv, countries.StaticToken(srv.IssueToken(user.ID, -time.Minute)))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, countries.IsUnauthorized(err))
	assert.Equal(t, "Token is not valid", countries.UserMessage(err))
}

func TestAPI_FailInjectsOneFailure(t *testing.T) {
	srv := apitest.New(t, apitest.World())
	srv.Fail(http.MethodGet, "/api/countries/all", http.StatusInternalServerError, "database offline")
	client := newClient(t, srv, countries.StaticToken(""))

	_, err := client.ListCountries(context.Background(), 1, 5)
	require.Error(t, err)
	assert.Equal(t, "database offline", countries.UserMessage(err))

	page, err := client.ListCountries(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Len(t, page, 5)
}
