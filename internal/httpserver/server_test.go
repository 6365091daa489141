package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/db"
	"github.com/Skotchmaster/inventory_api/internal/events"
	"github.com/Skotchmaster/inventory_api/internal/hash"
	"github.com/Skotchmaster/inventory_api/internal/inventory"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	authmw "github.com/Skotchmaster/inventory_api/internal/middleware/auth"
	"github.com/Skotchmaster/inventory_api/internal/models"
	"github.com/Skotchmaster/inventory_api/internal/repo"
	"github.com/Skotchmaster/inventory_api/internal/service"
	"github.com/Skotchmaster/inventory_api/internal/tokens"
	"github.com/Skotchmaster/inventory_api/internal/transport"
)

var (
	testAccessSecret  = []byte("test-jwt-secret")
	testRefreshSecret = []byte("test-refresh-secret")
)

type testEnv struct {
	e        *echo.Echo
	auth     *service.AuthService
	snapshot string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	authDB, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(authDB) })

	dir := t.TempDir()
	snapshot := filepath.Join(dir, "inventory_2026-10-15.db")
	snap, err := gorm.Open(sqlite.Open(snapshot), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, snap.AutoMigrate(&models.InventoryItem{}))
	require.NoError(t, snap.Create(&[]models.InventoryItem{
		{CharName: "Arthas", CharGuild: "Lordaeron", ItemName: "Frostmourne", ItemCount: 1, ItemLocation: "bag"},
		{CharName: "Arthas", CharGuild: "Lordaeron", ItemName: "Healing Potion", ItemCount: 12, ItemLocation: "bag"},
		{CharName: "Jaina", CharGuild: "Kirin Tor", ItemName: "Mana Potion", ItemCount: 20, ItemLocation: "bag"},
	}).Error)
	require.NoError(t, db.Close(snap))

	codec := tokens.NewCodec()
	userRepo := repo.New(authDB)
	authSvc := &service.AuthService{
		Repo:                  userRepo,
		Hasher:                hash.New(bcrypt.MinCost),
		Codec:                 codec,
		AccessSecret:          testAccessSecret,
		RefreshSecret:         testRefreshSecret,
		AccessTTL:             15 * time.Minute,
		RefreshTTL:            time.Hour,
		RequireCurrentRefresh: true,
		Events:                events.NopPublisher{},
	}
	searcher := inventory.NewSearcher(inventory.Source{Dir: dir})

	e := New(Options{Logger: logging.NewWithWriter(io.Discard, "error")}, &Deps{
		AuthHandler:  &AuthHTTP{Svc: authSvc},
		ItemsHandler: &ItemsHTTP{Svc: &service.InventoryService{Searcher: searcher}, DefaultPageSize: 25},
		Gate:         authmw.NewGate(codec, testAccessSecret),
		Ready:        map[string]Pinger{"auth_db": userRepo, "snapshot": searcher},
	})

	return &testEnv{e: e, auth: authSvc, snapshot: snapshot}
}

func (env *testEnv) do(t *testing.T, method, target, contentType, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createUser(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(transport.CredentialsRequest{Username: username, Password: password})
	require.NoError(t, err)
	return env.do(t, http.MethodPost, "/create_user", echo.MIMEApplicationJSON, string(body), "")
}

func (env *testEnv) login(t *testing.T, path, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	return env.do(t, http.MethodPost, path, echo.MIMEApplicationForm, form.Encode(), "")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Scenario(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.createUser(t, "alice", "pw1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[transport.MessageResponse](t, rec)
	assert.Equal(t, "User created", created.Message)
	assert.Equal(t, "alice", created.Username)

	rec = env.login(t, "/login", "alice", "pw1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decode[transport.TokenResponse](t, rec)
	assert.NotEmpty(t, tok.AccessToken)
	assert.NotEmpty(t, tok.RefreshToken)
	assert.Equal(t, "bearer", tok.TokenType)

	rec = env.login(t, "/login", "alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate user.", decode[transport.ErrorResponse](t, rec).Detail)

	rec = env.do(t, http.MethodGet, "/get_items", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Not authenticated"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/get_items", "", "", tok.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	items := decode[transport.ItemsResponse](t, rec)
	assert.EqualValues(t, 3, items.Count)
	assert.Equal(t, 1, items.Page)
	assert.Equal(t, 25, items.Size)
	assert.Len(t, items.Results, 3)
}

func TestServer_CreateUser_Failures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.createUser(t, "alice", "pw1").Code)

	rec := env.createUser(t, "alice", "pw2")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"Create user failed"}`, rec.Body.String())

	rec = env.createUser(t, "", "pw")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Create user failed"}`, rec.Body.String())
}

func TestServer_LoginAliasesAndTrailingSlash(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.createUser(t, "alice", "pw1").Code)

	for _, path := range []string{"/token", "/login/"} {
		rec := env.login(t, path, "alice", "pw1")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := env.do(t, http.MethodPost, "/login", echo.MIMEApplicationJSON, `{"username":"alice","password":"pw1"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_LoginPersistenceFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.createUser(t, "alice", "pw1").Code)

	env.auth.Repo = rotateFails{UserStore: env.auth.Repo}

	rec := env.login(t, "/login", "alice", "pw1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Could not insert refresh token."}`, rec.Body.String())
}

type rotateFails struct {
	service.UserStore
}

func (rotateFails) RotateRefreshToken(context.Context, uint, string, string) error {
	return errors.New("database is locked")
}

func TestServer_Refresh(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.createUser(t, "alice", "pw1").Code)
	tok := decode[transport.TokenResponse](t, env.login(t, "/login", "alice", "pw1"))

	body, err := json.Marshal(transport.RefreshRequest{RefreshToken: tok.RefreshToken})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/refresh", echo.MIMEApplicationJSON, string(body), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := decode[transport.AccessTokenResponse](t, rec)

	rec = env.do(t, http.MethodGet, "/get_char_names", "", "", fresh.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"Arthas", "Jaina"}, decode[[]string](t, rec))

	// a newer login rotates the stored token out
	require.Equal(t, http.StatusOK, env.login(t, "/login", "alice", "pw1").Code)
	rec = env.do(t, http.MethodPost, "/refresh", echo.MIMEApplicationJSON, string(body), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Could not validate token"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/refresh", echo.MIMEApplicationJSON, `{"refresh_token":"junk"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Items(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.createUser(t, "alice", "pw1").Code)
	access := decode[transport.TokenResponse](t, env.login(t, "/login", "alice", "pw1")).AccessToken

	rec := env.do(t, http.MethodGet, "/get_items?page=1&size=1&charName=Arthas&activeColumn=itemCount", "", "", access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[transport.ItemsResponse](t, rec)
	assert.EqualValues(t, 2, got.Count)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "Frostmourne", got.Results[0].ItemName)

	rec = env.do(t, http.MethodGet, "/get_items2?page=2&page_size=1&char_name=Arthas&sort=item_count", "", "", access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decode[transport.ItemsResponse](t, rec)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "Healing Potion", got.Results[0].ItemName)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 1, got.Size)

	rec = env.do(t, http.MethodGet, "/get_items?itemName=Potion", "", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[transport.ItemsResponse](t, rec).Count)

	for _, target := range []string{
		"/get_items?activeColumn=" + url.QueryEscape("id; DROP TABLE char_inventory"),
		"/get_items?page=0",
		"/get_items?size=1000",
		"/get_items?page=4611686018427387905&size=4",
	} {
		rec = env.do(t, http.MethodGet, target, "", "", access)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, decode[transport.ErrorResponse](t, rec).Detail, target)
	}

	rec = env.do(t, http.MethodGet, "/get_items?page=abc", "", "", access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"invalid page parameter"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/get_items2?page_size=ten", "", "", access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"invalid size parameter"}`, rec.Body.String())

	// injection attempt left the table intact
	rec = env.do(t, http.MethodGet, "/get_items", "", "", access)
	assert.EqualValues(t, 3, decode[transport.ItemsResponse](t, rec).Count)
}

func TestServer_ExpiredAccessTokenRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	past := tokens.NewCodec(tokens.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	stale, err := past.Issue(tokens.Subject{Username: "alice", ID: 1}, testAccessSecret, 15*time.Minute)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/get_items", "", "", stale)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Could not validate token"}`, rec.Body.String())
}

func TestServer_PreflightBypassesGate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/get_items", nil)
	req.Header.Set(echo.HeaderOrigin, "http://example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = env.do(t, http.MethodGet, "/health/ready", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
