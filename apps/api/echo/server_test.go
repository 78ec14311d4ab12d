package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
	emailsvc "github.com/kitab-bazar/server/services/email"
	exportsvc "github.com/kitab-bazar/server/services/export"
	"github.com/kitab-bazar/server/tests"
)

var errMissing = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantData interface{}
}

func newServer(t *testing.T) (*testutil.Env, *Server) {
	env := testutil.Setup(t)
	srv, err := NewServer(ServerDeps{
		Conf:           env.Conf,
		Logger:         testutil.NopLogger{},
		Services:       env.Svc,
		DisableReqLogs: true,
	})
	require.NoError(t, err)
	return env, srv
}

func doRequest(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, srv *Server, usr user.User) string {
	t.Helper()
	token, err := srv.auth.generateToken(srv.auth.userClaims(usr))
	require.NoError(t, err)
	return token
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		want, err := json.Marshal(tt.wantData)
		require.NoError(t, err)
		assert.JSONEq(t, string(want), rec.Body.String())
	}
}

func runTests(t *testing.T, srv *Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestHome(t *testing.T) {
	_, srv := newServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Kitab Bazar API!", rec.Body.String())
}

func TestLogin(t *testing.T) {
	env, srv := newServer(t)
	env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	env.CreateUser(t, user.TypeIndividualUser, "gone@kitab.test", func(u *user.User) { u.IsActive = false })

	runTests(t, srv, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     LoginRequest{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     LoginRequest{Email: "reader", Password: testutil.Password},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     LoginRequest{Email: "nobody@kitab.test", Password: testutil.Password},
			wantCode: http.StatusBadRequest,
			wantData: httpErr{Error: "authentication failed"},
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     LoginRequest{Email: "reader@kitab.test", Password: "wrong"},
			wantCode: http.StatusBadRequest,
			wantData: httpErr{Error: "authentication failed"},
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     LoginRequest{Email: "gone@kitab.test", Password: testutil.Password},
			wantCode: http.StatusForbidden,
			wantData: httpErr{Error: "account deactivated"},
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/users/login", "",
			LoginRequest{Email: " Reader@Kitab.test ", Password: testutil.Password})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		claims, err := srv.auth.parseToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "reader@kitab.test", claims.Email)
		assert.Equal(t, user.TypeIndividualUser, claims.UserType)

		usr, err := env.Svc.Users.GetByEmail(context.Background(), "reader@kitab.test")
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})
}

func TestRefreshToken(t *testing.T) {
	env, srv := newServer(t)
	usr := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	token := getToken(t, srv, usr)

	runTests(t, srv, []httpTest{
		{
			name:     "missing token",
			method:   http.MethodPost,
			path:     "/v1/users/token-refresh",
			wantCode: http.StatusUnauthorized,
			wantData: errMissing,
		},
		{
			name:     "invalid token",
			method:   http.MethodPost,
			path:     "/v1/users/token-refresh",
			token:    token + "x",
			wantCode: http.StatusUnauthorized,
			wantData: httpErr{Error: "invalid or expired jwt"},
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/users/token-refresh", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("refresh expired", func(t *testing.T) {
		issued := time.Now().Add(-5 * time.Hour)
		srv.auth.now = func() time.Time { return issued }
		old := getToken(t, srv, usr)
		srv.auth.now = time.Now

		// the token itself has expired too
		rec := doRequest(t, srv, http.MethodPost, "/v1/users/token-refresh", old, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		claims := srv.auth.userClaims(usr, issued.Unix())
		fresh, err := srv.auth.generateToken(claims)
		require.NoError(t, err)
		rec = doRequest(t, srv, http.MethodPost, "/v1/users/token-refresh", fresh, nil)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: httpErr{Error: "refresh has expired"}}, rec)
	})

	t.Run("deactivated", func(t *testing.T) {
		gone := env.CreateUser(t, user.TypeIndividualUser, "gone@kitab.test", func(u *user.User) { u.IsActive = false })
		rec := doRequest(t, srv, http.MethodPost, "/v1/users/token-refresh", getToken(t, srv, gone), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestPasswordReset(t *testing.T) {
	env, srv := newServer(t)
	usr := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	sent := SuccessResponse{Success: passwordResetSent}

	runTests(t, srv, []httpTest{
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/v1/users/password-reset",
			body:     PasswordResetRequest{Email: "reader"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/v1/users/password-reset",
			body:     PasswordResetRequest{Email: "nobody@kitab.test"},
			wantCode: http.StatusOK,
			wantData: sent,
		},
	})
	assert.Empty(t, emailsvc.SentMessages())

	t.Run("request & confirm", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/users/password-reset", "", PasswordResetRequest{Email: usr.Email})
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: sent}, rec)
		require.Len(t, emailsvc.SentMessages(), 1)

		uid, token := env.Svc.Users.MakePasswordResetToken(usr)
		const newPwd = "N3w-Pa$$w0rd-Kitab!"
		rec = doRequest(t, srv, http.MethodPost, "/v1/users/password-reset-confirm", "", user.ResetUserPassword{
			Token:           token,
			UID:             uid,
			Password:        newPwd,
			PasswordConfirm: newPwd,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doRequest(t, srv, http.MethodPost, "/v1/users/login", "", LoginRequest{Email: usr.Email, Password: newPwd})
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("confirm mismatch", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/users/password-reset-confirm", "", user.ResetUserPassword{
			Token:           "token",
			UID:             "uid",
			Password:        "one",
			PasswordConfirm: "two",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGraphQL(t *testing.T) {
	env, srv := newServer(t)
	usr := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")
	query := map[string]string{"query": "{ me { email } }"}

	runTests(t, srv, []httpTest{
		{
			name:     "anonymous",
			method:   http.MethodPost,
			path:     "/graphql",
			body:     query,
			wantCode: http.StatusOK,
			wantData: map[string]interface{}{"data": map[string]interface{}{"me": nil}},
		},
		{
			name:     "authenticated",
			method:   http.MethodPost,
			path:     "/graphql",
			body:     query,
			token:    getToken(t, srv, usr),
			wantCode: http.StatusOK,
			wantData: map[string]interface{}{"data": map[string]interface{}{"me": map[string]string{"email": usr.Email}}},
		},
		{
			name:     "invalid token",
			method:   http.MethodPost,
			path:     "/graphql",
			body:     query,
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "missing query",
			method:   http.MethodPost,
			path:     "/graphql",
			body:     map[string]string{},
			wantCode: http.StatusBadRequest,
			wantData: httpErr{Error: "missing query"},
		},
	})
}

func TestPackageExports(t *testing.T) {
	env, srv := newServer(t)
	admin := env.Admin(t)
	pub, pubUsr := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	b := env.Book(t, pub.ID, "Muna Madan", "9789993304001", 250)
	m := env.Municipality(t, "Lalitpur")
	_, buyer := env.School(t, school.KindSchool, "Shree School", "school@kitab.test", m.ID)

	w := env.Window(t, order.WindowTypeSchool, time.Now().Add(-time.Hour), 2*time.Hour)
	env.Order(t, buyer, map[string]int{b.ID: 3})
	_, err := env.Svc.Logistics.Generate(context.Background(), w.ID)
	require.NoError(t, err)

	empty := env.Window(t, order.WindowTypeInstitution, time.Now().Add(-time.Hour), 2*time.Hour)

	runTests(t, srv, []httpTest{
		{
			name:     "unauthenticated",
			method:   http.MethodGet,
			path:     "/v1/packages/" + w.ID + "/export",
			wantCode: http.StatusUnauthorized,
			wantData: errMissing,
		},
		{
			name:     "forbidden",
			method:   http.MethodGet,
			path:     "/v1/packages/" + w.ID + "/export",
			token:    getToken(t, srv, pubUsr),
			wantCode: http.StatusForbidden,
			wantData: httpErr{Error: "permission denied"},
		},
		{
			name:     "window without packages",
			method:   http.MethodGet,
			path:     "/v1/packages/" + empty.ID + "/bills",
			token:    getToken(t, srv, admin),
			wantCode: http.StatusNotFound,
		},
	})

	for _, path := range []string{"/export", "/bills"} {
		t.Run(path, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodGet, "/v1/packages/"+w.ID+path, getToken(t, srv, admin), nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, exportsvc.ContentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), w.ID+".xlsx")
			assert.NotZero(t, rec.Body.Len())
		})
	}
}
