package gqlapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
	"github.com/kitab-bazar/server/tests"
)

func setup(t *testing.T) (*testutil.Env, *API) {
	env := testutil.Setup(t)
	api, err := New(env.Svc, testutil.NopLogger{}, nil)
	require.NoError(t, err)
	return env, api
}

func exec(api *API, usr *user.User, query string, vars map[string]interface{}) *graphql.Response {
	ctx := context.Background()
	if usr != nil {
		ctx = user.NewContext(ctx, *usr)
	}
	return api.Exec(ctx, Params{Query: query, Variables: vars})
}

func errCode(t *testing.T, resp *graphql.Response) string {
	t.Helper()
	require.NotEmpty(t, resp.Errors)
	code, _ := resp.Errors[0].Extensions["code"].(string)
	return code
}

func TestSchemaParses(t *testing.T) {
	_, api := setup(t)
	assert.NotNil(t, api.schema)
}

func TestErrorCodes(t *testing.T) {
	env, api := setup(t)
	buyer := env.CreateUser(t, user.TypeIndividualUser, "buyer@kitab.test")
	admin := env.Admin(t)

	tests := []struct {
		name     string
		usr      *user.User
		query    string
		vars     map[string]interface{}
		wantCode string
	}{
		{
			name:     "unauthenticated",
			query:    `{ cart { totalPrice } }`,
			wantCode: CodeUnauthenticated,
		},
		{
			name:     "permission denied",
			usr:      &buyer,
			query:    `mutation { createProvince(name: "Bagmati") { id } }`,
			wantCode: CodePermissionDenied,
		},
		{
			name:     "not found",
			usr:      &buyer,
			query:    `query($id: ID!) { book(id: $id) { id } }`,
			vars:     map[string]interface{}{"id": core.NewID()},
			wantCode: CodeNotFound,
		},
		{
			name:     "validation",
			usr:      &admin,
			query:    `mutation { createProvince(name: "  ") { id } }`,
			wantCode: CodeValidation,
		},
		{
			name:     "empty cart",
			usr:      &buyer,
			query:    `mutation { placeOrder { id } }`,
			wantCode: CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := exec(api, tt.usr, tt.query, tt.vars)
			assert.Equal(t, tt.wantCode, errCode(t, resp))
		})
	}
}

func TestValidationFields(t *testing.T) {
	env, api := setup(t)
	admin := env.Admin(t)

	resp := exec(api, &admin, `mutation { createProvince(name: "") { id } }`, nil)
	require.NotEmpty(t, resp.Errors)
	fields, ok := resp.Errors[0].Extensions["fields"].(map[string]string)
	require.True(t, ok, "fields extension: %#v", resp.Errors[0].Extensions)
	assert.Contains(t, fields, "name")
}

func TestBooks(t *testing.T) {
	env, api := setup(t)
	pub, pubUsr := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	env.Book(t, pub.ID, "Muna Madan", "9789993304001", 250)
	env.Book(t, pub.ID, "Palpasa Cafe", "9789993304002", 400)

	const query = `query($search: String) {
		books(filter: {search: $search}, ordering: "price") { title price publisher { name } }
	}`

	t.Run("anonymous", func(t *testing.T) {
		resp := exec(api, nil, query, nil)
		require.Empty(t, resp.Errors)

		var data struct {
			Books []struct {
				Title     string
				Price     int
				Publisher struct{ Name string }
			}
		}
		require.NoError(t, Data(resp, &data))
		require.Len(t, data.Books, 2)
		assert.Equal(t, "Muna Madan", data.Books[0].Title)
		assert.Equal(t, "Ekata Books", data.Books[0].Publisher.Name)
	})

	t.Run("search", func(t *testing.T) {
		resp := exec(api, &pubUsr, query, map[string]interface{}{"search": "palpasa"})
		require.Empty(t, resp.Errors)
		assert.JSONEq(t, `{"books":[{"title":"Palpasa Cafe","price":400,"publisher":{"name":"Ekata Books"}}]}`, string(resp.Data))
	})
}

func TestCartAndOrder(t *testing.T) {
	env, api := setup(t)
	pub, _ := env.Publisher(t, "Sajha Prakashan", "sajha@kitab.test")
	b := env.Book(t, pub.ID, "Seto Dharti", "9789937000001", 300)
	buyer := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")

	resp := exec(api, &buyer, `mutation($book: ID!) { addToCart(bookId: $book, quantity: 2) { id quantity } }`,
		map[string]interface{}{"book": b.ID})
	require.Empty(t, resp.Errors)

	resp = exec(api, &buyer, `{ cart { totalQuantity totalPrice lines { title } } }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"cart":{"totalQuantity":2,"totalPrice":600,"lines":[{"title":"Seto Dharti"}]}}`, string(resp.Data))

	resp = exec(api, &buyer, `mutation { placeOrder { status totalPrice books { title quantity } } }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"placeOrder":{"status":"pending","totalPrice":600,"books":[{"title":"Seto Dharti","quantity":2}]}}`, string(resp.Data))

	resp = exec(api, &buyer, `{ cart { totalQuantity } unreadNotificationsCount }`, nil)
	require.Empty(t, resp.Errors)
	var data struct {
		Cart                     struct{ TotalQuantity int }
		UnreadNotificationsCount int
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Zero(t, data.Cart.TotalQuantity)
	assert.Equal(t, 1, data.UnreadNotificationsCount)
}

func TestMe(t *testing.T) {
	env, api := setup(t)
	usr := env.CreateUser(t, user.TypeModerator, "mod@kitab.test")

	resp := exec(api, nil, `{ me { id } }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"me":null}`, string(resp.Data))

	resp = exec(api, &usr, `{ me { email userType permissions } }`, nil)
	require.Empty(t, resp.Errors)
	var data struct {
		Me struct {
			Email       string
			UserType    string
			Permissions []string
		}
	}
	require.NoError(t, Data(resp, &data))
	assert.Equal(t, "mod@kitab.test", data.Me.Email)
	assert.Equal(t, user.TypeModerator, data.Me.UserType)
	assert.Contains(t, data.Me.Permissions, string(user.PermVerifyUsers))
	assert.NotContains(t, data.Me.Permissions, string(user.PermManageUsers))
}
