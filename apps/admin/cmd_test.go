package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/book"
	"github.com/kitab-bazar/server/core/logistics"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
	"github.com/kitab-bazar/server/tests"
)

const newPassword = "N3w-Pa$$w0rd-Kitab!"

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

type migration struct {
	command string
	args    []string
}

func setup(t *testing.T) (*testutil.Env, *commandLine, *[]migration) {
	env := testutil.Setup(t)
	var migrations []migration
	cli := &commandLine{
		conf: env.Conf,
		svc:  env.Svc,
		out:  new(bytes.Buffer),
		migrate: func(command string, args ...string) error {
			migrations = append(migrations, migration{command: command, args: args})
			return nil
		},
	}
	origReadPassword := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = origReadPassword })
	return env, cli, &migrations
}

func runCli(t *testing.T, cli *commandLine, tt cliTest) error {
	t.Helper()
	readPasswordFunc = func(int) ([]byte, error) { return []byte(tt.pwd), nil }
	return cli.run(append([]string{"admin"}, tt.args...))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_commandLine_help(t *testing.T) {
	_, cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "adduser: no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "adduser: no password", args: []string{"adduser", "-email", "a@kitab.test", "-name", "A"}, wantErr: errHelp},
		{name: "resetpassword: no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "resetpassword: bad flag", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "importbooks: no importer", args: []string{"importbooks", "-file", "books.csv"}, wantErr: errHelp},
		{name: "exportpackages: no out", args: []string{"exportpackages", "-window", "w"}, wantErr: errHelp},
		{name: "generatepackages: no window", args: []string{"generatepackages"}, wantErr: errHelp},
		{name: "exportbills: no out", args: []string{"exportbills", "-window", "w"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, runCli(t, cli, tt))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	_, cli, migrations := setup(t)

	require.NoError(t, runCli(t, cli, cliTest{args: []string{"migrate", "up"}}))
	require.NoError(t, runCli(t, cli, cliTest{args: []string{"migrate", "down-to", "1"}}))

	assert.Equal(t, []migration{
		{command: "up", args: []string{}},
		{command: "down-to", args: []string{"1"}},
	}, *migrations)
	assert.False(t, needsServices([]string{"admin", "migrate", "up"}))
	assert.True(t, needsServices([]string{"admin", "adduser"}))
}

func Test_commandLine_addUser(t *testing.T) {
	env, cli, _ := setup(t)
	ctx := context.Background()
	existing := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test", func(u *user.User) { u.IsActive = false })

	t.Run("create", func(t *testing.T) {
		err := runCli(t, cli, cliTest{
			args: []string{"adduser", "-email", "Root@Kitab.test", "-name", "Root"},
			pwd:  newPassword,
		})
		require.NoError(t, err)

		usr, err := env.Svc.Users.GetByEmail(ctx, "root@kitab.test")
		require.NoError(t, err)
		assert.Equal(t, user.TypeSuperAdmin, usr.UserType)
		assert.True(t, usr.IsActive)
		assert.True(t, usr.IsVerified)
		assert.NoError(t, usr.CheckPassword(newPassword))
	})

	t.Run("weak password", func(t *testing.T) {
		err := runCli(t, cli, cliTest{
			args: []string{"adduser", "-email", "weak@kitab.test", "-name", "Weak"},
			pwd:  "12345678",
		})
		require.Error(t, err)
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("update", func(t *testing.T) {
		err := runCli(t, cli, cliTest{
			args: []string{"adduser", "-email", existing.Email, "-name", "Moderator", "-type", user.TypeModerator},
			pwd:  newPassword,
		})
		require.NoError(t, err)

		usr, err := env.Svc.Users.GetByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "Moderator", usr.FullName)
		assert.Equal(t, user.TypeModerator, usr.UserType)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(newPassword))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	env, cli, _ := setup(t)
	usr := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test")

	tests := []cliTest{
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@kitab.test"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runCli(t, cli, tt)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			refreshed, err := env.Svc.Users.GetByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
		})
	}
}

func Test_commandLine_imports(t *testing.T) {
	env, cli, _ := setup(t)
	ctx := context.Background()
	admin := env.Admin(t)
	_, pubUsr := env.Publisher(t, "Ekata Books", "ekata@kitab.test")

	locations := writeFile(t, "locations.csv", "province,district,municipality\n"+
		"Bagmati,Lalitpur,Godawari\n"+
		"Bagmati,Lalitpur,Mahalaxmi\n"+
		"Bagmati,,Broken\n")
	require.NoError(t, runCli(t, cli, cliTest{args: []string{"importlocations", "-file", locations}}))

	provinces, err := env.Svc.Locations.Provinces(ctx, "")
	require.NoError(t, err)
	require.Len(t, provinces, 1)
	districts, err := env.Svc.Locations.Districts(ctx, provinces[0].ID, "")
	require.NoError(t, err)
	require.Len(t, districts, 1)
	munis, err := env.Svc.Locations.Municipalities(ctx, districts[0].ID, "")
	require.NoError(t, err)
	assert.Len(t, munis, 2)
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "1 rows skipped")

	books := writeFile(t, "books.csv", "title,isbn,price,publisher,category\n"+
		"Muna Madan,978-9993304001,250,Ekata Books,Poetry\n"+
		"Unknown,9789993304009,100,Nobody,Poetry\n")

	t.Run("without catalog permission", func(t *testing.T) {
		err := runCli(t, cli, cliTest{args: []string{"importbooks", "-file", books, "-as", pubUsr.Email}})
		assert.Error(t, err)
	})

	t.Run("books", func(t *testing.T) {
		require.NoError(t, runCli(t, cli, cliTest{args: []string{"importbooks", "-file", books, "-as", admin.Email}}))
		found, err := env.Svc.Books.Query(ctx, admin, book.QueryFilter{Search: "muna"}, nil)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "9789993304001", found[0].ISBN)
		assert.Equal(t, 250, found[0].Price)
	})

	t.Run("missing file", func(t *testing.T) {
		err := runCli(t, cli, cliTest{args: []string{"importlocations", "-file", filepath.Join(t.TempDir(), "nope.csv")}})
		assert.True(t, os.IsNotExist(err))
	})
}

func Test_commandLine_packages(t *testing.T) {
	env, cli, _ := setup(t)
	ctx := context.Background()
	pub, _ := env.Publisher(t, "Ekata Books", "ekata@kitab.test")
	b := env.Book(t, pub.ID, "Muna Madan", "9789993304001", 250)
	m := env.Municipality(t, "Lalitpur")
	_, buyer := env.School(t, school.KindSchool, "Shree School", "school@kitab.test", m.ID)
	w := env.Window(t, order.WindowTypeSchool, time.Now().Add(-time.Hour), 2*time.Hour)
	env.Order(t, buyer, map[string]int{b.ID: 4})

	admin, err := env.Svc.Users.GetByEmail(ctx, "admin@kitab.test") // created by env.Book
	require.NoError(t, err)

	generated := filepath.Join(t.TempDir(), "generated.xlsx")
	require.NoError(t, runCli(t, cli, cliTest{args: []string{"generatepackages", "-window", w.ID, "-export", generated}}))
	pkgs, err := env.Svc.Logistics.Query(ctx, admin, logistics.QueryFilter{OrderWindowID: w.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, pkgs)

	packages := filepath.Join(t.TempDir(), "packages.xlsx")
	require.NoError(t, runCli(t, cli, cliTest{args: []string{"exportpackages", "-window", w.ID, "-out", packages}}))
	bills := filepath.Join(t.TempDir(), "bills.xlsx")
	require.NoError(t, runCli(t, cli, cliTest{args: []string{"exportbills", "-window", w.ID, "-out", bills}}))
	for _, path := range []string{generated, packages, bills} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), path)
	}

	require.NoError(t, runCli(t, cli, cliTest{args: []string{"deletepackages", "-window", w.ID}}))
	pkgs, err = env.Svc.Logistics.Query(ctx, admin, logistics.QueryFilter{OrderWindowID: w.ID})
	require.NoError(t, err)
	assert.Empty(t, pkgs)
}
