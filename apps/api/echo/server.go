package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	gqlapi "github.com/kitab-bazar/server/apps/api/graphql"
	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Services       *shared.Services
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		gql      *gqlapi.API
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) (*Server, error) {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.Services.Users),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	gql, err := gqlapi.New(deps.Services, deps.Logger, s.SignalShutdown)
	if err != nil {
		return nil, errors.Wrap(err, "parsing graphql schema")
	}
	s.gql = gql

	s.setup()
	return s, nil
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !(s.deps.DisableReqLogs || conf.TestMode) {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Services, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.POST("/graphql", s.graphql, s.auth.middleware(false))

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware(true)

	registerUserAPI(v1, jwt, s.auth, s.deps.Services)
	registerPackageAPI(v1, jwt, s.deps.Services)
}

// Start listens on conf.Server.Address; a failure is sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the app to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

// graphql runs the query with the (optional) authenticated user in the request context.
func (s *Server) graphql(ctx echo.Context) error {
	var params gqlapi.Params
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to graphql params")
	}
	if params.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query")
	}
	resp := s.gql.Exec(ctx.Request().Context(), params)
	return ctx.JSON(http.StatusOK, resp)
}

// contextUser returns the user authenticated by the jwt middleware.
func contextUser(ctx echo.Context) (user.User, error) {
	usr, ok := user.FromContext(ctx.Request().Context())
	if !ok {
		return user.User{}, errUnauthorized
	}
	return usr, nil
}
