package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	echoapi "github.com/kitab-bazar/server/apps/api/echo"
	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core"
)

// TODO:
// - rate limiting on the auth endpoints
// - APM/Tracing
func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	logger := shared.NewLogger("API", conf)

	svc, cleanup, err := shared.Setup(context.Background(), conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up services: %v", err), err)
	}
	defer cleanup()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %v", conf))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server, err := echoapi.NewServer(echoapi.ServerDeps{
		Conf:     conf,
		Logger:   logger,
		Services: svc,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("creating server: %v", err), err)
	}

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
