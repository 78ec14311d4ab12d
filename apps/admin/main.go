// Command admin runs the maintenance tasks of Kitab Bazar: migrations, users, imports & packages.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/storage/database"
)

func main() {
	os.Exit(start())
}

func start() int {
	conf := core.NewConfig()
	logger := shared.NewLogger("ADMIN", conf)

	cli := commandLine{
		conf: conf,
		out:  os.Stdout,
		migrate: func(command string, args ...string) error {
			if err := database.CreateIfNotExist(conf); err != nil {
				return err
			}
			db, err := database.Open(conf)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(db.DB, command, args...)
		},
	}

	if needsServices(os.Args) {
		svc, cleanup, err := shared.Setup(context.Background(), conf, logger)
		if err != nil {
			logger.Error(fmt.Sprintf("setting up services: %v", err), err)
			return 1
		}
		defer cleanup()
		cli.svc = svc
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		return 1
	}
	return 0
}
