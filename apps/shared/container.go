// Package shared wires the dependencies used by every app: storage, services,
// background tasks and assets.
package shared

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/account"
	"github.com/kitab-bazar/server/core/book"
	"github.com/kitab-bazar/server/core/location"
	"github.com/kitab-bazar/server/core/logistics"
	"github.com/kitab-bazar/server/core/notification"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/payment"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
	appfs "github.com/kitab-bazar/server/fs"
	emailsvc "github.com/kitab-bazar/server/services/email"
	logsvc "github.com/kitab-bazar/server/services/logger"
	tasksvc "github.com/kitab-bazar/server/services/tasks"
	"github.com/kitab-bazar/server/storage/database"
	inmemdb "github.com/kitab-bazar/server/storage/database/inmem"
	postgresdb "github.com/kitab-bazar/server/storage/database/postgres"
)

type (
	Repositories struct {
		Tx            core.TxRunner
		Users         user.Repository
		Locations     location.Repository
		Publishers    publisher.Repository
		Schools       school.Repository
		Books         book.Repository
		Orders        order.Repository
		Payments      payment.Repository
		Notifications notification.Repository
		Packages      logistics.Repository
	}

	Services struct {
		Validate   *validator.Validate
		Translator ut.Translator
		Tasks      core.TaskQueue
		Registry   *tasksvc.Registry

		Users         *user.Service
		Accounts      *account.Service
		Locations     *location.Service
		Publishers    *publisher.Service
		Schools       *school.Service
		Books         *book.Service
		Orders        *order.Service
		Payments      *payment.Service
		Notifications *notification.Service
		Logistics     *logistics.Service
	}
)

// NewLogger returns a rollbar logger printing to stdout with the given prefix.
// Rollbar reporting is disabled in debug mode.
func NewLogger(prefix string, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	return logger
}

// LoadAssets parses the email templates and loads the common passwords list.
func LoadAssets(conf *core.Config, logger core.Logger) {
	core.ParseEmailTemplates(appfs.FS, conf.FrontendBaseURL, conf.Debug || conf.TestMode, logger)
	user.LoadCommonPasswords(appfs.FS, logger)
}

func NewEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	switch {
	case conf.TestMode:
		return emailsvc.NewConsoleServiceMock(conf)
	case conf.Debug || conf.SendgridApiKey == "":
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// SetUpDB creates the database if needed, connects to it and runs the migrations.
func SetUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewPostgresRepositories(db *sqlx.DB, logger core.Logger) Repositories {
	pdb := postgresdb.New(db, logger)
	return Repositories{
		Tx:            pdb,
		Users:         postgresdb.NewUserRepository(pdb),
		Locations:     postgresdb.NewLocationRepository(pdb),
		Publishers:    postgresdb.NewPublisherRepository(pdb),
		Schools:       postgresdb.NewSchoolRepository(pdb),
		Books:         postgresdb.NewBookRepository(pdb),
		Orders:        postgresdb.NewOrderRepository(pdb),
		Payments:      postgresdb.NewPaymentRepository(pdb),
		Notifications: postgresdb.NewNotificationRepository(pdb),
		Packages:      postgresdb.NewPackageRepository(pdb),
	}
}

func NewMemoryRepositories(db *inmemdb.DB) Repositories {
	return Repositories{
		Tx:            db,
		Users:         inmemdb.NewUserRepository(db),
		Locations:     inmemdb.NewLocationRepository(db),
		Publishers:    inmemdb.NewPublisherRepository(db),
		Schools:       inmemdb.NewSchoolRepository(db),
		Books:         inmemdb.NewBookRepository(db),
		Orders:        inmemdb.NewOrderRepository(db),
		Payments:      inmemdb.NewPaymentRepository(db),
		Notifications: inmemdb.NewNotificationRepository(db),
		Packages:      inmemdb.NewPackageRepository(db),
	}
}

// OpenRepositories opens the storage selected by conf.Database.Engine.
// The returned close func releases it.
func OpenRepositories(conf *core.Config, logger core.Logger) (Repositories, func() error, error) {
	switch conf.Database.Engine {
	case "memory":
		return NewMemoryRepositories(inmemdb.Open()), func() error { return nil }, nil
	case "postgres", "":
		db, err := SetUpDB(conf)
		if err != nil {
			return Repositories{}, nil, errors.Wrap(err, "setting up database")
		}
		return NewPostgresRepositories(db, logger), db.Close, nil
	}
	return Repositories{}, nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

// NewTaskQueue returns a redis backed queue when conf.Redis.Addr is set,
// an in-process queue otherwise. Test mode runs tasks synchronously.
func NewTaskQueue(ctx context.Context, conf *core.Config, registry *tasksvc.Registry, logger core.Logger) (core.TaskQueue, *redis.Client, error) {
	if conf.TestMode {
		return tasksvc.NewSyncQueue(registry, logger), nil, nil
	}
	if conf.Redis.Addr == "" {
		return tasksvc.NewInlineQueue(registry, logger), nil, nil
	}
	client, err := tasksvc.NewRedisClient(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	return tasksvc.NewRedisQueue(client, conf.Redis.QueueKey), client, nil
}

// NewRegistry registers the handlers of every background task.
func NewRegistry(mailSvc core.EmailService) *tasksvc.Registry {
	registry := tasksvc.NewRegistry()
	registry.Handle(core.TaskSendEmail, emailsvc.SendEmailTask(mailSvc))
	return registry
}

// NewServices builds the domain services on repos. Order events are fanned out by
// the notification service.
func NewServices(conf *core.Config, repos Repositories, tasks core.TaskQueue, registry *tasksvc.Registry, logger core.Logger) *Services {
	validate, translator := NewValidator()

	users := user.NewService(repos.Users, tasks, validate, conf, logger)
	locations := location.NewService(repos.Locations, repos.Tx, validate, logger)
	publishers := publisher.NewService(repos.Publishers, locations, validate, logger)
	schools := school.NewService(repos.Schools, locations, validate, logger)
	books := book.NewService(repos.Books, repos.Tx, publishers, validate, logger)
	orders := order.NewService(repos.Orders, repos.Tx, books, validate, logger)
	notifications := notification.NewService(repos.Notifications, users, validate, logger)
	orders.Subscribe(notification.NewOrderNotifier(notifications, tasks, logger))

	return &Services{
		Validate:      validate,
		Translator:    translator,
		Tasks:         tasks,
		Registry:      registry,
		Users:         users,
		Accounts:      account.NewService(repos.Tx, users, publishers, schools, logger),
		Locations:     locations,
		Publishers:    publishers,
		Schools:       schools,
		Books:         books,
		Orders:        orders,
		Payments:      payment.NewService(repos.Payments, users, orders, validate, logger),
		Notifications: notifications,
		Logistics:     logistics.NewService(repos.Packages, repos.Tx, orders, users, publishers, schools, locations, conf, logger),
	}
}

// Setup builds every service from conf: storage, email, task queue and assets.
// The returned cleanup func closes the storage and the redis client.
func Setup(ctx context.Context, conf *core.Config, logger core.Logger) (*Services, func(), error) {
	LoadAssets(conf, logger)

	repos, closeDB, err := OpenRepositories(conf, logger)
	if err != nil {
		return nil, nil, err
	}

	registry := NewRegistry(NewEmailService(conf, logger))
	tasks, client, err := NewTaskQueue(ctx, conf, registry, logger)
	if err != nil {
		_ = closeDB()
		return nil, nil, errors.Wrap(err, "setting up task queue")
	}

	cleanup := func() {
		if q, ok := tasks.(*tasksvc.InlineQueue); ok {
			q.Wait()
		}
		if client != nil {
			if err := client.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing redis: %v", err), err)
			}
		}
		if err := closeDB(); err != nil {
			logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}
	return NewServices(conf, repos, tasks, registry, logger), cleanup, nil
}
