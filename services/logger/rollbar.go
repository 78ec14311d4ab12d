package logsvc

import (
	"context"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

// RollbarLogger prints to std and reports every entry to rollbar.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// person describes usr to rollbar, along with its type and the profile it acts for.
func person(usr user.User) *rollbar.Person {
	extra := map[string]string{"user_type": usr.UserType}
	switch {
	case usr.PublisherID != "":
		extra["publisher_id"] = usr.PublisherID
	case usr.SchoolID != "":
		extra["school_id"] = usr.SchoolID
	case usr.InstitutionID != "":
		extra["institution_id"] = usr.InstitutionID
	}
	return &rollbar.Person{Id: usr.ID, Username: usr.FullName, Email: usr.Email, Extra: extra}
}

// item turns the args of a log call into rollbar.Log args.
// Besides what rollbar.Log accepts, args may hold a user.User reported as the person.
// Custom data maps are merged into one.
func item(msg string, args []interface{}) []interface{} {
	var (
		usr    *user.User
		custom map[string]interface{}
	)
	ctx := context.Background()
	itemArgs := append(make([]interface{}, 0, len(args)+3), msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if usr == nil {
				usr = &v
			}
		case map[string]interface{}:
			if custom == nil {
				custom = make(map[string]interface{}, len(v))
			}
			for k, val := range v {
				custom[k] = val
			}
		case context.Context:
			ctx = v
		default:
			itemArgs = append(itemArgs, arg)
		}
	}
	if usr != nil {
		ctx = rollbar.NewPersonContext(ctx, person(*usr))
	}
	itemArgs = append(itemArgs, ctx)
	if custom != nil {
		itemArgs = append(itemArgs, custom)
	}
	return itemArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		if _, ok := arg.(context.Context); ok {
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	rollbar.Log(level, item(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(rollbar.DEBUG, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.ERR, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
