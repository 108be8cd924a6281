package middleware

import (
	"github.com/OFFIS-RIT/relex/pkg/store"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// JobQueue publishes a message body to a named queue.
type JobQueue interface {
	Publish(queueName string, body []byte) error
}

type App struct {
	Store store.RunStorage
	Queue JobQueue
	// Key verifies JWTs. Nil disables token auth, leaving only the master key.
	Key            keyfunc.Keyfunc
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: app})
		}
	}
}
