package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/adamkim-dev/tripsaver/internal/rest"
	"github.com/adamkim-dev/tripsaver/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const userIdHeader = "X-User-Id"

type userLookup interface {
	GetUserByUid(ctx context.Context, uid string) (user.User, error)
}

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {
	r.Use(userContext(deps.UserService))
}

// userContext resolves the X-User-Id header to a user and puts it into the
// request context. Requests without the header pass through anonymously and are
// rejected by services that need a user.
func userContext(users userLookup) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			uid := req.Header.Get(userIdHeader)
			ctx := req.Context()

			if uid != "" {
				u, err := users.GetUserByUid(ctx, uid)
				if err != nil {
					if errors.Is(err, user.ErrUserNotFound) {
						log.Debugf("user not found: %s", uid)
						rest.WriteJSON(w, http.StatusForbidden, rest.ErrorResponse{Error: "user not found"})
						return
					}
					rest.WriteError(w, err)
					return
				}
				log.Tracef("request as user %d", u.Id)
				ctx = user.WithUser(ctx, u)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
