// Package rest implements the users and posts CRUD endpoints plus the
// health and docs routes.
package rest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/edgestack/internal/api/apierror"
	"github.com/tjfontaine/edgestack/internal/core/domain"
	"github.com/tjfontaine/edgestack/internal/core/ports"
	"github.com/tjfontaine/edgestack/internal/storage"
)

var errNoStore = errors.New("no database client attached to request")

func storeFrom(r *http.Request) (ports.Store, error) {
	if s := storage.FromContext(r.Context()); s != nil {
		return s, nil
	}
	return nil, errNoStore
}

type createUserRequest struct {
	Email string  `json:"email" validate:"required,email"`
	Name  *string `json:"name" validate:"omitempty,max=100"`
}

type updateUserRequest struct {
	Email *string `json:"email" validate:"omitempty,email"`
	Name  *string `json:"name" validate:"omitempty,max=100"`
}

// UserRoutes returns the /users router.
func UserRoutes(rs apierror.Responder) chi.Router {
	r := chi.NewRouter()
	r.Get("/", rs.Adapt(listUsers))
	r.Post("/", rs.Adapt(createUser))
	r.Get("/{id}", rs.Adapt(getUser))
	r.Put("/{id}", rs.Adapt(updateUser))
	r.Delete("/{id}", rs.Adapt(deleteUser))
	return r
}

func listUsers(w http.ResponseWriter, r *http.Request) error {
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	page := ParsePage(r)

	users, err := store.ListUsers(r.Context(), page.Offset(), page.Limit)
	if err != nil {
		return err
	}
	total, err := store.CountUsers(r.Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, listResponse{Data: users, Pagination: page.Paginate(total)})
	return nil
}

func getUser(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r)
	if err != nil {
		return err
	}
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	user, err := store.GetUser(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: user})
	return nil
}

func createUser(w http.ResponseWriter, r *http.Request) error {
	var req createUserRequest
	if err := decodeAndValidate(r, &req); err != nil {
		return err
	}
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	user := &domain.User{Email: req.Email, Name: req.Name}
	if err := store.CreateUser(r.Context(), user); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: user})
	return nil
}

func updateUser(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := decodeAndValidate(r, &req); err != nil {
		return err
	}
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	user, err := store.UpdateUser(r.Context(), id, domain.UserPatch{Email: req.Email, Name: req.Name})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: user})
	return nil
}

func deleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r)
	if err != nil {
		return err
	}
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	if err := store.DeleteUser(r.Context(), id); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
	return nil
}
