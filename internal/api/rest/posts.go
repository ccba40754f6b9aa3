package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/edgestack/internal/api/apierror"
	"github.com/tjfontaine/edgestack/internal/core/domain"
	"github.com/tjfontaine/edgestack/internal/core/ports"
	"github.com/tjfontaine/edgestack/internal/storage"
)

type createPostRequest struct {
	Title     string  `json:"title" validate:"required,min=1,max=200"`
	Content   *string `json:"content"`
	Published bool    `json:"published"`
	AuthorID  int64   `json:"authorId" validate:"required,gt=0"`
}

type updatePostRequest struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content   *string `json:"content"`
	Published *bool   `json:"published"`
	AuthorID  *int64  `json:"authorId" validate:"omitempty,gt=0"`
}

// PostRoutes returns the /posts router.
func PostRoutes(rs apierror.Responder) chi.Router {
	r := chi.NewRouter()
	r.Get("/", rs.Adapt(listPosts))
	r.Post("/", rs.Adapt(createPost))
	r.Get("/{id}", rs.Adapt(getPost))
	r.Put("/{id}", rs.Adapt(updatePost))
	r.Delete("/{id}", rs.Adapt(deletePost))
	return r
}

// requireAuthor fails with 404 when the author does not exist. The foreign
// key still guards the insert if the author is deleted in between.
func requireAuthor(ctx context.Context, store ports.Store, id int64) error {
	if _, err := store.GetUser(ctx, id); err != nil {
		if storage.IsNotFound(err) {
			return domain.ErrNotFound("Author not found")
		}
		return fmt.Errorf("check author: %w", err)
	}
	return nil
}

func listPosts(w http.ResponseWriter, r *http.Request) error {
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	page := ParsePage(r)

	posts, err := store.ListPosts(r.Context(), page.Offset(), page.Limit)
	if err != nil {
		return err
	}
	total, err := store.CountPosts(r.Context())
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, listResponse{Data: posts, Pagination: page.Paginate(total)})
	return nil
}

func getPost(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r)
	if err != nil {
		return err
	}
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	post, err := store.GetPost(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: post})
	return nil
}

func createPost(w http.ResponseWriter, r *http.Request) error {
	var req createPostRequest
	if err := decodeAndValidate(r, &req); err != nil {
		return err
	}
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	if err := requireAuthor(r.Context(), store, req.AuthorID); err != nil {
		return err
	}

	post := &domain.Post{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
		AuthorID:  req.AuthorID,
	}
	if err := store.CreatePost(r.Context(), post); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: post})
	return nil
}

func updatePost(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r)
	if err != nil {
		return err
	}
	var req updatePostRequest
	if err := decodeAndValidate(r, &req); err != nil {
		return err
	}
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	if req.AuthorID != nil {
		if err := requireAuthor(r.Context(), store, *req.AuthorID); err != nil {
			return err
		}
	}

	post, err := store.UpdatePost(r.Context(), id, domain.PostPatch{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
		AuthorID:  req.AuthorID,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: post})
	return nil
}

func deletePost(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r)
	if err != nil {
		return err
	}
	store, err := storeFrom(r)
	if err != nil {
		return err
	}
	if err := store.DeletePost(r.Context(), id); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Post deleted successfully"})
	return nil
}
