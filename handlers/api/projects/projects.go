// Package projects exposes the catalog over HTTP. Handlers only parse input,
// consult the validation layer and translate store errors into status codes;
// all persistence and asset-lifecycle rules live in the store.
package projects

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"portfolio-complete/core"
	"portfolio-complete/middleware"
	"portfolio-complete/validate"
)

// Uploads beyond this size are rejected while parsing the multipart form.
const maxUploadBytes = 32 << 20

func HandleList(store core.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := store.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list projects")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"message": "Failed to list projects"})
			return
		}
		if projects == nil {
			projects = []*core.Project{}
		}
		render.JSON(w, r, projects)
	}
}

func HandleGet(store core.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := projectID(r)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"message": "Project not found"})
			return
		}

		project, err := store.Get(r.Context(), id)
		if err != nil {
			renderStoreError(w, r, err)
			return
		}
		render.JSON(w, r, project)
	}
}

func HandleCreate(store core.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"message": "Invalid multipart form"})
			return
		}

		fields, err := validate.Project(validate.ProjectInput{
			Title:       r.FormValue("title"),
			Category:    r.FormValue("category"),
			Description: r.FormValue("description"),
			Tech:        r.FormValue("tech"),
			URL:         r.FormValue("url"),
		})
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"message": "Missing required fields"})
			return
		}

		upload, err := readUpload(r)
		if err != nil {
			logrus.WithError(err).Error("Failed to read uploaded image")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"message": "Failed to read uploaded image"})
			return
		}

		project, err := store.Create(r.Context(), fields, upload)
		if err != nil {
			renderStoreError(w, r, err)
			return
		}

		logrus.WithFields(logrus.Fields{
			"project_id": project.ID,
			"user":       middleware.UserFromContext(r.Context()),
		}).Info("Project created")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, project)
	}
}

func HandleUpdate(store core.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := projectID(r)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"message": "Project not found"})
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"message": "Invalid multipart form"})
			return
		}

		patch, err := validate.ProjectPatch(validate.PatchInput{
			Title:       formValue(r, "title"),
			Category:    formValue(r, "category"),
			Description: formValue(r, "description"),
			Tech:        formValue(r, "tech"),
			URL:         formValue(r, "url"),
		})
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"message": "Missing required fields"})
			return
		}

		upload, err := readUpload(r)
		if err != nil {
			logrus.WithError(err).Error("Failed to read uploaded image")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"message": "Failed to read uploaded image"})
			return
		}

		project, err := store.Update(r.Context(), id, patch, upload)
		if err != nil {
			renderStoreError(w, r, err)
			return
		}
		render.JSON(w, r, project)
	}
}

func HandleDelete(store core.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := projectID(r)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"message": "Project not found"})
			return
		}

		if err := store.Delete(r.Context(), id); err != nil {
			renderStoreError(w, r, err)
			return
		}

		logrus.WithFields(logrus.Fields{
			"project_id": id,
			"user":       middleware.UserFromContext(r.Context()),
		}).Info("Project deleted")
		render.NoContent(w, r)
	}
}

func projectID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// formValue distinguishes "field absent" from "field empty": partial updates
// only touch fields the client actually sent.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// readUpload extracts the optional image file from the form. A missing file
// field is not an error.
func readUpload(r *http.Request) (*core.AssetUpload, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &core.AssetUpload{Name: header.Filename, Data: data}, nil
}

func renderStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"message": "Project not found"})
	case errors.Is(err, core.ErrValidation):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"message": "Missing required fields"})
	default:
		logrus.WithError(err).Error("Catalog operation failed")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"message": "Internal server error"})
	}
}
