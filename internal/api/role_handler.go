package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/cache"
	"recruitai/internal/cv"
	"recruitai/internal/objectstore"
	"recruitai/internal/storage"
)

const (
	defaultExperience = 3
	defaultLocation   = "Remote"
)

type roleRequest struct {
	JobID      string   `json:"job_id"`
	Title      string   `json:"title" validate:"required"`
	Department string   `json:"department"`
	Location   string   `json:"location"`
	Experience *int     `json:"experience" validate:"omitempty,min=0"`
	Skills     []string `json:"skills"`
	Status     string   `json:"status" validate:"omitempty,oneof=active draft"`
}

type roleList struct {
	Roles []*storage.Role `json:"roles"`
	Count int             `json:"count"`
}

// jdUpload is a job description attached to a new role.
type jdUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (req *roleRequest) role() *storage.Role {
	r := &storage.Role{
		JobID:      strings.TrimSpace(req.JobID),
		Title:      strings.TrimSpace(req.Title),
		Department: strings.TrimSpace(req.Department),
		Location:   strings.TrimSpace(req.Location),
		Experience: defaultExperience,
		Skills:     cleanSkills(req.Skills),
		Status:     storage.RoleStatus(req.Status),
	}
	if req.Experience != nil {
		r.Experience = *req.Experience
	}
	if r.Location == "" {
		r.Location = defaultLocation
	}
	if r.Status == "" {
		r.Status = storage.RoleActive
	}
	if r.JobID == "" {
		r.JobID = "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	return r
}

func cleanSkills(skills []string) []string {
	return cv.ParseSkills(strings.Join(skills, ","))
}

func (a *API) getRole(ctx context.Context, id int64) (*storage.Role, error) {
	return cache.Fetch(ctx, a.cache, cache.RoleKey(id), a.cfg.Tunables.CacheTTL,
		func(ctx context.Context) (*storage.Role, error) {
			return a.store.GetRole(ctx, id)
		})
}

// invalidateRoleByJobID drops the cached role whose applicant count the
// relay just changed.
func (a *API) invalidateRoleByJobID(ctx context.Context, jobID string) {
	if jobID == "" {
		return
	}
	id, err := a.store.RoleIDByJobID(ctx, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		a.logger.Warn("role lookup for cache invalidation failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if err := a.cache.Delete(ctx, cache.RoleKey(id)); err != nil {
		a.logger.Warn("cache invalidation failed", zap.Int64("role_id", id), zap.Error(err))
	}
}

// ListRolesHandler returns every role, newest first.
// @Summary List roles
// @Tags roles
// @Produce json
// @Success 200 {object} roleList
// @Router /roles [get]
func (a *API) ListRolesHandler(w http.ResponseWriter, r *http.Request) {
	roles, err := a.store.ListRoles(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roleList{Roles: roles, Count: len(roles)})
}

// GetRoleHandler returns one role.
// @Summary Get role
// @Tags roles
// @Produce json
// @Param id path int true "Role id"
// @Success 200 {object} storage.Role
// @Failure 404 {object} errorBody
// @Router /roles/{id} [get]
func (a *API) GetRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	role, err := a.getRole(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// CreateRoleHandler creates a role from JSON, or from a multipart form with
// an optional jd file that is stored in object storage.
// @Summary Create role
// @Tags roles
// @Accept json,multipart/form-data
// @Produce json
// @Param body body roleRequest false "Role (JSON)"
// @Param jd formData file false "Job description (multipart)"
// @Success 201 {object} storage.Role
// @Failure 400 {object} errorBody
// @Router /roles [post]
func (a *API) CreateRoleHandler(w http.ResponseWriter, r *http.Request) {
	var (
		req roleRequest
		jd  *jdUpload
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		jd, err = a.decodeRoleForm(w, r, &req)
	} else {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	role := req.role()
	if jd != nil {
		role.JDURL = a.uploadJD(r.Context(), jd)
		if len(role.Skills) == 0 {
			role.Skills = a.skillsFromJD(jd)
		}
	}

	if err := a.store.CreateRole(r.Context(), role); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = apperr.NewBadRequest("a role with job id %s already exists", role.JobID).Wrap(err)
		}
		a.writeError(w, r, err)
		return
	}
	a.logger.Info("role created", zap.Int64("id", role.ID), zap.String("job_id", role.JobID))
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) decodeRoleForm(w http.ResponseWriter, r *http.Request, req *roleRequest) (*jdUpload, error) {
	limit := a.cfg.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, apperr.NewBadRequest("invalid multipart form").Wrap(err)
	}
	defer r.MultipartForm.RemoveAll()

	req.JobID = r.FormValue("job_id")
	req.Title = r.FormValue("title")
	req.Department = r.FormValue("department")
	req.Location = r.FormValue("location")
	req.Status = r.FormValue("status")
	req.Skills = cv.ParseSkills(r.FormValue("skills"))
	if v := strings.TrimSpace(r.FormValue("experience")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, apperr.NewBadRequest("experience must be a number")
		}
		req.Experience = &n
	}
	if err := validate.Struct(req); err != nil {
		return nil, apperr.NewBadRequest("%s", validationMessage(err)).Wrap(err)
	}

	file, header, err := r.FormFile("jd")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewBadRequest("could not read jd file").Wrap(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.NewBadRequest("could not read %s", header.Filename).Wrap(err)
	}
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	return &jdUpload{Filename: header.Filename, ContentType: ct, Data: data}, nil
}

// uploadJD stores the file and returns its public URL. Failures are logged
// and leave the URL empty.
func (a *API) uploadJD(ctx context.Context, jd *jdUpload) string {
	if !a.uploads.Configured() {
		a.logger.Warn("object storage not configured, JD not uploaded", zap.String("file", jd.Filename))
		return ""
	}
	url, err := a.uploads.Upload(ctx, objectstore.JDBucket, objectstore.RoleJDPath(a.now(), jd.Filename), jd.ContentType, bytes.NewReader(jd.Data))
	if err != nil {
		a.logger.Warn("JD upload failed", zap.String("file", jd.Filename), zap.Error(err))
		return ""
	}
	return url
}

func (a *API) skillsFromJD(jd *jdUpload) []string {
	if !cv.SupportedType(jd.Filename) {
		return []string{}
	}
	doc, err := a.parser.ParseFile(jd.Filename, bytes.NewReader(jd.Data))
	if err != nil {
		a.logger.Debug("JD text extraction failed", zap.String("file", jd.Filename), zap.Error(err))
		return []string{}
	}
	return cv.DetectSkills(doc.FullText)
}
