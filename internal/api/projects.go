package api

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/build"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

// ProjectRequest is the body of POST /projects. Languages accepts a JSON
// array or a comma-separated string.
type ProjectRequest struct {
	Name      string     `json:"name"`
	Namespace string     `json:"namespace"`
	Version   *string    `json:"version,omitempty"`
	Testing   string     `json:"testing,omitempty"`
	Logging   string     `json:"logging,omitempty"`
	License   string     `json:"license,omitempty"`
	Languages stringList `json:"languages"`
	Git       bool       `json:"git,omitempty"`
	RemoteURL string     `json:"remote_url,omitempty"`
}

type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		var out []string
		for _, v := range list {
			out = append(out, project.SplitList(v)...)
		}
		*l = out
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("languages must be an array or a comma-separated string")
	}
	*l = project.SplitList(single)
	return nil
}

func (p ProjectRequest) raw() project.RawSpecification {
	return project.RawSpecification{
		Name:      p.Name,
		Namespace: p.Namespace,
		Version:   p.Version,
		Testing:   p.Testing,
		Logging:   p.Logging,
		License:   p.License,
		Languages: p.Languages,
		Git:       p.Git,
		RemoteURL: p.RemoteURL,
	}
}

// ProjectView is the API representation of a build request.
type ProjectView struct {
	ID        string                `json:"id"`
	Status    build.Status          `json:"status"`
	Reason    string                `json:"reason,omitempty"`
	Spec      project.Specification `json:"spec"`
	Renderer  string                `json:"renderer"`
	Artifact  *build.Artifact       `json:"artifact,omitempty"`
	Attempts  int                   `json:"attempts"`
	Downloads int                   `json:"downloads"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	Links     map[string]string     `json:"links"`
}

func viewOf(r build.Request) ProjectView {
	self := "/projects/" + r.ID
	links := map[string]string{"self": self, "status": self + "/status"}
	if r.Status == build.StatusReady {
		links["download"] = self + "/download"
	}
	return ProjectView{
		ID:        r.ID,
		Status:    r.Status,
		Reason:    r.Reason,
		Spec:      r.Spec,
		Renderer:  r.Renderer,
		Artifact:  r.Artifact,
		Attempts:  r.Attempts,
		Downloads: r.Downloads,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Links:     links,
	}
}

// StatusView is the body of GET /projects/{id}/status.
type StatusView struct {
	ID     string       `json:"id"`
	Status build.Status `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// CancelView is the body of DELETE /projects/{id}.
type CancelView struct {
	ID      string              `json:"id"`
	Outcome build.CancelOutcome `json:"outcome"`
	Status  build.Status        `json:"status"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeProject(w, r)
	if err != nil {
		s.Error(w, r, err)
		return
	}

	spec, err := project.Validate(req.raw())
	if err != nil {
		s.Error(w, r, err)
		return
	}

	created, err := s.builds.Schedule(r.Context(), spec)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	w.Header().Set("Location", "/projects/"+created.ID)
	s.Success(w, http.StatusAccepted, viewOf(created))
}

func (s *Server) decodeProject(w http.ResponseWriter, r *http.Request) (ProjectRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	defer r.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		return decodeForm(r)
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errors.ValidationError("invalid request body").
			WithContext("reason", err.Error()).
			Build()
	}
	return req, nil
}

func decodeForm(r *http.Request) (ProjectRequest, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(1 << 20)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return ProjectRequest{}, errors.ValidationError("invalid form body").
			WithContext("reason", err.Error()).
			Build()
	}

	req := ProjectRequest{
		Name:      r.PostForm.Get("name"),
		Namespace: r.PostForm.Get("namespace"),
		Testing:   r.PostForm.Get("testing"),
		Logging:   r.PostForm.Get("logging"),
		License:   r.PostForm.Get("license"),
		RemoteURL: r.PostForm.Get("remote_url"),
	}
	if r.PostForm.Has("version") {
		v := r.PostForm.Get("version")
		req.Version = &v
	}
	for _, v := range r.PostForm["languages"] {
		req.Languages = append(req.Languages, project.SplitList(v)...)
	}
	if g := r.PostForm.Get("git"); g != "" {
		req.Git = g == "on" || g == "yes"
		if b, perr := strconv.ParseBool(g); perr == nil {
			req.Git = b
		}
	}
	return req, nil
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	requests := s.builds.List()
	views := make([]ProjectView, 0, len(requests))
	for _, req := range requests {
		views = append(views, viewOf(req))
	}
	s.Success(w, http.StatusOK, views)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	req, err := s.builds.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	s.Success(w, http.StatusOK, viewOf(req))
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	req, err := s.builds.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	s.Success(w, http.StatusOK, StatusView{ID: req.ID, Status: req.Status, Reason: req.Reason})
}

func (s *Server) handleCancelProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outcome, err := s.builds.Cancel(r.Context(), id)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	view := CancelView{ID: id, Outcome: outcome}
	if req, err := s.builds.Get(id); err == nil {
		view.ID = req.ID
		view.Status = req.Status
	}
	s.Success(w, http.StatusOK, view)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	h, err := s.builds.Fetch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	defer func() { _ = h.Close() }()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.FormatInt(h.Size(), 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": h.Name()}))
	w.Header().Set("X-Content-SHA256", archive.Hex(h.Digest()))
	if sum, err := hex.DecodeString(archive.Hex(h.Digest())); err == nil {
		w.Header().Set("Digest", "sha-256="+base64.StdEncoding.EncodeToString(sum))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, h); err != nil && !stderrors.Is(err, r.Context().Err()) {
		slog.Warn("Artifact download interrupted", logfields.BuildID(h.Request.ID), logfields.Error(err))
	}
}
