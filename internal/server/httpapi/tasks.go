package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskapp/internal/server/models"
	"github.com/dmitrijs2005/taskapp/internal/server/services"
)

type taskResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTaskResponse(t *models.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Description: t.Description,
		Completed:   t.Completed,
		Owner:       t.OwnerID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type createTaskRequest struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// parseTaskFilter reads completed, limit, skip and sortBy=field[:desc].
// Non-numeric or negative limit/skip are ignored. The sort field itself is
// checked by the store.
func parseTaskFilter(q url.Values) models.TaskFilter {
	var f models.TaskFilter

	if v := q.Get("completed"); v != "" {
		completed := v == "true"
		f.Completed = &completed
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("skip")); err == nil && n > 0 {
		f.Skip = n
	}
	if v := q.Get("sortBy"); v != "" {
		field, dir, _ := strings.Cut(v, ":")
		f.SortBy = models.SortField(field)
		f.SortDesc = dir == "desc"
	}

	return f
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())

	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	task, err := s.tasks.Create(r.Context(), user.ID, services.CreateTaskInput{
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTaskResponse(task))
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())

	list, err := s.tasks.List(r.Context(), user.ID, parseTaskFilter(r.URL.Query()))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, newTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())

	task, err := s.tasks.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())

	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	task, err := s.tasks.Update(r.Context(), user.ID, r.PathValue("id"), fields)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())

	task, err := s.tasks.Delete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}
