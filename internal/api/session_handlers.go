package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/cohortscope/server/internal/cache"
	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/metrics"
	"github.com/cohortscope/server/internal/navigation"
	"github.com/cohortscope/server/internal/service"
)

// Context key for the request's session
type ctxKey string

const sessionKey ctxKey = "session"

// sessionMiddleware resolves the session from the URL and injects it into context.
func sessionMiddleware(registry *SessionRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "session")
			sess, err := registry.Get(id)
			if errors.Is(err, ErrSessionNotFound) {
				http.Error(w, "session not found: "+id, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getSession(r *http.Request) *Session {
	if s, ok := r.Context().Value(sessionKey).(*Session); ok {
		return s
	}
	return nil
}

// actionResponse is returned by every navigation action. Accepted is false
// when the coordinator ignored the action; the state is then unchanged.
type actionResponse struct {
	Action   navigation.Action `json:"action"`
	Accepted bool              `json:"accepted"`
	Snapshot
}

// apply runs one navigation action on the request's session and writes the
// resulting snapshot.
func apply(w http.ResponseWriter, r *http.Request, m *metrics.Metrics, action navigation.Action, fn func(c *navigation.Coordinator) bool) {
	accepted, snap := getSession(r).Do(fn)
	m.ObserveTransition(string(action), accepted)
	writeJSON(w, http.StatusOK, actionResponse{Action: action, Accepted: accepted, Snapshot: snap})
}

func sessionCreateHandler(registry *SessionRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := registry.Create()
		w.Header().Set("Location", "/api/sessions/"+sess.ID)
		writeJSON(w, http.StatusCreated, sess.Snapshot())
	}
}

func sessionGetHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, getSession(r).Snapshot())
}

func sessionDeleteHandler(registry *SessionRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := registry.Delete(getSession(r).ID); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type patientRequest struct {
	PatientID *string `json:"patient_id"`
}

func selectPatientHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patientRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		id := ""
		if req.PatientID != nil {
			id = *req.PatientID
		}
		apply(w, r, m, navigation.ActionSelectPatient, func(c *navigation.Coordinator) bool {
			return c.SelectPatient(id)
		})
	}
}

func returnToCohortHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apply(w, r, m, navigation.ActionReturnToCohort, func(c *navigation.Coordinator) bool {
			return c.ReturnToCohort()
		})
	}
}

type geneRequest struct {
	Gene string `json:"gene"`
}

func selectGeneHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req geneRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		apply(w, r, m, navigation.ActionSelectGene, func(c *navigation.Coordinator) bool {
			return c.SelectGene(req.Gene)
		})
	}
}

type viewRequest struct {
	View string `json:"view"`
}

func switchViewHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req viewRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		view, err := navigation.ParseView(req.View)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		apply(w, r, m, navigation.ActionSwitchView, func(c *navigation.Coordinator) bool {
			return c.SwitchView(view)
		})
	}
}

// filtersRequest carries the view-local controls. Absent fields are left
// as they are.
type filtersRequest struct {
	Gene            *string                   `json:"gene"`
	Outcome         *cohort.OutcomeFilter     `json:"outcome"`
	ExpressionRange *generate.ExpressionRange `json:"expression_range"`
	Tissue          *cohort.TissueFilter      `json:"tissue"`
	Dataset         *string                   `json:"dataset"`
}

// filtersResponse lists the setters that were applied, in request order.
type filtersResponse struct {
	Actions  []navigation.Action `json:"actions"`
	Accepted bool                `json:"accepted"`
	Snapshot
}

func filtersHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req filtersRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		type step struct {
			action navigation.Action
			run    func(c *navigation.Coordinator) bool
		}
		var steps []step
		if req.Gene != nil {
			steps = append(steps, step{navigation.ActionSetCohortGene, func(c *navigation.Coordinator) bool { return c.SetCohortGene(*req.Gene) }})
		}
		if req.Outcome != nil {
			steps = append(steps, step{navigation.ActionSetOutcomeFilter, func(c *navigation.Coordinator) bool { return c.SetOutcomeFilter(*req.Outcome) }})
		}
		if req.ExpressionRange != nil {
			steps = append(steps, step{navigation.ActionSetExpressionRange, func(c *navigation.Coordinator) bool { return c.SetExpressionRange(*req.ExpressionRange) }})
		}
		if req.Tissue != nil {
			steps = append(steps, step{navigation.ActionSetTissue, func(c *navigation.Coordinator) bool { return c.SetTissue(*req.Tissue) }})
		}
		if req.Dataset != nil {
			ds := cohort.ParseDataset(*req.Dataset)
			steps = append(steps, step{navigation.ActionSetDataset, func(c *navigation.Coordinator) bool { return c.SetDataset(ds) }})
		}

		var applied []navigation.Action
		accepted, snap := getSession(r).Do(func(c *navigation.Coordinator) bool {
			for _, s := range steps {
				ok := s.run(c)
				m.ObserveTransition(string(s.action), ok)
				if ok {
					applied = append(applied, s.action)
				}
			}
			return len(applied) > 0
		})
		writeJSON(w, http.StatusOK, filtersResponse{Actions: applied, Accepted: accepted, Snapshot: snap})
	}
}

type timepointRequest struct {
	Timepoint string `json:"timepoint"`
}

func timepointHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req timepointRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		tp, _ := cohort.ParseTimepoint(req.Timepoint)
		apply(w, r, m, navigation.ActionSetTimepoint, func(c *navigation.Coordinator) bool {
			return c.SetTimepoint(tp)
		})
	}
}

// hoverHandler sets or clears the transient hover highlight. It is not a
// navigation action and never reseeds the session.
func hoverHandler(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	id := ""
	if req.PatientID != nil {
		id = strings.TrimSpace(*req.PatientID)
	}
	_, snap := getSession(r).Do(func(c *navigation.Coordinator) bool {
		c.HoverPatient(id)
		return true
	})
	writeJSON(w, http.StatusOK, snap)
}

// viewPayloadHandler returns the data behind the session's active view.
func viewPayloadHandler(dashboard *service.DashboardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := getSession(r).Snapshot()

		stateJSON, err := json.Marshal(snap.State)
		if err != nil {
			http.Error(w, "failed to encode state: "+err.Error(), http.StatusInternalServerError)
			return
		}
		params := cache.Params{"state": string(stateJSON), "hovered": snap.Hovered}

		data, err := dashboard.Encode("/view", params, snap.Seed, func() interface{} {
			return dashboard.View(snap.State, snap.Tabs, snap.Hovered, snap.Seed)
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Seed", strconv.FormatUint(snap.Seed, 10))
		writeEncoded(w, data)
	}
}
