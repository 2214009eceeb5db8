package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cohortscope/server/internal/contraststore"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/service"
)

type contrastJobSubmitRequest struct {
	Timepoint  string   `json:"timepoint"`
	Genes      []string `json:"genes"`
	Replicates int      `json:"replicates"`
	Seed       uint64   `json:"seed"`
}

const maxReplicates = 200

// lookupJob writes the error response and returns nil when the job cannot
// be loaded.
func lookupJob(w http.ResponseWriter, r *http.Request, jm *JobManager) *contraststore.Job {
	if jm == nil {
		http.Error(w, "job manager not configured", http.StatusNotImplemented)
		return nil
	}
	jobID := chi.URLParam(r, "job_id")
	job, err := jm.Get(jobID)
	if errors.Is(err, contraststore.ErrJobNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		http.Error(w, "failed to load job: "+err.Error(), http.StatusInternalServerError)
		return nil
	}
	return job
}

func contrastJobSubmitHandler(jm *JobManager, seeder *generate.Seeder, defaultReplicates int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		var req contrastJobSubmitRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		if req.Replicates > maxReplicates {
			req.Replicates = maxReplicates
		}
		if req.Seed == 0 {
			req.Seed = seeder.Next()
		}
		params := service.NormalizeParams(contraststore.JobParams{
			Timepoint:  req.Timepoint,
			Genes:      req.Genes,
			Replicates: req.Replicates,
			Seed:       req.Seed,
		}, defaultReplicates)

		job, err := jm.Submit(params)
		if err != nil {
			http.Error(w, "failed to submit job: "+err.Error(), http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"job_id": job.ID,
			"status": job.Status,
			"params": job.Params,
		})
	}
}

func contrastJobListHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}
		limit := 50
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
			limit = v
		}
		jobs, err := jm.Store().ListJobs(limit)
		if err != nil {
			http.Error(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if jobs == nil {
			jobs = []*contraststore.Job{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
	}
}

func contrastJobStatusHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := lookupJob(w, r, jm)
		if job == nil {
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func contrastJobResultHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := lookupJob(w, r, jm)
		if job == nil {
			return
		}
		if job.Status != contraststore.JobStatusCompleted {
			http.Error(w, "job not completed (status: "+string(job.Status)+")", http.StatusConflict)
			return
		}

		// Parse pagination and order params
		offset, limit := 0, 50
		orderBy := r.URL.Query().Get("order_by")
		if orderBy == "" {
			orderBy = "fdr_ranksum"
		}
		if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
			offset = v
		}
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = min(v, 500)
		}

		items, total, err := jm.Store().QueryResults(job.ID, orderBy, offset, limit)
		if err != nil {
			http.Error(w, "failed to query results: "+err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"params":   job.Params,
			"n1":       job.N1,
			"n2":       job.N2,
			"total":    total,
			"offset":   offset,
			"limit":    limit,
			"order_by": orderBy,
			"items":    items,
		})
	}
}

// contrastJobSamplesHandler returns the archived draws behind a result.
func contrastJobSamplesHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := lookupJob(w, r, jm)
		if job == nil {
			return
		}
		samples, err := jm.Store().LoadSamples(job.ID)
		if errors.Is(err, contraststore.ErrJobNotFound) {
			http.Error(w, "no samples archived for job (status: "+string(job.Status)+")", http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, "failed to load samples: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"job_id":  job.ID,
			"count":   len(samples),
			"samples": samples,
		})
	}
}

// contrastJobCancelHandler cancels a pending job. With ?purge=true a
// finished job is deleted along with its results.
func contrastJobCancelHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := lookupJob(w, r, jm)
		if job == nil {
			return
		}

		if purge, _ := strconv.ParseBool(r.URL.Query().Get("purge")); purge {
			if !job.Status.Terminal() {
				jm.Cancel(job.ID)
			}
			if err := jm.Delete(job.ID); err != nil && !errors.Is(err, contraststore.ErrJobNotFound) {
				http.Error(w, "failed to delete job: "+err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"job_id":  job.ID,
				"deleted": true,
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"job_id":    job.ID,
			"cancelled": jm.Cancel(job.ID),
		})
	}
}
