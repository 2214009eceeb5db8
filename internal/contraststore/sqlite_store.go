// Package contraststore persists outcome contrast jobs and their per-gene
// results in SQLite.
package contraststore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

// ErrJobNotFound is returned when a job id has no record.
var ErrJobNotFound = errors.New("contrast job not found")

// JobStatus represents the current state of a contrast job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobParams are the inputs of a contrast run.
type JobParams struct {
	Timepoint  string   `json:"timepoint"`
	Genes      []string `json:"genes"`
	Replicates int      `json:"replicates"`
	Seed       uint64   `json:"seed"`
}

// JobProgress reports how far a running job is.
type JobProgress struct {
	Phase string `json:"phase"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// Job is one durable vs early-relapse comparison.
type Job struct {
	ID         string      `json:"job_id"`
	Status     JobStatus   `json:"status"`
	Params     JobParams   `json:"params"`
	Progress   JobProgress `json:"progress"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	N1         int         `json:"n1"`
	N2         int         `json:"n2"`
	Error      string      `json:"error,omitempty"`
}

// GeneResult is the contrast of one gene between the two outcome groups.
type GeneResult struct {
	Gene       string  `json:"gene"`
	Mean1      float64 `json:"mean1"`
	Mean2      float64 `json:"mean2"`
	Log2FC     float64 `json:"log2fc"`
	PWelch     float64 `json:"p_welch"`
	FDRWelch   float64 `json:"fdr_welch"`
	PRanksum   float64 `json:"p_ranksum"`
	FDRRanksum float64 `json:"fdr_ranksum"`
}

// Sample is one drawn value that went into a contrast.
type Sample struct {
	PatientID string  `json:"patient_id"`
	Outcome   string  `json:"outcome"`
	Replicate int     `json:"replicate"`
	Gene      string  `json:"gene"`
	Value     float64 `json:"value"`
}

// Store provides persistent storage for contrast jobs using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
	now func() time.Time
}

// NewStore opens (or creates) the SQLite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	s := &Store{db: db, enc: enc, dec: dec, now: time.Now}
	if err := s.migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.dec.Close()
	s.enc.Close()
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contrast_jobs (
		job_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		timepoint TEXT NOT NULL,
		params_json TEXT NOT NULL,
		phase TEXT DEFAULT '',
		done INTEGER DEFAULT 0,
		total INTEGER DEFAULT 0,
		n1 INTEGER DEFAULT 0,
		n2 INTEGER DEFAULT 0,
		error TEXT DEFAULT '',
		created_at TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_contrast_jobs_status ON contrast_jobs(status);
	CREATE INDEX IF NOT EXISTS idx_contrast_jobs_finished ON contrast_jobs(finished_at);

	CREATE TABLE IF NOT EXISTS contrast_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		gene TEXT NOT NULL,
		mean1 REAL NOT NULL,
		mean2 REAL NOT NULL,
		log2fc REAL NOT NULL,
		p_welch REAL NOT NULL,
		fdr_welch REAL NOT NULL,
		p_ranksum REAL NOT NULL,
		fdr_ranksum REAL NOT NULL,
		FOREIGN KEY (job_id) REFERENCES contrast_jobs(job_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_contrast_results_job ON contrast_results(job_id);

	CREATE TABLE IF NOT EXISTS contrast_samples (
		job_id TEXT PRIMARY KEY,
		count INTEGER NOT NULL,
		raw_size INTEGER NOT NULL,
		payload BLOB NOT NULL,
		FOREIGN KEY (job_id) REFERENCES contrast_jobs(job_id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// CreateJob inserts a new job record.
func (s *Store) CreateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paramsJSON, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO contrast_jobs (job_id, status, timepoint, params_json, phase, done, total, n1, n2, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		string(job.Status),
		job.Params.Timepoint,
		string(paramsJSON),
		job.Progress.Phase,
		job.Progress.Done,
		job.Progress.Total,
		job.N1,
		job.N2,
		job.Error,
		job.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

const jobColumns = `job_id, status, params_json, phase, done, total, n1, n2, error, created_at, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	var job Job
	var paramsJSON, createdAt string
	var startedAt, finishedAt sql.NullString

	err := row.Scan(
		&job.ID,
		&job.Status,
		&paramsJSON,
		&job.Progress.Phase,
		&job.Progress.Done,
		&job.Progress.Total,
		&job.N1,
		&job.N2,
		&job.Error,
		&createdAt,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(paramsJSON), &job.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}

	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if startedAt.Valid {
		t, _ := time.Parse(time.RFC3339, startedAt.String)
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t, _ := time.Parse(time.RFC3339, finishedAt.String)
		job.FinishedAt = &t
	}
	return &job, nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(jobID string) (*Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM contrast_jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJobStatus sets the status and error message; terminal statuses also
// stamp finished_at.
func (s *Store) UpdateJobStatus(jobID string, status JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var finishedAt *string
	if status.Terminal() {
		t := s.timestamp()
		finishedAt = &t
	}

	res, err := s.db.Exec(`
		UPDATE contrast_jobs SET status = ?, error = ?, finished_at = COALESCE(?, finished_at)
		WHERE job_id = ?
	`, string(status), errMsg, finishedAt, jobID)
	if err != nil {
		return err
	}
	return requireRow(res, jobID)
}

// UpdateJobStarted marks a job as running.
func (s *Store) UpdateJobStarted(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE contrast_jobs SET status = ?, started_at = ?
		WHERE job_id = ?
	`, string(JobStatusRunning), s.timestamp(), jobID)
	if err != nil {
		return err
	}
	return requireRow(res, jobID)
}

// UpdateJobProgress updates the progress fields.
func (s *Store) UpdateJobProgress(jobID string, phase string, done, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE contrast_jobs SET phase = ?, done = ?, total = ?
		WHERE job_id = ?
	`, phase, done, total, jobID)
	return err
}

// UpdateJobCounts records the group sizes.
func (s *Store) UpdateJobCounts(jobID string, n1, n2 int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE contrast_jobs SET n1 = ?, n2 = ? WHERE job_id = ?`, n1, n2, jobID)
	return err
}

func requireRow(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return nil
}

// InsertResults inserts gene results in one transaction.
func (s *Store) InsertResults(jobID string, results []*GeneResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO contrast_results (job_id, gene, mean1, mean2, log2fc, p_welch, fdr_welch, p_ranksum, fdr_ranksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.Exec(
			jobID, r.Gene,
			r.Mean1, r.Mean2, r.Log2FC,
			r.PWelch, r.FDRWelch, r.PRanksum, r.FDRRanksum,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// QueryResults returns a page of results and the total count.
func (s *Store) QueryResults(jobID string, orderBy string, offset, limit int) ([]*GeneResult, int, error) {
	orderCol := "fdr_ranksum ASC, ABS(log2fc) DESC"
	switch orderBy {
	case "fdr_welch":
		orderCol = "fdr_welch ASC, ABS(log2fc) DESC"
	case "p_ranksum":
		orderCol = "p_ranksum ASC, ABS(log2fc) DESC"
	case "p_welch":
		orderCol = "p_welch ASC, ABS(log2fc) DESC"
	case "abs_log2fc":
		orderCol = "ABS(log2fc) DESC, fdr_ranksum ASC"
	case "gene":
		orderCol = "gene ASC"
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM contrast_results WHERE job_id = ?", jobID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT gene, mean1, mean2, log2fc, p_welch, fdr_welch, p_ranksum, fdr_ranksum
		FROM contrast_results
		WHERE job_id = ?
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, orderCol)

	rows, err := s.db.Query(query, jobID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []*GeneResult
	for rows.Next() {
		var r GeneResult
		if err := rows.Scan(
			&r.Gene, &r.Mean1, &r.Mean2, &r.Log2FC,
			&r.PWelch, &r.FDRWelch, &r.PRanksum, &r.FDRRanksum,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, &r)
	}
	return results, total, rows.Err()
}

// SaveSamples stores the drawn samples of a job as zstd-compressed JSON.
func (s *Store) SaveSamples(jobID string, samples []Sample) error {
	raw, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("failed to marshal samples: %w", err)
	}
	payload := s.enc.EncodeAll(raw, make([]byte, 0, len(raw)/4))

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO contrast_samples (job_id, count, raw_size, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET count = excluded.count, raw_size = excluded.raw_size, payload = excluded.payload
	`, jobID, len(samples), len(raw), payload)
	return err
}

// LoadSamples returns the drawn samples of a job.
func (s *Store) LoadSamples(jobID string) ([]Sample, error) {
	var rawSize int
	var payload []byte
	err := s.db.QueryRow(`SELECT raw_size, payload FROM contrast_samples WHERE job_id = ?`, jobID).Scan(&rawSize, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}

	raw, err := s.dec.DecodeAll(payload, make([]byte, 0, rawSize))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress samples: %w", err)
	}
	var samples []Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("failed to unmarshal samples: %w", err)
	}
	return samples, nil
}

// ListJobs returns the most recent jobs first.
func (s *Store) ListJobs(limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+jobColumns+` FROM contrast_jobs ORDER BY created_at DESC, job_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ListQueuedJobs returns queued jobs oldest first (for restart recovery).
func (s *Store) ListQueuedJobs() ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT `+jobColumns+` FROM contrast_jobs WHERE status = ?
		ORDER BY created_at ASC
	`, string(JobStatusQueued))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// MarkRunningAsFailed fails every running job (for restart recovery).
func (s *Store) MarkRunningAsFailed(errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE contrast_jobs SET status = ?, error = ?, finished_at = ?
		WHERE status = ?
	`, string(JobStatusFailed), errMsg, s.timestamp(), string(JobStatusRunning))
	return err
}

// DeleteExpiredJobs deletes jobs finished more than retention ago.
func (s *Store) DeleteExpiredJobs(retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-retention).UTC().Format(time.RFC3339)
	expired := `SELECT job_id FROM contrast_jobs WHERE finished_at IS NOT NULL AND finished_at < ?`

	if _, err := s.db.Exec(`DELETE FROM contrast_results WHERE job_id IN (`+expired+`)`, cutoff); err != nil {
		return 0, err
	}
	if _, err := s.db.Exec(`DELETE FROM contrast_samples WHERE job_id IN (`+expired+`)`, cutoff); err != nil {
		return 0, err
	}
	result, err := s.db.Exec(`DELETE FROM contrast_jobs WHERE finished_at IS NOT NULL AND finished_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteJob deletes a job with its results and samples.
func (s *Store) DeleteJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM contrast_results WHERE job_id = ?", jobID); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM contrast_samples WHERE job_id = ?", jobID); err != nil {
		return err
	}
	res, err := s.db.Exec("DELETE FROM contrast_jobs WHERE job_id = ?", jobID)
	if err != nil {
		return err
	}
	return requireRow(res, jobID)
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
