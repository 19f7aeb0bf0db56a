package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run operations

// SaveRun writes a run and all of its rows in one transaction. A new ID is
// generated when rec.Run.ID is empty; the ID used is returned.
func (s *Store) SaveRun(rec *RunRecord) (string, error) {
	if rec == nil || rec.Run == nil {
		return "", fmt.Errorf("run record required")
	}
	run := rec.Run
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	questionsJSON, err := json.Marshal(run.Questions)
	if err != nil {
		return "", fmt.Errorf("failed to marshal questions: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs
		(id, created_at, source, respondents, dropped, questions, min_clusters, max_clusters, selected, seed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.Format(time.RFC3339),
		run.Source,
		run.Respondents,
		run.Dropped,
		string(questionsJSON),
		run.MinClusters,
		run.MaxClusters,
		run.Selected,
		int64(run.Seed),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run %s: %w", run.ID, notInitialized(err))
	}

	for _, c := range rec.Candidates {
		_, err := tx.Exec(`
			INSERT INTO candidates
			(run_id, clusters, bic, log_likelihood, params, iterations, converged, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, c.Clusters, c.BIC, c.LogLikelihood, c.Params, c.Iterations, c.Converged, c.Duration.Milliseconds())
		if err != nil {
			return "", fmt.Errorf("failed to insert candidate %d: %w", c.Clusters, err)
		}
	}

	for _, c := range rec.Components {
		_, err := tx.Exec(`INSERT INTO components (run_id, cluster, weight, size) VALUES (?, ?, ?, ?)`,
			run.ID, c.Cluster, c.Weight, c.Size)
		if err != nil {
			return "", fmt.Errorf("failed to insert component %d: %w", c.Cluster, err)
		}
	}

	for _, p := range rec.Profiles {
		_, err := tx.Exec(`
			INSERT INTO profiles (run_id, cluster, question, code, probability)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, p.Cluster, p.Question, p.Code, p.Probability)
		if err != nil {
			return "", fmt.Errorf("failed to insert profile %d/%d/%d: %w", p.Cluster, p.Question, p.Code, err)
		}
	}

	for _, a := range rec.Assignments {
		answersJSON, err := json.Marshal(a.Answers)
		if err != nil {
			return "", fmt.Errorf("failed to marshal answers for serial %d: %w", a.Serial, err)
		}
		_, err = tx.Exec(`
			INSERT INTO assignments (run_id, serial, cluster, area, age, sex, answers)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, a.Serial, a.Cluster, a.Area, a.Age, a.Sex, string(answersJSON))
		if err != nil {
			return "", fmt.Errorf("failed to insert assignment for serial %d: %w", a.Serial, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

const runColumns = `id, created_at, source, respondents, dropped, questions, min_clusters, max_clusters, selected, seed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt, questionsJSON string
	var seed int64

	err := row.Scan(
		&run.ID,
		&createdAt,
		&run.Source,
		&run.Respondents,
		&run.Dropped,
		&questionsJSON,
		&run.MinClusters,
		&run.MaxClusters,
		&run.Selected,
		&seed,
	)
	if err != nil {
		return nil, err
	}
	run.Seed = uint64(seed)

	run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(questionsJSON), &run.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions for %s: %w", run.ID, err)
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, notInitialized(err))
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", notInitialized(err))
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and, through cascades, all of its rows.
func (s *Store) DeleteRun(id string) error {
	result, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, notInitialized(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Child row operations

// ListCandidates returns a run's candidate scores by ascending cluster count.
func (s *Store) ListCandidates(runID string) ([]*Candidate, error) {
	rows, err := s.db.Query(`
		SELECT clusters, bic, log_likelihood, params, iterations, converged, duration_ms
		FROM candidates
		WHERE run_id = ?
		ORDER BY clusters
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", notInitialized(err))
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		var c Candidate
		var ms int64
		if err := rows.Scan(&c.Clusters, &c.BIC, &c.LogLikelihood, &c.Params, &c.Iterations, &c.Converged, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		c.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return out, nil
}

// ListComponents returns a run's final clusters by index.
func (s *Store) ListComponents(runID string) ([]*Component, error) {
	rows, err := s.db.Query(`
		SELECT cluster, weight, size FROM components WHERE run_id = ? ORDER BY cluster
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", notInitialized(err))
	}
	defer rows.Close()

	var out []*Component
	for rows.Next() {
		var c Component
		if err := rows.Scan(&c.Cluster, &c.Weight, &c.Size); err != nil {
			return nil, fmt.Errorf("failed to scan component row: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating components: %w", err)
	}
	return out, nil
}

// ListProfiles returns a run's category probabilities ordered by cluster,
// question and code.
func (s *Store) ListProfiles(runID string) ([]*Profile, error) {
	rows, err := s.db.Query(`
		SELECT cluster, question, code, probability
		FROM profiles
		WHERE run_id = ?
		ORDER BY cluster, question, code
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", notInitialized(err))
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.Cluster, &p.Question, &p.Code, &p.Probability); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return out, nil
}

// ListAssignments returns a run's labelled respondents ordered by serial.
func (s *Store) ListAssignments(runID string) ([]*Assignment, error) {
	rows, err := s.db.Query(`
		SELECT serial, cluster, area, age, sex, answers
		FROM assignments
		WHERE run_id = ?
		ORDER BY serial
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", notInitialized(err))
	}
	defer rows.Close()

	var out []*Assignment
	for rows.Next() {
		var a Assignment
		var answersJSON string
		if err := rows.Scan(&a.Serial, &a.Cluster, &a.Area, &a.Age, &a.Sex, &answersJSON); err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		if err := json.Unmarshal([]byte(answersJSON), &a.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers for serial %d: %w", a.Serial, err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return out, nil
}
