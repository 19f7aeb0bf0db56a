package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    source TEXT NOT NULL,
    respondents INTEGER NOT NULL,
    dropped INTEGER NOT NULL DEFAULT 0,
    questions TEXT NOT NULL,
    min_clusters INTEGER NOT NULL,
    max_clusters INTEGER NOT NULL,
    selected INTEGER NOT NULL,
    seed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
    run_id TEXT NOT NULL,
    clusters INTEGER NOT NULL,
    bic REAL NOT NULL,
    log_likelihood REAL NOT NULL,
    params INTEGER NOT NULL,
    iterations INTEGER NOT NULL,
    converged BOOLEAN NOT NULL,
    duration_ms INTEGER NOT NULL,
    PRIMARY KEY (run_id, clusters),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS components (
    run_id TEXT NOT NULL,
    cluster INTEGER NOT NULL,
    weight REAL NOT NULL,
    size INTEGER NOT NULL,
    PRIMARY KEY (run_id, cluster),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS profiles (
    run_id TEXT NOT NULL,
    cluster INTEGER NOT NULL,
    question INTEGER NOT NULL,
    code INTEGER NOT NULL,
    probability REAL NOT NULL,
    PRIMARY KEY (run_id, cluster, question, code),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS assignments (
    run_id TEXT NOT NULL,
    serial INTEGER NOT NULL,
    cluster INTEGER NOT NULL,
    area INTEGER NOT NULL,
    age INTEGER NOT NULL,
    sex INTEGER NOT NULL,
    answers TEXT NOT NULL,
    PRIMARY KEY (run_id, serial),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_assignments_cluster ON assignments(run_id, cluster);
`
