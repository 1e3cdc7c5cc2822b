package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

-- Runs: one row per crawl or clip invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    stage TEXT NOT NULL,              -- crawl, clip
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    status TEXT NOT NULL DEFAULT 'running',  -- running, completed, failed
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

-- Lookups: every remote metadata request
CREATE TABLE IF NOT EXISTS lookups (
    lookup_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    region_id TEXT NOT NULL,
    kind TEXT NOT NULL,               -- details, polygon, geojson
    url TEXT NOT NULL,
    status_code INTEGER,              -- 0 for transport errors
    success BOOLEAN NOT NULL,
    error_message TEXT,
    duration_ms INTEGER,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_lookups_run ON lookups(run_id);
CREATE INDEX IF NOT EXISTS idx_lookups_region ON lookups(region_id);

-- Clips: one row per province handled by the clip stage
CREATE TABLE IF NOT EXISTS clips (
    clip_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    country TEXT NOT NULL,
    province_id TEXT NOT NULL,
    province_name TEXT NOT NULL,
    output_path TEXT,
    outcome TEXT NOT NULL,            -- clipped, failed, skipped
    error_message TEXT,
    duration_ms INTEGER,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_clips_run ON clips(run_id);
`
