package postgres

// Schema is the upload journal DDL. Journal rows are bookkeeping only; they
// do not deduplicate uploads.
const Schema = `
CREATE TABLE IF NOT EXISTS upload_jobs (
    id               UUID PRIMARY KEY,
    source           TEXT NOT NULL,
    list_title       TEXT NOT NULL,
    status           TEXT NOT NULL,
    total_items      INTEGER NOT NULL DEFAULT 0,
    succeeded_items  INTEGER NOT NULL DEFAULT 0,
    failed_items     INTEGER NOT NULL DEFAULT 0,
    metadata         JSONB,
    started_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at     TIMESTAMPTZ,
    duration_ms      INTEGER
);

CREATE TABLE IF NOT EXISTS upload_items (
    id           BIGSERIAL PRIMARY KEY,
    job_id       UUID NOT NULL REFERENCES upload_jobs(id) ON DELETE CASCADE,
    row_index    INTEGER NOT NULL,
    title        TEXT,
    remote_id    INTEGER,
    status       TEXT NOT NULL,
    error        TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS upload_items_job_id_idx ON upload_items(job_id);
`
