package proposal

// Schema creates the proposal table. Resources are stored column-wise as
// parallel arrays indexed by resource position.
const Schema = `
CREATE TABLE IF NOT EXISTS proposals (
	seq               BIGSERIAL UNIQUE,
	id                UUID PRIMARY KEY,
	registry_id       UUID NOT NULL,
	target            BYTEA NOT NULL,
	resource_keys     BYTEA[] NOT NULL,
	resource_signer   BOOLEAN[] NOT NULL,
	resource_writable BOOLEAN[] NOT NULL,
	payload           BYTEA NOT NULL,
	approvals         BOOLEAN[] NOT NULL,
	created_epoch     BIGINT NOT NULL,
	executed_at       BIGINT NOT NULL DEFAULT 0,
	proposer          BYTEA NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS proposals_registry_idx ON proposals (registry_id, seq);
`
