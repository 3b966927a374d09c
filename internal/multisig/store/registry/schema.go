package registry

// Schema creates the registry table.
const Schema = `
CREATE TABLE IF NOT EXISTS owner_registries (
	id             UUID PRIMARY KEY,
	owners         BYTEA[] NOT NULL,
	threshold      BIGINT NOT NULL CHECK (threshold >= 1),
	epoch          BIGINT NOT NULL DEFAULT 0 CHECK (epoch >= 0),
	authority_seed SMALLINT NOT NULL CHECK (authority_seed BETWEEN 0 AND 255),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
