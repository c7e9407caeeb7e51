package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflows table
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'published', 'archived')),
				version INT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			-- Create workflow_nodes table
			CREATE TABLE workflow_nodes (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				seq BIGSERIAL,
				category VARCHAR(50) NOT NULL CHECK (category IN ('start', 'to_do', 'in_progress', 'done')),
				label VARCHAR(255) NOT NULL,
				color VARCHAR(32) NOT NULL DEFAULT '',
				data JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_nodes_workflow_id ON workflow_nodes(workflow_id, seq);
			CREATE UNIQUE INDEX idx_workflow_nodes_single_start ON workflow_nodes(workflow_id) WHERE category = 'start';

			-- Create workflow_connections table; connections go away with either endpoint
			CREATE TABLE workflow_connections (
				workflow_id VARCHAR(255) NOT NULL,
				id VARCHAR(255) NOT NULL,
				seq BIGSERIAL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				kind VARCHAR(50) NOT NULL CHECK (kind IN ('sequential', 'loop')),
				name VARCHAR(255) NOT NULL DEFAULT '',
				event_type VARCHAR(50) NOT NULL,
				priority INT NOT NULL DEFAULT 0,
				source_handle VARCHAR(16) NOT NULL,
				target_handle VARCHAR(16) NOT NULL,
				properties JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (workflow_id, id),
				FOREIGN KEY (workflow_id, source_node_id) REFERENCES workflow_nodes(workflow_id, id) ON DELETE CASCADE,
				FOREIGN KEY (workflow_id, target_node_id) REFERENCES workflow_nodes(workflow_id, id) ON DELETE CASCADE
			);

			CREATE INDEX idx_workflow_connections_workflow_id ON workflow_connections(workflow_id, seq);
			CREATE INDEX idx_workflow_connections_source ON workflow_connections(workflow_id, source_node_id);
			CREATE INDEX idx_workflow_connections_target ON workflow_connections(workflow_id, target_node_id);
		`,
	}
}
