package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE dashboard_tabs (
				name VARCHAR(255) PRIMARY KEY,
				row_position INT NOT NULL DEFAULT 1,
				list JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE dashboard_formats (
				name VARCHAR(255) PRIMARY KEY,
				row_position INT NOT NULL DEFAULT 1,
				field_mappings JSONB NOT NULL DEFAULT '{}',
				table_fields JSONB NOT NULL DEFAULT '[]',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
