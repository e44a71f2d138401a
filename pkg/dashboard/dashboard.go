// Package dashboard manages the ops-panel tab configurations and
// assembles their table data from configured upstream endpoints.
package dashboard

import "context"

// ListRequest describes the outbound call that fills a tab.
type ListRequest struct {
	Name          string            `json:"name"`
	URL           string            `json:"url"            validate:"required"`
	Method        string            `json:"method"         validate:"required"`
	Headers       map[string]string `json:"headers,omitempty"`
	Params        map[string]string `json:"params,omitempty"`
	Body          map[string]any    `json:"body,omitempty"`
	PathVariables map[string]string `json:"path_variable,omitempty"`
}

// TabConfig is one configured dashboard tab.
type TabConfig struct {
	Name string      `json:"tab_name" validate:"required"`
	Row  int         `json:"row"`
	List ListRequest `json:"list"     validate:"required"`
}

// TableField maps one flattened response field to a display column.
type TableField struct {
	Original string `json:"original"`
	Display  string `json:"display"`
}

// TabFormat describes how a tab's raw rows are projected for display.
type TabFormat struct {
	Row           int               `json:"row"`
	FieldMappings map[string]string `json:"fieldMappings"`
	TableFields   []TableField      `json:"tableFields"`
}

// TabName is the list-view summary of a configured tab.
type TabName struct {
	Name string `json:"tab_name"`
	Row  int    `json:"row"`
}

// Row is one projected table row.
type Row struct {
	RawJSON     map[string]any `json:"raw_json"`
	TableFields map[string]any `json:"tableFieldsData"`
}

// TabData is the assembled content of one tab.
type TabData struct {
	Name     string `json:"tab_name"`
	Row      int    `json:"row"`
	ListData []Row  `json:"list_data"`
}

// Store persists tab configurations and display formats.
type Store interface {
	Tabs(ctx context.Context) (map[string]*TabConfig, error)
	Tab(ctx context.Context, name string) (*TabConfig, error)
	SaveTab(ctx context.Context, tab *TabConfig) error
	Format(ctx context.Context, name string) (*TabFormat, error)
	SaveFormat(ctx context.Context, name string, format *TabFormat) error
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
