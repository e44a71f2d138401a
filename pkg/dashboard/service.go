package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/veergo/motorbff/pkg/proposal"
)

const fetchTimeout = 30 * time.Second

// Service assembles tab data: it resolves each configured tab's list
// request, flattens the rows and projects them through the tab's display
// format.
type Service struct {
	store  Store
	http   *http.Client
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		http:   &http.Client{Timeout: fetchTimeout},
		logger: logger.With("module", "dashboard"),
	}
}

// TabNames lists the configured tabs with their row positions.
func (s *Service) TabNames(ctx context.Context) ([]TabName, error) {
	tabs, err := s.store.Tabs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboard tabs: %w", err)
	}

	names := make([]TabName, 0, len(tabs))
	for name, tab := range tabs {
		names = append(names, TabName{Name: name, Row: tab.Row})
	}

	return names, nil
}

// ConfigureTab persists a tab configuration and returns its raw,
// unprojected list data. A fetch failure degrades to an empty list.
func (s *Service) ConfigureTab(ctx context.Context, tab *TabConfig) (*TabData, error) {
	if tab.Row <= 0 {
		tab.Row = 1
	}

	if err := s.store.SaveTab(ctx, tab); err != nil {
		return nil, fmt.Errorf("failed to save tab configuration: %w", err)
	}

	data := &TabData{Name: strings.ToLower(tab.Name), Row: tab.Row, ListData: []Row{}}

	items, err := s.fetchList(ctx, &tab.List)
	if err != nil {
		s.logger.ErrorContext(ctx, "Tab fetch failed", "tab", tab.Name, "error", err)

		return data, nil
	}

	for _, item := range items {
		if row, isMap := item.(map[string]any); isMap {
			data.ListData = append(data.ListData, Row{RawJSON: row})
		}
	}

	return data, nil
}

// SaveFormat persists the display format for a tab.
func (s *Service) SaveFormat(ctx context.Context, name string, format *TabFormat) error {
	if err := s.store.SaveFormat(ctx, name, format); err != nil {
		return fmt.Errorf("failed to save tab format: %w", err)
	}

	return nil
}

// AllTabData assembles every configured tab that has a display format.
// Tabs without a format are skipped; per-tab fetch failures degrade to an
// empty list so one broken upstream never empties the whole dashboard.
func (s *Service) AllTabData(ctx context.Context) ([]*TabData, error) {
	tabs, err := s.store.Tabs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboard tabs: %w", err)
	}

	assembled := make([]*TabData, 0, len(tabs))

	for name, tab := range tabs {
		format, err := s.store.Format(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load format for tab %s: %w", name, err)
		}

		if format == nil {
			s.logger.WarnContext(ctx, "No format configuration found for tab", "tab", name)

			continue
		}

		assembled = append(assembled, s.assembleTab(ctx, tab, format))
	}

	return assembled, nil
}

// TabData assembles a single named tab. Returns nil when the tab or its
// format is not configured.
func (s *Service) TabData(ctx context.Context, name string) (*TabData, error) {
	tab, err := s.store.Tab(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load tab %s: %w", name, err)
	}

	format, err := s.store.Format(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load format for tab %s: %w", name, err)
	}

	if tab == nil || format == nil {
		s.logger.WarnContext(ctx, "Configuration not found for tab", "tab", name)

		return nil, nil
	}

	return s.assembleTab(ctx, tab, format), nil
}

func (s *Service) assembleTab(ctx context.Context, tab *TabConfig, format *TabFormat) *TabData {
	data := &TabData{Name: strings.ToLower(tab.Name), Row: tab.Row, ListData: []Row{}}

	items, err := s.fetchList(ctx, &tab.List)
	if err != nil {
		s.logger.ErrorContext(ctx, "Tab fetch failed", "tab", tab.Name, "error", err)

		return data
	}

	for _, item := range items {
		row, isMap := item.(map[string]any)
		if !isMap {
			continue
		}

		data.ListData = append(data.ListData, projectRow(row, format))
	}

	return data
}

// projectRow maps one flattened upstream row through the field mappings
// and display columns.
func projectRow(item map[string]any, format *TabFormat) Row {
	flat := FlattenObject(item)
	row := Row{
		RawJSON:     make(map[string]any),
		TableFields: make(map[string]any),
	}

	for original, mapped := range format.FieldMappings {
		if value, ok := flat[original]; ok {
			row.RawJSON[mapped] = value
		}
	}

	for _, field := range format.TableFields {
		if value, ok := flat[field.Original]; ok {
			row.TableFields[field.Display] = value
		}
	}

	return row
}

// fetchList performs the tab's configured request and normalizes the
// response to a list of items.
func (s *Service) fetchList(ctx context.Context, list *ListRequest) ([]any, error) {
	url := list.URL
	if len(list.PathVariables) > 0 {
		url = proposal.BuildURL(url, list.PathVariables)
	}

	var body io.Reader

	if len(list.Body) > 0 {
		encoded, err := json.Marshal(list.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode list request body: %w", err)
		}

		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(list.Method), url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range list.Headers {
		req.Header.Set(key, value)
	}

	if len(list.Params) > 0 {
		query := req.URL.Query()
		for key, value := range list.Params {
			query.Set(key, value)
		}

		req.URL.RawQuery = query.Encode()
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("list request returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read list response: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}

	if items, isList := decoded.([]any); isList {
		return items, nil
	}

	return []any{decoded}, nil
}
