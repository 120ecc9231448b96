// ABOUTME: Core tools available to every tenant without activation
// ABOUTME: Category discovery, category activation, and the account smoke test

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/fleet-gateway/internal/auth"
	"github.com/2389/fleet-gateway/internal/catalog"
	"github.com/2389/fleet-gateway/internal/fleet"
	"github.com/2389/fleet-gateway/internal/metrics"
)

// ActivationJournal persists activations so they survive restarts.
// Implemented by store.SQLiteStore; may be nil.
type ActivationJournal interface {
	SaveActivation(ctx context.Context, tenantID, category string) error
}

type coreHandlers struct {
	state   *catalog.ActivationState
	factory *fleet.Factory
	journal ActivationJournal
	logger  *slog.Logger
}

// CoreTools builds the always-available tool set.
func CoreTools(state *catalog.ActivationState, factory *fleet.Factory, journal ActivationJournal) []Tool {
	c := &coreHandlers{
		state:   state,
		factory: factory,
		journal: journal,
		logger:  slog.Default().With("component", "tools"),
	}
	return []Tool{
		{
			Definition: Definition{
				Name:            "discover_categories",
				Description:     "List all tool categories with their activation status for this session. Enable a category with enable_tool_category to use its tools.",
				InputSchemaJSON: `{"type":"object","properties":{}}`,
			},
			Handler: c.DiscoverCategories,
		},
		{
			Definition: Definition{
				Name:            "enable_tool_category",
				Description:     "Enable a tool category, adding its tools to the session. Enabling an already-enabled category is a no-op.",
				InputSchemaJSON: `{"type":"object","properties":{"category":{"type":"string","description":"Category name from discover_categories"}},"required":["category"]}`,
			},
			Handler: c.EnableToolCategory,
		},
		{
			Definition: Definition{
				Name:            "get_account_info",
				Description:     "Get account information for the configured API credentials. Useful as a connectivity and credential check.",
				InputSchemaJSON: `{"type":"object","properties":{}}`,
			},
			Handler: c.GetAccountInfo,
		},
	}
}

type categoryWithStatus struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	ToolCount   int      `json:"tool_count"`
	Enabled     bool     `json:"enabled"`
	Tools       []string `json:"tools"`
}

type discoverCategoriesResponse struct {
	TotalCategories   int                  `json:"total_categories"`
	EnabledCategories int                  `json:"enabled_categories"`
	CoreToolsCount    int                  `json:"core_tools_count"`
	Categories        []categoryWithStatus `json:"categories"`
}

func (c *coreHandlers) DiscoverCategories(ctx context.Context, input json.RawMessage) (string, error) {
	tenantID := auth.TenantFrom(ctx)

	statuses := catalog.DescribeCategories(c.state, tenantID)
	resp := discoverCategoriesResponse{
		TotalCategories: len(statuses),
		CoreToolsCount:  len(catalog.CoreTools()),
		Categories:      make([]categoryWithStatus, 0, len(statuses)),
	}
	for _, s := range statuses {
		if s.Enabled {
			resp.EnabledCategories++
		}
		resp.Categories = append(resp.Categories, categoryWithStatus{
			Name:        s.Name,
			DisplayName: s.DisplayName,
			Description: s.Description,
			ToolCount:   s.ToolCount(),
			Enabled:     s.Enabled,
			Tools:       s.Tools,
		})
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding categories: %w", err)
	}
	return string(out), nil
}

type enableCategoryInput struct {
	Category string `json:"category"`
}

func (c *coreHandlers) EnableToolCategory(ctx context.Context, input json.RawMessage) (string, error) {
	var in enableCategoryInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if in.Category == "" {
		return "", fmt.Errorf("category is required")
	}

	tenantID := auth.TenantFrom(ctx)
	outcome, err := c.state.Activate(tenantID, in.Category)
	if err != nil {
		metrics.RecordActivation(in.Category, "unknown_category")
		return "", err
	}

	if outcome.AlreadyActive {
		metrics.RecordActivation(in.Category, "already_active")
		return fmt.Sprintf("Category %q is already enabled. Its %d tools are available.",
			outcome.Category.Name, outcome.Category.ToolCount()), nil
	}

	metrics.RecordActivation(in.Category, "activated")
	if c.journal != nil {
		if err := c.journal.SaveActivation(ctx, tenantID, in.Category); err != nil {
			c.logger.Warn("failed to journal activation",
				"tenant", tenantID, "category", in.Category, "error", err)
		}
	}

	return fmt.Sprintf("Enabled category %q (%s). %d tools added: %s. The tool list has changed; re-list tools to see them.",
		outcome.Category.Name,
		outcome.Category.DisplayName,
		outcome.Category.ToolCount(),
		strings.Join(outcome.Category.Tools, ", ")), nil
}

func (c *coreHandlers) GetAccountInfo(ctx context.Context, input json.RawMessage) (string, error) {
	client, err := c.factory.ClientFor(ctx)
	if err != nil {
		return "", err
	}
	return client.Get(ctx, "/v1/account", nil)
}
