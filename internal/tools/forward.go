// ABOUTME: Forwarding tools that proxy read-only fleet-management API endpoints
// ABOUTME: Each handler validates input, builds the query, and calls the tenant's client

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/2389/fleet-gateway/internal/fleet"
)

type forwardHandlers struct {
	factory *fleet.Factory
}

func (f *forwardHandlers) get(ctx context.Context, path string, query url.Values) (string, error) {
	client, err := f.factory.ClientFor(ctx)
	if err != nil {
		return "", err
	}
	return client.Get(ctx, path, query)
}

// listInput covers the common query/pagination parameters of inventory
// endpoints.
type listInput struct {
	Query   string `json:"query"`
	Size    int    `json:"size"`
	Cursor  string `json:"cursor"`
	Orderby string `json:"orderby"`
}

func (in listInput) values() url.Values {
	q := url.Values{}
	if in.Query != "" {
		q.Set("query", in.Query)
	}
	if in.Size > 0 {
		q.Set("size", strconv.Itoa(in.Size))
	}
	if in.Cursor != "" {
		q.Set("cursor", in.Cursor)
	}
	if in.Orderby != "" {
		q.Set("orderby", in.Orderby)
	}
	return q
}

// timeRangeInput covers history-style endpoints.
type timeRangeInput struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Size      int    `json:"size"`
	Cursor    string `json:"cursor"`
}

func (in timeRangeInput) values() url.Values {
	q := url.Values{}
	if in.StartTime != "" {
		q.Set("start_time", in.StartTime)
	}
	if in.EndTime != "" {
		q.Set("end_time", in.EndTime)
	}
	if in.Size > 0 {
		q.Set("size", strconv.Itoa(in.Size))
	}
	if in.Cursor != "" {
		q.Set("cursor", in.Cursor)
	}
	return q
}

// listHandler forwards to an inventory endpoint with the common query
// parameters.
func (f *forwardHandlers) listHandler(path string) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var in listInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
		return f.get(ctx, path, in.values())
	}
}

// detailHandler forwards to a single-resource endpoint, requiring idField
// in the input and appending it to the path.
func (f *forwardHandlers) detailHandler(pathPrefix, idField string) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		id, err := requiredString(input, idField)
		if err != nil {
			return "", err
		}
		return f.get(ctx, pathPrefix+"/"+url.PathEscape(id), nil)
	}
}

// historyHandler forwards to a time-range endpoint keyed by a resource id.
func (f *forwardHandlers) historyHandler(pathPrefix, idField string) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		id, err := requiredString(input, idField)
		if err != nil {
			return "", err
		}
		var in timeRangeInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
		return f.get(ctx, pathPrefix+"/"+url.PathEscape(id), in.values())
	}
}

// reportHandler forwards to a report endpoint with an optional time range.
func (f *forwardHandlers) reportHandler(path string) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var in timeRangeInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
		return f.get(ctx, path, in.values())
	}
}

func requiredString(input json.RawMessage, field string) (string, error) {
	var in map[string]any
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	val, _ := in[field].(string)
	val = strings.TrimSpace(val)
	if val == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	return val, nil
}

const listSchema = `{"type":"object","properties":{"query":{"type":"string","description":"Query filter expression"},"size":{"type":"integer","description":"Page size"},"cursor":{"type":"string","description":"Pagination cursor"},"orderby":{"type":"string","description":"Sort field and direction"}}}`

const reportSchema = `{"type":"object","properties":{"start_time":{"type":"string","description":"Range start (ISO 8601 or relative like -24h)"},"end_time":{"type":"string","description":"Range end"},"size":{"type":"integer","description":"Page size"}}}`

func detailSchema(idField, description string) string {
	return fmt.Sprintf(`{"type":"object","properties":{%q:{"type":"string","description":%q}},"required":[%q]}`,
		idField, description, idField)
}

func historySchema(idField, description string) string {
	return fmt.Sprintf(`{"type":"object","properties":{%q:{"type":"string","description":%q},"start_time":{"type":"string","description":"Range start"},"end_time":{"type":"string","description":"Range end"},"size":{"type":"integer","description":"Page size"},"cursor":{"type":"string","description":"Pagination cursor"}},"required":[%q]}`,
		idField, description, idField)
}

// ForwardingTools builds the full category tool set over the given factory.
func ForwardingTools(factory *fleet.Factory) []Tool {
	f := &forwardHandlers{factory: factory}
	return []Tool{
		// devices
		{
			Definition: Definition{
				Name:            "list_devices",
				Description:     "List devices in the fleet inventory",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/devices/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_device",
				Description:     "Get a single device by id",
				InputSchemaJSON: detailSchema("device_id", "Device ID"),
			},
			Handler: f.detailHandler("/v1/devices/inventory", "device_id"),
		},
		{
			Definition: Definition{
				Name:            "get_device_logs",
				Description:     "Get event logs for a device",
				InputSchemaJSON: historySchema("device_id", "Device ID"),
			},
			Handler: f.historyHandler("/v1/device_logs/inventory", "device_id"),
		},
		// streams
		{
			Definition: Definition{
				Name:            "list_streams",
				Description:     "List data streams",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/streams/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_stream",
				Description:     "Get a single data stream by id",
				InputSchemaJSON: detailSchema("stream_id", "Stream ID"),
			},
			Handler: f.detailHandler("/v1/streams/inventory", "stream_id"),
		},
		{
			Definition: Definition{
				Name:            "get_stream_history",
				Description:     "Get historical data points for a stream",
				InputSchemaJSON: historySchema("stream_id", "Stream ID"),
			},
			Handler: f.historyHandler("/v1/streams/history", "stream_id"),
		},
		{
			Definition: Definition{
				Name:            "get_stream_rollups",
				Description:     "Get aggregated rollups for a stream",
				InputSchemaJSON: `{"type":"object","properties":{"stream_id":{"type":"string","description":"Stream ID"},"interval":{"type":"string","description":"Rollup interval, e.g. hour or day"},"method":{"type":"string","enum":["min","max","avg","sum","count"],"description":"Aggregation method"},"start_time":{"type":"string","description":"Range start"},"end_time":{"type":"string","description":"Range end"}},"required":["stream_id"]}`,
			},
			Handler: f.StreamRollups,
		},
		// groups
		{
			Definition: Definition{
				Name:            "list_groups",
				Description:     "List device groups",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/groups/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_group",
				Description:     "Get a single device group by id",
				InputSchemaJSON: detailSchema("group_id", "Group ID"),
			},
			Handler: f.detailHandler("/v1/groups/inventory", "group_id"),
		},
		// alerts
		{
			Definition: Definition{
				Name:            "list_alerts",
				Description:     "List alert definitions",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/alerts/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_alert",
				Description:     "Get a single alert definition by id",
				InputSchemaJSON: detailSchema("alert_id", "Alert ID"),
			},
			Handler: f.detailHandler("/v1/alerts/inventory", "alert_id"),
		},
		// monitors
		{
			Definition: Definition{
				Name:            "list_monitors",
				Description:     "List monitors",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/monitors/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_monitor",
				Description:     "Get a single monitor by id",
				InputSchemaJSON: detailSchema("monitor_id", "Monitor ID"),
			},
			Handler: f.detailHandler("/v1/monitors/inventory", "monitor_id"),
		},
		{
			Definition: Definition{
				Name:            "get_monitor_history",
				Description:     "Get delivery history for a monitor",
				InputSchemaJSON: historySchema("monitor_id", "Monitor ID"),
			},
			Handler: f.historyHandler("/v1/monitors/history", "monitor_id"),
		},
		// automations
		{
			Definition: Definition{
				Name:            "list_automations",
				Description:     "List automations",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/automations/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_automation",
				Description:     "Get a single automation by id",
				InputSchemaJSON: detailSchema("automation_id", "Automation ID"),
			},
			Handler: f.detailHandler("/v1/automations/inventory", "automation_id"),
		},
		{
			Definition: Definition{
				Name:            "list_automation_runs",
				Description:     "List automation runs",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/automations/runs/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_automation_run",
				Description:     "Get a single automation run by id",
				InputSchemaJSON: detailSchema("run_id", "Run ID"),
			},
			Handler: f.detailHandler("/v1/automations/runs/inventory", "run_id"),
		},
		{
			Definition: Definition{
				Name:            "list_automation_schedules",
				Description:     "List automation schedules",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/automations/schedules/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_automation_schedule",
				Description:     "Get a single automation schedule by id",
				InputSchemaJSON: detailSchema("schedule_id", "Schedule ID"),
			},
			Handler: f.detailHandler("/v1/automations/schedules/inventory", "schedule_id"),
		},
		// jobs
		{
			Definition: Definition{
				Name:            "list_jobs",
				Description:     "List asynchronous device jobs",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/jobs/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_job",
				Description:     "Get a single job by id",
				InputSchemaJSON: detailSchema("job_id", "Job ID"),
			},
			Handler: f.detailHandler("/v1/jobs/inventory", "job_id"),
		},
		// firmware
		{
			Definition: Definition{
				Name:            "list_firmware",
				Description:     "List available firmware images",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/firmware/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_firmware",
				Description:     "Get a single firmware image by id",
				InputSchemaJSON: detailSchema("firmware_id", "Firmware ID"),
			},
			Handler: f.detailHandler("/v1/firmware/inventory", "firmware_id"),
		},
		{
			Definition: Definition{
				Name:            "list_firmware_updates",
				Description:     "List firmware update campaigns",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/firmware_updates/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_firmware_update",
				Description:     "Get a single firmware update campaign by id",
				InputSchemaJSON: detailSchema("update_id", "Update ID"),
			},
			Handler: f.detailHandler("/v1/firmware_updates/inventory", "update_id"),
		},
		// reports
		{
			Definition: Definition{
				Name:            "list_report_types",
				Description:     "List available report types",
				InputSchemaJSON: `{"type":"object","properties":{}}`,
			},
			Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
				return f.get(ctx, "/v1/reports", nil)
			},
		},
		{
			Definition: Definition{
				Name:            "get_connection_report",
				Description:     "Get the device connections report",
				InputSchemaJSON: reportSchema,
			},
			Handler: f.reportHandler("/v1/reports/connections"),
		},
		{
			Definition: Definition{
				Name:            "get_alert_report",
				Description:     "Get the fired-alerts report",
				InputSchemaJSON: reportSchema,
			},
			Handler: f.reportHandler("/v1/reports/alerts"),
		},
		{
			Definition: Definition{
				Name:            "get_cellular_utilization_report",
				Description:     "Get the cellular data utilization report",
				InputSchemaJSON: reportSchema,
			},
			Handler: f.reportHandler("/v1/reports/cellular_utilization"),
		},
		{
			Definition: Definition{
				Name:            "get_device_availability_report",
				Description:     "Get the device availability report",
				InputSchemaJSON: reportSchema,
			},
			Handler: f.reportHandler("/v1/reports/device_availability"),
		},
		// configurations
		{
			Definition: Definition{
				Name:            "list_configurations",
				Description:     "List device configuration templates",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/configs/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_configuration",
				Description:     "Get a single configuration template by id",
				InputSchemaJSON: detailSchema("config_id", "Configuration ID"),
			},
			Handler: f.detailHandler("/v1/configs/inventory", "config_id"),
		},
		{
			Definition: Definition{
				Name:            "list_health_configs",
				Description:     "List device health configurations",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/health_configs/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_health_config",
				Description:     "Get a single health configuration by id",
				InputSchemaJSON: detailSchema("health_config_id", "Health configuration ID"),
			},
			Handler: f.detailHandler("/v1/health_configs/inventory", "health_config_id"),
		},
		// events
		{
			Definition: Definition{
				Name:            "list_events",
				Description:     "Query the account-wide event log",
				InputSchemaJSON: `{"type":"object","properties":{"query":{"type":"string","description":"Query filter expression"},"start_time":{"type":"string","description":"Range start"},"end_time":{"type":"string","description":"Range end"},"size":{"type":"integer","description":"Page size"},"cursor":{"type":"string","description":"Pagination cursor"}}}`,
			},
			Handler: f.ListEvents,
		},
		// account
		{
			Definition: Definition{
				Name:            "get_account_security",
				Description:     "Get account security settings",
				InputSchemaJSON: `{"type":"object","properties":{}}`,
			},
			Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
				return f.get(ctx, "/v1/account/current/security", nil)
			},
		},
		{
			Definition: Definition{
				Name:            "list_users",
				Description:     "List account users",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/users/inventory"),
		},
		{
			Definition: Definition{
				Name:            "get_user",
				Description:     "Get a single account user by id",
				InputSchemaJSON: detailSchema("user_id", "User ID"),
			},
			Handler: f.detailHandler("/v1/users/inventory", "user_id"),
		},
		{
			Definition: Definition{
				Name:            "list_api_keys",
				Description:     "List account API keys",
				InputSchemaJSON: listSchema,
			},
			Handler: f.listHandler("/v1/api_keys/inventory"),
		},
	}
}

type streamRollupsInput struct {
	StreamID  string `json:"stream_id"`
	Interval  string `json:"interval"`
	Method    string `json:"method"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (f *forwardHandlers) StreamRollups(ctx context.Context, input json.RawMessage) (string, error) {
	var in streamRollupsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(in.StreamID) == "" {
		return "", fmt.Errorf("stream_id is required")
	}

	q := url.Values{}
	if in.Interval != "" {
		q.Set("interval", in.Interval)
	}
	if in.Method != "" {
		q.Set("method", in.Method)
	}
	if in.StartTime != "" {
		q.Set("start_time", in.StartTime)
	}
	if in.EndTime != "" {
		q.Set("end_time", in.EndTime)
	}
	return f.get(ctx, "/v1/streams/rollups/"+url.PathEscape(in.StreamID), q)
}

type listEventsInput struct {
	Query string `json:"query"`
	timeRangeInput
}

func (f *forwardHandlers) ListEvents(ctx context.Context, input json.RawMessage) (string, error) {
	var in listEventsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	q := in.values()
	if in.Query != "" {
		q.Set("query", in.Query)
	}
	return f.get(ctx, "/v1/events/inventory", q)
}
