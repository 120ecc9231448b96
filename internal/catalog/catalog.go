// ABOUTME: Static tool category table for the fleet-management API surface
// ABOUTME: Categories carry ordered tool lists; core tools sit outside any category

package catalog

// Category groups related forwarding tools under a name a caller can
// activate. Tools keeps declaration order; the composer relies on it.
type Category struct {
	Name        string
	DisplayName string
	Description string
	Tools       []string
}

// ToolCount returns the number of tools the category contributes.
func (c Category) ToolCount() int {
	return len(c.Tools)
}

// coreTools are always visible and dispatchable for every tenant.
var coreTools = []string{
	"discover_categories",
	"enable_tool_category",
	"get_account_info",
}

var categories = []Category{
	{
		Name:        "devices",
		DisplayName: "Device Management",
		Description: "List, inspect, and read logs from devices in the fleet inventory",
		Tools:       []string{"list_devices", "get_device", "get_device_logs"},
	},
	{
		Name:        "streams",
		DisplayName: "Data Streams",
		Description: "Browse data streams and read their history and rollups",
		Tools:       []string{"list_streams", "get_stream", "get_stream_history", "get_stream_rollups"},
	},
	{
		Name:        "groups",
		DisplayName: "Device Groups",
		Description: "List and inspect device group hierarchy",
		Tools:       []string{"list_groups", "get_group"},
	},
	{
		Name:        "alerts",
		DisplayName: "Alerts",
		Description: "List and inspect configured alert definitions",
		Tools:       []string{"list_alerts", "get_alert"},
	},
	{
		Name:        "monitors",
		DisplayName: "Monitors",
		Description: "List monitors and read their delivery history",
		Tools:       []string{"list_monitors", "get_monitor", "get_monitor_history"},
	},
	{
		Name:        "automations",
		DisplayName: "Automations",
		Description: "Browse automations, their runs, and their schedules",
		Tools: []string{
			"list_automations", "get_automation",
			"list_automation_runs", "get_automation_run",
			"list_automation_schedules", "get_automation_schedule",
		},
	},
	{
		Name:        "jobs",
		DisplayName: "Jobs",
		Description: "List and inspect asynchronous device jobs",
		Tools:       []string{"list_jobs", "get_job"},
	},
	{
		Name:        "firmware",
		DisplayName: "Firmware",
		Description: "Browse firmware images and firmware update campaigns",
		Tools:       []string{"list_firmware", "get_firmware", "list_firmware_updates", "get_firmware_update"},
	},
	{
		Name:        "reports",
		DisplayName: "Reports",
		Description: "Fleet-wide summary reports: connections, alerts, cellular, availability",
		Tools: []string{
			"list_report_types",
			"get_connection_report", "get_alert_report",
			"get_cellular_utilization_report", "get_device_availability_report",
		},
	},
	{
		Name:        "configurations",
		DisplayName: "Configurations",
		Description: "Device configuration templates and health configurations",
		Tools:       []string{"list_configurations", "get_configuration", "list_health_configs", "get_health_config"},
	},
	{
		Name:        "events",
		DisplayName: "Event Log",
		Description: "Query the account-wide event log",
		Tools:       []string{"list_events"},
	},
	{
		Name:        "account",
		DisplayName: "Account",
		Description: "Account security settings, users, and API keys",
		Tools:       []string{"get_account_security", "list_users", "get_user", "list_api_keys"},
	},
}

// categoryByTool is derived once at init from the category table.
var categoryByTool = func() map[string]string {
	m := make(map[string]string)
	for _, c := range categories {
		for _, tool := range c.Tools {
			m[tool] = c.Name
		}
	}
	return m
}()

// Categories returns the category table in definition order. Callers get a
// copy of the slice; the Category values share the underlying tool slices,
// which are never mutated.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Get returns the category with the given name.
func Get(name string) (Category, bool) {
	for _, c := range categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// CoreTools returns the always-available tool names in definition order.
func CoreTools() []string {
	out := make([]string, len(coreTools))
	copy(out, coreTools)
	return out
}

// IsCoreTool reports whether name is one of the always-available tools.
func IsCoreTool(name string) bool {
	for _, t := range coreTools {
		if t == name {
			return true
		}
	}
	return false
}

// CategoryOf returns the category a tool belongs to. Core tools belong to
// no category.
func CategoryOf(tool string) (string, bool) {
	name, ok := categoryByTool[tool]
	return name, ok
}

// AllToolNames returns every name the catalog declares, core tools first,
// then category tools in definition order.
func AllToolNames() []string {
	out := make([]string, 0, len(coreTools)+len(categoryByTool))
	out = append(out, coreTools...)
	for _, c := range categories {
		out = append(out, c.Tools...)
	}
	return out
}
