// internal/edgegap/models.go
package edgegap

// DeployEnvironment is an environment variable injected into the provisioned
// game-server process. Hidden variables are masked in provider dashboards.
type DeployEnvironment struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	IsHidden bool   `json:"is_hidden"`
}

// Geo filter match types.
const (
	FilterTypeAny = "any"
	FilterTypeAll = "all"
	FilterTypeNot = "not"
)

// Filter fields this service uses.
const FilterFieldCountry = "country"

// DeploymentFilter restricts placement of the deployment.
type DeploymentFilter struct {
	Field      string   `json:"field"`
	Values     []string `json:"values"`
	FilterType string   `json:"filter_type"`
}

// PortMapping describes one exposed port of a ready deployment, keyed by its
// configured name in the status response.
type PortMapping struct {
	External   int    `json:"external"`
	Internal   int    `json:"internal"`
	Protocol   string `json:"protocol"`
	TLSUpgrade bool   `json:"tls_upgrade"`
	Link       string `json:"link,omitempty"`
}

// CreateDeploymentRequest asks the provider for a new game-server instance.
type CreateDeploymentRequest struct {
	AppName     string              `json:"app_name"`
	VersionName string              `json:"version_name,omitempty"`
	IPList      []string            `json:"ip_list,omitempty"`
	EnvVars     []DeployEnvironment `json:"env_vars,omitempty"`
	Filters     []DeploymentFilter  `json:"filters,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
}

// CreateDeploymentResponse acknowledges a deployment request. RequestID is
// the handle for all later status and delete calls.
type CreateDeploymentResponse struct {
	RequestID      string `json:"request_id"`
	RequestDNS     string `json:"request_dns"`
	RequestApp     string `json:"request_app"`
	RequestVersion string `json:"request_version"`

	// Placement metadata, present when the provider already picked a site.
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	Continent string `json:"continent,omitempty"`
}

// DeploymentStatus is the provider's view of a deployment's lifecycle.
// FQDN and Ports are meaningful once CurrentStatus is StatusReady.
type DeploymentStatus struct {
	RequestID     string                 `json:"request_id"`
	FQDN          string                 `json:"fqdn"`
	AppName       string                 `json:"app_name"`
	AppVersion    string                 `json:"app_version"`
	CurrentStatus Status                 `json:"current_status"`
	Running       bool                   `json:"running"`
	Error         bool                   `json:"error"`
	ErrorDetail   string                 `json:"error_detail,omitempty"`
	Ports         map[string]PortMapping `json:"ports,omitempty"`
	PublicIP      string                 `json:"public_ip,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
}

// DeleteDeploymentResponse acknowledges a delete request.
type DeleteDeploymentResponse struct {
	Message string `json:"message"`
}
