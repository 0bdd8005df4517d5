package config

// CLIConfig is the configuration for imrelay-cli.
type CLIConfig struct {
	Relay RelayConfig `yaml:"relay"`

	// AdminSocket is the relay's local admin socket.
	AdminSocket string `yaml:"admin_socket"`

	// MetricsURL is the base URL of the relay's HTTP endpoint.
	MetricsURL string `yaml:"metrics_url"`

	// Output is the default output format: table, json, yaml.
	Output string `yaml:"output"`
}

// RelayConfig stores the relay connection details used by connect.
type RelayConfig struct {
	Addr       string `yaml:"addr"`
	Username   string `yaml:"username"`
	CAFile     string `yaml:"ca_file"`
	ServerName string `yaml:"server_name"`
	Insecure   bool   `yaml:"insecure"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Relay: RelayConfig{
			Addr: "localhost:2727",
		},
		AdminSocket: "/run/imrelay/admin.sock",
		MetricsURL:  "http://127.0.0.1:9127",
		Output:      "table",
	}
}
