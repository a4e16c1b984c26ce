package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/documo/documo/internal/flagx"
)

// JsonConfig is an intermediate DTO for reading JSON configuration files.
// The timeout accepts Go duration strings such as "30s".
type JsonConfig struct {
	ServerAddr     string `json:"server_addr"`
	RequestTimeout string `json:"request_timeout"`
	MasterKeySalt  string `json:"master_key_salt"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flags into the provided Config. When no flag is given, nothing is
// loaded.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.ServerAddr != "" {
		cfg.ServerAddr = c.ServerAddr
	}
	if c.RequestTimeout != "" {
		d, err := time.ParseDuration(c.RequestTimeout)
		if err != nil {
			panic(err)
		}
		cfg.RequestTimeout = d
	}
	if c.MasterKeySalt != "" {
		cfg.MasterKeySalt = c.MasterKeySalt
	}
}
