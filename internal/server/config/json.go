package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/documo/documo/internal/flagx"
)

// JsonConfig is an intermediate DTO for reading JSON configuration files.
// Duration fields accept Go duration strings such as "15s" or "168h"; after
// unmarshalling, its fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddr              string `json:"endpoint_addr"`
	DatabaseDSN               string `json:"database_dsn"`
	SecretKey                 string `json:"secret_key"`
	TokenValidityDuration     string `json:"token_validity_duration"`
	PublicBaseURL             string `json:"public_base_url"`
	ShareLinkValidityDuration string `json:"share_link_validity_duration"`
	OutboxPollInterval        string `json:"outbox_poll_interval"`
	OutboxMaxAttempts         int    `json:"outbox_max_attempts"`
	SMTPAddr                  string `json:"smtp_addr"`
	SMTPFrom                  string `json:"smtp_from"`
	S3RootUser                string `json:"s3_root_user"`
	S3RootPassword            string `json:"s3_root_password"`
	S3Bucket                  string `json:"s3_bucket"`
	S3Region                  string `json:"s3_region"`
	S3BaseEndpoint            string `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flags into the provided Config. When no flag is given, nothing is
// loaded. Unreadable files or invalid JSON panic: a server started with a
// broken config file should not come up.
func parseJson(config *Config) {
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

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setDuration(&config.ShareLinkValidityDuration, c.ShareLinkValidityDuration)
	setDuration(&config.OutboxPollInterval, c.OutboxPollInterval)
	if c.OutboxMaxAttempts > 0 {
		config.OutboxMaxAttempts = c.OutboxMaxAttempts
	}
	setString(&config.SMTPAddr, c.SMTPAddr)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
