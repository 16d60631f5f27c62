/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

var errInvalidDuration = errors.New("invalid duration")

// Duration is a time.Duration that accepts "30s" style strings in JSON and YAML.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}

	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidDuration, err)
	}

	*d = Duration(dur)

	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver          string            `json:"driver" yaml:"driver"` // postgres or sqlite
	URL             string            `json:"url,omitempty" yaml:"url,omitempty"`
	Host            string            `json:"host,omitempty" yaml:"host,omitempty"`
	Port            int               `json:"port,omitempty" yaml:"port,omitempty"`
	Database        string            `json:"database,omitempty" yaml:"database,omitempty"`
	Username        string            `json:"username,omitempty" yaml:"username,omitempty"`
	Password        string            `json:"password,omitempty" yaml:"password,omitempty" sensitive:"true"`
	SSLMode         string            `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
	ApplicationName string            `json:"application_name,omitempty" yaml:"application_name,omitempty"`
	MaxConnections  int32             `json:"max_connections,omitempty" yaml:"max_connections,omitempty"`
	MinConnections  int32             `json:"min_connections,omitempty" yaml:"min_connections,omitempty"`
	MaxConnLifetime Duration          `json:"max_conn_lifetime,omitempty" yaml:"max_conn_lifetime,omitempty"`
	RuntimeParams   map[string]string `json:"runtime_params,omitempty" yaml:"runtime_params,omitempty"`
	CertDir         string            `json:"cert_dir,omitempty" yaml:"cert_dir,omitempty"`
	TLS             *DatabaseTLS      `json:"tls,omitempty" yaml:"tls,omitempty"`
	// Path is the SQLite database file; ":memory:" keeps everything in process.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// DatabaseTLS holds client certificate paths. Relative paths resolve
// against DatabaseConfig.CertDir.
type DatabaseTLS struct {
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file" yaml:"ca_file"`
}

// MaskURL hides the password portion of a connection URL so it can be logged.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, ok := u.User.Password(); !ok {
		return raw
	}

	u.User = url.UserPassword(u.User.Username(), "****")

	return u.String()
}

// NATSConfig configures the event stream and the probe request subject.
type NATSConfig struct {
	URL           string   `json:"url" yaml:"url"`
	Stream        string   `json:"stream" yaml:"stream"`
	SubjectPrefix string   `json:"subject_prefix" yaml:"subject_prefix"`
	ProbeSubject  string   `json:"probe_subject" yaml:"probe_subject"`
	CredsFile     string   `json:"creds_file,omitempty" yaml:"creds_file,omitempty"`
	Timeout       Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// TLS enables mTLS with the same file layout as the database client.
	TLS        *DatabaseTLS `json:"tls,omitempty" yaml:"tls,omitempty"`
	CertDir    string       `json:"cert_dir,omitempty" yaml:"cert_dir,omitempty"`
	ServerName string       `json:"server_name,omitempty" yaml:"server_name,omitempty"`
}

// HTTPConfig configures the control API.
type HTTPConfig struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// APIKey, when set, is required on every /api request.
	APIKey string     `json:"api_key,omitempty" yaml:"api_key,omitempty" sensitive:"true"`
	CORS   CORSConfig `json:"cors" yaml:"cors"`
}

// CORSConfig lists the browser origins allowed to call the control API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty" yaml:"allow_credentials,omitempty"`
}
