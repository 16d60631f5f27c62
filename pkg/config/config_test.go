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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
)

var errWorkersRequired = errors.New("workers must be positive")

type testDatabase struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Password string `json:"password" yaml:"password" sensitive:"true"`
}

type testTarget struct {
	Address   string `json:"address" yaml:"address"`
	Community string `json:"community" yaml:"community" sensitive:"true"`
}

type testConfig struct {
	Workers      int             `json:"workers" yaml:"workers"`
	PollInterval models.Duration `json:"poll_interval" yaml:"poll_interval"`
	Tags         []string        `json:"tags" yaml:"tags"`
	Database     testDatabase    `json:"database" yaml:"database"`
	Targets      []testTarget    `json:"targets" yaml:"targets"`
}

func (c *testConfig) Validate() error {
	if c.Workers <= 0 {
		return errWorkersRequired
	}

	return nil
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestFileConfigLoader(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "json",
			file: "config.json",
			body: `{"workers": 4, "poll_interval": "1m", "database": {"host": "db", "port": 5432}}`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			body: "workers: 4\npoll_interval: 1m\ndatabase:\n  host: db\n  port: 5432\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg testConfig

			err := (&FileConfigLoader{}).Load(context.Background(), writeFile(t, tt.file, tt.body), &cfg)
			require.NoError(t, err)

			assert.Equal(t, 4, cfg.Workers)
			assert.Equal(t, time.Minute, cfg.PollInterval.Std())
			assert.Equal(t, "db", cfg.Database.Host)
			assert.Equal(t, 5432, cfg.Database.Port)
		})
	}
}

func TestFileConfigLoaderMissingFile(t *testing.T) {
	var cfg testConfig

	err := (&FileConfigLoader{}).Load(context.Background(), filepath.Join(t.TempDir(), "absent.json"), &cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvConfigLoader(t *testing.T) {
	t.Setenv("ND_WORKERS", "8")
	t.Setenv("ND_POLL_INTERVAL", "90s")
	t.Setenv("ND_TAGS", "core, edge")
	t.Setenv("ND_DATABASE__HOST", "pg.internal")
	t.Setenv("ND_DATABASE__PORT", "6543")
	t.Setenv("ND_TARGETS", `[{"address": "10.0.0.1"}]`)

	var cfg testConfig

	err := NewEnvConfigLoader(logger.NewTestLogger(), "ND_").Load(context.Background(), "", &cfg)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 90*time.Second, cfg.PollInterval.Std())
	assert.Equal(t, []string{"core", "edge"}, cfg.Tags)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	require.Len(t, cfg.Targets, 1)
	assert.Equal(t, "10.0.0.1", cfg.Targets[0].Address)
}

func TestEnvConfigLoaderSkipsInvalidValues(t *testing.T) {
	t.Setenv("ND_WORKERS", "lots")
	t.Setenv("ND_DATABASE__HOST", "pg")

	cfg := testConfig{Workers: 2}

	err := NewEnvConfigLoader(logger.NewTestLogger(), "ND_").Load(context.Background(), "", &cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "pg", cfg.Database.Host)
}

func TestEnvConfigLoaderConfigJSON(t *testing.T) {
	t.Setenv("ND_CONFIG_JSON", `{"workers": 3}`)
	t.Setenv("ND_WORKERS", "9")

	var cfg testConfig

	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), "ND_").Load(context.Background(), "", &cfg))
	assert.Equal(t, 3, cfg.Workers)
}

func TestEnvConfigLoaderRejectsNonPointer(t *testing.T) {
	err := NewEnvConfigLoader(logger.NewTestLogger(), "ND_").Load(context.Background(), "", testConfig{})
	assert.ErrorIs(t, err, ErrDstMustBeNonNilPointer)
}

func TestLoadAndValidate(t *testing.T) {
	cfgLoader := NewConfig(logger.NewTestLogger())

	t.Run("valid file", func(t *testing.T) {
		t.Setenv("CONFIG_SOURCE", "")

		var cfg testConfig
		require.NoError(t, cfgLoader.LoadAndValidate(context.Background(), writeFile(t, "c.json", `{"workers": 1}`), &cfg))
	})

	t.Run("validation failure", func(t *testing.T) {
		t.Setenv("CONFIG_SOURCE", "file")

		var cfg testConfig
		err := cfgLoader.LoadAndValidate(context.Background(), writeFile(t, "c.json", `{"workers": 0}`), &cfg)
		assert.ErrorIs(t, err, errWorkersRequired)
	})

	t.Run("unknown source", func(t *testing.T) {
		t.Setenv("CONFIG_SOURCE", "consul")

		var cfg testConfig
		err := cfgLoader.LoadAndValidate(context.Background(), "", &cfg)
		assert.ErrorIs(t, err, errInvalidConfigSource)
	})
}

func TestSanitize(t *testing.T) {
	cfg := &testConfig{
		Workers:  2,
		Database: testDatabase{Host: "db", Password: "hunter2"},
		Targets:  []testTarget{{Address: "10.0.0.1", Community: "private"}},
	}

	out, err := Sanitize(cfg)
	require.NoError(t, err)

	db, ok := out["database"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "****", db["password"])
	assert.Equal(t, "db", db["host"])

	targets, ok := out["targets"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "****", targets[0].(map[string]interface{})["community"])

	// the source struct is untouched
	assert.Equal(t, "hunter2", cfg.Database.Password)
}
