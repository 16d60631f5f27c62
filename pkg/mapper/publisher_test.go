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

package mapper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
)

func TestMultiPublisherTriesEverySink(t *testing.T) {
	ctrl := gomock.NewController(t)

	errFirst := errors.New("first sink down")
	ev := &models.DiscoveryEvent{Address: "10.0.0.1", Outcome: models.OutcomeSuccess}

	first := NewMockPublisher(ctrl)
	first.EXPECT().Publish(gomock.Any(), ev).Return(errFirst)

	second := NewMockPublisher(ctrl)
	second.EXPECT().Publish(gomock.Any(), ev).Return(nil)

	pub := MultiPublisher{first, NewLogPublisher(logger.NewTestLogger()), second}

	require.ErrorIs(t, pub.Publish(context.Background(), ev), errFirst)
}

func TestMultiPublisherEmpty(t *testing.T) {
	require.NoError(t, MultiPublisher(nil).Publish(context.Background(), &models.DiscoveryEvent{}))
}

func TestLogPublisherLevel(t *testing.T) {
	tests := []struct {
		name  string
		ev    models.DiscoveryEvent
		level string
	}{
		{name: "quiet success", ev: models.DiscoveryEvent{Outcome: models.OutcomeSuccess}, level: "debug"},
		{name: "new devices", ev: models.DiscoveryEvent{Outcome: models.OutcomeSuccess, New: 2}, level: "info"},
		{name: "failure", ev: models.DiscoveryEvent{Outcome: models.OutcomeFailed}, level: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			ev := tt.ev
			ev.Address = "10.0.0.9"

			require.NoError(t, NewLogPublisher(logger.NewWriterLogger(&buf)).Publish(context.Background(), &ev))

			var line map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

			assert.Equal(t, tt.level, line["level"])
			assert.Equal(t, "10.0.0.9", line["device"])
			assert.Equal(t, string(tt.ev.Outcome), line["outcome"])
		})
	}
}
