/*
 * Copyright 2026 Talisson Junior
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

// Package config loads the process configuration from JSON files with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/TalissonJunior/traccar/pkg/logger"
)

var errNATSURLRequired = errors.New("nats url is required when nats is enabled")

const (
	defaultStatusTimeout     = 600
	defaultKeepaliveInterval = 30
	defaultSubjectPrefix     = "events.device"
)

// Config is the process configuration for the tracking server core.
type Config struct {
	// StatusTimeout is the online-decay timeout in seconds.
	StatusTimeout int `json:"status_timeout"`
	// StatusUpdateDeviceState runs the motion and overspeed evaluators on
	// status changes out of online.
	StatusUpdateDeviceState bool `json:"status_update_device_state"`
	// DatabaseRegisterUnknown auto-registers unknown unique ids.
	DatabaseRegisterUnknown bool `json:"database_register_unknown"`
	// KeepaliveInterval is the listener keepalive period in seconds.
	KeepaliveInterval int `json:"keepalive_interval"`

	Web     *WebConfig     `json:"web,omitempty"`
	NATS    *NATSConfig    `json:"nats,omitempty"`
	Logging *logger.Config `json:"logging,omitempty"`
}

// WebConfig configures the subscription WebSocket endpoint. An empty
// listen address disables it.
type WebConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// NATSConfig configures the event broker connection.
type NATSConfig struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url"`
	SubjectPrefix string `json:"subject_prefix"`
}

// Validate applies defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.StatusTimeout < 0 {
		return fmt.Errorf("status_timeout must not be negative, got %d", c.StatusTimeout)
	}

	if c.StatusTimeout == 0 {
		c.StatusTimeout = defaultStatusTimeout
	}

	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = defaultKeepaliveInterval
	}

	if c.NATS != nil && c.NATS.Enabled {
		if c.NATS.URL == "" {
			return errNATSURLRequired
		}

		if c.NATS.SubjectPrefix == "" {
			c.NATS.SubjectPrefix = defaultSubjectPrefix
		}
	}

	return nil
}

// DeviceTimeout returns the online-decay timeout as a duration.
func (c *Config) DeviceTimeout() time.Duration {
	return time.Duration(c.StatusTimeout) * time.Second
}

// Keepalive returns the keepalive period as a duration.
func (c *Config) Keepalive() time.Duration {
	return time.Duration(c.KeepaliveInterval) * time.Second
}
