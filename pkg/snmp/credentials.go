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

package snmp

import (
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// Version is the SNMP protocol version used for a target.
type Version string

const (
	Version1  Version = "v1"
	Version2c Version = "v2c"
	Version3  Version = "v3"

	defaultPort = 161
)

// Credentials holds what is needed to talk to one agent.
type Credentials struct {
	Version         Version `json:"version" yaml:"version"`
	Community       string  `json:"community,omitempty" yaml:"community,omitempty" sensitive:"true"`
	Username        string  `json:"username,omitempty" yaml:"username,omitempty"`
	AuthProtocol    string  `json:"auth_protocol,omitempty" yaml:"auth_protocol,omitempty"`
	AuthPassword    string  `json:"auth_password,omitempty" yaml:"auth_password,omitempty" sensitive:"true"`
	PrivacyProtocol string  `json:"privacy_protocol,omitempty" yaml:"privacy_protocol,omitempty"`
	PrivacyPassword string  `json:"privacy_password,omitempty" yaml:"privacy_password,omitempty" sensitive:"true"`
	ContextName     string  `json:"context_name,omitempty" yaml:"context_name,omitempty"`
}

// Target is an agent endpoint plus the credentials to use with it.
type Target struct {
	Address     string
	Port        uint16
	Credentials Credentials
}

func (t Target) String() string {
	port := t.Port
	if port == 0 {
		port = defaultPort
	}

	return fmt.Sprintf("%s:%d", t.Address, port)
}

// Validate checks that the credentials are usable. Failures wrap
// ErrInvalidCredentials.
func (c *Credentials) Validate() error {
	switch c.Version {
	case Version1, Version2c:
		if c.Community == "" {
			return fmt.Errorf("%w: community required for %s", ErrInvalidCredentials, c.Version)
		}
	case Version3:
		if c.Username == "" {
			return fmt.Errorf("%w: username required for v3", ErrInvalidCredentials)
		}

		if _, err := authProtocol(c.AuthProtocol); err != nil {
			return err
		}

		if _, err := privProtocol(c.PrivacyProtocol); err != nil {
			return err
		}

		if c.PrivacyProtocol != "" && c.AuthProtocol == "" {
			return fmt.Errorf("%w: privacy requires authentication", ErrInvalidCredentials)
		}
	default:
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidCredentials, c.Version)
	}

	return nil
}

// apply configures a gosnmp client for the credentials.
func (c *Credentials) apply(client *gosnmp.GoSNMP) error {
	if err := c.Validate(); err != nil {
		return err
	}

	switch c.Version {
	case Version1:
		client.Version = gosnmp.Version1
		client.Community = c.Community
	case Version2c:
		client.Version = gosnmp.Version2c
		client.Community = c.Community
	case Version3:
		auth, _ := authProtocol(c.AuthProtocol)
		priv, _ := privProtocol(c.PrivacyProtocol)

		client.Version = gosnmp.Version3
		client.SecurityModel = gosnmp.UserSecurityModel
		client.ContextName = c.ContextName
		client.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 c.Username,
			AuthenticationProtocol:   auth,
			AuthenticationPassphrase: c.AuthPassword,
			PrivacyProtocol:          priv,
			PrivacyPassphrase:        c.PrivacyPassword,
		}

		switch {
		case priv != gosnmp.NoPriv:
			client.MsgFlags = gosnmp.AuthPriv
		case auth != gosnmp.NoAuth:
			client.MsgFlags = gosnmp.AuthNoPriv
		default:
			client.MsgFlags = gosnmp.NoAuthNoPriv
		}
	}

	return nil
}

func authProtocol(name string) (gosnmp.SnmpV3AuthProtocol, error) {
	switch strings.ToUpper(name) {
	case "":
		return gosnmp.NoAuth, nil
	case "MD5":
		return gosnmp.MD5, nil
	case "SHA":
		return gosnmp.SHA, nil
	case "SHA224":
		return gosnmp.SHA224, nil
	case "SHA256":
		return gosnmp.SHA256, nil
	case "SHA384":
		return gosnmp.SHA384, nil
	case "SHA512":
		return gosnmp.SHA512, nil
	default:
		return gosnmp.NoAuth, fmt.Errorf("%w: unknown auth protocol %q", ErrInvalidCredentials, name)
	}
}

func privProtocol(name string) (gosnmp.SnmpV3PrivProtocol, error) {
	switch strings.ToUpper(name) {
	case "":
		return gosnmp.NoPriv, nil
	case "DES":
		return gosnmp.DES, nil
	case "AES":
		return gosnmp.AES, nil
	case "AES192":
		return gosnmp.AES192, nil
	case "AES256":
		return gosnmp.AES256, nil
	default:
		return gosnmp.NoPriv, fmt.Errorf("%w: unknown privacy protocol %q", ErrInvalidCredentials, name)
	}
}
