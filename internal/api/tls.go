// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"crypto/tls"
	"fmt"

	"github.com/tailscale/tscert"
)

// TLSTailscale serves with certificates from the local tailscaled.
const TLSTailscale = "tailscale"

// TLSConfig returns the TLS config for mode, or nil for plain HTTP.
func TLSConfig(mode string) (*tls.Config, error) {
	switch mode {
	case "":
		return nil, nil
	case TLSTailscale:
		return &tls.Config{GetCertificate: tscert.GetCertificate}, nil
	default:
		return nil, fmt.Errorf("unsupported api.tls mode %q", mode)
	}
}
