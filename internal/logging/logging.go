// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging constructs the process-wide structured logger.
package logging

import "go.uber.org/zap"

// New builds a zap logger for the given mode. "prod" selects the JSON
// production encoder; anything else selects the human-readable
// development encoder.
func New(mode string) (*zap.Logger, error) {
	if mode == "prod" || mode == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
