// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	ErrMissingURL             = errors.New("config: url is required")
	ErrMissingPath            = errors.New("config: path is required")
	ErrUnknownOperation       = errors.New("config: unknown operation")
	ErrUnknownRepoType        = errors.New("config: unknown expected repo type")
	ErrFilesystemURLForbidden = errors.New("config: url looks like a local filesystem path but update_from_filesystem is not set")
)
