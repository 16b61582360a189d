// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads engine configuration.
//
// Precedence is ENV > YAML file > defaults. The YAML file is parsed
// strictly: unknown keys and trailing documents are errors. Environment
// keys use the CED_ prefix.
//
// A ConfigHolder keeps the current AppConfig and reloads it when the file
// changes. A reload that fails to load or validate keeps the previous
// configuration.
package config
