// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package util provides small shared helpers for the agribot client.
//
// It contains filesystem primitives (atomic writes) and string helpers
// (display truncation) used by the config, credentials and UI layers.
package util
