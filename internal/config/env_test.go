// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpersFallBack(t *testing.T) {
	t.Setenv("CED_T_INT", "nope")
	t.Setenv("CED_T_DUR", "7")
	t.Setenv("CED_T_BOOL", "maybe")
	t.Setenv("CED_T_FLOAT", "x")
	t.Setenv("CED_T_EMPTY", "")

	assert.Equal(t, 4, ParseInt("CED_T_INT", 4))
	assert.Equal(t, time.Second, ParseDuration("CED_T_DUR", time.Second))
	assert.True(t, ParseBool("CED_T_BOOL", true))
	assert.Equal(t, 0.5, ParseFloat("CED_T_FLOAT", 0.5))
	assert.Equal(t, "def", ParseString("CED_T_EMPTY", "def"))
	assert.Equal(t, "def", ParseString("CED_T_UNSET", "def"))
}

func TestParseHelpersRead(t *testing.T) {
	t.Setenv("CED_T_INT", "12")
	t.Setenv("CED_T_DUR", "40ms")
	t.Setenv("CED_T_BOOL", "No")
	t.Setenv("CED_T_FLOAT", "0.1")
	t.Setenv("CED_T_LIST", " x ,y")

	assert.Equal(t, 12, ParseInt("CED_T_INT", 4))
	assert.Equal(t, 40*time.Millisecond, ParseDuration("CED_T_DUR", time.Second))
	assert.False(t, ParseBool("CED_T_BOOL", true))
	assert.InDelta(t, 0.1, ParseFloat("CED_T_FLOAT", 0.5), 1e-9)
	assert.Equal(t, []string{"x", "y"}, ParseList("CED_T_LIST", nil))
}
