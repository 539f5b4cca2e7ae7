//go:build tools
// +build tools

// This file pins dev tools (like mockgen) into go.mod
// so everyone/CI uses the same versions. It is excluded from
// normal builds by the 'tools' build tag above.

package tools

import (
	_ "go.uber.org/mock/mockgen"
)
