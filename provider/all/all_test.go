// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package all_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canonical/sqlbind/provider"
	_ "github.com/canonical/sqlbind/provider/all"
)

func TestAllRegistered(t *testing.T) {
	names := provider.Default().Names()
	for _, name := range []string{"mysql", "oracle", "postgres", "sqlite", "sqlserver"} {
		assert.Contains(t, names, name)
		p, ok := provider.Default().ByName(name)
		if assert.True(t, ok) {
			assert.Equal(t, name, p.Name())
		}
	}
}
