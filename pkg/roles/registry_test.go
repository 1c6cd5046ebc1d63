package roles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkv/warden/pkg/grants"
	"github.com/gridkv/warden/pkg/pathmatch"
)

func TestNewRegistryValidation(t *testing.T) {
	valid := Role{
		Name:   "ok",
		Bundle: []BundleEntry{{Pattern: pathmatch.MustParse("a/*"), Level: grants.Read}},
	}

	tests := []struct {
		name    string
		defs    []Role
		wantErr string
	}{
		{name: "valid", defs: []Role{valid}},
		{name: "empty name", defs: []Role{{Bundle: valid.Bundle}}, wantErr: "empty name"},
		{name: "empty bundle", defs: []Role{{Name: "x"}}, wantErr: "empty bundle"},
		{name: "duplicate", defs: []Role{valid, valid}, wantErr: "duplicate"},
		{
			name:    "zero pattern",
			defs:    []Role{{Name: "x", Bundle: []BundleEntry{{Level: grants.Read}}}},
			wantErr: "unparsed pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpand(t *testing.T) {
	reg, err := NewRegistry(BuiltInRoles())
	require.NoError(t, err)

	bundle, err := reg.Expand(RoleViewer)
	require.NoError(t, err)
	require.Len(t, bundle, 3)
	for _, e := range bundle {
		assert.Equal(t, grants.Read, e.Level)
	}

	_, err = reg.Expand("no-such-role")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRole))
}

func TestNames(t *testing.T) {
	reg, err := NewRegistry(BuiltInRoles())
	require.NoError(t, err)
	assert.Equal(t, []string{RoleAdmin, RoleAuditor, RoleEditor, RoleViewer}, reg.Names())
}
