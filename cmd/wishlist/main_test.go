package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}

func TestFileWishlist(t *testing.T) {
	file := filepath.Join(t.TempDir(), "wishlist.json")

	out, err := runCmd(t, "-file", file, "add", "84")
	require.NoError(t, err)
	assert.Equal(t, "84\ncount: 1\n", out)

	out, err = runCmd(t, "-file", file, "toggle", "1342")
	require.NoError(t, err)
	assert.Equal(t, "1342 liked: true\n84\n1342\ncount: 2\n", out)

	out, err = runCmd(t, "-file", file, "remove", "84")
	require.NoError(t, err)
	assert.Equal(t, "1342\ncount: 1\n", out)
}

func TestDatabaseWishlistAndPurge(t *testing.T) {
	db := filepath.Join(t.TempDir(), "bookshelf.db")

	_, err := runCmd(t, "-db", db, "list")
	assert.Error(t, err, "visitor is required")

	out, err := runCmd(t, "-db", db, "-visitor", "v1", "add", "84")
	require.NoError(t, err)
	assert.Equal(t, "84\ncount: 1\n", out)

	out, err = runCmd(t, "-db", db, "-visitor", "v1", "list")
	require.NoError(t, err)
	assert.Equal(t, "84\ncount: 1\n", out)

	out, err = runCmd(t, "-db", db, "-older", "-1h", "purge")
	require.NoError(t, err)
	assert.Equal(t, "purged 1 visitors\n", out)

	out, err = runCmd(t, "-db", db, "-visitor", "v1", "list")
	require.NoError(t, err)
	assert.Equal(t, "count: 0\n", out)
}

func TestBadArguments(t *testing.T) {
	file := filepath.Join(t.TempDir(), "wishlist.json")

	for _, args := range [][]string{
		{"-file", file, "add"},
		{"-file", file, "add", "zero"},
		{"-file", file, "add", "-5"},
		{"-file", file, "frobnicate"},
		{"-file", file, "purge"},
	} {
		_, err := runCmd(t, args...)
		assert.Error(t, err, "args %v", args)
	}

	out, err := runCmd(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
}
