package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultTree(t *testing.T) {
	tree := DefaultTree()

	assert.Equal(t, []string{"home", "etc", "var"}, tree.Root().Names())

	hosts, err := tree.Lookup([]string{"etc", "hosts"})
	require.NoError(t, err)
	assert.Equal(t, KindFile, hosts.Kind())
	assert.Equal(t, "127.0.0.1 localhost\n192.168.1.1 router", hosts.Content())

	dirs, files := tree.Stats()
	assert.Equal(t, 5, dirs)
	assert.Equal(t, 7, files)
}

func TestLookup(t *testing.T) {
	tree := DefaultTree()

	n, err := tree.Lookup(nil)
	require.NoError(t, err)
	assert.Same(t, tree.Root(), n)

	_, err = tree.Lookup([]string{"etc", "hosts", "x"})
	assert.ErrorIs(t, err, ErrNotADirectory)

	_, err = tree.Lookup([]string{"var", "tmp"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodeAdd(t *testing.T) {
	dir := NewDirectory("d")
	require.NoError(t, dir.Add(NewFile("a", "1")))

	assert.ErrorIs(t, dir.Add(NewFile("a", "2")), ErrInvalidTree)
	assert.ErrorIs(t, dir.Add(NewDirectory("..")), ErrInvalidTree)
	assert.ErrorIs(t, NewFile("f", "").Add(NewFile("g", "")), ErrNotADirectory)

	child, ok := dir.Child("a")
	require.True(t, ok)
	assert.Equal(t, "1", child.Content())
}

func TestParseTree(t *testing.T) {
	t.Run("PreservesOrder", func(t *testing.T) {
		tree, err := ParseTree([]byte(`
srv:
  zeta.txt: last letter
  alpha: {}
  mid.cfg: "x=1"
empty:
`))
		require.NoError(t, err)
		assert.Equal(t, []string{"srv", "empty"}, tree.Root().Names())

		srv, err := tree.Lookup([]string{"srv"})
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta.txt", "alpha", "mid.cfg"}, srv.Names())

		empty, err := tree.Lookup([]string{"empty"})
		require.NoError(t, err)
		assert.True(t, empty.IsDir())
	})

	t.Run("Errors", func(t *testing.T) {
		cases := map[string]string{
			"NotMapping": "- a\n- b\n",
			"Duplicate":  "a: x\na: y\n",
			"Slash":      "a/b: x\n",
			"Sequence":   "a: [1, 2]\n",
			"Empty":      "",
			"Malformed":  "a: [\n",
		}
		for name, doc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ParseTree([]byte(doc))
				assert.ErrorIs(t, err, ErrInvalidTree)
			})
		}
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := yaml.Marshal(DefaultTree())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadTree(path)
	require.NoError(t, err)

	c, err := NewCursor(loaded, "/home")
	require.NoError(t, err)
	names, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "readme.txt"}, names)

	hosts, err := loaded.Lookup([]string{"etc", "hosts"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1 localhost\n192.168.1.1 router", hosts.Content())
}

func TestLoadTreeMissingFile(t *testing.T) {
	_, err := LoadTree(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
