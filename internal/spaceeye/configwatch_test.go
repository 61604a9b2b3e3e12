package spaceeye

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "display:\n  id: 2\n")
	initial, err := LoadConfig(path)
	require.NoError(t, err)

	w, err := WatchConfig(path, initial, discardLogger())
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, uint64(2), w.Current().DisplayID())

	require.NoError(t, os.WriteFile(path, []byte("display:\n  id: 3\n"), 0o644))
	require.Eventually(t, func() bool {
		return w.Current().DisplayID() == 3
	}, 5*time.Second, 20*time.Millisecond)
}

func TestConfigWatcher_BadFileKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "display:\n  id: 2\n")
	initial, err := LoadConfig(path)
	require.NoError(t, err)

	w, err := WatchConfig(path, initial, discardLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("watch:\n  every: never\n"), 0o644))
	time.Sleep(3 * configDebounce)
	assert.Equal(t, uint64(2), w.Current().DisplayID())

	require.NoError(t, os.WriteFile(path, []byte("display:\n  id: 4\n"), 0o644))
	require.Eventually(t, func() bool {
		return w.Current().DisplayID() == 4
	}, 5*time.Second, 20*time.Millisecond)
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "display:\n  id: 2\n")
	initial, err := LoadConfig(path)
	require.NoError(t, err)

	w, err := WatchConfig(path, initial, discardLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(dir+"/other.yaml", []byte("display:\n  id: 9\n"), 0o644))
	time.Sleep(3 * configDebounce)
	assert.Equal(t, uint64(2), w.Current().DisplayID())
}
