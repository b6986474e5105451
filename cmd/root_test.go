package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/plantclef-go/internal/conf"
)

const metadata = `species;genus;family;organ;url;image_backup_url;species_id
Acer campestre L.;Acer;Sapindaceae;leaf;https://img/a1;https://bak/a1;1
Acer campestre L.;Acer;Sapindaceae;flower;https://img/a2;https://bak/a2;1
Quercus robur L.;Quercus;Fagaceae;leaf;https://img/c1;https://bak/c1;3
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// setup writes a config pointing at a small metadata table.
func setup(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	dataPath := writeFile(t, dir, "metadata.csv", metadata)
	configPath = writeFile(t, dir, "config.yaml",
		"main:\n  name: CLI Test\ndataset:\n  path: "+dataPath+"\n")
	return dir, configPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx := &conf.Context{}
	root := RootCommand(ctx)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	_, configPath := setup(t)

	out, err := execute(t, "config", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "CLI Test")

	out, err = execute(t, "config", "--defaults", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "PLANTCLEF_")
}

func TestFrequencyCommand(t *testing.T) {
	_, configPath := setup(t)

	out, err := execute(t, "frequency", "genus", "--config", configPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Acer", strings.Fields(lines[1])[0])

	_, err = execute(t, "frequency", "kingdom", "--config", configPath)
	assert.Error(t, err)
}

func TestSubmissionCommand(t *testing.T) {
	dir, configPath := setup(t)
	input := writeFile(t, dir, "tiles.csv", "quadrat,ids\nQ1,[7 7 8]\nQ1,[8 8 9]\n")

	out, err := execute(t, "submission", input,
		"--config", configPath,
		"--image-column", "quadrat",
		"--predictions-column", "ids")
	require.NoError(t, err)
	assert.Equal(t, `"quadrat_id","species_ids"`+"\n"+`"Q1","[8, 7, 9]"`+"\n", out)

	output := filepath.Join(dir, "out", "submission.csv")
	_, err = execute(t, "submission", input,
		"--config", configPath,
		"--image-column", "quadrat",
		"--predictions-column", "ids",
		"--save", "--output", output)
	require.NoError(t, err)
	assert.FileExists(t, output)
}

func TestChartCommand(t *testing.T) {
	dir, configPath := setup(t)
	output := filepath.Join(dir, "charts", "organs.svg")

	_, err := execute(t, "chart", "organs", "--format", "svg", "--output", output, "--config", configPath)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	_, err = execute(t, "chart", "projection", "--output", filepath.Join(dir, "p.png"), "--config", configPath)
	assert.Error(t, err, "no embeddings configured")
}
