package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"relatics.dev/relatics/internal/version"
	"relatics.dev/relatics/testhelpers"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd("none", "unknown")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd(t *testing.T) {
	t.Run("registers the subcommands", func(t *testing.T) {
		cmd := NewRootCmd("none", "unknown")

		names := make([]string, 0)
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		require.Contains(t, names, "get")
		require.Contains(t, names, "import")
		require.Contains(t, names, "version")
	})
}

func TestVersionCmd(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "relatics "+version.Version)
}

func TestGetCmd(t *testing.T) {
	t.Run("fails without a company", func(t *testing.T) {
		_, err := runCommand(t, "get", "getActies", "--workspace", "ws-123")
		require.Error(t, err)
		require.Contains(t, err.Error(), "company")
	})

	t.Run("rejects malformed parameters", func(t *testing.T) {
		_, err := runCommand(t, "get", "getActies",
			"--company", "acme", "--workspace", "ws-123", "--param", "not-a-pair")
		require.Error(t, err)
		require.Contains(t, err.Error(), "key=value")
	})

	t.Run("calls the webservice with the configured entry code", func(t *testing.T) {
		config := testhelpers.NewMockRelaticsServerConfig()
		config.GetResultResponses["getActies"] = `<Report Action="getActies"><Actie Name="A1"/></Report>`
		server := testhelpers.NewMockRelaticsServer(t, config)

		_, err := runCommand(t, "get", "getActies",
			"--company", "acme", "--workspace", "ws-123",
			"--entry-code", "CODE", "--base-url", server.URL,
			"--param", "status=open")
		require.NoError(t, err)

		calls := config.Calls()
		require.Len(t, calls, 1)
		require.Equal(t, "getActies", calls[0].Operation)
		require.Contains(t, calls[0].Envelope, "<Entrycode>CODE</Entrycode>")
		require.Contains(t, calls[0].Envelope, `<Parameter Name="status" Value="open"/>`)
	})

	t.Run("writes received documents to the download dir", func(t *testing.T) {
		config := testhelpers.NewMockRelaticsServerConfig()
		archive := testhelpers.DocumentsArchive(t, map[string][]byte{"photo.jpg": []byte("jpeg-bytes")})
		config.GetResultResponses["getDocs"] = `<Report><Documents>` + archive + `</Documents></Report>`
		server := testhelpers.NewMockRelaticsServer(t, config)

		downloadDir := filepath.Join(t.TempDir(), "docs")
		_, err := runCommand(t, "get", "getDocs",
			"--company", "acme", "--workspace", "ws-123", "--base-url", server.URL,
			"--download-dir", downloadDir)
		require.NoError(t, err)

		contents, err := os.ReadFile(filepath.Join(downloadDir, "photo.jpg"))
		require.NoError(t, err)
		require.Equal(t, []byte("jpeg-bytes"), contents)
	})
}

func TestImportCmd(t *testing.T) {
	t.Run("fails without a data file", func(t *testing.T) {
		_, err := runCommand(t, "import", "importActies",
			"--company", "acme", "--workspace", "ws-123", "--yes")
		require.Error(t, err)
		require.Contains(t, err.Error(), "--data")
	})

	t.Run("imports a data file", func(t *testing.T) {
		config := testhelpers.NewMockRelaticsServerConfig()
		config.ImportResponses["importActies"] = `<Import>
			<Message Time="10:00:00" Result="Progress">Total rows imported: 1</Message>
		</Import>`
		server := testhelpers.NewMockRelaticsServer(t, config)

		dataPath := filepath.Join(t.TempDir(), "acties.csv")
		require.NoError(t, os.WriteFile(dataPath, []byte("name\nActie 01\n"), 0o600))

		_, err := runCommand(t, "import", "importActies",
			"--company", "acme", "--workspace", "ws-123", "--base-url", server.URL,
			"--data", dataPath, "--yes")
		require.NoError(t, err)

		calls := config.Calls()
		require.Len(t, calls, 1)
		require.Contains(t, calls[0].Envelope, "<Filename>acties.csv</Filename>")
	})

	t.Run("skips the confirmation via RELATICS_YES", func(t *testing.T) {
		config := testhelpers.NewMockRelaticsServerConfig()
		config.ImportResponses["importActies"] = `<Import>
			<Message Time="10:00:00" Result="Progress">Total rows imported: 1</Message>
		</Import>`
		server := testhelpers.NewMockRelaticsServer(t, config)

		dataPath := filepath.Join(t.TempDir(), "acties.csv")
		require.NoError(t, os.WriteFile(dataPath, []byte("name\nActie 01\n"), 0o600))

		t.Setenv("RELATICS_YES", "true")
		_, err := runCommand(t, "import", "importActies",
			"--company", "acme", "--workspace", "ws-123", "--base-url", server.URL,
			"--data", dataPath)
		require.NoError(t, err)
		require.Len(t, config.Calls(), 1)
	})

	t.Run("fails when the import log contains errors", func(t *testing.T) {
		config := testhelpers.NewMockRelaticsServerConfig()
		config.ImportResponses["importActies"] = `<Import>
			<Message Time="10:00:00" Result="Error">Reference not found</Message>
		</Import>`
		server := testhelpers.NewMockRelaticsServer(t, config)

		dataPath := filepath.Join(t.TempDir(), "acties.csv")
		require.NoError(t, os.WriteFile(dataPath, []byte("name\nActie 01\n"), 0o600))

		_, err := runCommand(t, "import", "importActies",
			"--company", "acme", "--workspace", "ws-123", "--base-url", server.URL,
			"--data", dataPath, "--yes")
		require.Error(t, err)
		require.Contains(t, err.Error(), "1 error(s)")
	})
}
