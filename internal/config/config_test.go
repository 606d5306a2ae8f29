package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bleepstore/bleepbridge/internal/storage"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownWindow())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "AWS", cfg.Storage.Backend)
	assert.Equal(t, "core.windows.net", cfg.Storage.Azure.EndpointSuffix)
	assert.Equal(t, 21, cfg.Storage.FTP.Port)
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("BRIDGE_TEST_SECRET", "s3cr3t")

	cfg, err := Parse([]byte(`
storage:
  backend: dropbox
  dropbox:
    client_id: app
    client_secret: ${BRIDGE_TEST_SECRET}
    refresh_token: ${BRIDGE_TEST_SECRET}
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.Storage.Dropbox.ClientSecret)
	assert.Equal(t, "s3cr3t", cfg.Storage.Dropbox.RefreshToken)
}

func TestParseKeepsLiteralDollarSigns(t *testing.T) {
	t.Setenv("foo", "expanded")
	t.Setenv("BRIDGE_FTP_USER", "deploy")

	cfg, err := Parse([]byte(`
storage:
  backend: ftp
  ftp:
    host: ftp.local
    username: ${BRIDGE_FTP_USER}
    password: "pa$$w0rd$foo$"
`))
	require.NoError(t, err)
	assert.Equal(t, "deploy", cfg.Storage.FTP.Username)
	assert.Equal(t, "pa$$w0rd$foo$", cfg.Storage.FTP.Password)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	_, err := Parse([]byte("logging: {level: chatty}"))
	assert.Error(t, err)

	_, err = Parse([]byte("storage: {backend: gcs}"))
	var unsupported *storage.UnsupportedBackendError
	assert.ErrorAs(t, err, &unsupported)

	_, err = Parse([]byte("server: {port: 70000}"))
	assert.Error(t, err)

	_, err = Parse([]byte("server: [not, a, map]"))
	assert.Error(t, err)
}

func TestValidateReportsEveryMissingField(t *testing.T) {
	_, err := Parse([]byte("logging: {level: chatty}\nstorage: {backend: dropbox, dropbox: {client_id: id}}"))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "unknown log level")
	assert.Contains(t, msg, "dropbox.client_secret is required")
	assert.Contains(t, msg, "dropbox.refresh_token is required")
	assert.NotContains(t, msg, "dropbox.client_id")
}

func TestValidateAWSNeedsNothing(t *testing.T) {
	_, err := Parse([]byte("storage: {backend: aws}"))
	assert.NoError(t, err)
}

func TestSelectionRequest(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want storage.SelectionRequest
	}{
		{
			name: "aws static credentials",
			yaml: "storage: {backend: aws, aws: {region: us-east-1, access_key_id: AK, secret_access_key: SK}}",
			want: storage.SelectionRequest{Type: storage.BackendAWS, Details: storage.S3Config{
				Region:      "us-east-1",
				Credentials: &storage.StaticCredentials{AccessKeyID: "AK", SecretAccessKey: "SK"},
			}},
		},
		{
			name: "aws default chain",
			yaml: "storage: {backend: AWS, aws: {region: eu-west-1}}",
			want: storage.SelectionRequest{Type: storage.BackendAWS, Details: storage.S3Config{Region: "eu-west-1"}},
		},
		{
			name: "oci",
			yaml: "storage: {backend: OCI, oci: {region: us-phoenix-1, namespace: ns, access_key_id: AK, secret_access_key: SK}}",
			want: storage.SelectionRequest{Type: storage.BackendOCI, Details: storage.OCIConfig{
				Region:      "us-phoenix-1",
				Namespace:   "ns",
				Credentials: &storage.StaticCredentials{AccessKeyID: "AK", SecretAccessKey: "SK"},
			}},
		},
		{
			name: "azure",
			yaml: "storage: {backend: azure, azure: {account_name: acct, account_key: key}}",
			want: storage.SelectionRequest{Type: storage.BackendAzure, Details: storage.AzureConfig{
				AccountName: "acct", AccountKey: "key", EndpointSuffix: "core.windows.net",
			}},
		},
		{
			name: "dropbox",
			yaml: "storage: {backend: DROPBOX, dropbox: {client_id: id, client_secret: cs, refresh_token: rt}}",
			want: storage.SelectionRequest{Type: storage.BackendDropbox, Details: storage.DropboxConfig{
				ClientID: "id", ClientSecret: "cs", RefreshToken: "rt",
			}},
		},
		{
			name: "ftp",
			yaml: "storage: {backend: ftp, ftp: {host: ftp.local, username: u, password: p}}",
			want: storage.SelectionRequest{Type: storage.BackendFTP, Details: storage.FTPConfig{
				Host: "ftp.local", Port: 21, Username: "u", Password: "p",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			req, err := cfg.Storage.SelectionRequest()
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestLoadFallsBackToExample(t *testing.T) {
	dir := t.TempDir()
	example := filepath.Join(dir, "bleepbridge.example.yaml")
	require.NoError(t, os.WriteFile(example, []byte("server: {port: 9100}\n"), 0o644))

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadMissingEverywhere(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
