package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captured records which constructor New invoked and with what.
type captured struct {
	ctor string
	cfg  BackendConfig
}

// stubConstructors swaps the package constructors for recorders and restores
// them when the test ends.
func stubConstructors(t *testing.T) *captured {
	t.Helper()
	got := &captured{}
	fake := NewFTPClientWithDialer(FTPConfig{}, nil)

	origS3, origOCI, origAzure, origDropbox, origFTP := newS3Client, newOCIClient, newAzureClient, newDropboxClient, newFTPClient
	t.Cleanup(func() {
		newS3Client, newOCIClient, newAzureClient, newDropboxClient, newFTPClient = origS3, origOCI, origAzure, origDropbox, origFTP
	})

	newS3Client = func(_ context.Context, cfg S3Config) (ObjectStorageClient, error) {
		got.ctor, got.cfg = "s3", cfg
		return fake, nil
	}
	newOCIClient = func(_ context.Context, cfg OCIConfig) (ObjectStorageClient, error) {
		got.ctor, got.cfg = "oci", cfg
		return fake, nil
	}
	newAzureClient = func(_ context.Context, cfg AzureConfig) (ObjectStorageClient, error) {
		got.ctor, got.cfg = "azure", cfg
		return fake, nil
	}
	newDropboxClient = func(_ context.Context, cfg DropboxConfig) (ObjectStorageClient, error) {
		got.ctor, got.cfg = "dropbox", cfg
		return fake, nil
	}
	newFTPClient = func(_ context.Context, cfg FTPConfig) (ObjectStorageClient, error) {
		got.ctor, got.cfg = "ftp", cfg
		return fake, nil
	}
	return got
}

func TestNewDispatchesOnType(t *testing.T) {
	creds := &StaticCredentials{AccessKeyID: "testAccessKey", SecretAccessKey: "testSecretKey"}

	tests := []struct {
		name     string
		req      SelectionRequest
		wantCtor string
	}{
		{"aws", SelectionRequest{Type: BackendAWS, Details: S3Config{Region: "us-east-1", Credentials: creds}}, "s3"},
		{"aws alias", SelectionRequest{Type: "s3", Details: S3Config{Region: "us-east-1"}}, "s3"},
		{"oci", SelectionRequest{Type: BackendOCI, Details: OCIConfig{Region: "us-phoenix-1", Namespace: "testNamespace", Credentials: creds}}, "oci"},
		{"azure", SelectionRequest{Type: BackendAzure, Details: AzureConfig{AccountName: "a", AccountKey: "k", EndpointSuffix: "core.windows.net"}}, "azure"},
		{"dropbox", SelectionRequest{Type: BackendDropbox, Details: DropboxConfig{ClientID: "id", ClientSecret: "s", RefreshToken: "r"}}, "dropbox"},
		{"ftp", SelectionRequest{Type: BackendFTP, Details: FTPConfig{Host: "h", Port: 21, Username: "u", Password: "p"}}, "ftp"},
		{"ftp pointer details", SelectionRequest{Type: "ftp", Details: &FTPConfig{Host: "h"}}, "ftp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stubConstructors(t)

			client, err := New(context.Background(), tt.req)
			require.NoError(t, err)
			require.NotNil(t, client)
			assert.Equal(t, tt.wantCtor, got.ctor)

			// Details are passed through unchanged.
			want := tt.req.Details
			if p, ok := want.(*FTPConfig); ok {
				want = *p
			}
			assert.Equal(t, want, got.cfg)
		})
	}
}

func TestNewUnsupportedType(t *testing.T) {
	got := stubConstructors(t)

	_, err := New(context.Background(), SelectionRequest{Type: "GCS", Details: S3Config{}})
	require.Error(t, err)

	var unsupported *UnsupportedBackendError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "GCS", unsupported.Type)
	assert.Empty(t, got.ctor, "no constructor should run")
}

func TestNewRejectsMismatchedDetails(t *testing.T) {
	got := stubConstructors(t)

	_, err := New(context.Background(), SelectionRequest{Type: BackendAzure, Details: S3Config{Region: "us-east-1"}})
	assert.ErrorIs(t, err, ErrConfigMismatch)

	_, err = New(context.Background(), SelectionRequest{Type: BackendFTP})
	assert.ErrorIs(t, err, ErrConfigMismatch)

	assert.Empty(t, got.ctor)
}

func TestNewWrapsConstructorError(t *testing.T) {
	stubConstructors(t)
	boom := errors.New("boom")
	newAzureClient = func(context.Context, AzureConfig) (ObjectStorageClient, error) {
		return nil, boom
	}

	_, err := New(context.Background(), SelectionRequest{Type: BackendAzure, Details: AzureConfig{}})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "creating AZURE storage client")
}

func TestNewBuildsRealClients(t *testing.T) {
	ctx := context.Background()

	client, err := New(ctx, SelectionRequest{Type: BackendFTP, Details: FTPConfig{Host: "localhost"}})
	require.NoError(t, err)
	assert.IsType(t, &FTPClient{}, client)

	client, err = New(ctx, SelectionRequest{Type: BackendDropbox, Details: DropboxConfig{ClientID: "id"}})
	require.NoError(t, err)
	assert.IsType(t, &DropboxClient{}, client)

	client, err = New(ctx, SelectionRequest{Type: BackendOCI, Details: OCIConfig{
		Region: "us-phoenix-1", Namespace: "ns",
		Credentials: &StaticCredentials{AccessKeyID: "a", SecretAccessKey: "b"},
	}})
	require.NoError(t, err)
	assert.IsType(t, &S3Client{}, client)

	// Each call builds a fresh adapter.
	again, err := New(ctx, SelectionRequest{Type: BackendFTP, Details: FTPConfig{Host: "localhost"}})
	require.NoError(t, err)
	first, _ := New(ctx, SelectionRequest{Type: BackendFTP, Details: FTPConfig{Host: "localhost"}})
	assert.NotSame(t, first, again)
}

func TestParseBackendType(t *testing.T) {
	for in, want := range map[string]BackendType{
		"AWS": BackendAWS, "aws": BackendAWS, "S3": BackendAWS,
		"Azure": BackendAzure, "dropbox": BackendDropbox, " FTP ": BackendFTP, "oci": BackendOCI,
	} {
		got, err := ParseBackendType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseBackendType("")
	var unsupported *UnsupportedBackendError
	assert.ErrorAs(t, err, &unsupported)
}
