package storage

import "strings"

// BackendType is the discriminant tag that selects an adapter.
type BackendType string

const (
	BackendAWS     BackendType = "AWS"
	BackendAzure   BackendType = "AZURE"
	BackendDropbox BackendType = "DROPBOX"
	BackendFTP     BackendType = "FTP"
	BackendOCI     BackendType = "OCI"
)

// ParseBackendType maps a tag to its BackendType. Matching is
// case-insensitive and "S3" is accepted as an alias for AWS.
func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AWS", "S3":
		return BackendAWS, nil
	case "AZURE":
		return BackendAzure, nil
	case "DROPBOX":
		return BackendDropbox, nil
	case "FTP":
		return BackendFTP, nil
	case "OCI":
		return BackendOCI, nil
	default:
		return "", &UnsupportedBackendError{Type: s}
	}
}

// StaticCredentials is an access key pair for the S3-speaking backends.
type StaticCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// BackendConfig is implemented by exactly one configuration struct per
// backend. The method ties each variant to its tag so New can reject a
// request whose Details belong to another backend.
type BackendConfig interface {
	BackendType() BackendType
}

// S3Config configures the AWS S3 adapter. Nil Credentials fall back to the
// default AWS credential chain.
type S3Config struct {
	Region      string
	Credentials *StaticCredentials
}

// OCIConfig configures the OCI adapter, which speaks to Object Storage
// through its S3 compatibility endpoint.
type OCIConfig struct {
	Region      string
	Namespace   string
	Credentials *StaticCredentials
}

// AzureConfig configures the Azure Blob Storage adapter.
type AzureConfig struct {
	AccountName    string
	AccountKey     string
	EndpointSuffix string
}

// DropboxConfig configures the Dropbox adapter.
type DropboxConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// FTPConfig configures the FTP adapter.
type FTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (S3Config) BackendType() BackendType      { return BackendAWS }
func (OCIConfig) BackendType() BackendType     { return BackendOCI }
func (AzureConfig) BackendType() BackendType   { return BackendAzure }
func (DropboxConfig) BackendType() BackendType { return BackendDropbox }
func (FTPConfig) BackendType() BackendType     { return BackendFTP }
