package storage

import (
	"context"
	"io"
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
)

const (
	DriveURLPrefix  = "https://drive.google.com/"
	DefaultDriveAPI = "https://www.googleapis.com/drive/v3"
)

var driveURL = regexp.MustCompile(`^https://drive.google.com/file/d/([^/]+)/view(?:\?.*)?$`)

// DriveConfig authenticates against the Drive v3 API with either an OAuth
// bearer token or an API key.
type DriveConfig struct {
	ClientConfig
	BaseURL string
	Token   string
	APIKey  string
}

// GoogleDrive reads files shared as drive.google.com/file/d/<id>/view links.
type GoogleDrive struct {
	client *resty.Client
	apiKey string
}

func NewGoogleDrive(cfg DriveConfig) *GoogleDrive {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDriveAPI
	}
	client := newClient(cfg.ClientConfig).SetBaseURL(cfg.BaseURL)
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &GoogleDrive{client: client, apiKey: cfg.APIKey}
}

// DriveFileID extracts the file id of a Drive view link.
func DriveFileID(url string) (string, error) {
	m := driveURL.FindStringSubmatch(url)
	if m == nil {
		return "", errors.Wrapf(ErrUnsupported, "unrecognized URL for Google Drive, expecting %s got: %s", driveURL, url)
	}
	return m[1], nil
}

type driveFile struct {
	Name          string `json:"name"`
	FileExtension string `json:"fileExtension"`
	MD5Checksum   string `json:"md5Checksum"`
}

func (g *GoogleDrive) request(ctx context.Context, url string) (*resty.Request, error) {
	id, err := DriveFileID(url)
	if err != nil {
		return nil, err
	}
	req := g.client.R().SetContext(ctx).SetPathParam("id", id)
	if g.apiKey != "" {
		req.SetQueryParam("key", g.apiKey)
	}
	return req, nil
}

func (g *GoogleDrive) Metadata(ctx context.Context, url string) (Metadata, error) {
	req, err := g.request(ctx, url)
	if err != nil {
		return Metadata{}, err
	}
	var f driveFile
	resp, err := req.SetQueryParam("fields", "name,fileExtension,md5Checksum").
		SetResult(&f).
		Get("/files/{id}")
	if err != nil {
		return Metadata{}, errors.Wrapf(err, "metadata %s", url)
	}
	if resp.IsError() {
		return Metadata{}, statusError(resp, "metadata")
	}
	return Metadata{Filename: f.Name, FileExtension: f.FileExtension, MD5: f.MD5Checksum}, nil
}

func (g *GoogleDrive) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := g.request(ctx, url)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetQueryParam("alt", "media").
		SetDoNotParseResponse(true).
		Get("/files/{id}")
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", url)
	}
	return rawBody(resp, "download")
}
