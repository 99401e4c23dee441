// Package gdrive is the file catalog backed by Google Drive v3.
package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"jarvis-agent/internal/domain"
)

const (
	docMimeType    = "application/vnd.google-apps.document"
	sheetMimeType  = "application/vnd.google-apps.spreadsheet"
	slidesMimeType = "application/vnd.google-apps.presentation"

	listFields = "nextPageToken, files(id, name, mimeType)"

	defaultPageSize = 100
	maxChildPages   = 10
)

// ErrUnsupported is returned by ReadPrefix for binary or unknown formats.
var ErrUnsupported = errors.New("gdrive: unsupported file type")

// filesAPI is the slice of the Drive service the client uses.
type filesAPI interface {
	List(ctx context.Context, q, pageToken string, pageSize int64) (*drive.FileList, error)
	Export(ctx context.Context, fileID, mimeType string) (*http.Response, error)
	Download(ctx context.Context, fileID string) (*http.Response, error)
}

type serviceAPI struct {
	svc *drive.Service
}

func (a serviceAPI) List(ctx context.Context, q, pageToken string, pageSize int64) (*drive.FileList, error) {
	call := a.svc.Files.List().
		Q(q).
		Fields(listFields).
		PageSize(pageSize).
		OrderBy("folder,name").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

func (a serviceAPI) Export(ctx context.Context, fileID, mimeType string) (*http.Response, error) {
	return a.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
}

func (a serviceAPI) Download(ctx context.Context, fileID string) (*http.Response, error) {
	return a.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
}

type Client struct {
	api      filesAPI
	email    string
	pageSize int64
}

type Option func(*Client)

// WithServiceAccountEmail sets the identity reported to users when a folder
// is not visible.
func WithServiceAccountEmail(email string) Option {
	return func(c *Client) {
		c.email = strings.TrimSpace(email)
	}
}

// WithPageSize overrides the number of entries requested per page.
func WithPageSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewService builds a read-only Drive service from a service-account JSON
// document.
func NewService(ctx context.Context, credentialsJSON []byte) (*drive.Service, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("gdrive: NewService: %w", err)
	}
	return svc, nil
}

// ClientEmail extracts client_email from a service-account JSON document.
func ClientEmail(credentialsJSON []byte) (string, error) {
	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(credentialsJSON, &creds); err != nil {
		return "", fmt.Errorf("gdrive: parse credentials: %w", err)
	}
	if creds.ClientEmail == "" {
		return "", errors.New("gdrive: credentials have no client_email")
	}
	return creds.ClientEmail, nil
}

func New(svc *drive.Service, opts ...Option) (*Client, error) {
	if svc == nil {
		return nil, errors.New("gdrive: service must not be nil")
	}
	return newClient(serviceAPI{svc: svc}, opts...)
}

func newClient(api filesAPI, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("gdrive: api must not be nil")
	}
	c := &Client{api: api, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ServiceAccountEmail() string {
	return c.email
}

// ListFolders returns one page of every folder visible to the service
// account.
func (c *Client) ListFolders(ctx context.Context, pageToken string) (domain.ResourcePage, error) {
	q := fmt.Sprintf("mimeType = '%s' and trashed = false", domain.FolderMimeType)
	res, err := c.api.List(ctx, q, pageToken, c.pageSize)
	if err != nil {
		return domain.ResourcePage{}, fmt.Errorf("gdrive: ListFolders: %w", err)
	}
	return domain.ResourcePage{Resources: toResources(res.Files), NextPageToken: res.NextPageToken}, nil
}

// ListChildren returns the direct, non-trashed children of a folder.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]domain.Resource, error) {
	if strings.TrimSpace(folderID) == "" {
		return nil, errors.New("gdrive: ListChildren: folder id is required")
	}
	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))

	out := []domain.Resource{}
	pageToken := ""
	for page := 0; page < maxChildPages; page++ {
		res, err := c.api.List(ctx, q, pageToken, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("gdrive: ListChildren: %w", err)
		}
		out = append(out, toResources(res.Files)...)
		if res.NextPageToken == "" || res.NextPageToken == pageToken {
			break
		}
		pageToken = res.NextPageToken
	}
	return out, nil
}

// ReadPrefix returns at most maxChars characters of a document's text.
// Google Docs and Slides are exported as plain text, Sheets as CSV, and
// text-like uploads are downloaded directly.
func (c *Client) ReadPrefix(ctx context.Context, res domain.Resource, maxChars int) (string, error) {
	if maxChars <= 0 {
		return "", nil
	}
	var (
		resp *http.Response
		err  error
	)
	switch {
	case res.MimeType == docMimeType, res.MimeType == slidesMimeType:
		resp, err = c.api.Export(ctx, res.ID, "text/plain")
	case res.MimeType == sheetMimeType:
		resp, err = c.api.Export(ctx, res.ID, "text/csv")
	case isText(res.MimeType):
		resp, err = c.api.Download(ctx, res.ID)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, res.MimeType)
	}
	if err != nil {
		return "", fmt.Errorf("gdrive: read %s: %w", res.Name, err)
	}
	defer resp.Body.Close()

	// Four bytes per character covers any UTF-8 input.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxChars)*4))
	if err != nil {
		return "", fmt.Errorf("gdrive: read %s: %w", res.Name, err)
	}
	return truncateRunes(strings.ToValidUTF8(string(raw), ""), maxChars), nil
}

func isText(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return true
	case mimeType == "application/json", mimeType == "application/xml":
		return true
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func toResources(files []*drive.File) []domain.Resource {
	out := make([]domain.Resource, 0, len(files))
	for _, f := range files {
		if f == nil {
			continue
		}
		out = append(out, domain.Resource{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
	}
	return out
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
