package gdrive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	drive "google.golang.org/api/drive/v3"

	"jarvis-agent/internal/domain"
)

type exportCall struct {
	fileID   string
	mimeType string
}

type fakeFiles struct {
	pages     map[string]*drive.FileList
	queries   []string
	exports   []exportCall
	downloads []string
	body      string
	err       error
}

func (f *fakeFiles) List(_ context.Context, q, pageToken string, _ int64) (*drive.FileList, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[pageToken], nil
}

func (f *fakeFiles) Export(_ context.Context, fileID, mimeType string) (*http.Response, error) {
	f.exports = append(f.exports, exportCall{fileID: fileID, mimeType: mimeType})
	return f.response()
}

func (f *fakeFiles) Download(_ context.Context, fileID string) (*http.Response, error) {
	f.downloads = append(f.downloads, fileID)
	return f.response()
}

func (f *fakeFiles) response() (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestListFolders(t *testing.T) {
	api := &fakeFiles{pages: map[string]*drive.FileList{
		"": {
			Files:         []*drive.File{{Id: "f1", Name: "Projeto Beta", MimeType: domain.FolderMimeType}},
			NextPageToken: "next",
		},
	}}
	c, err := newClient(api)
	require.NoError(t, err)

	page, err := c.ListFolders(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "next", page.NextPageToken)
	require.Equal(t, []domain.Resource{{ID: "f1", Name: "Projeto Beta", MimeType: domain.FolderMimeType}}, page.Resources)
	require.Equal(t, []string{"mimeType = 'application/vnd.google-apps.folder' and trashed = false"}, api.queries)
}

func TestListChildren_FollowsPages(t *testing.T) {
	api := &fakeFiles{pages: map[string]*drive.FileList{
		"":   {Files: []*drive.File{{Id: "a", Name: "ata.txt", MimeType: "text/plain"}}, NextPageToken: "p2"},
		"p2": {Files: []*drive.File{{Id: "b", Name: "Plano", MimeType: docMimeType}}},
	}}
	c, err := newClient(api)
	require.NoError(t, err)

	children, err := c.ListChildren(context.Background(), "it's")
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, "Plano", children[1].Name)
	require.Equal(t, `'it\'s' in parents and trashed = false`, api.queries[0])
}

func TestListChildren_EmptyFolder(t *testing.T) {
	c, err := newClient(&fakeFiles{pages: map[string]*drive.FileList{"": {}}})
	require.NoError(t, err)

	children, err := c.ListChildren(context.Background(), "f1")
	require.NoError(t, err)
	require.NotNil(t, children)
	require.Empty(t, children)
}

func TestListChildren_Error(t *testing.T) {
	c, err := newClient(&fakeFiles{err: errors.New("boom")})
	require.NoError(t, err)

	_, err = c.ListChildren(context.Background(), "f1")
	require.ErrorContains(t, err, "gdrive: ListChildren: boom")
}

func TestReadPrefix_ExportsGoogleFormats(t *testing.T) {
	api := &fakeFiles{body: "conteúdo do documento"}
	c, err := newClient(api)
	require.NoError(t, err)

	text, err := c.ReadPrefix(context.Background(), domain.Resource{ID: "d1", MimeType: docMimeType}, 8)
	require.NoError(t, err)
	require.Equal(t, "conteúdo", text)

	_, err = c.ReadPrefix(context.Background(), domain.Resource{ID: "s1", MimeType: sheetMimeType}, 100)
	require.NoError(t, err)

	require.Equal(t, []exportCall{{"d1", "text/plain"}, {"s1", "text/csv"}}, api.exports)
}

func TestReadPrefix_DownloadsText(t *testing.T) {
	api := &fakeFiles{body: "linha 1\nlinha 2"}
	c, err := newClient(api)
	require.NoError(t, err)

	text, err := c.ReadPrefix(context.Background(), domain.Resource{ID: "t1", MimeType: "text/markdown"}, 100)
	require.NoError(t, err)
	require.Equal(t, "linha 1\nlinha 2", text)
	require.Equal(t, []string{"t1"}, api.downloads)
}

func TestReadPrefix_Unsupported(t *testing.T) {
	api := &fakeFiles{}
	c, err := newClient(api)
	require.NoError(t, err)

	_, err = c.ReadPrefix(context.Background(), domain.Resource{ID: "p1", MimeType: "application/pdf"}, 100)
	require.ErrorIs(t, err, ErrUnsupported)
	require.Empty(t, api.downloads)
}

func TestClientEmail(t *testing.T) {
	email, err := ClientEmail([]byte(`{"type":"service_account","client_email":"jarvis@proj.iam.gserviceaccount.com"}`))
	require.NoError(t, err)
	require.Equal(t, "jarvis@proj.iam.gserviceaccount.com", email)

	_, err = ClientEmail([]byte(`{"type":"service_account"}`))
	require.Error(t, err)

	_, err = ClientEmail([]byte(`not json`))
	require.Error(t, err)
}

func TestServiceAccountEmailOption(t *testing.T) {
	c, err := newClient(&fakeFiles{}, WithServiceAccountEmail(" bot@x.iam "))
	require.NoError(t, err)
	require.Equal(t, "bot@x.iam", c.ServiceAccountEmail())
}
