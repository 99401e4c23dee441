package domain

// FolderMimeType marks folder entries in the file catalog.
const FolderMimeType = "application/vnd.google-apps.folder"

// Resource is an entry of the external file catalog.
type Resource struct {
	ID       string
	Name     string
	MimeType string
}

func (r Resource) IsFolder() bool {
	return r.MimeType == FolderMimeType
}

// ResourcePage is one page of a paginated catalog listing. An empty
// NextPageToken means the listing is complete.
type ResourcePage struct {
	Resources     []Resource
	NextPageToken string
}
