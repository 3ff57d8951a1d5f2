package document

import (
	"context"

	domdoc "github.com/sagar-developer08/idp/internal/domain/document"
	"github.com/sagar-developer08/idp/internal/registry"
)

// Backend is the document listing and upload collaborator.
type Backend interface {
	ListDocuments(ctx context.Context) ([]byte, error)
	Upload(ctx context.Context, files []domdoc.File) ([]byte, error)
}

// Registry is the owned document state mutated by the service.
type Registry interface {
	AddPending(files []domdoc.File) []string
	ReplaceAllFromServer(raw []byte) error
	MarkNew(serverIDs ...string)
	Remove(id string) bool
	Get(id string) (domdoc.Document, bool)
	Clear()
	TickProgress() int
	Snapshot() registry.Snapshot
}
