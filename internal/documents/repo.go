package documents

import "context"

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	FindByID(ctx context.Context, id string) (Document, error)
	// Save replaces the mutable fields (the analysis) of an existing document.
	Save(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]Document, error)
	List(ctx context.Context, limit, offset int) ([]Document, error)
	Count(ctx context.Context, pred Predicate) (int, error)
}
