package service

import (
	"context"
	"sync"

	"ai-minutes-client/internal/dto"
	"ai-minutes-client/internal/entity"
	"ai-minutes-client/internal/pkg/logger"
	"ai-minutes-client/internal/transport"
)

type IDocumentService interface {
	FetchAll(ctx context.Context) bool
	FetchByID(ctx context.Context, id string) *entity.Document
	Update(ctx context.Context, id string, patch *dto.UpdateDocumentRequest) *entity.Document
	DeleteByID(ctx context.Context, id string) bool
	Documents() []entity.Document
	Current() *entity.Document
	Err() string
	Loading() bool
	ClearError()
}

// listKey sequences FetchAll separately from per-document operations.
const listKey = "\x00list"

// documentService keeps the document list and the open document consistent
// with the remote service. Responses are guarded by per-key sequence
// numbers: only the reply to the most recently issued request for a key may
// touch local state, so a stale reply that arrives late becomes a no-op
// instead of overwriting newer data.
type documentService struct {
	client *transport.Client
	log    logger.ILogger

	mu        sync.Mutex
	documents []entity.Document
	current   *entity.Document
	loading   bool
	errMsg    string
	seq       map[string]uint64
}

func NewDocumentService(client *transport.Client, log logger.ILogger) IDocumentService {
	return &documentService{
		client: client,
		log:    log,
		seq:    make(map[string]uint64),
	}
}

// issue registers a new in-flight request for key and returns its ticket.
func (s *documentService) issue(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[key]++
	s.loading = true
	return s.seq[key]
}

// isLatest must be called under s.mu.
func (s *documentService) isLatest(key string, ticket uint64) bool {
	return s.seq[key] == ticket
}

// FetchAll replaces the list wholesale with the server's current order.
// The open document is never touched; failure leaves the list unchanged.
func (s *documentService) FetchAll(ctx context.Context) bool {
	ticket := s.issue(listKey)

	var docs []entity.Document
	err := s.client.Get(ctx, "/summary", &docs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if !s.isLatest(listKey, ticket) {
		return false
	}
	if err != nil {
		s.errMsg = userMessage(err, "Failed to fetch documents")
		return false
	}
	s.documents = docs
	s.errMsg = ""
	return true
}

// FetchByID sets the open document to the server's version. Failure leaves
// the previous open document in place.
func (s *documentService) FetchByID(ctx context.Context, id string) *entity.Document {
	ticket := s.issue(id)

	var doc entity.Document
	err := s.client.Get(ctx, "/summary/"+id, &doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if !s.isLatest(id, ticket) {
		return nil
	}
	if err != nil {
		s.errMsg = userMessage(err, "Failed to fetch document")
		return nil
	}
	s.current = &doc
	s.errMsg = ""
	copied := doc
	return &copied
}

// Update sends the patch and, on success, installs the server's returned
// representation in both the list entry and the open document so the two
// views cannot diverge. On failure neither view is mutated.
func (s *documentService) Update(ctx context.Context, id string, patch *dto.UpdateDocumentRequest) *entity.Document {
	ticket := s.issue(id)

	var updated entity.Document
	err := s.client.Put(ctx, "/summary/"+id, patch, &updated)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if !s.isLatest(id, ticket) {
		return nil
	}
	if err != nil {
		s.errMsg = userMessage(err, "Failed to update document")
		return nil
	}

	for i := range s.documents {
		if s.documents[i].Id == id {
			s.documents[i] = updated
			break
		}
	}
	if s.current != nil && s.current.Id == id {
		server := updated
		s.current = &server
	}
	s.errMsg = ""
	copied := updated
	return &copied
}

// DeleteByID performs the remote delete first and mutates local state only
// on confirmed success. There is no undo, so no optimistic removal.
func (s *documentService) DeleteByID(ctx context.Context, id string) bool {
	ticket := s.issue(id)

	err := s.client.Delete(ctx, "/summary/"+id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if !s.isLatest(id, ticket) {
		return false
	}
	if err != nil {
		s.errMsg = userMessage(err, "Failed to delete document")
		return false
	}

	kept := s.documents[:0]
	for _, doc := range s.documents {
		if doc.Id != id {
			kept = append(kept, doc)
		}
	}
	s.documents = kept
	if s.current != nil && s.current.Id == id {
		s.current = nil
	}
	s.errMsg = ""
	s.log.Info("documents", "document deleted", map[string]interface{}{"id": id})
	return true
}

// Documents returns a copy of the list in arrival order. Display ordering
// is the caller's concern.
func (s *documentService) Documents() []entity.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Document, len(s.documents))
	copy(out, s.documents)
	return out
}

func (s *documentService) Current() *entity.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

func (s *documentService) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *documentService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *documentService) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}
