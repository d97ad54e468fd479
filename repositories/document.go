//go:generate go run go.uber.org/mock/mockgen -source=document.go -destination=../mocks/mock_document_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"live-docs/domain"
	"live-docs/errors"
)

type IDocumentRepository interface {
	Create(ctx context.Context, ownerID, title, content string) (domain.Document, error)
	Get(ctx context.Context, documentID string) (domain.Document, error)
	Update(ctx context.Context, documentID, content string) error
	Rename(ctx context.Context, documentID, title string) error
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, documentID string) error
	Search(ctx context.Context, terms string, limit int) ([]domain.Document, error)
}

// DocumentRepository stores documents in BadgerDB and mirrors their title
// and content into a Bluge index for full-text search. The index is
// best-effort: a failed index write is logged, the Badger record stays the
// source of truth.
type DocumentRepository struct {
	db    *badger.DB
	index *bluge.Writer
	log   *slog.Logger
}

func NewDocumentRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, index: index, log: log}
}

func documentKey(id string) []byte {
	return []byte("doc:" + id)
}

func (r *DocumentRepository) Create(ctx context.Context, ownerID, title, content string) (domain.Document, error) {
	now := time.Now().UTC()
	doc := domain.Document{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		Language:  detectLanguage(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.put(doc); err != nil {
		return domain.Document{}, err
	}
	r.reindex(doc)
	return doc, nil
}

func (r *DocumentRepository) Get(_ context.Context, documentID string) (domain.Document, error) {
	var doc domain.Document
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(documentID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return domain.Document{}, errors.ErrDocumentNotFound
		}
		return domain.Document{}, err
	}
	return doc, nil
}

// Update replaces the document content, refreshes the detected language
// and bumps the update timestamp. This is the operation the save
// coordinator calls.
func (r *DocumentRepository) Update(ctx context.Context, documentID, content string) error {
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return err
	}
	doc.Content = content
	doc.Language = detectLanguage(content)
	doc.UpdatedAt = time.Now().UTC()
	if err := r.put(doc); err != nil {
		return err
	}
	r.reindex(doc)
	return nil
}

func (r *DocumentRepository) Rename(ctx context.Context, documentID, title string) error {
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return err
	}
	doc.Title = title
	doc.UpdatedAt = time.Now().UTC()
	if err := r.put(doc); err != nil {
		return err
	}
	r.reindex(doc)
	return nil
}

// List returns every stored document via a prefix scan, content included.
func (r *DocumentRepository) List(_ context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("doc:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var doc domain.Document
				if err := json.Unmarshal(val, &doc); err != nil {
					return err
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return docs, err
}

func (r *DocumentRepository) Delete(_ context.Context, documentID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(documentKey(documentID))
	})
	if err != nil {
		return err
	}
	if r.index != nil {
		if err := r.index.Delete(bluge.Identifier(documentID)); err != nil {
			r.log.Warn("index delete failed", "document_id", documentID, "error", err)
		}
	}
	return nil
}

// Search queries the Bluge index over title and content and resolves the
// matching IDs back to full Badger records.
func (r *DocumentRepository) Search(ctx context.Context, terms string, limit int) ([]domain.Document, error) {
	if r.index == nil || strings.TrimSpace(terms) == "" {
		return nil, nil
	}

	reader, err := r.index.Reader()
	if err != nil {
		return nil, fmt.Errorf("index reader: %w", err)
	}
	defer reader.Close()

	query := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(terms).SetField("title")).
		AddShould(bluge.NewMatchQuery(terms).SetField("content"))
	query.SetMinShould(1)

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	var docs []domain.Document
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var id string
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				id = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		doc, err := r.Get(ctx, id)
		if err != nil {
			// Tombstone in the index, the record was deleted meanwhile.
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *DocumentRepository) put(doc domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(doc.ID), data)
	})
}

func (r *DocumentRepository) reindex(doc domain.Document) {
	if r.index == nil {
		return
	}
	indexed := bluge.NewDocument(doc.ID).
		AddField(bluge.NewTextField("title", doc.Title).StoreValue()).
		AddField(bluge.NewTextField("content", doc.Content))
	if err := r.index.Update(indexed.ID(), indexed); err != nil {
		r.log.Warn("index update failed", "document_id", doc.ID, "error", err)
	}
}

// detectLanguage tags the document with its dominant language; empty or
// too-ambiguous content is left untagged.
func detectLanguage(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	info := whatlanggo.Detect(trimmed)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
