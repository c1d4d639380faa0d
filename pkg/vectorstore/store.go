// Package vectorstore implements C6 (spec.md §4.6): an embedded SQLite
// database, one file per process, holding seven named collections of
// embedded documents. Cosine-distance retrieval relies on the
// sqlite-vec extension (see register_sqlite_vec.go, built under the
// sqlite_vec build tag); without that tag the store still opens and
// upserts normally, but Query's vec_distance_cosine calls will fail
// since the scalar function is never registered.
package vectorstore

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Collection names the seven named collections from spec.md §4.6.
type Collection string

const (
	CollectionDomainKnowledge    Collection = "domain_knowledge"
	CollectionPageContext        Collection = "page_context"
	CollectionFixHistory         Collection = "fix_history"
	CollectionAnalysisCache      Collection = "analysis_cache"
	CollectionSiteStructure      Collection = "site_structure"
	CollectionSitemapEntries     Collection = "sitemap_entries"
	CollectionSuggestionTracking Collection = "suggestion_tracking"
)

// AllCollections lists every collection the store manages, in the
// order SyncDomain processes them.
var AllCollections = []Collection{
	CollectionDomainKnowledge,
	CollectionPageContext,
	CollectionFixHistory,
	CollectionAnalysisCache,
	CollectionSiteStructure,
	CollectionSitemapEntries,
	CollectionSuggestionTracking,
}

func tableName(c Collection) string { return "vec_" + string(c) }

// Store is an embedded SQLite database holding one table per
// collection, each row keyed by a deterministic id and carrying a
// domain_id column for cheap per-domain filtering.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open creates (or opens) the SQLite database file under dataDir and
// ensures every collection table exists.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("vectorstore: creating data dir: %w", err)
	}
	path := filepath.Join(dataDir, "seocore_vectors.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("vectorstore: pinging %s: %w", path, err)
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	for _, c := range AllCollections {
		stmt := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         TEXT PRIMARY KEY,
				domain_id  INTEGER NOT NULL,
				document   TEXT NOT NULL,
				metadata   TEXT NOT NULL DEFAULT '{}',
				embedding  BLOB NOT NULL,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`, tableName(c))
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("vectorstore: creating table for %s: %w", c, err)
		}
		idxStmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_domain ON %s (domain_id)`, tableName(c), tableName(c))
		if _, err := s.db.Exec(idxStmt); err != nil {
			return fmt.Errorf("vectorstore: creating domain index for %s: %w", c, err)
		}
	}
	return nil
}

// Close releases the underlying SQLite file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Document is one upsertable row: a deterministic id, the domain it
// belongs to, free-form metadata, the rendered text, and its embedding.
type Document struct {
	ID        string
	DomainID  uint
	Document  string
	Metadata  map[string]any
	Embedding []float32
}

// Upsert writes doc into collection, replacing any existing row with
// the same id (re-embedding is idempotent, spec.md §4.6).
func (s *Store) Upsert(collection Collection, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("vectorstore: encoding metadata: %w", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, domain_id, document, metadata, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			domain_id = excluded.domain_id,
			document = excluded.document,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			updated_at = CURRENT_TIMESTAMP
	`, tableName(collection))

	_, err = s.db.Exec(stmt, doc.ID, doc.DomainID, doc.Document, string(metaJSON), encodeEmbedding(doc.Embedding))
	if err != nil {
		return fmt.Errorf("vectorstore: upserting %s into %s: %w", doc.ID, collection, err)
	}
	return nil
}

// DeleteDomain removes every row belonging to domainID from collection
// — used when a page/fix/suggestion is removed and its vector entry
// must not linger.
func (s *Store) DeleteDomain(collection Collection, domainID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE domain_id = ?`, tableName(collection))
	_, err := s.db.Exec(stmt, domainID)
	return err
}

// Delete removes a single row by id from collection.
func (s *Store) Delete(collection Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, tableName(collection))
	_, err := s.db.Exec(stmt, id)
	return err
}

// Match is one scored row returned from Query.
type Match struct {
	Collection Collection
	ID         string
	Document   string
	Metadata   map[string]any
	Distance   float64
}

// Query runs a cosine-distance KNN search against the given
// collections (all collections if empty), scoped to domainID, limited
// to n results per collection. This is the retrieval contract from
// spec.md §4.6: `query(text, domain_id, collections?, n)`.
func (s *Store) Query(queryEmbedding []float32, domainID uint, collections []Collection, n int) (map[Collection][]Match, error) {
	if n <= 0 {
		n = 5
	}
	if len(collections) == 0 {
		collections = AllCollections
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob := encodeEmbedding(queryEmbedding)
	results := make(map[Collection][]Match, len(collections))

	for _, c := range collections {
		stmt := fmt.Sprintf(`
			SELECT id, document, metadata, vec_distance_cosine(embedding, ?) AS distance
			FROM %s
			WHERE domain_id = ?
			ORDER BY distance ASC
			LIMIT ?
		`, tableName(c))

		rows, err := s.db.Query(stmt, blob, domainID, n)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: querying %s: %w", c, err)
		}

		var matches []Match
		for rows.Next() {
			var m Match
			var metaJSON string
			if err := rows.Scan(&m.ID, &m.Document, &metaJSON, &m.Distance); err != nil {
				rows.Close()
				return nil, fmt.Errorf("vectorstore: scanning %s row: %w", c, err)
			}
			m.Collection = c
			_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
			matches = append(matches, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("vectorstore: iterating %s: %w", c, err)
		}
		results[c] = matches
	}

	return results, nil
}

// encodeEmbedding serializes a float32 slice as a little-endian binary
// blob, the format sqlite-vec's vec_distance_cosine expects.
func encodeEmbedding(vec []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}
