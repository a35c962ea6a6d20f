// Package bleve implements retrieval.Retriever with an in-memory bleve full-text
// index over knowledge files.
package bleve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/retrieval"
)

const maxChunkRunes = 1200

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	htmlTag        = regexp.MustCompile(`(?s)<script.*?</script>|<style.*?</style>|<[^>]+>`)
	spaces         = regexp.MustCompile(`[ \t]+`)
)

// Extensions lists the file types IngestDir indexes.
var Extensions = []string{".txt", ".md", ".csv", ".html"}

var _ retrieval.Retriever = (*Index)(nil)

// Index is a concurrency-safe in-memory passage index.
type Index struct {
	idx bleve.Index

	mu    sync.Mutex
	files map[string]ingested
}

type ingested struct {
	hash string
	ids  []string
}

// New creates an empty index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{idx: idx, files: make(map[string]ingested)}, nil
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}

// Len returns the number of indexed passages.
func (x *Index) Len() int {
	n, err := x.idx.DocCount()
	if err != nil {
		return 0
	}
	return int(n)
}

func chunkID(source, chunk string) string {
	sum := sha256.Sum256([]byte(source + "\x00" + chunk))
	return hex.EncodeToString(sum[:])
}

// Chunks splits text into paragraph passages no longer than a fixed rune budget.
func Chunks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		out = append(out, splitLong(para)...)
	}
	return out
}

func splitLong(para string) []string {
	if len([]rune(para)) <= maxChunkRunes {
		return []string{para}
	}
	var (
		out []string
		b   strings.Builder
	)
	for _, word := range strings.Fields(para) {
		if b.Len() > 0 && len([]rune(b.String()))+1+len([]rune(word)) > maxChunkRunes {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// AddDocument indexes text under source and returns the number of passages.
// Passage ids derive from the content so re-adding the same text is idempotent.
func (x *Index) AddDocument(source, text string) (int, error) {
	ids, err := x.replace(source, text, nil)
	return len(ids), err
}

// replace indexes the passages of text and removes the stale ids in one batch.
func (x *Index) replace(source, text string, stale []string) ([]string, error) {
	chunks := Chunks(text)
	batch := x.idx.NewBatch()
	ids := make([]string, 0, len(chunks))
	fresh := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		id := chunkID(source, c)
		doc := map[string]any{"source": source, "text": c}
		if err := batch.Index(id, doc); err != nil {
			return nil, fmt.Errorf("index %s: %w", source, err)
		}
		ids = append(ids, id)
		fresh[id] = struct{}{}
	}
	for _, id := range stale {
		if _, ok := fresh[id]; !ok {
			batch.Delete(id)
		}
	}
	if batch.Size() == 0 {
		return ids, nil
	}
	if err := x.idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("index %s: %w", source, err)
	}
	return ids, nil
}

// IngestStats summarizes an IngestDir run.
type IngestStats struct {
	Files   int
	Skipped int
	Chunks  int
}

// IngestDir indexes every supported file under dir. Files whose content hash has
// not changed since the last ingestion are skipped.
func (x *Index) IngestDir(ctx context.Context, dir string) (IngestStats, error) {
	var stats IngestStats
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !supported(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])

		x.mu.Lock()
		prev, seen := x.files[path]
		x.mu.Unlock()
		if seen && prev.hash == hash {
			stats.Skipped++
			return nil
		}

		text := string(data)
		if strings.EqualFold(filepath.Ext(path), ".html") {
			text = stripHTML(text)
		}
		ids, err := x.replace(path, text, prev.ids)
		if err != nil {
			return err
		}
		n := len(ids)

		x.mu.Lock()
		x.files[path] = ingested{hash: hash, ids: ids}
		x.mu.Unlock()

		stats.Files++
		stats.Chunks += n
		slog.DebugContext(ctx, "ingested knowledge file",
			slogx.LoggerName("retrieval.bleve"),
			slog.String("path", path),
			slog.Int("chunks", n),
		)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("ingest %s: %w", dir, err)
	}
	return stats, nil
}

func supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func stripHTML(s string) string {
	s = htmlTag.ReplaceAllString(s, " ")
	s = spaces.ReplaceAllString(s, " ")
	return s
}

// Retrieve returns the topK best matching passages joined by newlines.
func (x *Index) Retrieve(ctx context.Context, query string, topK int) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequestOptions(q, topK, 0, false)
	req.Fields = []string{"text"}

	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}

	passages := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if text, ok := hit.Fields["text"].(string); ok && text != "" {
			passages = append(passages, text)
		}
	}
	return strings.Join(passages, "\n"), nil
}
