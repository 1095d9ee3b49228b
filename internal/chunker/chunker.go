package chunker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/ragcookbook/server/internal/logger"
	"github.com/google/uuid"
)

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		MaxTokens:       800,
		OverlapTokens:   100,
		PreserveHeaders: true,
	}
}

// splits one markdown document into header-delimited chunks; sections
// larger than opts.MaxTokens are split on paragraph boundaries with
// opts.OverlapTokens of overlap
func ChunkDocument(content, docURI string, opts ChunkOptions) []Chunk {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOptions().MaxTokens
	}

	metadata := extractFrontmatter(content)
	content = frontmatterRegex.ReplaceAllString(content, "")
	content = importRegex.ReplaceAllString(content, "")
	content = stripMDXComponents(content)

	var chunks []Chunk

	add := func(section, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}

		chunks = append(chunks, Chunk{
			ID:       chunkID(docURI, len(chunks)),
			DocURI:   docURI,
			Section:  section,
			Content:  text,
			Metadata: metadata,
		})
	}

	for _, section := range splitByHeaders(content) {
		if estimateTokens(section.Content) <= opts.MaxTokens {
			add(section.Title, section.Content)
			continue
		}

		for _, piece := range splitLargeSection(section, opts) {
			add(section.Title, piece)
		}
	}

	return chunks
}

// stable across re-ingestion so upserts replace earlier rows
func chunkID(docURI string, n int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docURI+"#"+strconv.Itoa(n))).String()
}

// discovers all markdown files under root and chunks them. doc URIs are
// baseURI joined with the file's slash-separated relative path. returns
// chunks and one error per file that failed
func ChunkDocuments(root, baseURI string, opts ChunkOptions) ([]Chunk, []error) {
	var (
		allChunks []Chunk
		errs      []error
		fileCount int
	)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("error accessing path", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("path %s: %w", path, err))

			return nil
		}

		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".mdx" {
			return nil
		}

		fileCount++

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("failed to read file", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("read %s: %w", path, err))

			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = filepath.Base(path)
		}

		allChunks = append(allChunks, ChunkDocument(string(content), docURI(baseURI, rel), opts)...)

		return nil
	})

	if walkErr != nil {
		errs = append(errs, fmt.Errorf("walk error: %w", walkErr))
	}

	logger.Info("processed markdown files",
		"file_count", fileCount,
		"chunks_generated", len(allChunks),
		"errors", len(errs),
	)

	return allChunks, errs
}

func docURI(baseURI, rel string) string {
	rel = filepath.ToSlash(rel)
	if baseURI == "" {
		return rel
	}

	return strings.TrimRight(baseURI, "/") + "/" + rel
}
