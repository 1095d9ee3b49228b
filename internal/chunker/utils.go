package chunker

import (
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	frontmatterRegex  = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n`)
	headerRegex       = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	mdxComponentRegex = regexp.MustCompile(`<[A-Z]\w+[^>]*>.*?</[A-Z]\w+>|<[A-Z]\w+[^/>]*/>`)
	importRegex       = regexp.MustCompile(`(?m)^import\s+.*$`)
	fenceRegex        = regexp.MustCompile("^(```|~~~)")
)

// headers inside fenced code blocks do not start a section
func splitByHeaders(content string) []Section {
	var (
		sections []Section
		current  *Section
		inFence  bool
	)

	for _, line := range strings.Split(content, "\n") {
		if fenceRegex.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
		}

		matches := headerRegex.FindStringSubmatch(line)

		switch {
		case len(matches) > 0 && !inFence:
			if current != nil && strings.TrimSpace(current.Content) != "" {
				sections = append(sections, *current)
			}

			current = &Section{
				Title:   strings.TrimSpace(matches[2]),
				Level:   len(matches[1]),
				Content: line + "\n",
			}
		case current != nil:
			current.Content += line + "\n"
		default:
			// content before any header
			current = &Section{Content: line + "\n"}
		}
	}

	if current != nil && strings.TrimSpace(current.Content) != "" {
		sections = append(sections, *current)
	}

	return sections
}

// splits on paragraph boundaries; each piece after the first starts with
// up to opts.OverlapTokens of trailing paragraphs from the previous one
func splitLargeSection(section Section, opts ChunkOptions) []string {
	var (
		chunks []string
		paras  []string
	)

	header := ""
	if opts.PreserveHeaders && section.Title != "" {
		header = strings.Repeat("#", section.Level) + " " + section.Title
	}

	render := func() string {
		body := strings.Join(paras, "\n\n")

		// the first paragraph already is the header line
		if header == "" || headerRegex.MatchString(paras[0]) {
			return body
		}

		return header + "\n\n" + body
	}

	for _, para := range strings.Split(section.Content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(paras) > 0 && estimateTokens(render()+"\n\n"+para) > opts.MaxTokens {
			chunks = append(chunks, render())

			paras = overlapTail(paras, opts.OverlapTokens)
			if len(paras) > 0 && estimateTokens(render()+"\n\n"+para) > opts.MaxTokens {
				paras = nil
			}
		}

		paras = append(paras, para)
	}

	if len(paras) > 0 {
		chunks = append(chunks, render())
	}

	return chunks
}

// trailing paragraphs worth at most overlap tokens, never the whole piece
func overlapTail(paras []string, overlap int) []string {
	if overlap <= 0 {
		return nil
	}

	start, total := len(paras), 0
	for start > 0 {
		total += estimateTokens(paras[start-1])
		if total > overlap {
			break
		}
		start--
	}

	if start == 0 {
		start = 1
	}

	return slices.Clone(paras[start:])
}

// rough token count, about four characters per token
func estimateTokens(text string) int {
	return len(text) / 4
}

// frontmatter values become chunk metadata; unparseable frontmatter is ignored
func extractFrontmatter(content string) map[string]any {
	metadata := make(map[string]any)

	matches := frontmatterRegex.FindStringSubmatch(content)
	if len(matches) < 2 {
		return metadata
	}

	if err := yaml.Unmarshal([]byte(matches[1]), &metadata); err != nil {
		return map[string]any{}
	}

	return metadata
}

func stripMDXComponents(content string) string {
	return mdxComponentRegex.ReplaceAllString(content, "")
}
