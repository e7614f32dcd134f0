// Package prompt loads the assistant's system prompt.
//
// A prompt file is plain text with optional YAML frontmatter that overrides
// the chat model and sampling temperatures:
//
//	---
//	model: gpt-4o-mini
//	temperature: 0.2
//	final_temperature: 0.5
//	---
//	You are an assistant for the Algolia dashboard...
//
// When the file does not exist the built-in Fallback prompt is used.
package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the prompt file looked up in the working directory.
const DefaultFile = "algolia_system_prompt.txt"

// Prompt is a system prompt with optional overrides.
type Prompt struct {
	Text string

	// Model overrides the configured chat model when set.
	Model string
	// Temperature overrides the first-pass temperature when set.
	Temperature *float64
	// FinalTemperature overrides the summary temperature when set.
	FinalTemperature *float64
	// MaxTokens caps the length of each reply when set.
	MaxTokens *int

	// FilePath is empty for the fallback prompt.
	FilePath string
}

type frontmatter struct {
	Model            string   `yaml:"model"`
	Temperature      *float64 `yaml:"temperature"`
	FinalTemperature *float64 `yaml:"final_temperature"`
	MaxTokens        *int     `yaml:"max_tokens"`
}

// Load reads the prompt at path. A missing file yields Fallback(appID).
func Load(path, appID string) (*Prompt, error) {
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Fallback(appID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading prompt file: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt file %s: %w", path, err)
	}
	p.FilePath = path
	return p, nil
}

// Parse builds a prompt from file content.
func Parse(data []byte) (*Prompt, error) {
	fm, content, err := parseFrontmatter(data)
	if err != nil {
		return nil, err
	}

	p := &Prompt{Text: content}
	if len(fm) > 0 {
		var meta frontmatter
		if err := yaml.Unmarshal(fm, &meta); err != nil {
			return nil, fmt.Errorf("parsing prompt frontmatter: %w", err)
		}
		p.Model = meta.Model
		p.Temperature = meta.Temperature
		p.FinalTemperature = meta.FinalTemperature
		p.MaxTokens = meta.MaxTokens
	}
	return p, nil
}

// parseFrontmatter splits YAML frontmatter delimited by "---" lines from the
// rest of the content. Content without a complete frontmatter block is
// returned unchanged.
func parseFrontmatter(data []byte) (frontmatter []byte, content string, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() {
		return nil, string(data), nil
	}
	if strings.TrimSpace(scanner.Text()) != "---" {
		return nil, string(data), nil
	}

	var fmLines []string
	foundClosing := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			foundClosing = true
			break
		}
		fmLines = append(fmLines, line)
	}
	if !foundClosing {
		return nil, string(data), nil
	}

	var contentLines []string
	for scanner.Scan() {
		contentLines = append(contentLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("scanning prompt: %w", err)
	}

	frontmatter = []byte(strings.Join(fmLines, "\n"))
	content = strings.TrimSpace(strings.Join(contentLines, "\n"))
	return frontmatter, content, nil
}

const fallbackTemplate = `You are an intelligent assistant that helps users interact with Algolia search engine through various tools.

You have access to comprehensive Algolia MCP tools that allow you to:
- Search and browse indices
- Manage search data (add, update, delete records)
- Configure search settings and rules
- Analyze search performance and metrics
- Work with synonyms and query suggestions

Instructions:
1. Always include "applicationId": "%s" in every tool call
2. Be conversational and helpful in your responses
3. Explain what tools you're using and why
4. Provide clear summaries of the results
5. Ask follow-up questions when appropriate
6. If you need more information, ask the user for clarification

When a user asks about Algolia functionality, choose the most appropriate tool(s) and explain your reasoning.
`

// Fallback returns the built-in prompt for appID.
func Fallback(appID string) *Prompt {
	return &Prompt{Text: fmt.Sprintf(fallbackTemplate, appID)}
}
