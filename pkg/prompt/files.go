package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

var sourceFilePattern = regexp.MustCompile(`[\p{L}\p{N}_]+\.py`)

// inlineFiles appends the contents of every referenced .py file to prompt.
// Missing or unreadable files are noted inline instead.
func (a *Assembler) inlineFiles(prompt string) (string, []string) {
	files := sourceFilePattern.FindAllString(prompt, -1)
	if len(files) == 0 {
		return prompt, nil
	}

	sections := make([]string, 0, len(files))
	for _, name := range files {
		content, err := fs.ReadFile(a.source, name)
		switch {
		case err == nil:
			sections = append(sections, fmt.Sprintf("Content of %s:\n```python\n%s\n```", name, content))
		case errors.Is(err, fs.ErrNotExist):
			sections = append(sections, fmt.Sprintf("File %s not found in %s directory", name, a.sourceDir))
		default:
			sections = append(sections, fmt.Sprintf("Error reading %s: %v", name, err))
		}
	}

	header := fmt.Sprintf("\n\n[The following Python files were detected in '%s' directory:]\n", a.sourceDir)
	return prompt + header + strings.Join(sections, "\n"), files
}
