package proxy

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxQuestions = 3

// parseQuestions extracts reflective questions from raw model output. It
// tries strict JSON first, then falls back to scanning lines that look like
// questions, since models sometimes ignore the format instruction.
func parseQuestions(content string) ([]string, error) {
	content = cleanMarkdownWrapper(content)

	var jsonResp struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &jsonResp); err == nil {
		questions := trimQuestions(jsonResp.Questions)
		if len(questions) > 0 {
			return questions, nil
		}
	}

	questions := scanQuestionLines(content)
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions found in model output")
	}
	return questions, nil
}

// scanQuestionLines recovers questions from free-form output: one per line,
// numbered or bulleted, ending in a question mark.
func scanQuestionLines(content string) []string {
	var questions []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.)-*• \t")
		line = strings.Trim(line, `"`)
		if line == "" || !strings.HasSuffix(line, "?") {
			continue
		}
		questions = append(questions, line)
		if len(questions) == maxQuestions {
			break
		}
	}
	return questions
}

func trimQuestions(raw []string) []string {
	var questions []string
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == maxQuestions {
			break
		}
	}
	return questions
}

// cleanMarkdownWrapper strips a ```json fenced block if the model wrapped
// its output in one.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
