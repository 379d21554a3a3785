package extract

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterKeys are the keys whose list items are treated as tasks
var frontmatterKeys = []string{"todo", "todos", "tasks"}

// frontmatterTask is one list item found under a task key
type frontmatterTask struct {
	Key       string
	Text      string
	Priority  string
	Done      bool
	LineIndex int // 0-based line in the document, best effort
}

// splitFrontmatter separates a leading "---" delimited block from the body.
// It returns the front matter lines and the number of lines consumed,
// including both delimiters. Documents without front matter return (nil, 0).
func splitFrontmatter(lines []string) ([]string, int) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil, 0
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return lines[1:i], i + 1
		}
	}
	return nil, 0
}

// parseFrontmatterTasks extracts task items from YAML front matter.
// Malformed front matter yields no tasks.
func parseFrontmatterTasks(fm []string) []frontmatterTask {
	if len(fm) == 0 {
		return nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(fm, "\n")), &doc); err != nil {
		return nil
	}

	var tasks []frontmatterTask
	for _, key := range frontmatterKeys {
		items, ok := doc[key].([]any)
		if !ok {
			continue
		}

		keyLine := frontmatterKeyLine(fm, key)
		for i, item := range items {
			task, ok := frontmatterItem(item)
			if !ok {
				continue
			}
			task.Key = key
			// +1 for the opening delimiter, +1 for the first item below the key
			task.LineIndex = keyLine + 2 + i
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// frontmatterItem converts a YAML list item into a task
func frontmatterItem(item any) (frontmatterTask, bool) {
	switch v := item.(type) {
	case string:
		return frontmatterTask{Text: v}, true
	case map[string]any:
		var task frontmatterTask
		for _, field := range []string{"task", "title", "description", "text"} {
			if s, ok := v[field].(string); ok && s != "" {
				task.Text = s
				break
			}
		}
		if task.Text == "" {
			return task, false
		}
		if p, ok := v["priority"]; ok {
			task.Priority = strings.ToLower(fmt.Sprint(p))
		}
		if done, ok := v["done"].(bool); ok {
			task.Done = done
		}
		if status, ok := v["status"].(string); ok && isDoneStatus(status) {
			task.Done = true
		}
		return task, true
	}
	return frontmatterTask{}, false
}

// frontmatterKeyLine finds the 0-based line of key within the front matter
func frontmatterKeyLine(fm []string, key string) int {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `\s*:`)
	for i, line := range fm {
		if re.MatchString(line) {
			return i
		}
	}
	return 0
}

// doneStatusRe matches status values that mark a task finished
var doneStatusRe = regexp.MustCompile(`(?i)^(?:✅|\[x\]|(?:done|completed?|closed|finished|resolved|x)\b)`)

// isDoneStatus reports whether a status cell or field marks a task finished
func isDoneStatus(s string) bool {
	return doneStatusRe.MatchString(strings.TrimSpace(s))
}
