package task

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	markerPattern   = regexp.MustCompile(`<#(.*?)#>`)
	progressPattern = regexp.MustCompile(`<#(.*?)#>.*?\((\d+)%\)`)
)

// waitingMarker is posted by the endpoint when a job is accepted but not yet rendering.
const waitingMarker = "Waiting to start"

// Mark embeds the correlation marker for taskID in front of text. Anything
// the endpoint echoes back containing the marker is attributed to the task.
func Mark(taskID, text string) string {
	return fmt.Sprintf("<#%s#>%s", taskID, text)
}

// ParseTaskID returns the task ID embedded in content, or "" when there is none.
func ParseTaskID(content string) string {
	m := markerPattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseProgress returns the task ID and completion percentage embedded in
// content. ok is false unless both the marker and a "(NN%)" group are present.
func ParseProgress(content string) (taskID string, percent int, ok bool) {
	m := progressPattern.FindStringSubmatch(content)
	if m == nil {
		return "", 0, false
	}
	p, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], p, true
}

// HashFromFilename extracts the image hash from an attachment filename: the
// segment after the last underscore, without extension.
// "user_a_cat_0f3c5e.png" yields "0f3c5e".
func HashFromFilename(filename string) string {
	name := path.Base(filename)
	if i := strings.LastIndex(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}
