package classify

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UncertainPost is a post whose category needs a human look
type UncertainPost struct {
	Source     string
	Title      string
	URL        string
	Confidence float64
	Matched    []string
}

// WriteUncertain renders posts as a fill-in sheet for manual classification
func WriteUncertain(w io.Writer, posts []UncertainPost, now time.Time) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "===== %s 수동 분류 필요 (%d개) =====\n\n", now.Format("2006-01-02 15:04"), len(posts))
	fmt.Fprintf(bw, "분류 옵션: %s\n", categoryOptions())
	fmt.Fprintf(bw, "%s\n\n", strings.Repeat("-", 60))

	for i, p := range posts {
		fmt.Fprintf(bw, "%d. [%s] %s\n", i+1, p.Source, p.Title)
		fmt.Fprintf(bw, "   URL: %s\n", p.URL)
		fmt.Fprintf(bw, "   현재 신뢰도: %.1f%%\n", p.Confidence*100)
		if len(p.Matched) > 0 {
			fmt.Fprintf(bw, "   매칭 키워드: %s\n", strings.Join(p.Matched, ", "))
		}
		fmt.Fprintf(bw, "   분류: _______ (%s)\n", categoryOptions())
		fmt.Fprintf(bw, "   요약:\n   _______________________________\n\n")
	}
	return bw.Flush()
}

// ExportUncertain writes posts to uncertain_posts_<date>.txt under dir and
// returns the file path
func ExportUncertain(dir string, posts []UncertainPost, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, "uncertain_posts_"+now.Format("2006-01-02")+".txt")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteUncertain(f, posts, now); err != nil {
		f.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

func categoryOptions() string {
	names := make([]string, len(Priority))
	for i, c := range Priority {
		names[i] = string(c)
	}
	return strings.Join(names, "/")
}
