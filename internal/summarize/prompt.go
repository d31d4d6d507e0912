package summarize

import (
	"fmt"
	"regexp"
	"strings"

	"memeboard/internal/comments"
)

// Section labels shared by the prompt and the response parser
const (
	LabelSummary  = "[AI 핵심 요약]"
	LabelReaction = "[커뮤니티 반응]"
	LabelComments = "[베스트 댓글 선별]"
)

const (
	maxPickedComments = 3
	noBodyHint        = "(본문 없음 - 키워드만 보고 맥락을 추론해)"
	noCommentsHint    = "(수집된 댓글 없음)"
)

var (
	quotedPattern = regexp.MustCompile(`"([^"]+)"`)
	quoteReplacer = strings.NewReplacer("“", `"`, "”", `"`)
)

// BuildPrompt assembles the single user message sent to the model
func BuildPrompt(keyword, title, excerpt string, scraped []comments.Comment) string {
	subject := strings.TrimSpace(title)
	if subject == "" {
		subject = keyword
	}
	body := strings.TrimSpace(excerpt)
	if body == "" {
		body = noBodyHint
	}

	var b strings.Builder
	b.WriteString("너는 한국 커뮤니티에서 뜨는 이슈를 짧게 정리해주는 에디터야.\n")
	b.WriteString("반말로, 군더더기 없이 핵심만 써.\n\n")

	b.WriteString("[키워드]\n")
	b.WriteString(subject)
	b.WriteString("\n\n[원문 내용]\n")
	b.WriteString(body)
	b.WriteString("\n\n[베스트 댓글]\n")
	b.WriteString(FormatComments(scraped))
	b.WriteString("\n\n---\n아래 세 섹션을 라벨 그대로 사용해서 답해.\n\n")

	b.WriteString(LabelSummary)
	b.WriteString("\n딱 3문장. 번호나 소제목 없이, 이모지는 1-2개만.\n")
	b.WriteString("1) 이슈가 시작된 계기 2) 퍼진 과정 3) 지금 상황 순서로.\n\n")

	b.WriteString(LabelReaction)
	b.WriteString("\n댓글 분위기를 1-2줄로 요약해. 커뮤 말투(ㅋㅋ, ㄹㅇ, ㅇㅈ, 레전드 등)를 써도 돼.\n\n")

	b.WriteString(LabelComments)
	b.WriteString("\n제일 공감 많거나 웃긴 댓글 2-3개를 원문 그대로 한 줄에 하나씩 큰따옴표로 감싸서 적어.")
	return b.String()
}

// FormatComments renders the numbered comment list used in the prompt
func FormatComments(scraped []comments.Comment) string {
	if len(scraped) == 0 {
		return noCommentsHint
	}
	lines := make([]string, 0, len(scraped))
	for i, c := range scraped {
		likes := ""
		if c.Likes > 0 {
			likes = fmt.Sprintf("(%d추천) ", c.Likes)
		}
		lines = append(lines, fmt.Sprintf("%d. %s\"%s\"", i+1, likes, c.Content))
	}
	return strings.Join(lines, "\n")
}

// Sections is the parsed model response
type Sections struct {
	Summary  string
	Reaction *string
	Picked   []string
}

// ParseResponse splits the model output into its labelled sections. Without
// a summary label the whole text is the summary.
func ParseResponse(text string) Sections {
	labels := []string{LabelSummary, LabelReaction, LabelComments}

	var out Sections
	if summary, ok := section(text, LabelSummary, labels); ok && summary != "" {
		out.Summary = summary
	} else {
		out.Summary = strings.TrimSpace(text)
	}

	if reaction, ok := section(text, LabelReaction, labels); ok && reaction != "" {
		out.Reaction = &reaction
	}

	if picked, ok := section(text, LabelComments, labels); ok {
		out.Picked = pickComments(picked)
	}
	return out
}

// section returns the trimmed text after label up to the nearest following
// label or the end of text
func section(text, label string, labels []string) (string, bool) {
	start := strings.Index(text, label)
	if start < 0 {
		return "", false
	}
	start += len(label)

	end := len(text)
	for _, other := range labels {
		if other == label {
			continue
		}
		if i := strings.Index(text[start:], other); i >= 0 && start+i < end {
			end = start + i
		}
	}
	return strings.TrimSpace(text[start:end]), true
}

func pickComments(block string) []string {
	var picked []string
	for _, line := range strings.Split(quoteReplacer.Replace(block), "\n") {
		m := quotedPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		content := strings.TrimSpace(m[1])
		if !comments.Accept(content) {
			continue
		}
		picked = append(picked, content)
		if len(picked) == maxPickedComments {
			break
		}
	}
	return picked
}
