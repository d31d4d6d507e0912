package comments

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	body, ok := f.pages[pageURL]
	if !ok {
		return "", errors.New("not found")
	}
	return body, nil
}

const dcinsidePage = `<html><body><ul class="cmt_list">
<li class="ub-content"><p class="usertxt">이건 진짜 웃기다 ㅋㅋㅋ</p><span class="up_num">3</span></li>
<li class="ub-content"><p class="usertxt">짧음</p><span class="up_num">99</span></li>
<li class="ub-content"><p class="usertxt">개추 박고 갑니다 레전드</p><em>41</em></li>
<li class="ub-content"><p class="usertxt">댓글 내용 <b>굵게</b> 표시됨</p></li>
</ul></body></html>`

const ruliwebPage = `<html><body><table>
<tr class="comment_element"><td class="comment"><div class="text_wrapper"><span class="text">일반 댓글인데 재밌네요</span></div></td><td><span class="like">7</span></td></tr>
<tr class="comment_element best"><td class="comment"><div class="text_wrapper"><span class="icon_best">BEST</span><br><span class="text">이게 베스트 댓글입니다</span></div></td><td><span class="like"></span></td></tr>
</table></body></html>`

const ppomppuPage = `<html><body><table>
<tr><td class="cmt_contents">뽐뿌 댓글 첫번째입니다</td></tr>
<tr><td class="cmt_contents">뽐뿌 댓글 두번째입니다</td></tr>
</table></body></html>`

func newTestExtractor(pages map[string]string) *Extractor {
	return NewExtractor(&stubFetcher{pages: pages}, nil, zap.NewNop())
}

func TestExtractDCInside(t *testing.T) {
	pageURL := "https://gall.dcinside.com/board/view/?id=hit&no=1"
	e := newTestExtractor(map[string]string{pageURL: dcinsidePage})

	result := e.Extract(context.Background(), pageURL)
	require.Len(t, result.Comments, 3)
	assert.Equal(t, "dcinside", result.Site)
	assert.Equal(t, Comment{Content: "개추 박고 갑니다 레전드", Likes: 41}, result.Comments[0])
	assert.Equal(t, Comment{Content: "이건 진짜 웃기다 ㅋㅋㅋ", Likes: 3}, result.Comments[1])
	assert.Equal(t, "댓글 내용 굵게 표시됨", result.Comments[2].Content)
}

func TestExtractRuliwebBestComment(t *testing.T) {
	pageURL := "https://bbs.ruliweb.com/community/board/300143/read/1"
	e := newTestExtractor(map[string]string{pageURL: ruliwebPage})

	result := e.Extract(context.Background(), pageURL)
	require.Len(t, result.Comments, 2)
	assert.Equal(t, Comment{Content: "이게 베스트 댓글입니다", Best: true}, result.Comments[0])
	assert.Equal(t, Comment{Content: "일반 댓글인데 재밌네요", Likes: 7}, result.Comments[1])
}

func TestExtractPpomppuKeepsPageOrder(t *testing.T) {
	pageURL := "https://www.ppomppu.co.kr/zboard/view.php?id=freeboard&no=1"
	e := newTestExtractor(map[string]string{pageURL: ppomppuPage})

	result := e.Extract(context.Background(), pageURL)
	require.Len(t, result.Comments, 2)
	assert.Equal(t, "뽐뿌 댓글 첫번째입니다", result.Comments[0].Content)
	assert.Equal(t, 0, result.Comments[0].Likes)
}

func TestExtractUnknownSite(t *testing.T) {
	e := newTestExtractor(nil)

	result := e.Extract(context.Background(), "https://example.com/post/1")
	assert.Empty(t, result.Comments)
	assert.Equal(t, ReasonNoMatcher, result.Reason)
}

func TestExtractFetchFailure(t *testing.T) {
	e := newTestExtractor(nil)

	result := e.Extract(context.Background(), "https://gall.dcinside.com/missing")
	assert.Empty(t, result.Comments)
	assert.Equal(t, ReasonFetchFailed, result.Reason)
}

func TestRankCapsAndFilters(t *testing.T) {
	var in []Comment
	for i := 0; i < 8; i++ {
		in = append(in, Comment{Content: "충분히 긴 댓글 " + strings.Repeat("가", i), Likes: i})
	}
	in = append(in, Comment{Content: "12345", Likes: 1000})
	in = append(in, Comment{Content: strings.Repeat("길", 200), Likes: 1000})

	out := Rank(in)
	require.Len(t, out, MaxComments)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Likes, out[i].Likes)
	}
	assert.Equal(t, 7, out[0].Likes)
}

func TestRankPutsSiteBestFirst(t *testing.T) {
	out := Rank([]Comment{
		{Content: "추천 많은 일반 댓글", Likes: 40},
		{Content: "사이트가 고른 베스트", Best: true},
		{Content: "추천 적은 일반 댓글", Likes: 2},
	})
	require.Len(t, out, 3)
	assert.Equal(t, "사이트가 고른 베스트", out[0].Content)
	assert.Equal(t, 0, out[0].Likes)
	assert.Equal(t, 40, out[1].Likes)

	best := ToBestComments(out)
	assert.Equal(t, 0, best[0].Likes)
}

func TestAcceptCountsCharacters(t *testing.T) {
	// Six Hangul syllables are 18 bytes but only six characters
	assert.True(t, Accept("가나다라마바"))
	assert.False(t, Accept("가나다라마"))
	assert.False(t, Accept("  가나다라마  "))
	assert.True(t, Accept(strings.Repeat("가", 199)))
	assert.False(t, Accept(strings.Repeat("가", 200)))
}

func TestRegistryRegisterCustomSite(t *testing.T) {
	r := NewRegistry()
	r.Register(Matcher{
		Site:  "theqoo",
		Match: hostContains("theqoo"),
		Parse: func(doc *goquery.Document) []Comment {
			var out []Comment
			doc.Find(".comment-content").Each(func(i int, s *goquery.Selection) {
				out = append(out, Comment{Content: s.Text(), Likes: 5})
			})
			return out
		},
	})

	pageURL := "https://theqoo.net/square/1"
	e := NewExtractor(&stubFetcher{pages: map[string]string{
		pageURL: `<div class="comment-content">더쿠 댓글 테스트입니다</div>`,
	}}, r, zap.NewNop())

	result := e.Extract(context.Background(), pageURL)
	require.Len(t, result.Comments, 1)
	assert.Equal(t, "theqoo", result.Site)

	u, _ := url.Parse("https://gall.dcinside.com/x")
	_, ok := r.Lookup(u)
	assert.False(t, ok)
}

func TestToBestComments(t *testing.T) {
	assert.Nil(t, ToBestComments(nil))

	out := ToBestComments([]Comment{{Content: "좋은 댓글입니다", Likes: 2}})
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Likes)
}
