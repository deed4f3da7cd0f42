package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/articlr/articlr/internal/metrics"
	"github.com/articlr/articlr/internal/pipeline"
)

const outlinePromptTemplate = `
あなたはSEOに強い家電専門ライターです。
以下の競合記事を分析し、キーワード「%s」の記事構成案を作成してください。

# 出力条件
- JSON形式で出力
- 形式:
{
  "h1": "タイトル案",
  "sections": [
    {
      "h2": "見出し2",
      "subsections": ["見出し3-1", "見出し3-2", "見出し3-3"]
    }
  ]
}
- H2は3つ、各H2に対してH3を3つ作成
- キーワードとの関連性が高く、検索ユーザーの意図を満たす構成にする
- 内容は具体的で、独自の視点・根拠・事例を交えて説明且つ信頼感があり、客観的
- 家電販売店にふさわしいフォーマルな文体
- 数値・比較・用途別の提案など、検索ユーザーの満足度を意識
- 製品名・価格は直接記載しない
- 出力は厳密にJSONのみ

# 参考記事
%s
`

const articlePromptTemplate = `
あなたはSEOに強い家電専門ライターです。
以下の構成をもとに、完全オリジナルの日本語記事を作成してください。

# テーマ
%s

# 構成
%s

# 出力条件
- 出力形式：JSON
- 構成の階層（H1, H2, H3）を維持したJSONで出力
- 各見出しに対応する本文を生成（最低でも300文字以上）
- 内容は具体的で、独自の視点・根拠・事例を交えて説明且つ信頼感があり、客観的
- 家電販売店にふさわしいフォーマルな文体
- 数値・比較・用途別の提案など、検索ユーザーの満足度を意識
- 製品名・価格は直接記載しない

# 出力フォーマット
{
  "h1": "タイトル",
  "introduction": "導入文",
  "sections": [
    {
      "h2": "見出し2",
      "content": "本文（300文字以上）",
      "subsections": [
        {
          "h3": "見出し3",
          "content": "本文（200文字以上）"
        }
      ]
    }
  ],
  "summary": "まとめ文（150〜200文字）"
}
`

// Generator builds prompts, calls the generative client, and parses the
// structured replies for both pipeline phases. No retry: a single transport
// or parse failure is terminal for its phase.
type Generator struct {
	client *Client
	logger *zap.Logger
}

// NewGenerator constructs a Generator on top of the shared client.
func NewGenerator(client *Client, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger}
}

// GenerateOutline produces the structured outline from the keyword and the
// acquired source texts. Transport and parse failures are errors; a parsed
// outline with missing or empty sections is not.
func (g *Generator) GenerateOutline(
	ctx context.Context,
	keyword string,
	sources []pipeline.Source,
) (pipeline.Outline, error) {
	prompt := fmt.Sprintf(outlinePromptTemplate, keyword, labeledSources(sources))

	raw, err := g.client.Generate(ctx, prompt)
	if err != nil {
		metrics.ObserveGeneration("outline", "error")
		return pipeline.Outline{}, fmt.Errorf("generate outline: %w", err)
	}

	var outline pipeline.Outline
	if err := json.Unmarshal([]byte(stripFences(raw)), &outline); err != nil {
		metrics.ObserveGeneration("outline", "parse_error")
		return pipeline.Outline{}, fmt.Errorf("parse outline response: %w", err)
	}

	metrics.ObserveGeneration("outline", "success")
	g.logger.Info("outline generated", zap.Int("h2_count", len(outline.Sections)))
	return outline, nil
}

// GenerateArticle produces the full article from a previously generated
// outline, serialized back into the prompt as indented JSON.
func (g *Generator) GenerateArticle(
	ctx context.Context,
	keyword string,
	outline pipeline.Outline,
) (pipeline.Article, error) {
	outlineJSON, err := json.MarshalIndent(outline, "", "  ")
	if err != nil {
		return pipeline.Article{}, fmt.Errorf("marshal outline: %w", err)
	}
	prompt := fmt.Sprintf(articlePromptTemplate, keyword, outlineJSON)

	raw, err := g.client.Generate(ctx, prompt)
	if err != nil {
		metrics.ObserveGeneration("article", "error")
		return pipeline.Article{}, fmt.Errorf("generate article: %w", err)
	}

	var article pipeline.Article
	if err := json.Unmarshal([]byte(stripFences(raw)), &article); err != nil {
		metrics.ObserveGeneration("article", "parse_error")
		return pipeline.Article{}, fmt.Errorf("parse article response: %w", err)
	}

	metrics.ObserveGeneration("article", "success")
	g.logger.Info("article generated", zap.Int("section_count", len(article.Sections)))
	return article, nil
}

// labeledSources concatenates each source as 【Source】url + text, separated
// so the model can tell the competitor articles apart.
func labeledSources(sources []pipeline.Source) string {
	var b strings.Builder
	for i, src := range sources {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "【Source】%s\n%s", src.URL, src.Text)
	}
	return b.String()
}

// stripFences removes Markdown code-fence wrapping from a model reply before
// JSON parsing.
func stripFences(raw string) string {
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	return strings.TrimSpace(raw)
}
