package pipeline

// User-facing messages, matching the web client's language.
const (
	msgMissingKeyword   = "キーワードを入力してください。"
	msgMissingURLs      = "URLを少なくとも1つ入力してください。"
	msgAllSourcesFailed = "競合記事の取得に失敗しました。"
	msgOutlineFailed    = "記事構成の生成に失敗しました。"
	msgArticleFailed    = "記事本文の生成に失敗しました。"
)

// ValidationError reports invalid client input. No network activity has
// happened when it is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NoSourcesError means every URL's acquisition failed.
type NoSourcesError struct {
	Warnings []Warning
}

func (e *NoSourcesError) Error() string { return msgAllSourcesFailed }

// OutlineError means outline generation failed after acquisition succeeded.
type OutlineError struct {
	Warnings []Warning
	Cause    error
}

func (e *OutlineError) Error() string { return msgOutlineFailed }

func (e *OutlineError) Unwrap() error { return e.Cause }

// ArticleError means article generation failed; the already-produced outline
// is carried for partial transparency.
type ArticleError struct {
	Outline  Outline
	Warnings []Warning
	Cause    error
}

func (e *ArticleError) Error() string { return msgArticleFailed }

func (e *ArticleError) Unwrap() error { return e.Cause }
