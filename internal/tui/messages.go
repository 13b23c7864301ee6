package tui

import (
	"github.com/cvanbaush/news-summaries/internal/article"
)

type digestLoadedMsg struct {
	digest *article.Digest
}

type digestErrMsg struct {
	err error
}

type browserErrMsg struct {
	err error
}
