package fetch

import (
	"context"
	"mime"
	"strings"

	"github.com/rs/zerolog/log"
)

// PostingFetcher returns the readable text of a job posting.
type PostingFetcher interface {
	FetchJobPosting(ctx context.Context, url string) (string, error)
}

// JobPostingFetcher fetches job posting pages over HTTP and extracts their main text
// using platform-aware selectors.
type JobPostingFetcher struct {
	opts *Options
}

var _ PostingFetcher = (*JobPostingFetcher)(nil)

// NewJobPostingFetcher creates a fetcher. nil opts uses DefaultOptions.
func NewJobPostingFetcher(opts *Options) *JobPostingFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JobPostingFetcher{opts: opts}
}

// FetchJobPosting downloads url and returns its posting text, prefixed by the page title when present.
func (f *JobPostingFetcher) FetchJobPosting(ctx context.Context, url string) (string, error) {
	result, err := URL(ctx, url, f.opts)
	if err != nil {
		return "", err
	}

	mediaType, _, _ := mime.ParseMediaType(result.ContentType)
	var text string
	switch mediaType {
	case "text/plain":
		text = cleanWhitespace(result.HTML)
	case "", "text/html", "application/xhtml+xml":
		platform := DetectPlatform(url)
		text, err = ExtractMainText(result.HTML, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
		if err != nil {
			return "", &Error{URL: url, Message: "failed to extract text", Cause: err}
		}
		if title := PageTitle(result.HTML); title != "" && !strings.HasPrefix(text, title) {
			text = title + "\n" + text
		}
		log.Debug().Str("url", url).Str("platform", string(platform)).Int("chars", len(text)).Msg("extracted job posting")
	default:
		return "", &Error{URL: url, Message: "unsupported content type " + mediaType}
	}

	if strings.TrimSpace(text) == "" {
		return "", &Error{URL: url, Message: "no readable text"}
	}
	return text, nil
}
