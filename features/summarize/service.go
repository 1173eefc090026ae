package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pagebrief/backend/features/history"
	"pagebrief/backend/internal/auth"
	"pagebrief/backend/internal/blob"
	"pagebrief/backend/internal/docstore"
	"pagebrief/backend/internal/gen"
	"pagebrief/backend/internal/resolve"
	"pagebrief/backend/internal/text"
)

// ErrNoContent means the request carried no content and no stored document
// exists for the given URL.
var ErrNoContent = errors.New("no content provided")

type Documents interface {
	Put(ctx context.Context, url, title, cleanedText, rawText string) (string, error)
	Get(ctx context.Context, id string) (*docstore.Record, error)
}

type Resolver interface {
	Resolve(ctx context.Context, id, query string, required bool) (resolve.Resolved, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int32, temperature float32) (string, error)
}

type HistoryAppender interface {
	Append(ctx context.Context, userID string, entry history.Entry) error
}

type Service struct {
	docs      Documents
	resolver  Resolver
	completer Completer
	history   HistoryAppender
}

func NewService(docs Documents, resolver Resolver, completer Completer, history HistoryAppender) *Service {
	return &Service{docs: docs, resolver: resolver, completer: completer, history: history}
}

type Request struct {
	URL                string
	Title              string
	Content            string
	Enhance            bool
	RequireEnhancement bool
}

type Summary struct {
	Summary    string `json:"summary"`
	DocumentID string `json:"document_id"`
	Enhanced   bool   `json:"enhanced"`
	Fallback   bool   `json:"fallback"`
}

// Summarize stores the submitted document (or loads the cached one), resolves
// the text to summarize, and asks the completion service for a summary. When
// the completion service is unavailable it degrades to an extractive summary
// and says so via the Fallback flag — partial success is never hidden.
func (s *Service) Summarize(ctx context.Context, req Request) (*Summary, error) {
	var id, cleaned string

	switch {
	case req.Content != "":
		cleaned = text.Clean(req.Content)
		var err error
		id, err = s.docs.Put(ctx, req.URL, req.Title, cleaned, req.Content)
		if err != nil {
			return nil, err
		}
	case req.URL != "":
		id = docstore.DocumentID(req.URL)
		rec, err := s.docs.Get(ctx, id)
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ErrNoContent
		}
		if err != nil {
			return nil, err
		}
		cleaned = rec.CleanedText
	default:
		return nil, ErrNoContent
	}

	source := cleaned
	enhanced := false
	if req.Enhance {
		resolved, err := s.resolver.Resolve(ctx, id, "", req.RequireEnhancement)
		if err != nil {
			return nil, err
		}
		source = resolved.Text
		enhanced = resolved.Enhanced
	}

	summary := &Summary{DocumentID: id, Enhanced: enhanced}

	out, err := s.completer.Complete(ctx, summaryPrompt(source), 500, 0.5)
	if err != nil {
		if !errors.Is(err, gen.ErrUnavailable) {
			return nil, err
		}
		slog.WarnContext(ctx, "completion unavailable, using extractive summary", "document_id", id, "error", err)
		out = text.ExtractiveSummary(cleaned)
		summary.Fallback = true
	}
	summary.Summary = out

	if identity := auth.FromContext(ctx); identity != nil && s.history != nil {
		entry := history.Entry{URL: req.URL, Title: req.Title, Summary: summary.Summary}
		if err := s.history.Append(ctx, identity.UserID, entry); err != nil {
			slog.WarnContext(ctx, "failed to append summary to history", "user_id", identity.UserID, "error", err)
		}
	}

	return summary, nil
}

type Answer struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
}

// Chat answers a question about previously supplied context.
func (s *Service) Chat(ctx context.Context, query, contextText string) (*Answer, error) {
	out, err := s.completer.Complete(ctx, chatPrompt(query, contextText), 500, 0.5)
	if err != nil {
		if !errors.Is(err, gen.ErrUnavailable) {
			return nil, err
		}
		slog.WarnContext(ctx, "completion unavailable, using extractive answer", "error", err)
		return &Answer{Answer: text.ExtractiveSummary(text.Clean(contextText)), Fallback: true}, nil
	}
	return &Answer{Answer: out}, nil
}

func summaryPrompt(content string) string {
	return fmt.Sprintf(`I need a concise summary of the following web content. Focus on key points and main ideas only:

%s

Please provide a clear, well-structured summary that captures the essential information in 3-5 sentences.`, content)
}

func chatPrompt(query, contextText string) string {
	return fmt.Sprintf(`Answer the question using only the following context.

Context:
%s

Question: %s`, contextText, query)
}
