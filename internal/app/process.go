package app

import (
	"context"
	"errors"
	"os"
	"unicode/utf8"

	"content-factory/internal/config"
	"content-factory/internal/logging"
	"content-factory/internal/normalize"
	"content-factory/internal/output"
)

const warnRewriteDegraded = "rewrite_degraded"

// Post is the JSON document written for one input and platform.
type Post struct {
	Title      string            `json:"title,omitempty"`
	Body       string            `json:"body"`
	HTML       string            `json:"html,omitempty"`
	Topics     []string          `json:"topics"`
	Images     []normalize.Image `json:"images"`
	CoverImage string            `json:"cover_image,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Platform   string            `json:"platform"`
	Source     string            `json:"source"`
	Incomplete string            `json:"incomplete,omitempty"`
}

// processFile normalizes one draft for every target platform. Only fatal
// errors are returned; per-document failures are counted and logged.
func (s *session) processFile(ctx context.Context, file string) (Result, error) {
	var res Result
	if ctx.Err() != nil {
		res.Skipped = len(s.targets)
		return res, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		s.logger.Emit(logging.Event{Level: "error", Event: "read_failed", Input: file, Error: err.Error()})
		res.Failed = len(s.targets)
		return res, nil
	}
	markup := string(raw)

	for _, t := range s.targets {
		if ctx.Err() != nil {
			res.Skipped++
			continue
		}
		path, outcome, err := s.processTarget(ctx, file, markup, t)
		if err != nil {
			if isCanceled(err) {
				res.Skipped++
				continue
			}
			s.logger.Emit(logging.Event{Level: "error", Event: "process_failed", Input: file, Platform: t.name, Error: err.Error()})
			res.Failed++
			return res, err
		}
		switch outcome {
		case outcomeWritten:
			res.Succeeded++
			res.Outputs = append(res.Outputs, path)
		case outcomeIncomplete:
			res.Incomplete++
			if path != "" {
				res.Outputs = append(res.Outputs, path)
			}
		default:
			res.Failed++
		}
	}
	return res, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeWritten
	outcomeIncomplete
)

func (s *session) processTarget(ctx context.Context, file, markup string, t target) (string, outcome, error) {
	s.logger.Emit(logging.Event{Event: "process_start", Input: file, Platform: t.name})

	in := normalize.Input{
		PriorImages:  s.opts.Images,
		ExplicitTags: s.opts.Tags,
		KeywordSeeds: s.opts.Seeds,
		Budget:       s.opts.Budget,
	}
	degraded := false
	if s.rewriter != nil {
		text, err := s.rewrite(ctx, file, t, markup, s.budgetFor(t))
		switch {
		case err == nil:
			in.Rewritten = text
		case isFatal(err) || isCanceled(err):
			return "", outcomeFailed, err
		default:
			degraded = true
			s.logger.Emit(logging.Event{Level: "warn", Event: "rewrite_degraded", Input: file, Platform: t.name, Error: err.Error()})
		}
	}

	content, err := t.pipeline.Normalize(normalize.RawDocument{Markup: markup}, in)
	for _, w := range content.Warnings {
		s.logger.Emit(logging.Event{Level: "warn", Event: "normalize_warning", Input: file, Platform: t.name, Error: w})
	}
	if degraded {
		content.Warnings = append(content.Warnings, warnRewriteDegraded)
	}

	post := Post{
		Title:      content.Title,
		Body:       content.Body,
		Topics:     content.Topics.Names(),
		Images:     content.Images,
		CoverImage: content.CoverImage,
		Warnings:   content.Warnings,
		Platform:   t.name,
		Source:     file,
	}
	if err != nil {
		var inc *normalize.IncompleteError
		if !errors.As(err, &inc) {
			s.logger.Emit(logging.Event{Level: "error", Event: "process_failed", Input: file, Platform: t.name, Error: err.Error()})
			return "", outcomeFailed, nil
		}
		s.logger.Emit(logging.Event{Level: "warn", Event: "incomplete", Input: file, Platform: t.name, Error: inc.Reason})
		if !s.opts.AllowIncomplete {
			return "", outcomeIncomplete, nil
		}
		post.Incomplete = inc.Reason
	}
	s.logger.Emit(logging.Event{Event: "normalize_ok", Input: file, Platform: t.name, Chars: utf8.RuneCountInString(post.Body), Topics: len(post.Topics)})

	if t.cfg.Format == config.FormatHTML {
		html, err := s.renderer.Render(markup)
		if err != nil {
			s.logger.Emit(logging.Event{Level: "error", Event: "render_failed", Input: file, Platform: t.name, Error: err.Error()})
			return "", outcomeFailed, nil
		}
		post.HTML = html
	}

	_, path, err := s.namer.Next(s.outDir, file, t.name)
	if err != nil {
		s.logger.Emit(logging.Event{Level: "error", Event: "name_failed", Input: file, Platform: t.name, Error: err.Error()})
		return "", outcomeFailed, nil
	}
	if err := output.WriteJSON(path, post); err != nil {
		s.logger.Emit(logging.Event{Level: "error", Event: "write_failed", Input: file, Platform: t.name, OutputFile: path, Error: err.Error()})
		return "", outcomeFailed, nil
	}
	s.logger.Emit(logging.Event{Event: "write_ok", Input: file, Platform: t.name, OutputFile: path})
	if post.Incomplete != "" {
		return path, outcomeIncomplete, nil
	}
	return path, outcomeWritten, nil
}

func (s *session) budgetFor(t target) int {
	if s.opts.Budget > 0 {
		return s.opts.Budget
	}
	return t.pipeline.Config().Budget
}
