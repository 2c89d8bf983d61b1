package qrcodes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"qrgen/internal/engine/history"
)

const pngSuffix = ".png"

// Audit actions passed to the Recorder.
const (
	ActionGenerate = "qrcode.generate"
	ActionCached   = "qrcode.cached"
	ActionFailed   = "qrcode.failed"
	ActionPurge    = "qrcode.purge"
)

// Recorder receives an audit event for every completed workflow.
type Recorder interface {
	Record(ctx context.Context, action, filename, link string, metadata map[string]interface{})
}

type Options struct {
	OutputDir    string
	PublicPrefix string // URL prefix the output directory is served under
	Recorder     Recorder
	Metrics      *Metrics
	Now          func() time.Time
}

type Service struct {
	ledger       *history.Ledger
	encoder      Encoder
	outputDir    string
	publicPrefix string
	recorder     Recorder
	metrics      *Metrics
	now          func() time.Time
}

// Result describes the outcome of Generate.
type Result struct {
	Link     string          `json:"link"`
	Filename string          `json:"filename"`
	Path     string          `json:"path"`
	Cached   bool            `json:"cached"`
	History  []history.Entry `json:"history"`
}

type PurgeResult struct {
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

func NewService(ledger *history.Ledger, encoder Encoder, opts Options) (*Service, error) {
	if ledger == nil || encoder == nil {
		return nil, errors.New("ledger and encoder are required")
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}

	outputDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	prefix := "/" + strings.Trim(opts.PublicPrefix, "/")
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		ledger:       ledger,
		encoder:      encoder,
		outputDir:    outputDir,
		publicPrefix: prefix,
		recorder:     opts.Recorder,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}, nil
}

func (s *Service) OutputDir() string {
	return s.outputDir
}

func (s *Service) PublicPrefix() string {
	return s.publicPrefix
}

// History returns the ledger, oldest first.
func (s *Service) History() []history.Entry {
	return s.ledger.All()
}

// PublicPath is the URL path the stored image is served under.
func (s *Service) PublicPath(filename string) string {
	return path.Join(s.publicPrefix, filename)
}

// Generate stores a QR code for link under the sanitized filename. An
// existing file with the same name is reused without re-encoding, even when
// it was generated from a different link; callers that need fresh content
// must pick a new name or purge first.
func (s *Service) Generate(ctx context.Context, link, filename string) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("workflow", "generate").Logger()
	logger.Debug().Str("link", link).Str("filename", filename).Msg("generation requested")

	if strings.TrimSpace(link) == "" {
		s.metrics.incRejected()
		logger.Info().Err(ErrMissingLink).Msg("generation rejected")
		return nil, ErrMissingLink
	}

	name, err := Sanitize(filename)
	if err != nil {
		s.metrics.incRejected()
		logger.Info().Err(err).Str("filename", filename).Msg("generation rejected")
		return nil, err
	}
	if !strings.HasSuffix(name, pngSuffix) {
		name += pngSuffix
	}

	target := filepath.Join(s.outputDir, name)
	result := &Result{
		Link:     link,
		Filename: name,
		Path:     s.PublicPath(name),
	}

	if _, err := os.Stat(target); err == nil {
		result.Cached = true
		result.History = s.ledger.All()
		s.metrics.incCached()
		s.record(ctx, ActionCached, name, link, nil)
		logger.Info().Str("filename", name).Msg("qr code already exists, skipping generation")
		return result, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, s.fail(ctx, logger, name, link, fmt.Errorf("checking %s: %w", name, err))
	}

	if err := s.write(target, link); err != nil {
		return nil, s.fail(ctx, logger, name, link, err)
	}

	entry := history.Entry{
		Filename:  name,
		Link:      link,
		Path:      result.Path,
		Timestamp: s.now().Unix(),
	}
	if err := s.ledger.Append(entry); err != nil {
		// keep the output directory in step with the ledger
		if rmErr := os.Remove(target); rmErr != nil {
			logger.Warn().Err(rmErr).Str("path", target).Msg("failed to remove orphaned qr code")
		}
		return nil, s.fail(ctx, logger, name, link, err)
	}

	result.History = s.ledger.All()
	s.metrics.incGenerated()
	s.record(ctx, ActionGenerate, name, link, map[string]interface{}{"path": result.Path})
	logger.Info().Str("filename", name).Str("path", result.Path).Msg("qr code generated")

	return result, nil
}

// write encodes link into a temp file in the output directory and renames it
// onto target once complete.
func (s *Service) write(target, link string) error {
	tmp, err := os.CreateTemp(s.outputDir, ".qr-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := s.encoder.Encode(tmp, link); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encoding: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storing image: %w", err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, logger zerolog.Logger, name, link string, cause error) error {
	s.metrics.incFailed()
	s.record(ctx, ActionFailed, name, link, map[string]interface{}{"error": cause.Error()})
	logger.Error().Err(cause).Str("filename", name).Msg("qr code generation failed")
	return &GenerationError{Filename: name, Err: cause}
}

// Purge clears the ledger, then deletes everything in the output directory.
// Individual deletion failures are logged and counted, not returned.
func (s *Service) Purge(ctx context.Context) (*PurgeResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("workflow", "purge").Logger()
	logger.Debug().Msg("purge requested")

	if err := s.ledger.Clear(); err != nil {
		logger.Error().Err(err).Msg("failed to clear history")
		return nil, fmt.Errorf("clearing history: %w", err)
	}

	result := &PurgeResult{}

	entries, err := os.ReadDir(s.outputDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error().Err(err).Str("dir", s.outputDir).Msg("failed to list output directory")
		return nil, fmt.Errorf("listing output directory: %w", err)
	}

	for _, entry := range entries {
		p := filepath.Join(s.outputDir, entry.Name())
		if err := os.RemoveAll(p); err != nil {
			result.Failed++
			logger.Warn().Err(err).Str("path", p).Msg("failed to delete file")
			continue
		}
		result.Removed++
	}

	s.metrics.recordPurge(result.Removed, result.Failed)
	s.record(ctx, ActionPurge, "", "", map[string]interface{}{
		"removed": result.Removed,
		"failed":  result.Failed,
	})
	logger.Info().Int("removed", result.Removed).Int("failed", result.Failed).Msg("purge completed")

	return result, nil
}

// Resolve maps a requested download name to a stored image. The name is
// sanitized the same way as on generation and the resulting path must be a
// regular file inside the output directory.
func (s *Service) Resolve(filename string) (string, error) {
	name, err := Sanitize(filename)
	if err != nil {
		return "", ErrNotFound
	}

	p := filepath.Join(s.outputDir, name)
	rel, err := filepath.Rel(s.outputDir, p)
	if err != nil || rel != name {
		return "", ErrNotFound
	}

	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return p, nil
}

func (s *Service) record(ctx context.Context, action, filename, link string, metadata map[string]interface{}) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, action, filename, link, metadata)
}
