// Package pipeline composes translation, generation and archiving into the single
// operation exposed by the CLI and the HTTP server.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/varnalabs/apitestgen/internal/diag"
	"github.com/varnalabs/apitestgen/internal/model"
)

// Translator is the document translation stage.
type Translator interface {
	Translate(ctx context.Context, raw []byte, correlationID string) (*model.Contract, error)
}

// Generator is the project generation stage.
type Generator interface {
	Generate(c *model.Contract, correlationID string) (*model.Project, error)
}

// Archiver is the packaging stage.
type Archiver interface {
	Archive(p *model.Project, correlationID string) ([]byte, error)
}

// Service runs the three stages in order. Stage failures are returned exactly as
// the stage produced them.
type Service struct {
	translator Translator
	generator  Generator
	archiver   Archiver
	log        *diag.Logger
}

// New wires a Service.
func New(t Translator, g Generator, a Archiver, log *diag.Logger) *Service {
	if log == nil {
		log = diag.Discard()
	}
	return &Service{translator: t, generator: g, archiver: a, log: log}
}

// Result is the outcome of a successful Run.
type Result struct {
	CorrelationID string
	Contract      *model.Contract
	Project       *model.Project
	Archive       []byte
}

// NewCorrelationID returns a fresh id for tracing one request across stages.
func NewCorrelationID() string { return uuid.NewString() }

// TranslateAndGenerate turns raw into archive bytes.
func (s *Service) TranslateAndGenerate(ctx context.Context, raw []byte, correlationID string) ([]byte, error) {
	res, err := s.Run(ctx, raw, correlationID)
	if err != nil {
		return nil, err
	}
	return res.Archive, nil
}

// Run is TranslateAndGenerate that also returns the intermediate values. A blank
// correlationID is replaced with a fresh one.
func (s *Service) Run(ctx context.Context, raw []byte, correlationID string) (*Result, error) {
	if strings.TrimSpace(correlationID) == "" {
		correlationID = NewCorrelationID()
	}
	log := s.log.With(correlationID)
	start := time.Now()
	log.Infof("pipeline started (%d bytes)", len(raw))

	contract, err := s.translator.Translate(ctx, raw, correlationID)
	if err != nil {
		log.Warnf("translation failed: %v", err)
		return nil, err
	}
	log.Debugf("translated: %s", contract)

	project, err := s.generator.Generate(contract, correlationID)
	if err != nil {
		log.Errorf("generation failed: %v", err)
		return nil, err
	}
	log.Debugf("generated: %s", project)

	data, err := s.archiver.Archive(project, correlationID)
	if err != nil {
		log.Errorf("archiving failed: %v", err)
		return nil, err
	}
	log.Infof("pipeline finished in %s: project %q, %d files, %d bytes", time.Since(start).Round(time.Millisecond), project.Name(), project.FileCount(), len(data))
	return &Result{CorrelationID: correlationID, Contract: contract, Project: project, Archive: data}, nil
}
