package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/facegate-io/facegate/internal/domain"
	"github.com/facegate-io/facegate/internal/embedding"
	"github.com/facegate-io/facegate/internal/observability"
	"github.com/facegate-io/facegate/internal/repository"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	// ErrEmbeddingFailed covers any upstream model failure, including "no
	// face detected". The HTTP boundary maps it to a generic authentication
	// failure so matcher internals never leak to callers.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
	// ErrNoReference means no usable reference embedding exists for the uuid.
	// Verification treats it as a deny, not a hard error.
	ErrNoReference = errors.New("no usable reference embedding")
	ErrNoImages    = errors.New("at least one image is required")
)

// embedConcurrency bounds parallel model calls within one request. Requests
// do not contend with each other; this only keeps a single large batch from
// monopolizing the embedder.
const embedConcurrency = 4

// MatchResult is the outcome of comparing fresh samples against the stored
// reference.
type MatchResult struct {
	Matched bool
	Score   float64
}

// FaceService drives enrollment and biometric verification: embedding
// generation, mean aggregation, cosine scoring against a threshold, and
// last-write-wins persistence of the reference vector.
type FaceService struct {
	provider  embedding.Provider
	profiles  repository.FaceProfileRepository
	archive   SampleArchive
	threshold float64
}

func NewFaceService(provider embedding.Provider, profiles repository.FaceProfileRepository, archive SampleArchive, threshold float64) *FaceService {
	return &FaceService{provider: provider, profiles: profiles, archive: archive, threshold: threshold}
}

// Enroll aggregates the embeddings of all images into one reference vector
// and stores it for the uuid, replacing any prior reference. A single
// embedding failure aborts the whole batch; partial enrollment is not
// supported.
func (s *FaceService) Enroll(ctx context.Context, uuid string, images [][]byte) error {
	if uuid == "" {
		return fmt.Errorf("uuid is required")
	}
	if len(images) == 0 {
		return ErrNoImages
	}

	vectors, err := s.embedAll(ctx, "enroll", images)
	if err != nil {
		observability.RecordFaceEnrollment(ctx, "embedding_failed")
		return err
	}
	reference, err := embedding.Mean(vectors)
	if err != nil {
		observability.RecordFaceEnrollment(ctx, "aggregation_failed")
		return err
	}
	if err := s.profiles.Upsert(ctx, &domain.FaceProfile{UUID: uuid, Embedding: reference}); err != nil {
		observability.RecordFaceEnrollment(ctx, "store_failed")
		return fmt.Errorf("store reference embedding: %w", err)
	}
	s.archiveSamples(ctx, uuid, images)
	observability.RecordFaceEnrollment(ctx, "success")
	return nil
}

// Verify compares a fresh aggregate of the supplied images against the
// stored reference. ErrNoReference is returned when nothing usable is stored
// for the uuid; callers deny access rather than erroring.
func (s *FaceService) Verify(ctx context.Context, uuid string, images [][]byte) (*MatchResult, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	profile, err := s.profiles.FindByUUID(ctx, uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordFaceVerification(ctx, "no_reference")
			return nil, ErrNoReference
		}
		return nil, fmt.Errorf("load reference embedding: %w", err)
	}
	if !profile.Usable() {
		observability.RecordFaceVerification(ctx, "no_reference")
		return nil, ErrNoReference
	}

	vectors, err := s.embedAll(ctx, "verify", images)
	if err != nil {
		observability.RecordFaceVerification(ctx, "embedding_failed")
		return nil, err
	}
	fresh, err := embedding.Mean(vectors)
	if err != nil {
		return nil, err
	}

	score, err := embedding.Cosine(profile.Embedding, fresh)
	if err != nil {
		// Dimension or magnitude violations mean the pipeline produced
		// corrupt data; surface them, never a soft deny.
		return nil, err
	}
	observability.RecordSimilarityScore(ctx, score)

	matched := score >= s.threshold
	if matched {
		observability.RecordFaceVerification(ctx, "matched")
	} else {
		observability.RecordFaceVerification(ctx, "not_matched")
	}
	return &MatchResult{Matched: matched, Score: score}, nil
}

// embedAll generates one embedding per image. Model calls run in parallel
// without holding any lock; the first failure cancels the remainder.
func (s *FaceService) embedAll(ctx context.Context, operation string, images [][]byte) ([][]float64, error) {
	start := time.Now()
	defer func() {
		observability.RecordEmbeddingDuration(ctx, operation, time.Since(start))
	}()

	vectors := make([][]float64, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, img := range images {
		g.Go(func() error {
			vec, err := s.provider.Embed(gctx, img)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// archiveSamples is best-effort: losing an archival copy never fails an
// enrollment that already persisted its reference.
func (s *FaceService) archiveSamples(ctx context.Context, uuid string, images [][]byte) {
	if s.archive == nil {
		return
	}
	if _, err := s.archive.ArchiveSamples(ctx, uuid, images); err != nil {
		observability.RecordSampleArchiveEvent(ctx, "failure")
		slog.WarnContext(ctx, "enrollment sample archive failed", "uuid", uuid, "error", err)
		return
	}
	observability.RecordSampleArchiveEvent(ctx, "success")
}
