package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roomify/db"
	"roomify/logging"
	"roomify/objectstore"
	"roomify/pipeline"
	"roomify/shutdown"
	"roomify/vision"
)

// Generator runs the pipeline and saves successful results to history.
// HTTP handlers, the job queue and the Lambda entrypoint all go through it.
type Generator struct {
	pipeline *pipeline.Pipeline
	designs  *db.Repository
	images   objectstore.Store
	tracker  Tracker
	logger   *logging.Logger
}

// NewGenerator wires a pipeline to optional history stores. History is
// saved only when both designs and images are set.
func NewGenerator(p *pipeline.Pipeline, designs *db.Repository, images objectstore.Store, tracker Tracker, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		pipeline: p,
		designs:  designs,
		images:   images,
		tracker:  tracker,
		logger:   logger.Named("generator"),
	}
}

// Pipeline returns the wrapped pipeline.
func (g *Generator) Pipeline() *pipeline.Pipeline {
	return g.pipeline
}

// HistoryEnabled reports whether successful runs are persisted.
func (g *Generator) HistoryEnabled() bool {
	return g.designs != nil && g.images != nil
}

// ActiveOperations is the number of tracked runs in flight.
func (g *Generator) ActiveOperations() int64 {
	if g.tracker == nil {
		return 0
	}
	return g.tracker.ActiveOperations()
}

// Generate runs req and returns the response envelope with its HTTP status.
func (g *Generator) Generate(ctx context.Context, req pipeline.Request) (pipeline.Envelope, int) {
	var (
		res    *pipeline.Result
		runErr error
	)
	run := func(ctx context.Context) error {
		res, runErr = g.pipeline.Run(ctx, req)
		return nil
	}

	if g.tracker != nil {
		if err := g.tracker.Track(ctx, run); errors.Is(err, shutdown.ErrTrackerClosed) {
			env := pipeline.Failure(err)
			env.Message = "Server is shutting down"
			return env, http.StatusServiceUnavailable
		}
	} else {
		run(ctx)
	}

	if runErr != nil {
		return pipeline.Failure(runErr), StatusFor(runErr)
	}

	env := pipeline.Success(res)
	if g.HistoryEnabled() {
		env.DesignID = g.persist(ctx, req, res, env)
	}
	return env, http.StatusOK
}

// HandleJob adapts Generate to the job queue. A failed run still carries
// its envelope as output.
func (g *Generator) HandleJob(ctx context.Context, id string, input any) (any, error) {
	req, ok := input.(pipeline.Request)
	if !ok {
		return nil, errors.New("unexpected job input")
	}
	req.RequestID = id

	env, _ := g.Generate(ctx, req)
	if !env.OK {
		msg := env.Message
		if env.Details != "" {
			msg += ": " + env.Details
		}
		return env, errors.New(msg)
	}
	return env, nil
}

// StatusFor maps a pipeline error to an HTTP status: input problems are
// 400, an unreachable model server 502, anything else 500.
func StatusFor(err error) int {
	switch {
	case pipeline.KindOf(err) == pipeline.InputError:
		return http.StatusBadRequest
	case pipeline.BackendUnavailable(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// persist saves the generated image, the source photo and the metadata.
// Failures are logged and leave the response untouched apart from the
// missing design ID.
func (g *Generator) persist(ctx context.Context, req pipeline.Request, res *pipeline.Result, env pipeline.Envelope) string {
	id := uuid.NewString()
	log := g.logger.With(zap.String("design_id", id), zap.String("request_id", req.RequestID))

	imageKey := objectstore.DesignKey(id)
	url, err := g.images.Put(ctx, imageKey, res.PNG, objectstore.ContentTypePNG)
	if err != nil {
		log.Warn("failed to store generated image", zap.Error(err))
		return ""
	}

	var sourceKey string
	if raw, err := decodeUpload(req.Image); err == nil {
		key := objectstore.SourceKey(id)
		if _, err := g.images.Put(ctx, key, raw, http.DetectContentType(raw)); err != nil {
			log.Warn("failed to store source photo", zap.Error(err))
		} else {
			sourceKey = key
		}
	}

	d := &db.Design{
		ID:             id,
		RoomType:       res.Request.RoomType,
		DesignStyle:    res.Request.DesignStyle,
		ColorTone:      res.Request.ColorTone,
		CustomPrompt:   strings.TrimSpace(req.Prompt),
		Prompt:         res.Prompt.Positive,
		NegativePrompt: res.Prompt.Negative,
		Variant:        res.Variant,
		Bucket:         string(res.Signals.Bucket),
		Seed:           res.Signals.Seed,
		HasWindow:      env.HasWindow,
		HasCurtain:     env.HasCurtain,
		SourceKey:      sourceKey,
		ImageKey:       imageKey,
		ImageURL:       url,
	}
	if err := g.designs.InsertDesign(ctx, d); err != nil {
		log.Warn("failed to save design", zap.Error(err))
		g.removeImages(ctx, imageKey, sourceKey)
		return ""
	}
	log.Debug("design saved", zap.String("image_url", url))
	return id
}

// Delete removes a design and its images.
func (g *Generator) Delete(ctx context.Context, id string) error {
	if !g.HistoryEnabled() {
		return db.ErrNotFound
	}
	d, err := g.designs.DeleteDesign(ctx, id)
	if err != nil {
		return err
	}
	g.removeImages(ctx, d.ImageKey, d.SourceKey)
	return nil
}

// Expire is the retention sweeper's callback.
func (g *Generator) Expire(ctx context.Context, d db.Design) {
	g.removeImages(ctx, d.ImageKey, d.SourceKey)
}

func (g *Generator) removeImages(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := g.images.Delete(ctx, k); err != nil {
			g.logger.Warn("failed to delete image", zap.String("key", k), zap.Error(err))
		}
	}
}

func decodeUpload(s string) ([]byte, error) {
	compact := strings.Join(strings.Fields(vision.StripDataURL(s)), "")
	return base64.StdEncoding.DecodeString(vision.RepairPadding(compact))
}
