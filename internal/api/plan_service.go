package api

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samcharles93/pipeplan/internal/export"
	"github.com/samcharles93/pipeplan/internal/observability"
	"github.com/samcharles93/pipeplan/internal/profile"
)

// ArtifactUploader stores an encoded plan remotely and returns its URL.
type ArtifactUploader interface {
	Upload(ctx context.Context, a export.Artifact, format export.Format) (string, error)
}

type PlanService struct {
	provider          GeneratorProvider
	defaultNodeMemory int64
	uploader          ArtifactUploader
	clock             func() time.Time
}

func NewPlanService(provider GeneratorProvider, defaultNodeMemory int64) *PlanService {
	return &PlanService{
		provider:          provider,
		defaultNodeMemory: defaultNodeMemory,
		clock:             time.Now,
	}
}

// WithUploader enables the upload request option.
func (s *PlanService) WithUploader(u ArtifactUploader) *PlanService {
	s.uploader = u
	return s
}

// CreatePlan solves the request and converts the result to its API form.
// The returned plan has no ID yet.
func (s *PlanService) CreatePlan(ctx context.Context, req *CreatePlanRequest) (_ *Plan, err error) {
	ctx, span := observability.StartSpan(ctx, "api.create_plan",
		attribute.String("profile.model", req.Model),
		attribute.String("profile.tag", req.Tag),
	)
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(req.Tag) == "" {
		return nil, newInvalidRequest("tag", "tag is required")
	}
	if err := profile.CheckTag(strings.TrimSpace(req.Tag)); err != nil {
		return nil, newInvalidRequest("tag", err.Error())
	}
	if err := profile.CheckModel(strings.TrimSpace(req.Model)); err != nil {
		return nil, newInvalidRequest("model", err.Error())
	}
	if len(req.Nodes) == 0 {
		return nil, newInvalidRequest("nodes", "nodes must list at least one node count")
	}
	nodeMemory := s.defaultNodeMemory
	if req.NodeMemory != nil {
		if *req.NodeMemory < 0 {
			return nil, newInvalidRequest("node_memory", "node_memory must not be negative")
		}
		nodeMemory = *req.NodeMemory
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, newInvalidRequest("format", err.Error())
	}
	if req.Upload && s.uploader == nil {
		return nil, newInvalidRequest("upload", "no object store is configured for uploads")
	}

	g, err := s.provider.Generator(ctx, GeneratorKey{Model: req.Model, Tag: req.Tag, NodeMemory: nodeMemory})
	if err != nil {
		return nil, err
	}
	res, err := g.Plan(ctx, req.Nodes)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	artifact, err := export.FromResult(g.Profile(), res, now)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Object:     "plan",
		CreatedAt:  now.Unix(),
		Model:      artifact.Model,
		Tag:        artifact.Tag,
		NodeMemory: artifact.NodeMemory,
		Templates:  artifact.Templates,
		Infeasible: artifact.Infeasible,
	}
	if plan.Infeasible == nil {
		plan.Infeasible = []int{}
	}
	if req.Export {
		path, err := export.Write(g.OutputDir(), artifact, format)
		if err != nil {
			return nil, err
		}
		plan.ArtifactPath = path
	}
	if req.Upload {
		url, err := s.uploader.Upload(ctx, artifact, format)
		if err != nil {
			return nil, err
		}
		plan.ArtifactURL = url
	}
	return plan, nil
}
