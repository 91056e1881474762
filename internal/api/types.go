package api

import (
	"github.com/samcharles93/pipeplan/internal/export"
	"github.com/samcharles93/pipeplan/internal/profile"
)

type CreatePlanRequest struct {
	Model string `json:"model,omitempty"`
	Tag   string `json:"tag"`
	Nodes []int  `json:"nodes"`
	// NodeMemory overrides the server default ceiling in bytes; 0 is unlimited.
	NodeMemory *int64 `json:"node_memory,omitempty"`
	// Export also writes the plan artifact to the server's output directory.
	Export bool `json:"export,omitempty"`
	// Upload also stores the artifact in the configured object store.
	Upload bool   `json:"upload,omitempty"`
	Format string `json:"format,omitempty"`
}

type Plan struct {
	ID           string            `json:"id"`
	Object       string            `json:"object"`
	CreatedAt    int64             `json:"created_at"`
	Model        string            `json:"model,omitempty"`
	Tag          string            `json:"tag"`
	NodeMemory   int64             `json:"node_memory"`
	Templates    []export.Template `json:"templates"`
	Infeasible   []int             `json:"infeasible"`
	ArtifactPath string            `json:"artifact_path,omitempty"`
	ArtifactURL  string            `json:"artifact_url,omitempty"`
}

type PlanList struct {
	Object string `json:"object"`
	Data   []Plan `json:"data"`
}

type PlanDeleted struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type ProfileList struct {
	Object string          `json:"object"`
	Data   []profile.Entry `json:"data"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
