package rag

import (
	"context"

	"tutor-rag/internal/models"
)

// HealthStatus reports whether the system can serve queries. Read-only.
type HealthStatus struct {
	Status          string `json:"status"`
	Initialized     bool   `json:"knowledge_base_initialized"`
	ChunkCount      int    `json:"chunk_count"`
	StoreBackend    string `json:"store_backend"`
	GeneratorModel  string `json:"generator_model"`
	GeneratorConfig bool   `json:"generator_configured"`
}

// Health inspects the store and the generator configuration without
// side effects.
func (p *Pipeline) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		StoreBackend:    p.cfg.Store.Backend,
		GeneratorModel:  p.cfg.ChatLLM.Model,
		GeneratorConfig: p.generator != nil && p.cfg.ChatLLM.Model != "",
	}

	count, err := p.store.Count(ctx)
	if err != nil {
		status.Status = "error"
		return status
	}
	status.ChunkCount = count
	status.Initialized = count > 0
	if status.Initialized && status.GeneratorConfig {
		status.Status = "healthy"
	} else {
		status.Status = "not_initialized"
	}
	return status
}

// DemoProfiles are the representative student profiles the demo runs
// each sample query under.
var DemoProfiles = []models.StudentProfile{
	{UserType: models.General},
	{UserType: models.WeakPhysics, WeakSubjects: []string{"physics"}},
	{UserType: models.StrongChemistry},
}

// Demo runs the fixed sample queries across representative profiles.
// It is a smoke-test convenience, not part of the core contract.
func (p *Pipeline) Demo(ctx context.Context) []*models.PipelineResult {
	var results []*models.PipelineResult
	for i, query := range models.DemoQueries {
		profile := DemoProfiles[i%len(DemoProfiles)]
		results = append(results, p.Query(ctx, models.QueryRequest{
			Query:     query,
			Profile:   profile,
			SessionID: "demo",
		}))
	}
	return results
}
