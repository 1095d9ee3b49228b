package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/tools"
)

type LogRequest struct {
	Experiment  string
	RunName     string
	AgentConfig *config.AgentConfig
	// logged as data_pipeline.* params and data_pipeline_config.json
	DataPipelineConfig map[string]any
	Resources          []tools.Resource
}

// records the agent config, the data pipeline config and the agent's
// resource dependencies in a tracking run
func (d *Deployer) LogAgent(ctx context.Context, req LogRequest) (info *ModelInfo, err error) {
	if req.AgentConfig == nil {
		return nil, fmt.Errorf("agent config is required")
	}

	experiment := req.Experiment
	if experiment == "" {
		experiment = DefaultExperiment
	}

	experimentID, err := d.platform.GetOrCreateExperiment(ctx, experiment)
	if err != nil {
		return nil, err
	}

	run, err := d.platform.CreateRun(ctx, platform.CreateRunRequest{
		ExperimentID: experimentID,
		RunName:      req.RunName,
		StartTime:    d.now().UnixMilli(),
		Tags:         []platform.RunTag{{Key: RunTypeTag, Value: RunTypeChain}},
	})
	if err != nil {
		return nil, err
	}

	defer func() {
		status := platform.RunStatusFinished
		if err != nil {
			status = platform.RunStatusFailed
		}

		if updateErr := d.platform.UpdateRun(ctx, run.RunID, status); updateErr != nil {
			logger.Warn("failed to close run", "run_id", run.RunID, "error", updateErr)
		}
	}()

	if err := d.uploadArtifacts(ctx, run, req); err != nil {
		return nil, err
	}

	resources, err := json.Marshal(req.Resources)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resources: %w", err)
	}

	params := paramsFrom(FlattenParams(map[string]any{"data_pipeline": req.DataPipelineConfig}))
	tags := []platform.RunTag{{Key: "ragcookbook.resources", Value: string(resources)}}

	if err := d.platform.LogBatch(ctx, run.RunID, params, tags); err != nil {
		return nil, err
	}

	logger.Info("agent logged",
		"run_id", run.RunID,
		"experiment_id", experimentID,
		"params", len(params),
		"resources", len(req.Resources),
	)

	return &ModelInfo{
		RunID:        run.RunID,
		ExperimentID: experimentID,
		ModelURI:     fmt.Sprintf("runs:/%s/%s", run.RunID, artifactPath),
	}, nil
}

func (d *Deployer) uploadArtifacts(ctx context.Context, run *platform.RunInfo, req LogRequest) error {
	agentYAML, err := req.AgentConfig.YAML()
	if err != nil {
		return fmt.Errorf("failed to encode agent config: %w", err)
	}

	if err := d.platform.UploadArtifact(ctx, run, artifactPath+"/agent_config.yaml", agentYAML); err != nil {
		return err
	}

	if req.AgentConfig.InputExample != nil {
		example, err := json.Marshal(req.AgentConfig.InputExample)
		if err != nil {
			return fmt.Errorf("failed to encode input example: %w", err)
		}

		if err := d.platform.UploadArtifact(ctx, run, artifactPath+"/input_example.json", example); err != nil {
			return err
		}
	}

	if req.DataPipelineConfig != nil {
		pipeline, err := json.MarshalIndent(req.DataPipelineConfig, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode data pipeline config: %w", err)
		}

		if err := d.platform.UploadArtifact(ctx, run, "data_pipeline_config.json", pipeline); err != nil {
			return err
		}
	}

	return nil
}

// flattens nested maps into dotted keys: {"a": {"b": 1}} -> {"a.b": "1"};
// lists are JSON encoded
func FlattenParams(params map[string]any) map[string]string {
	out := make(map[string]string)
	flatten("", params, out)

	return out
}

func flatten(prefix string, params map[string]any, out map[string]string) {
	for k, v := range params {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch value := v.(type) {
		case map[string]any:
			flatten(key, value, out)
		case nil:
			out[key] = ""
		case string:
			out[key] = value
		case []any, []string:
			data, err := json.Marshal(value)
			if err != nil {
				out[key] = fmt.Sprint(value)
				continue
			}
			out[key] = string(data)
		default:
			out[key] = fmt.Sprint(value)
		}
	}
}

func paramsFrom(flat map[string]string) []platform.Param {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	params := make([]platform.Param, 0, len(keys))
	for _, k := range keys {
		params = append(params, platform.Param{Key: k, Value: flat[k]})
	}

	return params
}
