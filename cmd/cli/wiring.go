package main

import (
	"fmt"

	"github.com/csrfshield/csrfshield/pkg/authdetect"
	"github.com/csrfshield/csrfshield/pkg/config"
	"github.com/csrfshield/csrfshield/pkg/features"
	"github.com/csrfshield/csrfshield/pkg/inference"
	"github.com/csrfshield/csrfshield/pkg/pipeline"
	"github.com/csrfshield/csrfshield/pkg/rules"
	"github.com/csrfshield/csrfshield/pkg/scoring"
)

// loadSettings reads the YAML settings file, or the defaults when no file
// is given. The -model flag overrides the file.
func loadSettings(configPath, modelPath string) (config.Settings, error) {
	settings := config.Default()
	if configPath != "" {
		var err error
		settings, err = config.Load(configPath)
		if err != nil {
			return config.Settings{}, err
		}
	}
	if modelPath != "" {
		settings.ModelPath = modelPath
	}
	return settings, nil
}

// buildOrchestrator wires the pipeline collaborators from settings.
func buildOrchestrator(settings config.Settings) (*pipeline.Orchestrator, error) {
	extractor := features.NewExtractor(settings.FeatureConfig())
	engine := rules.NewEngine(rules.Builtin(settings.RulesConfig()), extractor.IdentifyToken)

	var predictor inference.Predictor
	if settings.ModelPath != "" {
		model, err := inference.LoadModel(settings.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		predictor = model
	} else {
		predictor = inference.DefaultModel()
	}

	return pipeline.New(pipeline.Options{
		Classifier:     authdetect.NewClassifier(settings.AuthHeaders, settings.SessionCookiePatterns),
		Engine:         engine,
		Extractor:      extractor,
		Predictor:      predictor,
		Scorer:         scoring.NewScorer(settings.ScoringConfig()),
		ActionKeywords: settings.ActionKeywords,
	}), nil
}
