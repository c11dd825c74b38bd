package survey

import (
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/config"
	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
)

type reader struct {
	emissionsPath  string
	emissionsSheet int
	modeSharePaths map[string]string
	logger         *zap.Logger
}

// NewSurveyReader reads the survey extracts named in cfg from local files
func NewSurveyReader(cfg *config.DataConfig, logger *zap.Logger) repository.SurveyRepository {
	return &reader{
		emissionsPath:  cfg.EmissionsPath,
		emissionsSheet: cfg.EmissionsSheet,
		modeSharePaths: map[string]string{
			domain.SA22018.Name: cfg.ModeSharePath,
			domain.SA22023.Name: cfg.ModeShare2023Path,
		},
		logger: logger,
	}
}

func (r *reader) modeSharePath(vintage domain.Vintage) (string, error) {
	path := r.modeSharePaths[vintage.Name]
	if path == "" {
		return "", errors.ErrConfigurationMissing.Detail("vintage", vintage.Name)
	}
	return path, nil
}
