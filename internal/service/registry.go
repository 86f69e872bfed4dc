package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/beaconlabs/beacon/internal/models"
)

// RegistrySource tags where a brand listing came from, so callers can tell
// a legitimately empty registry apart from an unreachable one.
type RegistrySource string

const (
	SourceRegistry RegistrySource = "registry"
	SourceEmpty    RegistrySource = "empty"
	SourceFallback RegistrySource = "fallback"
)

// defaultBrands keeps the agent functional when the registry is down or
// has not been seeded yet.
var defaultBrands = []models.Brand{
	{
		ID:                "beacon",
		DisplayName:       "Beacon",
		ExternalHandle:    "beaconprotocol",
		Topic:             "cryptocurrencies",
		AutomationEnabled: true,
	},
}

// RegistryService resolves brands and their automation settings. Pure read
// accessors; no caching beyond the call.
type RegistryService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRegistryService(db *gorm.DB, logger *zap.Logger) *RegistryService {
	return &RegistryService{db: db, logger: logger}
}

// ListActiveBrands returns all registered brands. On a store error it falls
// back to the static default list; on zero rows it returns the same list
// tagged as an empty registry.
func (s *RegistryService) ListActiveBrands(ctx context.Context) ([]models.Brand, RegistrySource) {
	var brands []models.Brand
	if err := s.db.WithContext(ctx).Find(&brands).Error; err != nil {
		s.logger.Warn("Brand registry unreachable, using fallback list", zap.Error(err))
		return defaultBrands, SourceFallback
	}

	if len(brands) == 0 {
		s.logger.Info("Brand registry empty, using fallback list")
		return defaultBrands, SourceEmpty
	}

	return brands, SourceRegistry
}

// ResolveBrand finds a brand by id or display name, case-insensitively.
func (s *RegistryService) ResolveBrand(ctx context.Context, identifier string) (*models.Brand, error) {
	needle := strings.ToLower(strings.TrimSpace(identifier))

	brands, _ := s.ListActiveBrands(ctx)
	for i := range brands {
		if strings.ToLower(brands[i].ID) == needle || strings.ToLower(brands[i].DisplayName) == needle {
			return &brands[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// AutomationEnabled reports the per-tenant gate. When no setting row
// exists the brand-level flag is the default, then enabled; a store error
// also defaults to enabled so a flaky settings table cannot silently halt
// every tenant.
func (s *RegistryService) AutomationEnabled(ctx context.Context, tenantID string) bool {
	var setting models.AutomationSetting
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&setting).Error
	if err == nil {
		return setting.Enabled
	}
	if err != gorm.ErrRecordNotFound {
		s.logger.Warn("Failed to read automation setting",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return true
	}

	var brand models.Brand
	if err := s.db.WithContext(ctx).Where("id = ?", tenantID).First(&brand).Error; err != nil {
		return true
	}
	return brand.AutomationEnabled
}
