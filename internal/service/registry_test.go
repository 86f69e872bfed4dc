package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/beaconlabs/beacon/internal/models"
)

func newTestRegistryService(t *testing.T) (*RegistryService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t, &models.Brand{}, &models.AutomationSetting{})
	return NewRegistryService(db, zap.NewNop()), db
}

func TestListActiveBrandsEmptyRegistry(t *testing.T) {
	svc, _ := newTestRegistryService(t)

	brands, source := svc.ListActiveBrands(context.Background())
	assert.Equal(t, SourceEmpty, source)
	require.NotEmpty(t, brands)
	assert.Equal(t, "beacon", brands[0].ID)
}

func TestListActiveBrandsSeeded(t *testing.T) {
	svc, db := newTestRegistryService(t)
	require.NoError(t, db.Create(&models.Brand{ID: "acme", DisplayName: "Acme", ExternalHandle: "acme_hq"}).Error)

	brands, source := svc.ListActiveBrands(context.Background())
	assert.Equal(t, SourceRegistry, source)
	require.Len(t, brands, 1)
	assert.Equal(t, "acme", brands[0].ID)
}

func TestResolveBrandCaseInsensitive(t *testing.T) {
	svc, db := newTestRegistryService(t)
	require.NoError(t, db.Create(&models.Brand{ID: "acme", DisplayName: "Acme Corp", ExternalHandle: "acme_hq"}).Error)

	brand, err := svc.ResolveBrand(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "acme", brand.ID)

	brand, err = svc.ResolveBrand(context.Background(), "acme corp")
	require.NoError(t, err)
	assert.Equal(t, "acme", brand.ID)

	_, err = svc.ResolveBrand(context.Background(), "nobody")
	assert.Error(t, err)
}

func TestAutomationEnabledSettingOverridesBrand(t *testing.T) {
	svc, db := newTestRegistryService(t)
	require.NoError(t, db.Create(&models.Brand{
		ID: "acme", DisplayName: "Acme", ExternalHandle: "acme_hq", AutomationEnabled: true,
	}).Error)
	require.NoError(t, db.Create(&models.AutomationSetting{TenantID: "acme", Enabled: false}).Error)

	assert.False(t, svc.AutomationEnabled(context.Background(), "acme"))
}

func TestAutomationEnabledFallsBackToBrandFlag(t *testing.T) {
	svc, db := newTestRegistryService(t)
	require.NoError(t, db.Create(&models.Brand{
		ID: "acme", DisplayName: "Acme", ExternalHandle: "acme_hq", AutomationEnabled: false,
	}).Error)

	// No setting row: the brand-level flag decides.
	assert.False(t, svc.AutomationEnabled(context.Background(), "acme"))

	require.NoError(t, db.Model(&models.Brand{}).Where("id = ?", "acme").
		Update("automation_enabled", true).Error)
	assert.True(t, svc.AutomationEnabled(context.Background(), "acme"))
}

func TestAutomationEnabledDefaultsToEnabled(t *testing.T) {
	svc, _ := newTestRegistryService(t)

	// Neither a setting row nor a brand row exists.
	assert.True(t, svc.AutomationEnabled(context.Background(), "ghost"))
}
