package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestWithDefaults(t *testing.T) {
	cfg := Configuration{}.WithDefaults()

	assert.Equal(t, DefaultAdapter, cfg.Adapter)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, DefaultServicesResolvedTimeout, cfg.ServicesResolvedTimeout)
	assert.Equal(t, DefaultNotifyTimeout, cfg.NotifyTimeout)
	assert.NotNil(t, cfg.Logger)
}

func TestWithDefaults_KeepsValues(t *testing.T) {
	logger, _ := test.NewNullLogger()

	cfg := Configuration{
		Adapter:        "hci2",
		ConnectTimeout: time.Second,
		NotifyTimeout:  -time.Second,
		Logger:         logger,
	}.WithDefaults()

	assert.Equal(t, "hci2", cfg.Adapter)
	assert.Equal(t, time.Second, cfg.ConnectTimeout)
	assert.Equal(t, DefaultServicesResolvedTimeout, cfg.ServicesResolvedTimeout)
	assert.Equal(t, DefaultNotifyTimeout, cfg.NotifyTimeout)
	assert.Same(t, logger, cfg.Logger)
}
