package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
)

func TestNewPublisherDisabled(t *testing.T) {
	assert.Nil(t, newPublisher(&config.Config{}))
	assert.Nil(t, newPublisher(&config.Config{Events: &config.EventsConfig{Enabled: false}}))
}

func TestNewPublisherUnreachableBroker(t *testing.T) {
	cfg := &config.Config{Events: &config.EventsConfig{
		Enabled: true,
		URL:     "nats://127.0.0.1:1", // nothing listens here
		Subject: "docs.links.broken",
	}}
	assert.Nil(t, newPublisher(cfg))
}

func TestNewBuilderWithoutPublisher(t *testing.T) {
	cfg, err := config.Parse([]byte("site_name: Test\n"))
	require.NoError(t, err)
	assert.NotNil(t, newBuilder(cfg, t.TempDir(), nil))
}
