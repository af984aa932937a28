package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 7, cfg.Booking.HorizonDays)
	assert.Equal(t, 120, cfg.Booking.MaxHorizonDays)
	assert.Equal(t, "Europe/Paris", cfg.Booking.Timezone)
	assert.Equal(t, "EVENEMENTS", cfg.Booking.EventsActivity)
	assert.Equal(t, 30*time.Minute, cfg.Booking.SelectionTTL)
	assert.Equal(t, 32, cfg.Realtime.BufferSize)
	assert.Equal(t, "@every 15m", cfg.Jobs.ExpirePaymentsSpec)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("BOOKING_HORIZON_DAYS", 0)
	v.Set("BOOKING_SELECTION_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := fromViper(v)

	assert.Equal(t, 7, cfg.Booking.HorizonDays)
	assert.Equal(t, 30*time.Minute, cfg.Booking.SelectionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
