package outreach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/outreach-engine/internal/model"
)

func TestRender(t *testing.T) {
	now := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)
	silentSince := now.Add(-9 * time.Hour)

	recipient := &model.Recipient{
		Name:        "Anna",
		Phone:       "+49151234567",
		Project:     "warehouse-north",
		SilentSince: &silentSince,
	}

	t.Run("substitutes known fields", func(t *testing.T) {
		out := Render("Hi {name}, news on {project}?", recipient, now)
		assert.Equal(t, "Hi Anna, news on warehouse-north?", out)
	})

	t.Run("silence hours", func(t *testing.T) {
		out := Render("Quiet for {silence_hours}h", recipient, now)
		assert.Equal(t, "Quiet for 9h", out)
	})

	t.Run("unknown placeholder stays literal", func(t *testing.T) {
		out := Render("Hi {name}, your {locker_number} is ready", recipient, now)
		assert.Equal(t, "Hi Anna, your {locker_number} is ready", out)
	})

	t.Run("silence hours without silent since stays literal", func(t *testing.T) {
		active := &model.Recipient{Name: "Ben"}
		out := Render("Quiet for {silence_hours}h", active, now)
		assert.Equal(t, "Quiet for {silence_hours}h", out)
	})

	t.Run("no placeholders", func(t *testing.T) {
		out := Render("plain text", recipient, now)
		assert.Equal(t, "plain text", out)
	})
}
